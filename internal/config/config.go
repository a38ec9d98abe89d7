// Package config defines the typed configuration for the alerts server.
// Sections are unmarshalled from prefab's config system (prefab.yaml plus
// PF__ environment variables) in cmd/server.
package config

import "time"

// Config represents the complete server configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Mail     MailConfig     `yaml:"mail"`
	Montreal MontrealConfig `yaml:"montreal"`
	Quebec   QuebecConfig   `yaml:"quebec"`
	Geocoder GeocoderConfig `yaml:"geocoder"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Admin    AdminConfig    `yaml:"admin"`
}

// DatabaseConfig holds persistence settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// MailConfig holds email delivery settings.
type MailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	SenderAddress  string `yaml:"sender_address"`
	SenderName     string `yaml:"sender_name"`
	AppURL         string `yaml:"app_url"`
	MaxRetries     uint64 `yaml:"max_retries"`
}

// MontrealConfig groups the Montreal upstream sources.
type MontrealConfig struct {
	InfoNeige InfoNeigeConfig     `yaml:"infoneige"`
	Geobase   GeobaseConfig       `yaml:"geobase"`
	Waste     MontrealWasteConfig `yaml:"waste"`
}

// InfoNeigeConfig holds the Planif-Neige SOAP API settings. The upstream
// usage policy allows one call per five minutes process-wide; MinCallInterval
// feeds the shared rate gate and CacheTTL the status cache.
type InfoNeigeConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	MinCallInterval time.Duration `yaml:"min_call_interval"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	Timeout         time.Duration `yaml:"timeout"`
}

// GeobaseConfig holds the Geobase Double street index settings.
type GeobaseConfig struct {
	CSVURL  string        `yaml:"csv_url"`
	MaxAge  time.Duration `yaml:"max_age"`
	Timeout time.Duration `yaml:"timeout"`
}

// MontrealWasteConfig holds the GeoJSON collection-sector settings, one
// dataset URL per waste stream.
type MontrealWasteConfig struct {
	GarbageURL   string        `yaml:"garbage_url"`
	RecyclingURL string        `yaml:"recycling_url"`
	OrganicURL   string        `yaml:"organic_url"`
	GreenURL     string        `yaml:"green_url"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	Timeout      time.Duration `yaml:"timeout"`
}

// QuebecConfig groups the Quebec City upstream sources.
type QuebecConfig struct {
	Snow  QuebecSnowConfig  `yaml:"snow"`
	Waste QuebecWasteConfig `yaml:"waste"`
}

// QuebecSnowConfig holds the ArcGIS flashing-light layer settings and the
// radius-expansion policy for proximity searches.
type QuebecSnowConfig struct {
	LayerURL       string        `yaml:"layer_url"`
	InitialRadiusM int           `yaml:"initial_radius_m"`
	RadiusStepM    int           `yaml:"radius_step_m"`
	MaxRadiusM     int           `yaml:"max_radius_m"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	Timeout        time.Duration `yaml:"timeout"`
}

// QuebecWasteConfig holds the Info-Collecte scrape settings. Scraping is
// fragile and slow, so results are cached for a full day.
type QuebecWasteConfig struct {
	BaseURL  string        `yaml:"base_url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Timeout  time.Duration `yaml:"timeout"`
}

// GeocoderConfig holds the free-text geocoding service settings used by the
// location resolver before it falls back to the static FSA table.
type GeocoderConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AlertsConfig holds decision-engine policy knobs.
type AlertsConfig struct {
	SnowDedupWindow           time.Duration `yaml:"snow_dedup_window"`
	MaxAddressesPerSubscriber int           `yaml:"max_addresses_per_subscriber"`
}

// JobsConfig holds background job cadences.
type JobsConfig struct {
	SnowCheckInterval    time.Duration `yaml:"snow_check_interval"`
	WasteReminderHour    int           `yaml:"waste_reminder_hour"`
	GeobaseRefreshPeriod time.Duration `yaml:"geobase_refresh_period"`
}

// AdminConfig holds the admin endpoint token.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// DefaultConfig returns the production defaults. API keys and the admin token
// come from the environment.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN: "alertmtl.db",
		},
		Mail: MailConfig{
			SenderAddress: "alerts@alertmtl.com",
			SenderName:    "Alert MTL",
			AppURL:        "http://localhost:8080",
			MaxRetries:    3,
		},
		Montreal: MontrealConfig{
			InfoNeige: InfoNeigeConfig{
				Endpoint:        "https://servicesenligne2.ville.montreal.qc.ca/api/infoneige/InfoneigeWebService",
				MinCallInterval: 5 * time.Minute,
				CacheTTL:        5 * time.Minute,
				Timeout:         30 * time.Second,
			},
			Geobase: GeobaseConfig{
				CSVURL: "https://donnees.montreal.ca/dataset/984f7a68-ab34-4092-9204-4bdfcca767c5/resource/" +
					"9d3d60d8-4e7f-493e-b7a6-6e89c19aee93/download/geobase-double.csv",
				MaxAge:  7 * 24 * time.Hour,
				Timeout: 2 * time.Minute,
			},
			Waste: MontrealWasteConfig{
				GarbageURL:   "https://donnees.montreal.ca/dataset/2df0fa28-7a7b-46c6-912f-93b215bd201e/resource/garbage.geojson",
				RecyclingURL: "https://donnees.montreal.ca/dataset/2df0fa28-7a7b-46c6-912f-93b215bd201e/resource/recycling.geojson",
				OrganicURL:   "https://donnees.montreal.ca/dataset/2df0fa28-7a7b-46c6-912f-93b215bd201e/resource/organic.geojson",
				GreenURL:     "https://donnees.montreal.ca/dataset/2df0fa28-7a7b-46c6-912f-93b215bd201e/resource/green.geojson",
				CacheTTL:     24 * time.Hour,
				Timeout:      60 * time.Second,
			},
		},
		Quebec: QuebecConfig{
			Snow: QuebecSnowConfig{
				LayerURL:       "https://carte.ville.quebec.qc.ca/arcgis/rest/services/CI/Deneigement/MapServer/2/query",
				InitialRadiusM: 200,
				RadiusStepM:    100,
				MaxRadiusM:     500,
				CacheTTL:       5 * time.Minute,
				Timeout:        10 * time.Second,
			},
			Waste: QuebecWasteConfig{
				BaseURL:  "https://www.ville.quebec.qc.ca/services/info-collecte",
				CacheTTL: 24 * time.Hour,
				Timeout:  30 * time.Second,
			},
		},
		Geocoder: GeocoderConfig{
			URL:     "https://geocode.arcgis.com/arcgis/rest/services/World/GeocodeServer",
			Timeout: 10 * time.Second,
		},
		Alerts: AlertsConfig{
			SnowDedupWindow:           24 * time.Hour,
			MaxAddressesPerSubscriber: 5,
		},
		Jobs: JobsConfig{
			SnowCheckInterval:    10 * time.Minute,
			WasteReminderHour:    18,
			GeobaseRefreshPeriod: 7 * 24 * time.Hour,
		},
		Admin: AdminConfig{},
	}
}
