package main

import (
	"context"
	"log"
	"net/http"

	"github.com/dpup/prefab"
	"github.com/dpup/prefab/logging"

	"github.com/alertmtl/server/internal/cache"
	"github.com/alertmtl/server/internal/clients/arcgis"
	"github.com/alertmtl/server/internal/clients/infoneige"
	"github.com/alertmtl/server/internal/clients/montrealwaste"
	"github.com/alertmtl/server/internal/clients/quebecwaste"
	"github.com/alertmtl/server/internal/config"
	"github.com/alertmtl/server/internal/lib/alerts"
	"github.com/alertmtl/server/internal/mailer"
	"github.com/alertmtl/server/internal/ratelimit"
	"github.com/alertmtl/server/internal/resolver"
	"github.com/alertmtl/server/internal/server"
	"github.com/alertmtl/server/internal/services"
	"github.com/alertmtl/server/internal/sources"
	"github.com/alertmtl/server/internal/store"
)

func main() {
	appConfig := loadConfig()

	st, err := store.Open(appConfig.Database.DSN, appConfig.Alerts.MaxAddressesPerSubscriber)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := st.SeedWasteZones(); err != nil {
		log.Fatalf("Failed to seed waste zones: %v", err)
	}

	memCache := cache.New()

	// Upstream clients. The InfoNeige gate is shared process-wide; every
	// consumer of that upstream must go through the same client.
	snowGate := ratelimit.NewGate(appConfig.Montreal.InfoNeige.MinCallInterval)
	infoNeigeClient := infoneige.NewClient(appConfig.Montreal.InfoNeige.Endpoint, appConfig.Montreal.InfoNeige.Timeout, snowGate)
	arcgisClient := arcgis.NewClient(appConfig.Geocoder.URL, appConfig.Geocoder.Timeout)
	wasteLayerClient := montrealwaste.NewClient(appConfig.Montreal.Waste.Timeout)
	scrapeClient := quebecwaste.NewClient(appConfig.Quebec.Waste.BaseURL, appConfig.Quebec.Waste.Timeout)

	// Adapters and services.
	locationResolver := resolver.New(arcgisClient)
	geobase := services.NewGeobase(st, appConfig.Montreal.Geobase)
	dispatcher := services.NewDispatcher(
		locationResolver,
		geobase,
		sources.NewMontrealSnow(infoNeigeClient, st, appConfig.Montreal.InfoNeige.CacheTTL),
		sources.NewQuebecSnow(arcgisClient, st, appConfig.Quebec.Snow),
		sources.NewMontrealWaste(wasteLayerClient, memCache, appConfig.Montreal.Waste),
		sources.NewQuebecWaste(scrapeClient, st, memCache, appConfig.Quebec.Waste),
	)

	sender := mailer.NewSendGridSender(
		appConfig.Mail.SendGridAPIKey,
		appConfig.Mail.SenderName,
		appConfig.Mail.SenderAddress,
		appConfig.Mail.MaxRetries,
	)
	engine := alerts.New(st, sender, appConfig.Alerts.SnowDedupWindow, appConfig.Mail.AppURL)
	batch := services.NewBatch(st, dispatcher, engine)

	ctx := logging.EnsureLogger(context.Background())
	scheduler := services.NewScheduler(batch, geobase, appConfig.Jobs)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	memCache.StartPeriodicCleanup(ctx, appConfig.Montreal.Waste.CacheTTL)

	httpServer := server.New(st, dispatcher, batch, geobase, locationResolver, snowGate, appConfig.Admin.Token)

	opts := []prefab.ServerOption{
		prefab.WithHTTPHandlerFunc("/", homepageHandler),
	}
	for path, handler := range httpServer.Routes() {
		opts = append(opts, prefab.WithHTTPHandlerFunc(path, handler))
	}

	log.Printf("Municipal alerts server starting")
	if err := prefab.New(opts...).Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// loadConfig overlays prefab's config system (prefab.yaml plus PF__
// environment variables) on the compiled-in defaults.
func loadConfig() *config.Config {
	appConfig := config.DefaultConfig()

	sections := map[string]interface{}{
		"database": &appConfig.Database,
		"mail":     &appConfig.Mail,
		"montreal": &appConfig.Montreal,
		"quebec":   &appConfig.Quebec,
		"geocoder": &appConfig.Geocoder,
		"alerts":   &appConfig.Alerts,
		"jobs":     &appConfig.Jobs,
		"admin":    &appConfig.Admin,
	}
	for key, target := range sections {
		if err := prefab.Config.Unmarshal(key, target); err != nil {
			log.Fatalf("Failed to unmarshal %s section: %v", key, err)
		}
	}
	return appConfig
}

// homepageHandler serves a minimal HTML landing page at the server root.
func homepageHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	html := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Municipal Alerts</title>
    <style>
        body { font-family: 'Courier New', Consolas, monospace; max-width: 720px; margin: 40px auto; }
        code { background: #f4f4f4; padding: 2px 4px; }
    </style>
</head>
<body>
    <h1>Municipal Alerts API</h1>
    <p>Snow-removal status and waste-collection reminders for Montreal and Quebec City.</p>
    <ul>
        <li><code>GET /api/snow-status?postal_code=H2X1Y6&amp;address=3700+rue+Saint-Denis</code></li>
        <li><code>GET /api/waste-schedule?postal_code=H2X1Y6</code></li>
        <li><code>POST /api/subscribe</code></li>
        <li><code>GET /healthz</code></li>
    </ul>
</body>
</html>`

	if _, err := w.Write([]byte(html)); err != nil {
		log.Printf("Failed to write homepage response: %v", err)
	}
}
