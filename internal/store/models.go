package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Subscriber is an email-alert recipient. Unsubscribing flips IsActive rather
// than deleting the row so alert history keeps its foreign keys.
type Subscriber struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Email            string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	IsActive         bool      `gorm:"not null" json:"is_active"`
	UnsubscribeToken string    `gorm:"size:36;uniqueIndex" json:"-"`
	CreatedAt        time.Time `json:"created_at"`

	Addresses []Address `gorm:"foreignKey:SubscriberID" json:"addresses,omitempty"`
}

// TableName sets the table name for GORM.
func (Subscriber) TableName() string { return "subscribers" }

// NewUnsubscribeToken generates a unique unsubscribe token.
func NewUnsubscribeToken() string {
	return uuid.NewString()
}

// Address is one tracked location for a subscriber, with per-location alert
// toggles and the last observed snow status used as the transition baseline.
type Address struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	SubscriberID uint   `gorm:"not null;index" json:"subscriber_id"`
	City         string `gorm:"size:20;not null;index" json:"city"`
	PostalCode   string `gorm:"size:10" json:"postal_code"`

	StreetName  string `gorm:"size:255" json:"street_name"`
	StreetType  string `gorm:"size:50" json:"street_type"`
	CivicNumber int    `json:"civic_number"`
	Borough     string `gorm:"size:100" json:"borough"`

	// Montreal street-segment identifier (COTE_RUE_ID) and side of street.
	SegmentID  *int   `gorm:"index" json:"segment_id,omitempty"`
	StreetSide string `gorm:"size:10" json:"street_side,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// No column defaults on the toggles: a default:true tag would make GORM
	// omit false values on insert, silently storing an opt-out as opted-in.
	SnowAlerts  bool `gorm:"not null" json:"snow_alerts"`
	WasteAlerts bool `gorm:"not null" json:"waste_alerts"`

	LastSnowStatus string     `gorm:"size:50" json:"last_snow_status"`
	LastSnowCheck  *time.Time `json:"last_snow_check,omitempty"`

	Label     string    `gorm:"size:50" json:"label"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName sets the table name for GORM.
func (Address) TableName() string { return "addresses" }

// Place returns a short human-readable name for the address, preferring the
// subscriber's own label, then the civic address, then the postal code.
func (a *Address) Place() string {
	if a.Label != "" {
		return a.Label
	}
	if a.StreetName != "" {
		if a.CivicNumber > 0 {
			return fmt.Sprintf("%d %s", a.CivicNumber, a.StreetName)
		}
		return a.StreetName
	}
	return a.PostalCode
}

// AlertRecord is one row in the append-only alert ledger. Every send attempt
// writes a record, success or failure; rows are never mutated afterwards.
// Dedup queries key on (address, alert type, sent window) for snow and
// (address, alert type, reference date) for waste.
type AlertRecord struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	AddressID uint   `gorm:"not null;index:idx_alert_dedup,priority:1" json:"address_id"`
	City      string `gorm:"size:20;not null" json:"city"`
	AlertType string `gorm:"size:50;not null;index:idx_alert_dedup,priority:2" json:"alert_type"`
	Status    string `gorm:"size:50" json:"status"`

	// ReferenceDate keys date-scoped dedup, such as "waste pickup tomorrow".
	ReferenceDate *time.Time `gorm:"index" json:"reference_date,omitempty"`

	SentAt       time.Time `gorm:"not null;index:idx_alert_dedup,priority:3" json:"sent_at"`
	Delivered    bool      `gorm:"not null" json:"delivered"`
	MessageID    string    `gorm:"size:255" json:"message_id,omitempty"`
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`
}

// TableName sets the table name for GORM.
func (AlertRecord) TableName() string { return "alert_history" }

// StatusCacheEntry is one per-source cached upstream status keyed by
// location. Expiry is advisory; adapters serve stale rows when the upstream
// is unreachable or inside its rate-limit cooldown.
type StatusCacheEntry struct {
	ID          uint   `gorm:"primaryKey"`
	Source      string `gorm:"size:50;not null;uniqueIndex:idx_status_cache_key,priority:1"`
	LocationKey string `gorm:"size:100;not null;uniqueIndex:idx_status_cache_key,priority:2"`

	Status  string     `gorm:"size:50"`
	StartAt *time.Time
	EndAt   *time.Time

	FetchedAt time.Time `gorm:"not null"`
}

// TableName sets the table name for GORM.
func (StatusCacheEntry) TableName() string { return "status_cache" }

// IsExpired reports whether the entry is older than maxAge.
func (e *StatusCacheEntry) IsExpired(maxAge time.Duration, now time.Time) bool {
	if e.FetchedAt.IsZero() {
		return true
	}
	return now.Sub(e.FetchedAt) > maxAge
}

// GeoStreetSegment maps a Montreal street name and civic-number range to the
// street-side segment identifier used by the snow-removal system. The table
// is rebuilt wholesale on refresh, never patched row by row.
type GeoStreetSegment struct {
	ID         uint   `gorm:"primaryKey"`
	SegmentID  int    `gorm:"uniqueIndex;not null"`
	StreetName string `gorm:"size:255;not null;index"`
	// NormalizedName is the lowercase accent-folded form used for lookups.
	NormalizedName string `gorm:"size:255;index"`
	StreetType     string `gorm:"size:50"`
	AddressStart   int
	AddressEnd     int
	StreetSide     string `gorm:"size:10"`
	Borough        string `gorm:"size:100"`
	UpdatedAt      time.Time
}

// TableName sets the table name for GORM.
func (GeoStreetSegment) TableName() string { return "geobase_segments" }

// WasteZone maps a Quebec City zone code to its garbage day and recycling
// week parity. Static reference data, read-only from the engine's view.
type WasteZone struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	ZoneCode      string `gorm:"size:20;uniqueIndex;not null" json:"zone_code"`
	GarbageDay    string `gorm:"size:10;not null" json:"garbage_day"`
	RecyclingWeek string `gorm:"size:10;not null" json:"recycling_week"`
	Description   string `gorm:"size:255" json:"description"`
}

// TableName sets the table name for GORM.
func (WasteZone) TableName() string { return "waste_zones" }
