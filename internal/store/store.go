// Package store is the persistence layer: subscribers and their tracked
// addresses, the append-only alert ledger, the upstream status cache, the
// Montreal geobase index and the Quebec waste zones.
package store

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrAddressLimit is returned when a subscriber already tracks the maximum
// number of active addresses.
var ErrAddressLimit = errors.New("address limit reached for subscriber")

// ErrNotFound is returned for lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Store wraps the database handle and exposes the query surface the services
// need. All methods are safe for use from the single-threaded batch loop and
// the HTTP handlers.
type Store struct {
	db                        *gorm.DB
	maxAddressesPerSubscriber int
}

// Open connects to the sqlite database at dsn and migrates the schema.
func Open(dsn string, maxAddresses int) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, maxAddressesPerSubscriber: maxAddresses}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

var memoryDBSeq atomic.Int64

// OpenInMemory opens a fresh in-memory database, for tests. Each call gets
// its own database; the shared cache only spans connections to the same name.
func OpenInMemory(maxAddresses int) (*Store, error) {
	dsn := fmt.Sprintf("file:memdb%d?mode=memory&cache=shared", memoryDBSeq.Add(1))
	return Open(dsn, maxAddresses)
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(
		&Subscriber{},
		&Address{},
		&AlertRecord{},
		&StatusCacheEntry{},
		&GeoStreetSegment{},
		&WasteZone{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity, for health checks.
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// ---------------------------------------------------------------------------
// Subscribers and addresses

// Subscribe finds or creates the subscriber for an email address. Emails are
// case-normalized; a previously unsubscribed subscriber is reactivated.
func (s *Store) Subscribe(email string) (*Subscriber, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, errors.New("email is empty")
	}

	var sub Subscriber
	err := s.db.Where("email = ?", normalized).First(&sub).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = Subscriber{
			Email:            normalized,
			IsActive:         true,
			UnsubscribeToken: NewUnsubscribeToken(),
		}
		if err := s.db.Create(&sub).Error; err != nil {
			return nil, fmt.Errorf("failed to create subscriber: %w", err)
		}
		return &sub, nil
	case err != nil:
		return nil, err
	}

	if !sub.IsActive {
		sub.IsActive = true
		if err := s.db.Model(&sub).Update("is_active", true).Error; err != nil {
			return nil, fmt.Errorf("failed to reactivate subscriber: %w", err)
		}
	}
	return &sub, nil
}

// AddAddress attaches a tracked address to a subscriber, enforcing the
// per-subscriber limit on active addresses.
func (s *Store) AddAddress(subscriberID uint, addr *Address) error {
	var count int64
	if err := s.db.Model(&Address{}).
		Where("subscriber_id = ? AND active = ?", subscriberID, true).
		Count(&count).Error; err != nil {
		return err
	}
	if int(count) >= s.maxAddressesPerSubscriber {
		return ErrAddressLimit
	}

	addr.SubscriberID = subscriberID
	addr.Active = true
	return s.db.Create(addr).Error
}

// Unsubscribe deactivates the subscriber owning the given token. Soft delete
// only; history rows stay attached.
func (s *Store) Unsubscribe(token string) (*Subscriber, error) {
	var sub Subscriber
	err := s.db.Where("unsubscribe_token = ?", token).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(&sub).Update("is_active", false).Error; err != nil {
		return nil, err
	}
	sub.IsActive = false
	return &sub, nil
}

// SubscriberByID loads a subscriber.
func (s *Store) SubscriberByID(id uint) (*Subscriber, error) {
	var sub Subscriber
	err := s.db.First(&sub, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// AlertKind selects which per-address toggle an ActiveAddresses query
// filters on.
type AlertKind string

const (
	SnowAlerts  AlertKind = "snow"
	WasteAlerts AlertKind = "waste"
)

// ActiveAddresses returns the addresses of active subscribers with the given
// alert kind enabled, optionally restricted to one city tag. Waste queries
// additionally require stored coordinates, since every waste lookup is
// geometric.
func (s *Store) ActiveAddresses(kind AlertKind, cityTag string) ([]Address, error) {
	q := s.db.Joins("JOIN subscribers ON subscribers.id = addresses.subscriber_id").
		Where("subscribers.is_active = ?", true).
		Where("addresses.active = ?", true)

	switch kind {
	case SnowAlerts:
		q = q.Where("addresses.snow_alerts = ?", true)
	case WasteAlerts:
		q = q.Where("addresses.waste_alerts = ?", true).
			Where("addresses.latitude IS NOT NULL AND addresses.longitude IS NOT NULL")
	}

	if cityTag != "" {
		q = q.Where("addresses.city = ?", cityTag)
	}

	var addresses []Address
	if err := q.Find(&addresses).Error; err != nil {
		return nil, err
	}
	return addresses, nil
}

// UpdateAddressStatus records the latest observed snow status and check time
// for an address. Called on every successful fetch, whether or not an alert
// fired, so the next poll has a correct baseline.
func (s *Store) UpdateAddressStatus(addressID uint, statusCode string, checkedAt time.Time) error {
	return s.db.Model(&Address{}).Where("id = ?", addressID).Updates(map[string]interface{}{
		"last_snow_status": statusCode,
		"last_snow_check":  checkedAt,
	}).Error
}

// TouchSnowCheck records the check time for an address without touching the
// status baseline. Used when a fetch succeeds but yields no usable status, so
// staleness monitoring still sees the address as checked.
func (s *Store) TouchSnowCheck(addressID uint, checkedAt time.Time) error {
	return s.db.Model(&Address{}).Where("id = ?", addressID).
		Update("last_snow_check", checkedAt).Error
}

// ---------------------------------------------------------------------------
// Alert ledger

// RecordAlert appends a row to the alert ledger.
func (s *Store) RecordAlert(rec *AlertRecord) error {
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}
	return s.db.Create(rec).Error
}

// HasRecentAlert reports whether an alert of the given type was recorded for
// the address within the window ending at now. Failed sends count: they
// consumed the dedup slot when they were attempted.
func (s *Store) HasRecentAlert(addressID uint, alertType string, window time.Duration, now time.Time) (bool, error) {
	cutoff := now.Add(-window)
	var count int64
	err := s.db.Model(&AlertRecord{}).
		Where("address_id = ? AND alert_type = ? AND sent_at >= ?", addressID, alertType, cutoff).
		Count(&count).Error
	return count > 0, err
}

// HasAlertForDate reports whether an alert of the given type and stream was
// recorded for the address keyed to the given reference date (date precision,
// not time). The stream matches the ledger's status column; garbage and
// recycling falling on the same day are separate slots.
func (s *Store) HasAlertForDate(addressID uint, alertType, stream string, refDate time.Time) (bool, error) {
	dayStart := time.Date(refDate.Year(), refDate.Month(), refDate.Day(), 0, 0, 0, 0, refDate.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	var count int64
	err := s.db.Model(&AlertRecord{}).
		Where("address_id = ? AND alert_type = ? AND status = ?", addressID, alertType, stream).
		Where("reference_date >= ? AND reference_date < ?", dayStart, dayEnd).
		Count(&count).Error
	return count > 0, err
}

// AlertSummary is the ledger rollup served by the admin stats endpoint.
type AlertSummary struct {
	Total      int            `json:"total"`
	Success    int            `json:"success"`
	Failure    int            `json:"failure"`
	ByType     map[string]int `json:"by_type"`
	ByDay      map[string]int `json:"by_day"`
	PeriodDays int            `json:"period_days"`
}

// SummarizeAlerts aggregates ledger rows over the trailing N days.
func (s *Store) SummarizeAlerts(days int, now time.Time) (*AlertSummary, error) {
	cutoff := now.AddDate(0, 0, -days)

	var records []AlertRecord
	if err := s.db.Where("sent_at >= ?", cutoff).Find(&records).Error; err != nil {
		return nil, err
	}

	summary := &AlertSummary{
		Total:      len(records),
		ByType:     map[string]int{},
		ByDay:      map[string]int{},
		PeriodDays: days,
	}
	for _, rec := range records {
		summary.ByType[rec.AlertType]++
		summary.ByDay[rec.SentAt.Format("2006-01-02")]++
		if rec.Delivered {
			summary.Success++
		} else {
			summary.Failure++
		}
	}
	return summary, nil
}

// ---------------------------------------------------------------------------
// Upstream status cache

// CachedStatus returns the cached status row for a source/location pair, if
// one exists at all. Freshness is the caller's decision via IsExpired, since
// expiry is advisory.
func (s *Store) CachedStatus(source, locationKey string) (*StatusCacheEntry, error) {
	var entry StatusCacheEntry
	err := s.db.Where("source = ? AND location_key = ?", source, locationKey).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// PutCachedStatus upserts the cached status for a source/location pair.
func (s *Store) PutCachedStatus(source, locationKey, statusCode string, startAt, endAt *time.Time, fetchedAt time.Time) error {
	var entry StatusCacheEntry
	err := s.db.Where("source = ? AND location_key = ?", source, locationKey).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry = StatusCacheEntry{
			Source:      source,
			LocationKey: locationKey,
			Status:      statusCode,
			StartAt:     startAt,
			EndAt:       endAt,
			FetchedAt:   fetchedAt,
		}
		return s.db.Create(&entry).Error
	}
	if err != nil {
		return err
	}

	entry.Status = statusCode
	entry.StartAt = startAt
	entry.EndAt = endAt
	entry.FetchedAt = fetchedAt
	return s.db.Save(&entry).Error
}

// ---------------------------------------------------------------------------
// Geobase index

// ReplaceSegments rebuilds the geobase index wholesale inside a transaction:
// full delete then batched reinsert, so readers never see a partial import.
func (s *Store) ReplaceSegments(segments []GeoStreetSegment) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&GeoStreetSegment{}).Error; err != nil {
			return fmt.Errorf("failed to clear geobase index: %w", err)
		}
		if len(segments) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(segments, 1000).Error; err != nil {
			return fmt.Errorf("failed to insert geobase segments: %w", err)
		}
		return nil
	})
}

// SegmentCount returns the number of indexed street segments.
func (s *Store) SegmentCount() (int64, error) {
	var count int64
	err := s.db.Model(&GeoStreetSegment{}).Count(&count).Error
	return count, err
}

// NewestSegmentUpdate returns the most recent index refresh time, or the zero
// time when the index is empty.
func (s *Store) NewestSegmentUpdate() (time.Time, error) {
	var segment GeoStreetSegment
	err := s.db.Order("updated_at DESC").First(&segment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return segment.UpdatedAt, nil
}

// FindSegments looks up street segments by normalized street name, optionally
// constrained to a civic-number range containing civicNumber.
func (s *Store) FindSegments(normalizedName string, civicNumber int, limit int) ([]GeoStreetSegment, error) {
	q := s.db.Where("normalized_name LIKE ?", "%"+normalizedName+"%")
	if civicNumber > 0 {
		q = q.Where("address_start <= ? AND address_end >= ?", civicNumber, civicNumber)
	}

	var segments []GeoStreetSegment
	if err := q.Limit(limit).Find(&segments).Error; err != nil {
		return nil, err
	}
	return segments, nil
}

// ---------------------------------------------------------------------------
// Waste zones

// ZoneByCode loads a Quebec City waste zone.
func (s *Store) ZoneByCode(zoneCode string) (*WasteZone, error) {
	var zone WasteZone
	err := s.db.Where("zone_code = ?", zoneCode).First(&zone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

// SeedWasteZones inserts the default Quebec City zones, skipping codes that
// already exist.
func (s *Store) SeedWasteZones() error {
	defaults := []WasteZone{
		{ZoneCode: "QC-A", GarbageDay: "monday", RecyclingWeek: "odd", Description: "Zone A - Vieux-Québec"},
		{ZoneCode: "QC-B", GarbageDay: "tuesday", RecyclingWeek: "even", Description: "Zone B - Saint-Roch"},
		{ZoneCode: "QC-C", GarbageDay: "wednesday", RecyclingWeek: "odd", Description: "Zone C - Limoilou"},
		{ZoneCode: "QC-D", GarbageDay: "thursday", RecyclingWeek: "even", Description: "Zone D - Sainte-Foy"},
		{ZoneCode: "QC-E", GarbageDay: "friday", RecyclingWeek: "odd", Description: "Zone E - Charlesbourg"},
	}

	for _, zone := range defaults {
		var existing WasteZone
		err := s.db.Where("zone_code = ?", zone.ZoneCode).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := s.db.Create(&zone).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
