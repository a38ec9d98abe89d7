package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dpup/prefab/logging"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/alertmtl/server/internal/config"
	"github.com/alertmtl/server/internal/store"
)

// Street types and their common written variants, used both to strip the type
// from a street name before matching and to recognize it in free-text input.
var streetTypes = map[string][]string{
	"rue":       {"rue", "r"},
	"avenue":    {"avenue", "ave", "av"},
	"boulevard": {"boulevard", "boul", "bd", "blvd"},
	"chemin":    {"chemin", "ch"},
	"montee":    {"montee", "mte"},
	"place":     {"place", "pl"},
	"terrasse":  {"terrasse", "tsse"},
	"allee":     {"allee"},
	"croissant": {"croissant", "crois"},
	"cote":      {"cote"},
}

var abbreviations = []struct{ short, full string }{
	{"st-", "saint-"},
	{"ste-", "sainte-"},
	{"mt-", "mont-"},
	{"st ", "saint "},
	{"ste ", "sainte "},
}

var civicFirstPattern = regexp.MustCompile(`^(\d+)\s*[-,]?\s*(.+)$`)
var civicLastPattern = regexp.MustCompile(`^(.+?)\s+(\d+)$`)

// accent folding: decompose, drop combining marks, recompose.
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Geobase maintains the Montreal street-segment index: a CSV from the open
// data portal mapping street names and civic ranges to the segment
// identifiers the snow-removal system keys on. Refreshes are wholesale; the
// CSV has no change feed.
type Geobase struct {
	store      *store.Store
	cfg        config.GeobaseConfig
	httpClient *http.Client
	now        func() time.Time
}

// NewGeobase creates the service.
func NewGeobase(st *store.Store, cfg config.GeobaseConfig) *Geobase {
	return &Geobase{
		store: st,
		cfg:   cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		now: time.Now,
	}
}

// NormalizeStreetName lowercases, folds accents, expands Saint abbreviations
// and strips a leading street type, producing the form the index matches on.
func NormalizeStreetName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return ""
	}

	if folded, _, err := transform.String(accentFolder, normalized); err == nil {
		normalized = folded
	}

	for _, abbrev := range abbreviations {
		if strings.HasPrefix(normalized, abbrev.short) {
			normalized = abbrev.full + normalized[len(abbrev.short):]
			break
		}
	}

	for _, variants := range streetTypes {
		stripped := false
		for _, v := range variants {
			if strings.HasPrefix(normalized, v+" ") {
				normalized = normalized[len(v)+1:]
				stripped = true
				break
			}
		}
		if stripped {
			break
		}
	}
	return normalized
}

// ParsedAddress is the result of splitting a free-text address.
type ParsedAddress struct {
	CivicNumber    int
	StreetType     string
	StreetName     string
	NormalizedName string
}

// ParseAddress splits "123 rue Saint-Denis" style input into its parts,
// accepting the civic number before or after the street.
func ParseAddress(address string) ParsedAddress {
	address = strings.TrimSpace(address)
	if address == "" {
		return ParsedAddress{}
	}

	var civic int
	streetPart := address
	if m := civicFirstPattern.FindStringSubmatch(address); m != nil {
		civic, _ = strconv.Atoi(m[1])
		streetPart = strings.TrimSpace(m[2])
	} else if m := civicLastPattern.FindStringSubmatch(address); m != nil {
		streetPart = strings.TrimSpace(m[1])
		civic, _ = strconv.Atoi(m[2])
	}

	streetType := ""
	streetName := streetPart
	lower := strings.ToLower(streetPart)
	for canonical, variants := range streetTypes {
		for _, v := range variants {
			if strings.HasPrefix(lower, v+" ") {
				streetType = canonical
				streetName = streetPart[len(v)+1:]
				break
			}
		}
		if streetType != "" {
			break
		}
	}

	return ParsedAddress{
		CivicNumber:    civic,
		StreetType:     streetType,
		StreetName:     streetName,
		NormalizedName: NormalizeStreetName(streetName),
	}
}

// Refresh downloads the CSV and rebuilds the index, returning the number of
// imported segments.
func (g *Geobase) Refresh(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", g.cfg.CSVURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download geobase CSV: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("API error %d downloading geobase CSV", resp.StatusCode)
	}

	segments, err := g.parseCSV(resp.Body)
	if err != nil {
		return 0, err
	}
	if len(segments) == 0 {
		// An empty import would wipe a working index; treat it as upstream
		// breakage instead.
		return 0, fmt.Errorf("geobase CSV parsed to zero segments, keeping existing index")
	}

	if err := g.store.ReplaceSegments(segments); err != nil {
		return 0, err
	}
	logging.Infow(ctx, "geobase: index rebuilt", "segments", len(segments))
	return len(segments), nil
}

// RefreshIfStale refreshes only when the index is empty or older than the
// configured maximum age.
func (g *Geobase) RefreshIfStale(ctx context.Context) error {
	newest, err := g.store.NewestSegmentUpdate()
	if err != nil {
		return err
	}
	if !newest.IsZero() && g.now().Sub(newest) < g.cfg.MaxAge {
		return nil
	}
	_, err = g.Refresh(ctx)
	return err
}

func (g *Geobase) parseCSV(r io.Reader) ([]store.GeoStreetSegment, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"COTE_RUE_ID", "NOM_VOIE"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("geobase CSV missing column %s", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var segments []store.GeoStreetSegment
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		segmentID, err := strconv.Atoi(field(row, "COTE_RUE_ID"))
		if err != nil || segmentID == 0 {
			continue
		}
		name := field(row, "NOM_VOIE")
		if name == "" {
			continue
		}

		addressStart, _ := strconv.Atoi(field(row, "DEBUT_ADRESSE"))
		addressEnd, _ := strconv.Atoi(field(row, "FIN_ADRESSE"))
		segments = append(segments, store.GeoStreetSegment{
			SegmentID:      segmentID,
			StreetName:     name,
			NormalizedName: NormalizeStreetName(name),
			StreetType:     field(row, "TYPE_F"),
			AddressStart:   addressStart,
			AddressEnd:     addressEnd,
			StreetSide:     field(row, "COTE"),
			Borough:        field(row, "NOM_VILLE"),
		})
	}
	return segments, nil
}

// LookupAddress finds the street segment covering a free-text civic address.
// A full-name match constrained to the civic range is tried first, then a
// loose prefix match for misspellings and partial input.
func (g *Geobase) LookupAddress(address string) (*store.GeoStreetSegment, error) {
	parsed := ParseAddress(address)
	if parsed.NormalizedName == "" {
		return nil, store.ErrNotFound
	}

	segments, err := g.store.FindSegments(parsed.NormalizedName, parsed.CivicNumber, 5)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 && len(parsed.NormalizedName) > 4 {
		segments, err = g.store.FindSegments(parsed.NormalizedName[:4], parsed.CivicNumber, 5)
		if err != nil {
			return nil, err
		}
	}
	if len(segments) == 0 {
		return nil, store.ErrNotFound
	}
	return &segments[0], nil
}

// Search returns up to limit segments matching a street-name query, for the
// address-picker UI.
func (g *Geobase) Search(query string, limit int) ([]store.GeoStreetSegment, error) {
	normalized := NormalizeStreetName(query)
	if normalized == "" {
		return nil, nil
	}
	return g.store.FindSegments(normalized, 0, limit)
}
