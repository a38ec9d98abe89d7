package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertmtl/server/internal/config"
	"github.com/alertmtl/server/internal/store"
)

func TestNormalizeStreetName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Rue Saint-Denis", "saint-denis"},
		{"rue saint-denis", "saint-denis"},
		{"St-Denis", "saint-denis"},
		{"Ste-Catherine", "sainte-catherine"},
		{"Boulevard Saint-Laurent", "saint-laurent"},
		{"boul Saint-Laurent", "saint-laurent"},
		{"Avenue du Parc", "du parc"},
		{"av du Parc", "du parc"},
		{"Côte-des-Neiges", "cote-des-neiges"},
		{"chemin de la Côte-Sainte-Catherine", "de la cote-sainte-catherine"},
		{"  PIE-IX  ", "pie-ix"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeStreetName(tc.in), "input %q", tc.in)
	}
}

func TestParseAddress(t *testing.T) {
	parsed := ParseAddress("3700 rue Saint-Denis")
	assert.Equal(t, 3700, parsed.CivicNumber)
	assert.Equal(t, "rue", parsed.StreetType)
	assert.Equal(t, "Saint-Denis", parsed.StreetName)
	assert.Equal(t, "saint-denis", parsed.NormalizedName)

	parsed = ParseAddress("3700, rue Saint-Denis")
	assert.Equal(t, 3700, parsed.CivicNumber)
	assert.Equal(t, "saint-denis", parsed.NormalizedName)

	parsed = ParseAddress("Saint-Denis 3700")
	assert.Equal(t, 3700, parsed.CivicNumber)
	assert.Equal(t, "saint-denis", parsed.NormalizedName)

	parsed = ParseAddress("avenue du Parc")
	assert.Zero(t, parsed.CivicNumber)
	assert.Equal(t, "avenue", parsed.StreetType)
	assert.Equal(t, "du parc", parsed.NormalizedName)

	assert.Equal(t, ParsedAddress{}, ParseAddress("   "))
}

const geobaseCSV = `COTE_RUE_ID,NOM_VOIE,TYPE_F,DEBUT_ADRESSE,FIN_ADRESSE,COTE,NOM_VILLE
1040100,Saint-Denis,rue,3600,3800,Gauche,Montréal
1040101,Saint-Denis,rue,3601,3801,Droite,Montréal
0,Invalide,rue,1,2,Gauche,Montréal
1040102,,rue,1,2,Gauche,Montréal
1040103,du Parc,avenue,5000,5400,Gauche,Montréal
`

func TestParseCSV(t *testing.T) {
	g := NewGeobase(nil, config.GeobaseConfig{})
	segments, err := g.parseCSV(strings.NewReader(geobaseCSV))
	require.NoError(t, err)
	require.Len(t, segments, 3, "zero-ID and nameless rows are dropped")

	assert.Equal(t, 1040100, segments[0].SegmentID)
	assert.Equal(t, "Saint-Denis", segments[0].StreetName)
	assert.Equal(t, "saint-denis", segments[0].NormalizedName)
	assert.Equal(t, "rue", segments[0].StreetType)
	assert.Equal(t, 3600, segments[0].AddressStart)
	assert.Equal(t, 3800, segments[0].AddressEnd)
	assert.Equal(t, "Gauche", segments[0].StreetSide)

	assert.Equal(t, "du parc", segments[2].NormalizedName)
}

func TestParseCSV_MissingRequiredColumn(t *testing.T) {
	g := NewGeobase(nil, config.GeobaseConfig{})
	_, err := g.parseCSV(strings.NewReader("ID,NOM_VOIE\n1,Saint-Denis\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COTE_RUE_ID")
}

func TestRefresh_RebuildsIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geobaseCSV))
	}))
	defer server.Close()

	st, err := store.OpenInMemory(5)
	require.NoError(t, err)
	g := NewGeobase(st, config.GeobaseConfig{CSVURL: server.URL, MaxAge: 7 * 24 * time.Hour})

	count, err := g.Refresh(testContext())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	total, err := st.SegmentCount()
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}

func TestRefresh_EmptyCSVKeepsExistingIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("COTE_RUE_ID,NOM_VOIE\n"))
	}))
	defer server.Close()

	st, err := store.OpenInMemory(5)
	require.NoError(t, err)
	require.NoError(t, st.ReplaceSegments([]store.GeoStreetSegment{
		{SegmentID: 1, StreetName: "Saint-Denis", NormalizedName: "saint-denis"},
	}))

	g := NewGeobase(st, config.GeobaseConfig{CSVURL: server.URL})
	_, err = g.Refresh(testContext())
	require.Error(t, err)

	total, err := st.SegmentCount()
	require.NoError(t, err)
	assert.EqualValues(t, 1, total, "the old index survives a broken import")
}

func TestRefreshIfStale_SkipsFreshIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no download expected for a fresh index")
	}))
	defer server.Close()

	st, err := store.OpenInMemory(5)
	require.NoError(t, err)
	require.NoError(t, st.ReplaceSegments([]store.GeoStreetSegment{
		{SegmentID: 1, StreetName: "Saint-Denis", NormalizedName: "saint-denis"},
	}))

	g := NewGeobase(st, config.GeobaseConfig{CSVURL: server.URL, MaxAge: time.Hour})
	require.NoError(t, g.RefreshIfStale(testContext()))
}

func TestLookupAddress(t *testing.T) {
	st, err := store.OpenInMemory(5)
	require.NoError(t, err)
	require.NoError(t, st.ReplaceSegments([]store.GeoStreetSegment{
		{SegmentID: 1040100, StreetName: "Saint-Denis", NormalizedName: "saint-denis", AddressStart: 3600, AddressEnd: 3800},
		{SegmentID: 1040103, StreetName: "du Parc", NormalizedName: "du parc", AddressStart: 5000, AddressEnd: 5400},
	}))
	g := NewGeobase(st, config.GeobaseConfig{})

	segment, err := g.LookupAddress("3700 rue Saint-Denis")
	require.NoError(t, err)
	assert.Equal(t, 1040100, segment.SegmentID)

	// Abbreviated form hits the same segment.
	segment, err = g.LookupAddress("3700 St-Denis")
	require.NoError(t, err)
	assert.Equal(t, 1040100, segment.SegmentID)

	_, err = g.LookupAddress("9999 rue Saint-Denis")
	assert.ErrorIs(t, err, store.ErrNotFound, "civic number outside every range")

	_, err = g.LookupAddress("")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSearch(t *testing.T) {
	st, err := store.OpenInMemory(5)
	require.NoError(t, err)
	require.NoError(t, st.ReplaceSegments([]store.GeoStreetSegment{
		{SegmentID: 1, StreetName: "Saint-Denis", NormalizedName: "saint-denis"},
		{SegmentID: 2, StreetName: "Saint-Laurent", NormalizedName: "saint-laurent"},
	}))
	g := NewGeobase(st, config.GeobaseConfig{})

	results, err := g.Search("saint", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = g.Search("", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
