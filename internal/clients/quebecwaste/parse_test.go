package quebecwaste

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parseDoc(t *testing.T, page string) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(page))
	require.NoError(t, err)
	return root
}

func TestParseFrenchDate(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
	}{
		{"3 septembre 2026", time.Date(2026, 9, 3, 0, 0, 0, 0, time.Local)},
		{"1er janvier 2026", time.Date(2026, 1, 1, 0, 0, 0, 0, time.Local)},
		{"15 FÉVRIER 2026", time.Date(2026, 2, 15, 0, 0, 0, 0, time.Local)},
		{" 28 aout 2025 ", time.Date(2025, 8, 28, 0, 0, 0, 0, time.Local)},
	}
	for _, tc := range cases {
		got, err := parseFrenchDate(tc.raw)
		require.NoError(t, err, "input %q", tc.raw)
		assert.Equal(t, tc.want, got, "input %q", tc.raw)
	}

	for _, bad := range []string{"", "septembre 2026", "3 brumaire 2026", "x septembre 2026", "3 septembre"} {
		_, err := parseFrenchDate(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestParseSearchForm(t *testing.T) {
	page := `<html><body>
<form action="/services/info-collecte/resultats" method="post">
  <input type="hidden" name="__VIEWSTATE" value="abc123">
  <input type="hidden" name="__EVENTVALIDATION" value="def456">
  <input type="text" name="txtRecherche" placeholder="Code postal ou adresse">
  <input type="submit" value="Rechercher">
</form>
</body></html>`

	form, err := parseSearchForm(parseDoc(t, page))
	require.NoError(t, err)
	assert.Equal(t, "/services/info-collecte/resultats", form.action)
	assert.Equal(t, "txtRecherche", form.searchName)
	assert.Equal(t, "abc123", form.hidden["__VIEWSTATE"])
	assert.Equal(t, "def456", form.hidden["__EVENTVALIDATION"])
}

func TestParseSearchForm_NoFormIsStructureChange(t *testing.T) {
	_, err := parseSearchForm(parseDoc(t, `<html><body><p>maintenance</p></body></html>`))
	assert.ErrorIs(t, err, ErrStructureChanged)
}

func TestParseAddressOptions(t *testing.T) {
	page := `<html><body>
<div class="resultats-adresses">
  <ul>
    <li><a href="/info-collecte/calendrier?id=1">348 Rue Saint-Joseph Est</a></li>
    <li><a href="/info-collecte/calendrier?id=2">350 Rue Saint-Joseph Est</a></li>
  </ul>
</div>
</body></html>`

	options, err := parseAddressOptions(parseDoc(t, page))
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, "350 Rue Saint-Joseph Est", options[1].label)
	assert.Equal(t, "/info-collecte/calendrier?id=2", options[1].href)
}

func TestParseAddressOptions_AbsentContainerIsNotAnError(t *testing.T) {
	// Some searches skip the disambiguation step and go straight to the
	// calendar; no container just means no options.
	options, err := parseAddressOptions(parseDoc(t, `<html><body></body></html>`))
	require.NoError(t, err)
	assert.Nil(t, options)
}

func TestParseAddressOptions_EmptyContainerIsStructureChange(t *testing.T) {
	page := `<html><body><div class="resultats-adresses"><p>aucun lien</p></div></body></html>`
	_, err := parseAddressOptions(parseDoc(t, page))
	assert.ErrorIs(t, err, ErrStructureChanged)
}

func TestParseCalendar(t *testing.T) {
	page := `<html><body>
<table class="calendrier-collecte">
  <tr><th>Collecte</th><th>Dates</th></tr>
  <tr><td>Ordures ménagères</td><td>16 janvier 2026, 23 janvier 2026</td></tr>
  <tr><td>Matières recyclables</td><td>20 janvier 2026</td></tr>
  <tr><td>Résidus alimentaires (compost)</td><td>1er février 2026</td></tr>
  <tr><td>Sapins de Noël</td><td>9 janvier 2026</td></tr>
</table>
</body></html>`

	calendar, err := parseCalendar(parseDoc(t, page))
	require.NoError(t, err)
	assert.Len(t, calendar, 3, "unrecognized streams are skipped")

	require.Len(t, calendar["garbage"], 2)
	assert.Equal(t, time.Date(2026, 1, 16, 0, 0, 0, 0, time.Local), calendar["garbage"][0])
	assert.Equal(t, time.Date(2026, 1, 23, 0, 0, 0, 0, time.Local), calendar["garbage"][1])
	require.Len(t, calendar["recycling"], 1)
	require.Len(t, calendar["organic"], 1)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.Local), calendar["organic"][0])
}

func TestParseCalendar_MissingTableIsStructureChange(t *testing.T) {
	_, err := parseCalendar(parseDoc(t, `<html><body><table><tr><td>x</td></tr></table></body></html>`))
	assert.ErrorIs(t, err, ErrStructureChanged)
}

func TestNormalizeStream(t *testing.T) {
	assert.Equal(t, "garbage", normalizeStream("Ordures ménagères"))
	assert.Equal(t, "garbage", normalizeStream("Déchets domestiques"))
	assert.Equal(t, "recycling", normalizeStream("Matières recyclables"))
	assert.Equal(t, "organic", normalizeStream("Compost"))
	assert.Equal(t, "organic", normalizeStream("Résidus alimentaires"))
	assert.Equal(t, "", normalizeStream("Sapins de Noël"))
}
