package quebecwaste

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// French month names as they appear in the collection calendar.
var frenchMonths = map[string]time.Month{
	"janvier":   time.January,
	"février":   time.February,
	"fevrier":   time.February,
	"mars":      time.March,
	"avril":     time.April,
	"mai":       time.May,
	"juin":      time.June,
	"juillet":   time.July,
	"août":      time.August,
	"aout":      time.August,
	"septembre": time.September,
	"octobre":   time.October,
	"novembre":  time.November,
	"décembre":  time.December,
	"decembre":  time.December,
}

// parseFrenchDate parses dates like "3 septembre 2026".
func parseFrenchDate(raw string) (time.Time, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	if len(fields) != 3 {
		return time.Time{}, fmt.Errorf("unexpected date format %q", raw)
	}
	day, err := strconv.Atoi(strings.TrimSuffix(fields[0], "er"))
	if err != nil {
		return time.Time{}, fmt.Errorf("unexpected day in %q", raw)
	}
	month, ok := frenchMonths[fields[1]]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month in %q", raw)
	}
	year, err := strconv.Atoi(fields[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("unexpected year in %q", raw)
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local), nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// walk visits every node in document order until the visitor returns false.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

// findAll collects every element node matching the predicate.
func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// findFirst returns the first element node matching the predicate, or nil.
func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	nodes := findAll(root, match)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func innerText(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

// searchForm captures the lookup form's action and every field that must be
// echoed back on submit (the site carries server state in hidden inputs).
type searchForm struct {
	action     string
	searchName string
	hidden     map[string]string
}

func parseSearchForm(root *html.Node) (*searchForm, error) {
	formNode := findFirst(root, func(n *html.Node) bool {
		return n.Data == "form" && strings.Contains(attr(n, "action"), "info-collecte")
	})
	if formNode == nil {
		formNode = findFirst(root, func(n *html.Node) bool { return n.Data == "form" })
	}
	if formNode == nil {
		return nil, fmt.Errorf("no form element: %w", ErrStructureChanged)
	}

	form := &searchForm{
		action: attr(formNode, "action"),
		hidden: make(map[string]string),
	}
	for _, input := range findAll(formNode, func(n *html.Node) bool { return n.Data == "input" }) {
		name := attr(input, "name")
		if name == "" {
			continue
		}
		switch attr(input, "type") {
		case "hidden":
			form.hidden[name] = attr(input, "value")
		case "text", "search", "":
			if form.searchName == "" {
				form.searchName = name
			}
		}
	}
	if form.searchName == "" {
		return nil, fmt.Errorf("no search input in form: %w", ErrStructureChanged)
	}
	return form, nil
}

// addressOption is one candidate address returned by the postal-code search.
type addressOption struct {
	label string
	href  string
}

func parseAddressOptions(root *html.Node) ([]addressOption, error) {
	container := findFirst(root, func(n *html.Node) bool {
		return hasClass(n, "resultats-adresses")
	})
	if container == nil {
		return nil, nil
	}
	var options []addressOption
	for _, anchor := range findAll(container, func(n *html.Node) bool { return n.Data == "a" }) {
		href := attr(anchor, "href")
		if href == "" {
			continue
		}
		options = append(options, addressOption{label: innerText(anchor), href: href})
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("result container holds no address links: %w", ErrStructureChanged)
	}
	return options, nil
}

// parseCalendar extracts per-stream pickup dates from the schedule page. Each
// stream is a row labelled with the stream name followed by a cell of dates.
func parseCalendar(root *html.Node) (map[string][]time.Time, error) {
	table := findFirst(root, func(n *html.Node) bool {
		return hasClass(n, "calendrier-collecte")
	})
	if table == nil {
		return nil, fmt.Errorf("no collection calendar on page: %w", ErrStructureChanged)
	}

	calendar := make(map[string][]time.Time)
	for _, row := range findAll(table, func(n *html.Node) bool { return n.Data == "tr" }) {
		cells := findAll(row, func(n *html.Node) bool { return n.Data == "td" || n.Data == "th" })
		if len(cells) < 2 {
			continue
		}
		stream := normalizeStream(innerText(cells[0]))
		if stream == "" {
			continue
		}
		for _, raw := range strings.Split(innerText(cells[1]), ",") {
			date, err := parseFrenchDate(raw)
			if err != nil {
				continue
			}
			calendar[stream] = append(calendar[stream], date)
		}
	}
	if len(calendar) == 0 {
		return nil, fmt.Errorf("calendar table yields no dates: %w", ErrStructureChanged)
	}
	return calendar, nil
}

// normalizeStream maps the site's French stream labels onto our stream names.
func normalizeStream(label string) string {
	label = strings.ToLower(label)
	switch {
	case strings.Contains(label, "ordures"), strings.Contains(label, "déchets"), strings.Contains(label, "dechets"):
		return "garbage"
	case strings.Contains(label, "recycl"):
		return "recycling"
	case strings.Contains(label, "compost"), strings.Contains(label, "organique"), strings.Contains(label, "alimentaire"):
		return "organic"
	default:
		return ""
	}
}
