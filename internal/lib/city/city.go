// Package city defines the closed set of municipalities the service supports.
package city

import (
	"fmt"
	"strings"
)

// City identifies one of the supported municipalities. The set is closed:
// every adapter, transition table and FSA table is keyed by one of these two
// values, and anything else is rejected at the boundary.
type City int

const (
	Unknown City = iota
	Montreal
	Quebec
)

// Postal-code prefixes are domain-closed: Montreal addresses start with H,
// Quebec City addresses with G.
const (
	montrealPrefix = 'H'
	quebecPrefix   = 'G'
)

func (c City) String() string {
	switch c {
	case Montreal:
		return "montreal"
	case Quebec:
		return "quebec"
	default:
		return "unknown"
	}
}

// Valid reports whether c is one of the supported cities.
func (c City) Valid() bool {
	return c == Montreal || c == Quebec
}

// Parse converts a city tag string to a City.
func Parse(tag string) (City, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "montreal", "mtl":
		return Montreal, nil
	case "quebec", "qc":
		return Quebec, nil
	case "":
		return Unknown, fmt.Errorf("city tag is empty")
	default:
		return Unknown, fmt.Errorf("unsupported city: %q", tag)
	}
}

// FromPostalCode infers the city from the first character of a postal code.
// The postal code does not need to be fully normalized; only the leading
// letter is examined.
func FromPostalCode(postalCode string) (City, error) {
	trimmed := strings.TrimSpace(postalCode)
	if trimmed == "" {
		return Unknown, fmt.Errorf("postal code is empty")
	}
	switch strings.ToUpper(trimmed)[0] {
	case montrealPrefix:
		return Montreal, nil
	case quebecPrefix:
		return Quebec, nil
	default:
		return Unknown, fmt.Errorf("unsupported postal code prefix: %q", trimmed[0:1])
	}
}
