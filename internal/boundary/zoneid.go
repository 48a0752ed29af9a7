package boundary

import (
	"fmt"
	"strings"
)

// zoneIDProperties is the fixed resolution order for the zone code in
// raw feature properties. Upstream vintages label the code under
// different names; first match wins.
var zoneIDProperties = []string{
	"ZCTA5CE20",
	"ZCTA5CE10",
	"ZCTA5CE",
	"GEOID20",
	"GEOID10",
	"GEOID",
	"ZIP",
	"ZIPCODE",
	"POSTAL_CODE",
	"POSTAL",
}

// ZoneID extracts the zone code from raw feature properties,
// tolerating the legacy naming conventions above. Property name
// matching is case-insensitive; numeric values are rendered without a
// decimal point. Returns false when no convention matches or the
// value is blank.
func ZoneID(props map[string]any) (string, bool) {
	if len(props) == 0 {
		return "", false
	}

	lower := make(map[string]any, len(props))
	for k, v := range props {
		lower[strings.ToLower(k)] = v
	}

	for _, name := range zoneIDProperties {
		v, ok := lower[strings.ToLower(name)]
		if !ok {
			continue
		}
		id := renderZoneID(v)
		if id != "" {
			return id, true
		}
	}
	return "", false
}

func renderZoneID(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		// JSON numbers arrive as float64; zone codes are integral.
		return fmt.Sprintf("%.0f", t)
	case int:
		return fmt.Sprintf("%d", t)
	default:
		return ""
	}
}
