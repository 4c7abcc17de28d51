// Package airports holds the static airport table used to localize segment
// times and to measure positioning detours.
package airports

import (
	"math"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"
)

type Airport struct {
	Code     string
	City     string
	Timezone string
	Lat      float64
	Lon      float64
}

const earthRadiusMiles = 3958.8

var airportTable = map[string]Airport{
	// North America - east
	"JFK": {"JFK", "New York", "America/New_York", 40.6413, -73.7781},
	"EWR": {"EWR", "Newark", "America/New_York", 40.6895, -74.1745},
	"LGA": {"LGA", "New York", "America/New_York", 40.7769, -73.8740},
	"BOS": {"BOS", "Boston", "America/New_York", 42.3656, -71.0096},
	"PHL": {"PHL", "Philadelphia", "America/New_York", 39.8744, -75.2424},
	"IAD": {"IAD", "Washington", "America/New_York", 38.9531, -77.4565},
	"DCA": {"DCA", "Washington", "America/New_York", 38.8512, -77.0402},
	"BWI": {"BWI", "Baltimore", "America/New_York", 39.1774, -76.6684},
	"ATL": {"ATL", "Atlanta", "America/New_York", 33.6407, -84.4277},
	"MIA": {"MIA", "Miami", "America/New_York", 25.7959, -80.2870},
	"FLL": {"FLL", "Fort Lauderdale", "America/New_York", 26.0742, -80.1506},
	"PBI": {"PBI", "West Palm Beach", "America/New_York", 26.6832, -80.0956},
	"YYZ": {"YYZ", "Toronto", "America/Toronto", 43.6777, -79.6248},
	"YUL": {"YUL", "Montreal", "America/Toronto", 45.4706, -73.7408},

	// North America - central and west
	"ORD": {"ORD", "Chicago", "America/Chicago", 41.9742, -87.9073},
	"MDW": {"MDW", "Chicago", "America/Chicago", 41.7868, -87.7522},
	"DFW": {"DFW", "Dallas", "America/Chicago", 32.8998, -97.0403},
	"DEN": {"DEN", "Denver", "America/Denver", 39.8561, -104.6737},
	"LAX": {"LAX", "Los Angeles", "America/Los_Angeles", 33.9416, -118.4085},
	"BUR": {"BUR", "Burbank", "America/Los_Angeles", 34.1975, -118.3585},
	"LGB": {"LGB", "Long Beach", "America/Los_Angeles", 33.8177, -118.1516},
	"SNA": {"SNA", "Santa Ana", "America/Los_Angeles", 33.6762, -117.8675},
	"SFO": {"SFO", "San Francisco", "America/Los_Angeles", 37.6213, -122.3790},
	"OAK": {"OAK", "Oakland", "America/Los_Angeles", 37.7126, -122.2197},
	"SJC": {"SJC", "San Jose", "America/Los_Angeles", 37.3639, -121.9289},
	"SEA": {"SEA", "Seattle", "America/Los_Angeles", 47.4502, -122.3088},

	// Europe
	"LHR": {"LHR", "London", "Europe/London", 51.4700, -0.4543},
	"LGW": {"LGW", "London", "Europe/London", 51.1537, -0.1821},
	"STN": {"STN", "London", "Europe/London", 51.8860, 0.2389},
	"LTN": {"LTN", "London", "Europe/London", 51.8747, -0.3683},
	"CDG": {"CDG", "Paris", "Europe/Paris", 49.0097, 2.5479},
	"ORY": {"ORY", "Paris", "Europe/Paris", 48.7262, 2.3652},
	"AMS": {"AMS", "Amsterdam", "Europe/Amsterdam", 52.3105, 4.7683},
	"BRU": {"BRU", "Brussels", "Europe/Brussels", 50.9010, 4.4856},
	"FRA": {"FRA", "Frankfurt", "Europe/Berlin", 50.0379, 8.5622},
	"MUC": {"MUC", "Munich", "Europe/Berlin", 48.3537, 11.7750},
	"ZRH": {"ZRH", "Zurich", "Europe/Zurich", 47.4582, 8.5555},
	"MAD": {"MAD", "Madrid", "Europe/Madrid", 40.4983, -3.5676},
	"BCN": {"BCN", "Barcelona", "Europe/Madrid", 41.2974, 2.0833},
	"FCO": {"FCO", "Rome", "Europe/Rome", 41.8003, 12.2389},
	"IST": {"IST", "Istanbul", "Europe/Istanbul", 41.2753, 28.7519},

	// Middle East and Asia-Pacific
	"DXB": {"DXB", "Dubai", "Asia/Dubai", 25.2532, 55.3657},
	"DOH": {"DOH", "Doha", "Asia/Qatar", 25.2731, 51.6081},
	"SIN": {"SIN", "Singapore", "Asia/Singapore", 1.3644, 103.9915},
	"HKG": {"HKG", "Hong Kong", "Asia/Hong_Kong", 22.3080, 113.9185},
	"HND": {"HND", "Tokyo", "Asia/Tokyo", 35.5494, 139.7798},
	"NRT": {"NRT", "Tokyo", "Asia/Tokyo", 35.7720, 140.3929},
	"CGK": {"CGK", "Jakarta", "Asia/Jakarta", -6.1256, 106.6558},
	"DPS": {"DPS", "Bali", "Asia/Makassar", -8.7482, 115.1672},
	"SYD": {"SYD", "Sydney", "Australia/Sydney", -33.9399, 151.1753},
}

func Lookup(code string) (Airport, bool) {
	a, ok := airportTable[strings.ToUpper(code)]
	return a, ok
}

func Known(code string) bool {
	_, ok := Lookup(code)
	return ok
}

// Location returns the airport's time zone, UTC for unknown airports.
func Location(code string) *time.Location {
	a, ok := Lookup(code)
	if !ok {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// InLocal converts t to the local time of the given airport.
func InLocal(t time.Time, code string) time.Time {
	return t.In(Location(code))
}

// DistanceMiles is the great-circle distance between two airports.
func DistanceMiles(from, to string) (float64, bool) {
	a, ok := Lookup(from)
	if !ok {
		return 0, false
	}
	b, ok := Lookup(to)
	if !ok {
		return 0, false
	}
	return haversine(a.Lat, a.Lon, b.Lat, b.Lon), true
}

// Nearby lists other airports within maxMiles of code, closest first.
func Nearby(code string, maxMiles float64) []Airport {
	origin, ok := Lookup(code)
	if !ok {
		return nil
	}

	type ranked struct {
		airport Airport
		miles   float64
	}
	var found []ranked
	for _, a := range airportTable {
		if a.Code == origin.Code {
			continue
		}
		d := haversine(origin.Lat, origin.Lon, a.Lat, a.Lon)
		if d <= maxMiles {
			found = append(found, ranked{a, d})
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].miles == found[j].miles {
			return found[i].airport.Code < found[j].airport.Code
		}
		return found[i].miles < found[j].miles
	})

	out := make([]Airport, len(found))
	for i, r := range found {
		out[i] = r.airport
	}
	return out
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}

// ParseTimeWithOffset parses provider timestamps. Timestamps without an
// offset are read in the time zone of airportCode.
func ParseTimeWithOffset(timeStr string, airportCode string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05-0700", // Without colon
		"2006-01-02T15:04:05Z",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return t, nil
		}
	}

	loc := Location(airportCode)
	localFormats := []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	}
	for _, format := range localFormats {
		if t, err := time.ParseInLocation(format, timeStr, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &time.ParseError{
		Value:   timeStr,
		Message: "unable to parse time string",
	}
}
