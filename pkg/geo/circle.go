package geo

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Query keys of a rectangular geo search
const (
	KeyLatN = "lat_n"
	KeyLatS = "lat_s"
	KeyLngE = "lng_e"
	KeyLngW = "lng_w"

	KeyLat    = "lat"
	KeyLng    = "lng"
	KeyRadius = "radius"
)

// GeoSearchPrefix is the path every canonical circle search starts with
const GeoSearchPrefix = "/search/geo?"

var (
	decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	hexPattern     = regexp.MustCompile(`^0[xX][0-9a-fA-F]+$`)
)

// Rect is a rectangular search area given by its four edges in degrees
type Rect struct {
	LatN float64
	LatS float64
	LngE float64
	LngW float64
}

// Circle is a search area given by a center and a radius in miles
type Circle struct {
	Lat    float64
	Lng    float64
	Radius float64
}

// ParseRect reads the four rectangle edges from a query. ok is false unless
// every edge coerces to a finite number.
func ParseRect(query map[string]string) (r Rect, ok bool) {
	fields := []struct {
		key string
		dst *float64
	}{
		{KeyLatN, &r.LatN},
		{KeyLatS, &r.LatS},
		{KeyLngE, &r.LngE},
		{KeyLngW, &r.LngW},
	}

	for _, f := range fields {
		raw, present := query[f.key]
		v, finite := toNumber(raw, present)
		if !finite {
			return Rect{}, false
		}
		*f.dst = v
	}
	return r, true
}

// Circle approximates the rectangle by its center (rounded to 4 decimal
// places) and the distance in miles from the center to the north-east corner
func (r Rect) Circle() Circle {
	lat := round4((r.LatN + r.LatS) / 2)
	lng := round4((r.LngE + r.LngW) / 2)

	return Circle{
		Lat:    lat,
		Lng:    lng,
		Radius: DistanceMi(lat, lng, r.LatN, r.LngE),
	}
}

// ParseCircle reads lat, lng and radius from a query
func ParseCircle(query map[string]string) (c Circle, ok bool) {
	var finite bool
	if c.Lat, finite = lookupNumber(query, KeyLat); !finite {
		return Circle{}, false
	}
	if c.Lng, finite = lookupNumber(query, KeyLng); !finite {
		return Circle{}, false
	}
	if c.Radius, finite = lookupNumber(query, KeyRadius); !finite {
		return Circle{}, false
	}
	return c, true
}

// SearchPath renders the canonical circle search path
func (c Circle) SearchPath() string {
	path, _ := SearchPathFromQuery(map[string]string{
		KeyLat:    FormatNumber(c.Lat),
		KeyLng:    FormatNumber(c.Lng),
		KeyRadius: FormatNumber(c.Radius),
	})
	return path
}

// SearchPathFromQuery renders the canonical circle search path from raw
// query values, verbatim. ok is false if lat, lng or radius is missing.
func SearchPathFromQuery(query map[string]string) (string, bool) {
	lat, okLat := query[KeyLat]
	lng, okLng := query[KeyLng]
	radius, okRadius := query[KeyRadius]
	if !okLat || !okLng || !okRadius {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString(GeoSearchPrefix)
	sb.WriteString("lat=" + lat)
	sb.WriteString("&lng=" + lng)
	sb.WriteString("&radius=" + radius)
	return sb.String(), true
}

// QueryRectToCircle replaces the rectangle keys of a geo search query with
// the equivalent circle (lat, lng, radius). Other keys are kept. If any edge
// is not a finite number the query itself is returned unchanged.
func QueryRectToCircle(query map[string]string) map[string]string {
	rect, ok := ParseRect(query)
	if !ok {
		return query
	}

	circle := rect.Circle()
	out := make(map[string]string, len(query)-1)
	for k, v := range query {
		switch k {
		case KeyLatN, KeyLatS, KeyLngE, KeyLngW:
			continue
		}
		out[k] = v
	}
	out[KeyLat] = FormatNumber(circle.Lat)
	out[KeyLng] = FormatNumber(circle.Lng)
	out[KeyRadius] = FormatNumber(circle.Radius)
	return out
}

// FormatNumber writes v in its shortest decimal form (3, -60, 344.8562)
func FormatNumber(v float64) string {
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func lookupNumber(query map[string]string, key string) (float64, bool) {
	raw, present := query[key]
	return toNumber(raw, present)
}

// toNumber coerces a query value the way a loosely typed number cast would:
// missing is NaN, blank is zero, otherwise a decimal or hex literal.
func toNumber(raw string, present bool) (float64, bool) {
	if !present {
		return math.NaN(), false
	}

	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, true
	}

	var v float64
	switch {
	case decimalPattern.MatchString(s):
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN(), false
		}
		v = f
	case hexPattern.MatchString(s):
		n, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return math.NaN(), false
		}
		v = float64(n)
	default:
		return math.NaN(), false
	}

	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v, false
	}
	return v, true
}
