package convert

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/fhirbridge/fhirbridge/internal/platform/dhis"
)

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// coordinatePattern accepts "[lon,lat]" with signed or exponential decimal
// numbers and optional whitespace. Any other punctuation is rejected.
var coordinatePattern = regexp.MustCompile(
	`^\[\s*([+-]?(?:\d+(?:\.\d+)?|\.\d+)(?:[eE][+-]?\d+)?)\s*,\s*([+-]?(?:\d+(?:\.\d+)?|\.\d+)(?:[eE][+-]?\d+)?)\s*\]$`)

// ParseCoordinate parses the tracker encoding "[lon,lat]".
func ParseCoordinate(s string) (dhis.Coordinate, error) {
	m := coordinatePattern.FindStringSubmatch(s)
	if m == nil {
		return dhis.Coordinate{}, conversionErr(Coordinate, s, fmt.Sprintf("%q is not a [lon,lat] coordinate", s))
	}
	lon, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return dhis.Coordinate{}, conversionErr(Coordinate, s, err.Error())
	}
	lat, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return dhis.Coordinate{}, conversionErr(Coordinate, s, err.Error())
	}
	return dhis.Coordinate{Longitude: lon, Latitude: lat}, nil
}

// FormatCoordinate renders the tracker encoding "[lon,lat]".
func FormatCoordinate(c dhis.Coordinate) string {
	return "[" + strconv.FormatFloat(c.Longitude, 'g', -1, 64) +
		"," + strconv.FormatFloat(c.Latitude, 'g', -1, 64) + "]"
}

// normalizeEnum lowercases and strips everything that is not a letter or
// digit, so "in-progress", "IN PROGRESS" and "InProgress" all match.
func normalizeEnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// NewEnumConverter builds a string converter for a string-kind enum type.
// Matching is case-insensitive and punctuation-normalizing; the canonical
// value is returned on a match and a conversion error otherwise.
func NewEnumConverter[E ~string](vt ValueType, values ...E) Converter {
	index := make(map[string]E, len(values))
	for _, v := range values {
		index[normalizeEnum(string(v))] = v
	}
	return Converter{
		Source: typeOf[string](),
		Result: typeOf[E](),
		Fn: func(value interface{}) (interface{}, error) {
			s := value.(string)
			if v, ok := index[normalizeEnum(s)]; ok {
				return v, nil
			}
			return nil, conversionErr(vt, value, fmt.Sprintf("%q is not a recognized value", s))
		},
	}
}

func stringConverter[S any](fn func(S) (string, error)) Converter {
	return Converter{
		Source: typeOf[S](),
		Result: typeOf[string](),
		Fn: func(value interface{}) (interface{}, error) {
			return fn(value.(S))
		},
	}
}

func fromStringConverter[R any](fn func(string) (R, error)) Converter {
	return Converter{
		Source: typeOf[string](),
		Result: typeOf[R](),
		Fn: func(value interface{}) (interface{}, error) {
			return fn(value.(string))
		},
	}
}

// NewDefaultRegistry builds the registry used by the transformers, with one
// explicit registration per (value type, source, result) mapping.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	// COORDINATE
	r.Register(Coordinate, fromStringConverter(ParseCoordinate))
	r.Register(Coordinate, stringConverter(func(c dhis.Coordinate) (string, error) {
		return FormatCoordinate(c), nil
	}))

	// DATE / DATETIME / TIME: strict ISO-8601 extended, no fallback heuristics.
	r.Register(Date, fromStringConverter(func(s string) (time.Time, error) {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, conversionErr(Date, s, err.Error())
		}
		return t, nil
	}))
	r.Register(Date, stringConverter(func(t time.Time) (string, error) {
		return t.Format("2006-01-02"), nil
	}))
	r.Register(DateTime, fromStringConverter(func(s string) (time.Time, error) {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, conversionErr(DateTime, s, err.Error())
		}
		return t, nil
	}))
	r.Register(DateTime, stringConverter(func(t time.Time) (string, error) {
		return t.UTC().Format(time.RFC3339), nil
	}))
	r.Register(Time, fromStringConverter(func(s string) (time.Time, error) {
		t, err := time.Parse("15:04", s)
		if err != nil {
			return time.Time{}, conversionErr(Time, s, err.Error())
		}
		return t, nil
	}))
	r.Register(Time, stringConverter(func(t time.Time) (string, error) {
		return t.Format("15:04"), nil
	}))

	// INTEGER
	r.Register(Integer, fromStringConverter(func(s string) (int64, error) {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, conversionErr(Integer, s, err.Error())
		}
		return n, nil
	}))
	r.Register(Integer, stringConverter(func(n int64) (string, error) {
		return strconv.FormatInt(n, 10), nil
	}))
	// JSON numbers arrive as float64; accept them when they are whole.
	r.Register(Integer, Converter{
		Source: typeOf[float64](),
		Result: typeOf[int64](),
		Fn: func(value interface{}) (interface{}, error) {
			f := value.(float64)
			n := int64(f)
			if float64(n) != f {
				return nil, conversionErr(Integer, value, "not a whole number")
			}
			return n, nil
		},
	})
	r.Register(Integer, stringConverter(func(f float64) (string, error) {
		n := int64(f)
		if float64(n) != f {
			return "", conversionErr(Integer, f, "not a whole number")
		}
		return strconv.FormatInt(n, 10), nil
	}))

	// NUMBER
	r.Register(Number, fromStringConverter(func(s string) (float64, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, conversionErr(Number, s, err.Error())
		}
		return f, nil
	}))
	r.Register(Number, stringConverter(func(f float64) (string, error) {
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	}))
	r.Register(Number, stringConverter(func(n int64) (string, error) {
		return strconv.FormatInt(n, 10), nil
	}))

	// BOOLEAN
	r.Register(Boolean, fromStringConverter(func(s string) (bool, error) {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "1":
			return true, nil
		case "false", "no", "0":
			return false, nil
		}
		return false, conversionErr(Boolean, s, fmt.Sprintf("%q is not a boolean", s))
	}))
	r.Register(Boolean, stringConverter(func(b bool) (string, error) {
		return strconv.FormatBool(b), nil
	}))

	// TRUE_ONLY stores only the value true; anything else is unmappable.
	r.Register(TrueOnly, stringConverter(func(b bool) (string, error) {
		if !b {
			return "", conversionErr(TrueOnly, b, "TRUE_ONLY fields cannot store false")
		}
		return "true", nil
	}))

	// TEXT and friends: render richer runtime values into the string encoding.
	for _, vt := range []ValueType{Text, LongText, Username, URL, Email, PhoneNumber} {
		registerTextConverters(r, vt)
	}
	r.Register(Text, NewEnumConverter(Text,
		dhis.EventStatusActive, dhis.EventStatusCompleted, dhis.EventStatusScheduled,
		dhis.EventStatusSkipped, dhis.EventStatusVisited, dhis.EventStatusOverdue))

	// ORGANISATION_UNIT references travel by canonical string form.
	r.Register(OrganisationUnit, stringConverter(func(ref dhis.Reference) (string, error) {
		return ref.String(), nil
	}))
	r.Register(OrganisationUnit, fromStringConverter(func(s string) (dhis.Reference, error) {
		ref, err := dhis.ParseReference(s)
		if err == nil {
			return ref, nil
		}
		// Only a value that cannot carry the type discriminator may fall
		// back to addressing the org unit by internal id; anything with a
		// colon is a malformed reference and must surface the error.
		if s == "" || strings.ContainsRune(s, ':') {
			return dhis.Reference{}, conversionErr(OrganisationUnit, s, err.Error())
		}
		return dhis.NewReference(dhis.RefID, s), nil
	}))

	return r
}

func registerTextConverters(r *Registry, vt ValueType) {
	// A dhis.Reference implements fmt.Stringer; registering both lets the
	// specificity ordering pick the concrete converter for references.
	r.Register(vt, stringConverter(func(ref dhis.Reference) (string, error) {
		return ref.String(), nil
	}))
	r.Register(vt, stringConverter(func(s fmt.Stringer) (string, error) {
		return s.String(), nil
	}))
	r.Register(vt, stringConverter(func(f float64) (string, error) {
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	}))
	r.Register(vt, stringConverter(func(n int64) (string, error) {
		return strconv.FormatInt(n, 10), nil
	}))
	r.Register(vt, stringConverter(func(b bool) (string, error) {
		return strconv.FormatBool(b), nil
	}))
}
