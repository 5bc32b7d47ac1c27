package convert

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/fhirbridge/fhirbridge/internal/platform/dhis"
)

var stringType = reflect.TypeOf("")

func TestConvert_NilShortCircuit(t *testing.T) {
	r := NewDefaultRegistry()
	out, err := r.Convert(nil, Coordinate, stringType)
	if err != nil || out != nil {
		t.Fatalf("Convert(nil) = %v, %v; want nil, nil", out, err)
	}
}

func TestConvert_IdentityShortCircuit(t *testing.T) {
	r := NewDefaultRegistry()

	// Already assignable to the target: returned unchanged.
	out, err := r.Convert("hello", Text, stringType)
	if err != nil || out != "hello" {
		t.Fatalf("Convert identity = %v, %v", out, err)
	}

	// nil target means "any": any non-nil value passes through.
	c := dhis.Coordinate{Longitude: 1, Latitude: 2}
	out, err = r.Convert(c, Coordinate, nil)
	if err != nil || out != c {
		t.Fatalf("Convert to any = %v, %v", out, err)
	}
}

func TestConvert_SpecificityWinsOverRegistrationOrder(t *testing.T) {
	// The generic fmt.Stringer converter is registered before the concrete
	// dhis.Reference converter, but the concrete source must win.
	r := NewRegistry()
	r.Register(Text, stringConverter(func(s interface{ String() string }) (string, error) {
		return "generic:" + s.String(), nil
	}))
	r.Register(Text, stringConverter(func(ref dhis.Reference) (string, error) {
		return "specific:" + ref.String(), nil
	}))

	out, err := r.Convert(dhis.NewReference(dhis.RefCode, "OU_1"), Text, stringType)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if out != "specific:CODE:OU_1" {
		t.Fatalf("Convert = %q, want the specific converter's output", out)
	}
}

func TestConvert_UnrelatedSourcesKeepRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(Text, stringConverter(func(n int64) (string, error) { return "int", nil }))
	r.Register(Text, stringConverter(func(f float64) (string, error) { return "float", nil }))

	out, err := r.Convert(int64(1), Text, stringType)
	if err != nil || out != "int" {
		t.Fatalf("Convert(int64) = %v, %v", out, err)
	}
	out, err = r.Convert(3.5, Text, stringType)
	if err != nil || out != "float" {
		t.Fatalf("Convert(float64) = %v, %v", out, err)
	}
}

func TestConvert_NoMatchIsConversionError(t *testing.T) {
	r := NewDefaultRegistry()
	_, err := r.Convert(struct{}{}, Integer, stringType)
	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *ConversionError", err)
	}
	if ce.ValueType != Integer || ce.GoType == "" {
		t.Fatalf("error lacks diagnostics: %+v", ce)
	}
}

func TestCoordinate_RoundTrip(t *testing.T) {
	pairs := []dhis.Coordinate{
		{Longitude: 10.91, Latitude: -67.124},
		{Longitude: -180, Latitude: 90},
		{Longitude: 1.5e-7, Latitude: -2.25e3},
		{Longitude: 0, Latitude: 0},
	}
	for _, want := range pairs {
		got, err := ParseCoordinate(FormatCoordinate(want))
		if err != nil {
			t.Fatalf("round trip of %+v: %v", want, err)
		}
		if got != want {
			t.Fatalf("round trip of %+v = %+v", want, got)
		}
	}
}

func TestCoordinate_Parse(t *testing.T) {
	c, err := ParseCoordinate("[10.91,-67.124]")
	if err != nil {
		t.Fatalf("ParseCoordinate: %v", err)
	}
	if c.Longitude != 10.91 || c.Latitude != -67.124 {
		t.Fatalf("parsed %+v", c)
	}

	bad := []string{
		"[10.91;-67.124]", // semicolon separator always fails
		"(10.91,-67.124)",
		"[10.91,-67.124",
		"[10.91,,-67.124]",
		"[a,b]",
		"",
	}
	for _, s := range bad {
		if _, err := ParseCoordinate(s); err == nil {
			t.Errorf("ParseCoordinate(%q) succeeded, want error", s)
		}
		var ce *ConversionError
		if _, err := ParseCoordinate(s); !errors.As(err, &ce) {
			t.Errorf("ParseCoordinate(%q) error is not a *ConversionError", s)
		}
	}
}

func TestEnumConverter_Normalization(t *testing.T) {
	r := NewDefaultRegistry()
	target := reflect.TypeOf(dhis.EventStatus(""))

	for _, in := range []string{"completed", "COMPLETED", "Com-pleted", "completed!"} {
		out, err := r.Convert(in, Text, target)
		if err != nil {
			t.Fatalf("Convert(%q): %v", in, err)
		}
		if out.(dhis.EventStatus) != dhis.EventStatusCompleted {
			t.Fatalf("Convert(%q) = %v", in, out)
		}
	}

	if _, err := r.Convert("nonsense", Text, target); err == nil {
		t.Fatal("unrecognized enum value converted without error")
	}
}

func TestDateTime_StrictParsing(t *testing.T) {
	r := NewDefaultRegistry()
	target := reflect.TypeOf(time.Time{})

	out, err := r.Convert("2024-03-01T10:30:00Z", DateTime, target)
	if err != nil {
		t.Fatalf("Convert datetime: %v", err)
	}
	if !out.(time.Time).Equal(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("Convert datetime = %v", out)
	}

	// No fallback heuristics: a bare date is not a DATETIME.
	if _, err := r.Convert("2024-03-01", DateTime, target); err == nil {
		t.Fatal("bare date accepted as DATETIME")
	}
	if _, err := r.Convert("01/03/2024", Date, target); err == nil {
		t.Fatal("slash date accepted as DATE")
	}
}

func TestOrganisationUnit_FromString(t *testing.T) {
	r := NewDefaultRegistry()
	target := reflect.TypeOf(dhis.Reference{})

	out, err := r.Convert("CODE:OU_1", OrganisationUnit, target)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if out.(dhis.Reference) != dhis.NewReference(dhis.RefCode, "OU_1") {
		t.Fatalf("Convert = %v", out)
	}

	// A bare value addresses the org unit by internal id.
	out, err = r.Convert("abc123", OrganisationUnit, target)
	if err != nil {
		t.Fatalf("Convert bare value: %v", err)
	}
	if out.(dhis.Reference) != dhis.NewReference(dhis.RefID, "abc123") {
		t.Fatalf("Convert bare value = %v", out)
	}

	// A malformed reference is never coerced into an id.
	for _, s := range []string{"BOGUS:ou", "ID:", ":abc", ""} {
		_, err := r.Convert(s, OrganisationUnit, target)
		var ce *ConversionError
		if !errors.As(err, &ce) {
			t.Errorf("Convert(%q) = %v, want *ConversionError", s, err)
		}
	}
}

func TestToString_ValueEncodings(t *testing.T) {
	r := NewDefaultRegistry()
	tests := []struct {
		value interface{}
		vt    ValueType
		want  string
	}{
		{int64(42), Integer, "42"},
		{float64(42), Integer, "42"},
		{3.25, Number, "3.25"},
		{true, Boolean, "true"},
		{true, TrueOnly, "true"},
		{dhis.Coordinate{Longitude: 10.91, Latitude: -67.124}, Coordinate, "[10.91,-67.124]"},
		{dhis.NewReference(dhis.RefID, "abc"), OrganisationUnit, "ID:abc"},
		{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Date, "2024-03-01"},
	}
	for _, tt := range tests {
		got, err := r.ToString(tt.value, tt.vt)
		if err != nil {
			t.Errorf("ToString(%v, %s): %v", tt.value, tt.vt, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ToString(%v, %s) = %q, want %q", tt.value, tt.vt, got, tt.want)
		}
	}

	if _, err := r.ToString(false, TrueOnly); err == nil {
		t.Error("TRUE_ONLY accepted false")
	}
	if _, err := r.ToString(4.5, Integer); err == nil {
		t.Error("INTEGER accepted a fractional number")
	}
}
