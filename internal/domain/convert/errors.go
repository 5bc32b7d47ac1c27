package convert

import "fmt"

// ConversionError reports a value that could not be mapped between the two
// type systems. It is always surfaced to the caller; values are never
// silently coerced to a default.
type ConversionError struct {
	ValueType ValueType
	GoType    string
	Msg       string
}

func (e *ConversionError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("cannot convert %s value of type %s: %s", e.ValueType, e.GoType, e.Msg)
	}
	return fmt.Sprintf("no converter for %s value of type %s", e.ValueType, e.GoType)
}

func conversionErr(vt ValueType, value interface{}, msg string) *ConversionError {
	return &ConversionError{ValueType: vt, GoType: fmt.Sprintf("%T", value), Msg: msg}
}
