// Package convert maps values between the tracker system's weakly-typed field
// encoding and the richly-typed values used inside the bridge. Converters are
// registered explicitly at process start; there is no reflection-based
// discovery.
package convert

// ValueType mirrors the tracker system's value type encoding for attributes
// and data elements.
type ValueType string

const (
	Text             ValueType = "TEXT"
	LongText         ValueType = "LONG_TEXT"
	Integer          ValueType = "INTEGER"
	Number           ValueType = "NUMBER"
	Boolean          ValueType = "BOOLEAN"
	TrueOnly         ValueType = "TRUE_ONLY"
	Date             ValueType = "DATE"
	DateTime         ValueType = "DATETIME"
	Time             ValueType = "TIME"
	Coordinate       ValueType = "COORDINATE"
	OrganisationUnit ValueType = "ORGANISATION_UNIT"
	Username         ValueType = "USERNAME"
	URL              ValueType = "URL"
	Email            ValueType = "EMAIL"
	PhoneNumber      ValueType = "PHONE_NUMBER"
)
