package transform

import (
	"fmt"
	"reflect"
	"time"

	"github.com/fhirbridge/fhirbridge/internal/domain/convert"
	"github.com/fhirbridge/fhirbridge/internal/domain/script"
	"github.com/fhirbridge/fhirbridge/internal/platform/dhis"
)

var (
	timeType        = reflect.TypeOf(time.Time{})
	coordinateType  = reflect.TypeOf(dhis.Coordinate{})
	eventStatusType = reflect.TypeOf(dhis.EventStatus(""))
)

// ScriptContext is the "context" variable bound into transformation scripts.
// It exposes request metadata and the helpers scripts use to build references
// or abort the transformation.
type ScriptContext struct {
	FHIRResourceType string
	RuleID           string
	Version          string
	now              time.Time
}

func newScriptContext(in *Input) *ScriptContext {
	return &ScriptContext{
		FHIRResourceType: in.Resource.ResourceType,
		RuleID:           in.RuleID.String(),
		Version:          in.Version,
		now:              time.Now(),
	}
}

// Now returns the orchestration timestamp, fixed for the whole script run.
func (c *ScriptContext) Now() time.Time { return c.now }

// Fail aborts the script with a message; the orchestrator treats it as a
// declined candidate.
func (c *ScriptContext) Fail(msg string) { script.Fail(msg) }

// Reference builds a tracker reference, failing the script on an invalid
// reference type.
func (c *ScriptContext) Reference(refType, value string) dhis.Reference {
	ref := dhis.Reference{Type: dhis.RefType(refType), Value: value}
	if !ref.IsValid() {
		script.Fail(fmt.Sprintf("invalid reference %s:%s", refType, value))
	}
	return ref
}

// convertToString routes a script-produced value through the converter
// registry, failing the script on a conversion error so the orchestrator sees
// a declined candidate rather than a half-built payload.
func convertToString(conv *convert.Registry, value interface{}, vt convert.ValueType) string {
	s, err := conv.ToString(value, vt)
	if err != nil {
		script.Fail(err.Error())
	}
	return s
}

// TrackedEntityOutput is the "output" variable for tracked entity rules.
type TrackedEntityOutput struct {
	conv    *convert.Registry
	payload dhis.TrackedEntity
}

func (o *TrackedEntityOutput) SetType(trackedEntityType string) {
	o.payload.TrackedEntityType = trackedEntityType
}

func (o *TrackedEntityOutput) SetOrgUnit(orgUnit string) {
	o.payload.OrgUnit = orgUnit
}

// SetAttribute converts value according to valueType and stores it under the
// given attribute id. Setting an attribute twice keeps the last value.
func (o *TrackedEntityOutput) SetAttribute(attribute string, value interface{}, valueType string) {
	s := convertToString(o.conv, value, convert.ValueType(valueType))
	for i := range o.payload.Attributes {
		if o.payload.Attributes[i].Attribute == attribute {
			o.payload.Attributes[i].Value = s
			return
		}
	}
	o.payload.Attributes = append(o.payload.Attributes, dhis.Attribute{Attribute: attribute, Value: s})
}

// EnrollmentOutput is the "output" variable for enrollment rules.
type EnrollmentOutput struct {
	conv    *convert.Registry
	payload dhis.Enrollment
}

func (o *EnrollmentOutput) SetProgram(program string)  { o.payload.Program = program }
func (o *EnrollmentOutput) SetOrgUnit(orgUnit string)  { o.payload.OrgUnit = orgUnit }
func (o *EnrollmentOutput) SetTrackedEntity(id string) { o.payload.TrackedEntity = id }
func (o *EnrollmentOutput) SetStatus(status string)    { o.payload.Status = status }
func (o *EnrollmentOutput) SetEnrollmentDate(v interface{}) {
	o.payload.EnrollmentDate = o.date(v)
}
func (o *EnrollmentOutput) SetIncidentDate(v interface{}) {
	o.payload.IncidentDate = o.date(v)
}

func (o *EnrollmentOutput) date(v interface{}) *time.Time {
	t := convertToDate(o.conv, v)
	return &t
}

// EventOutput is the "output" variable for event rules.
type EventOutput struct {
	conv    *convert.Registry
	payload dhis.Event
}

func (o *EventOutput) SetProgram(program string)           { o.payload.Program = program }
func (o *EventOutput) SetProgramStage(programStage string) { o.payload.ProgramStage = programStage }
func (o *EventOutput) SetOrgUnit(orgUnit string)           { o.payload.OrgUnit = orgUnit }
func (o *EventOutput) SetTrackedEntity(id string)          { o.payload.TrackedEntity = id }
func (o *EventOutput) SetEnrollment(id string)             { o.payload.Enrollment = id }

func (o *EventOutput) SetStatus(status interface{}) {
	v, err := o.conv.Convert(status, convert.Text, eventStatusType)
	if err != nil {
		script.Fail(err.Error())
	}
	o.payload.Status = v.(dhis.EventStatus)
}

func (o *EventOutput) SetEventDate(v interface{}) {
	t := convertToDate(o.conv, v)
	o.payload.EventDate = &t
}

func (o *EventOutput) SetDueDate(v interface{}) {
	t := convertToDate(o.conv, v)
	o.payload.DueDate = &t
}

func (o *EventOutput) SetCoordinate(v interface{}) {
	c, err := o.conv.Convert(v, convert.Coordinate, coordinateType)
	if err != nil {
		script.Fail(err.Error())
	}
	coord := c.(dhis.Coordinate)
	o.payload.Coordinate = &coord
}

// SetDataValue converts value according to valueType and stores it under the
// given data element id. Setting a data element twice keeps the last value.
func (o *EventOutput) SetDataValue(dataElement string, value interface{}, valueType string) {
	s := convertToString(o.conv, value, convert.ValueType(valueType))
	for i := range o.payload.DataValues {
		if o.payload.DataValues[i].DataElement == dataElement {
			o.payload.DataValues[i].Value = s
			return
		}
	}
	o.payload.DataValues = append(o.payload.DataValues, dhis.DataValue{DataElement: dataElement, Value: s})
}

func convertToDate(conv *convert.Registry, v interface{}) time.Time {
	if t, ok := v.(time.Time); ok {
		return t
	}
	c, err := conv.Convert(v, convert.DateTime, timeType)
	if err != nil {
		// Bare dates are acceptable where a datetime is expected.
		c, err = conv.Convert(v, convert.Date, timeType)
	}
	if err != nil {
		script.Fail(err.Error())
	}
	return c.(time.Time)
}
