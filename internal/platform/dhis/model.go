package dhis

import "time"

// ResourceType enumerates the tracker resource types a rule can produce.
type ResourceType string

const (
	ResourceTrackedEntity ResourceType = "TRACKED_ENTITY"
	ResourceEnrollment    ResourceType = "ENROLLMENT"
	ResourceEvent         ResourceType = "EVENT"
)

// EventStatus enumerates the tracker event lifecycle states.
type EventStatus string

const (
	EventStatusActive    EventStatus = "ACTIVE"
	EventStatusCompleted EventStatus = "COMPLETED"
	EventStatusScheduled EventStatus = "SCHEDULE"
	EventStatusSkipped   EventStatus = "SKIPPED"
	EventStatusVisited   EventStatus = "VISITED"
	EventStatusOverdue   EventStatus = "OVERDUE"
)

// Attribute is a tracked entity attribute value.
type Attribute struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

// TrackedEntity is the payload for creating or updating a tracked entity
// instance.
type TrackedEntity struct {
	ID                string      `json:"trackedEntityInstance,omitempty"`
	TrackedEntityType string      `json:"trackedEntityType"`
	OrgUnit           string      `json:"orgUnit"`
	Attributes        []Attribute `json:"attributes,omitempty"`
}

// Enrollment enrolls a tracked entity into a program.
type Enrollment struct {
	ID             string     `json:"enrollment,omitempty"`
	TrackedEntity  string     `json:"trackedEntityInstance"`
	Program        string     `json:"program"`
	OrgUnit        string     `json:"orgUnit"`
	Status         string     `json:"status,omitempty"`
	EnrollmentDate *time.Time `json:"enrollmentDate,omitempty"`
	IncidentDate   *time.Time `json:"incidentDate,omitempty"`
}

// DataValue is a single data element value within an event.
type DataValue struct {
	DataElement string `json:"dataElement"`
	Value       string `json:"value"`
}

// Event is a program stage event payload.
type Event struct {
	ID            string      `json:"event,omitempty"`
	TrackedEntity string      `json:"trackedEntityInstance,omitempty"`
	Program       string      `json:"program"`
	ProgramStage  string      `json:"programStage"`
	Enrollment    string      `json:"enrollment,omitempty"`
	OrgUnit       string      `json:"orgUnit"`
	Status        EventStatus `json:"status,omitempty"`
	EventDate     *time.Time  `json:"eventDate,omitempty"`
	DueDate       *time.Time  `json:"dueDate,omitempty"`
	Coordinate    *Coordinate `json:"coordinate,omitempty"`
	DataValues    []DataValue `json:"dataValues,omitempty"`
	LastUpdated   *time.Time  `json:"lastUpdated,omitempty"`
	Deleted       bool        `json:"deleted,omitempty"`
}

// Coordinate is a geographic point attached to an event.
type Coordinate struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// SystemInfo is the subset of /api/system/info the bridge needs.
type SystemInfo struct {
	Version  string `json:"version"`
	Revision string `json:"revision,omitempty"`
}

// ImportSummaries is the envelope returned by tracker write endpoints.
type ImportSummaries struct {
	Status          string          `json:"status"`
	ImportSummaries []ImportSummary `json:"importSummaries"`
}

// ImportSummary reports the outcome for one imported item.
type ImportSummary struct {
	Status      string `json:"status"`
	Reference   string `json:"reference"`
	Description string `json:"description,omitempty"`
}

// successStatus values accepted for both the envelope and per-item summaries.
func successStatus(s string) bool {
	return s == "SUCCESS" || s == "OK"
}

// FirstReference returns the assigned identifier of the first summary, or ""
// when none is present.
func (s *ImportSummaries) FirstReference() string {
	if len(s.ImportSummaries) == 0 {
		return ""
	}
	return s.ImportSummaries[0].Reference
}

// Verify checks the whole-operation success contract: the top-level status
// must be a success status and every per-item summary must be successful with
// a non-empty assigned reference. An HTTP 200 with a failed summary is still
// a failed import.
func (s *ImportSummaries) Verify() error {
	if !successStatus(s.Status) {
		return &ImportError{Status: s.Status, Description: describe(s.ImportSummaries)}
	}
	if len(s.ImportSummaries) == 0 {
		return &ImportError{Status: s.Status, Description: "no import summaries returned"}
	}
	for _, is := range s.ImportSummaries {
		if !successStatus(is.Status) {
			return &ImportError{Status: is.Status, Description: is.Description}
		}
		if is.Reference == "" {
			return &ImportError{Status: is.Status, Description: "import summary has no assigned reference"}
		}
	}
	return nil
}

func describe(summaries []ImportSummary) string {
	for _, is := range summaries {
		if is.Description != "" {
			return is.Description
		}
	}
	return ""
}
