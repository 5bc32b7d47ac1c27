// Package script holds the user-authored transformation scripts and the
// engine that compiles, caches and evaluates them against a bound variable
// set.
package script

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReturnType is the declared result type of a script.
type ReturnType string

const (
	ReturnBoolean  ReturnType = "BOOLEAN"
	ReturnString   ReturnType = "STRING"
	ReturnInteger  ReturnType = "INTEGER"
	ReturnNumber   ReturnType = "NUMBER"
	ReturnDateTime ReturnType = "DATETIME"
	ReturnObject   ReturnType = "OBJECT"
)

// Accepts reports whether a runtime value satisfies the declared return type.
// A successfully executed script whose value fails this check is still an
// execution error.
func (rt ReturnType) Accepts(v interface{}) bool {
	switch rt {
	case ReturnBoolean:
		_, ok := v.(bool)
		return ok
	case ReturnString:
		_, ok := v.(string)
		return ok
	case ReturnInteger:
		switch n := v.(type) {
		case int, int32, int64:
			return true
		case float64:
			return float64(int64(n)) == n
		}
		return false
	case ReturnNumber:
		switch v.(type) {
		case int, int32, int64, float64:
			return true
		}
		return false
	case ReturnDateTime:
		_, ok := v.(time.Time)
		return ok
	case ReturnObject:
		return v != nil
	}
	return false
}

// Satisfies reports whether a script declared to return declared can be used
// where want is requested. OBJECT accepts any declared type.
func Satisfies(want, declared ReturnType) bool {
	return want == declared || want == ReturnObject
}

// Script is versioned source text plus a declared return type and required
// variable names. Source variants are keyed by target-system version range.
type Script struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Code         string     `db:"code" json:"code"`
	Description  *string    `db:"description" json:"description,omitempty"`
	ReturnType   ReturnType `db:"return_type" json:"return_type"`
	RequiredVars []string   `db:"required_vars" json:"required_vars"`
	Sources      []Source   `json:"sources,omitempty"`
	Args         []Arg      `json:"args,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Source is one version-ranged source text variant. FromVersion is inclusive,
// ToVersion exclusive; an empty bound is open.
type Source struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ScriptID    uuid.UUID `db:"script_id" json:"script_id"`
	SourceText  string    `db:"source_text" json:"source_text"`
	FromVersion string    `db:"from_version" json:"from_version,omitempty"`
	ToVersion   string    `db:"to_version" json:"to_version,omitempty"`
}

// Arg declares a named script argument with an optional default.
type Arg struct {
	Name         string  `db:"name" json:"name"`
	Mandatory    bool    `db:"mandatory" json:"mandatory"`
	DefaultValue *string `db:"default_value" json:"default_value,omitempty"`
}

// ExecutableScript binds a script to override argument values. Scripts are
// resolved by reference at evaluation time, so edits take effect on the next
// evaluation only.
type ExecutableScript struct {
	ID        uuid.UUID         `db:"id" json:"id"`
	Code      string            `db:"code" json:"code"`
	ScriptID  uuid.UUID         `db:"script_id" json:"script_id"`
	Script    *Script           `json:"script,omitempty"`
	Overrides map[string]string `json:"overrides,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

// SourceFor selects the source text variant covering the given target-system
// version.
func (s *Script) SourceFor(version string) (*Source, bool) {
	for i := range s.Sources {
		src := &s.Sources[i]
		if src.FromVersion != "" && versionLess(version, src.FromVersion) {
			continue
		}
		if src.ToVersion != "" && !versionLess(version, src.ToVersion) {
			continue
		}
		return src, true
	}
	return nil, false
}

// MergedArgs merges the script's default argument values with the executable
// script's overrides. A mandatory argument still unset after the merge is a
// preparation error.
func (es *ExecutableScript) MergedArgs() (map[string]string, error) {
	if es.Script == nil {
		return nil, &PrepareError{Msg: "executable script " + es.Code + " has no resolved script"}
	}
	args := make(map[string]string, len(es.Script.Args))
	for _, a := range es.Script.Args {
		if a.DefaultValue != nil {
			args[a.Name] = *a.DefaultValue
		}
	}
	for name, value := range es.Overrides {
		args[name] = value
	}
	for _, a := range es.Script.Args {
		if _, ok := args[a.Name]; a.Mandatory && !ok {
			return nil, &PrepareError{Msg: "mandatory argument " + a.Name + " of script " + es.Code + " is not set"}
		}
	}
	return args, nil
}

// versionLess compares dotted numeric versions ("2.39" style) segment by
// segment.
func versionLess(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var an, bn int
		if i < len(as) {
			an, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bn, _ = strconv.Atoi(bs[i])
		}
		if an != bn {
			return an < bn
		}
	}
	return false
}
