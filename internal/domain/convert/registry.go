package convert

import (
	"reflect"
	"sort"
)

// Converter converts a value from its declared source type to its declared
// result type. Converters are pure functions.
type Converter struct {
	Source reflect.Type
	Result reflect.Type
	Fn     func(value interface{}) (interface{}, error)
}

// Registry holds the converters registered per target value type. It is
// populated once at startup and read-only afterwards, so it is safe for
// concurrent readers without locking.
type Registry struct {
	converters map[ValueType][]Converter
}

func NewRegistry() *Registry {
	return &Registry{converters: make(map[ValueType][]Converter)}
}

// Register adds a converter for the given value type. Converters whose source
// type is more specific (assignable to another registered converter's source
// but not vice versa) are tried first; among unrelated source types the
// original registration order is preserved.
func (r *Registry) Register(vt ValueType, c Converter) {
	list := append(r.converters[vt], c)
	sort.SliceStable(list, func(i, j int) bool {
		si, sj := list[i].Source, list[j].Source
		if si == sj {
			return false
		}
		return si.AssignableTo(sj) && !sj.AssignableTo(si)
	})
	r.converters[vt] = list
}

var anyType = reflect.TypeOf((*interface{})(nil)).Elem()

// Convert maps value to something assignable to target for the given value
// type. nil converts to nil; a value already assignable to target is returned
// unchanged. Otherwise the first registered converter whose source accepts
// the value's runtime type and whose result satisfies target is applied.
func (r *Registry) Convert(value interface{}, vt ValueType, target reflect.Type) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if target == nil {
		target = anyType
	}

	rt := reflect.TypeOf(value)
	if rt.AssignableTo(target) {
		return value, nil
	}

	for _, c := range r.converters[vt] {
		if rt.AssignableTo(c.Source) && c.Result.AssignableTo(target) {
			out, err := c.Fn(value)
			if err != nil {
				return nil, err
			}
			return out, nil
		}
	}
	return nil, conversionErr(vt, value, "")
}

// ToString converts value to the tracker system's string encoding for the
// given value type.
func (r *Registry) ToString(value interface{}, vt ValueType) (string, error) {
	out, err := r.Convert(value, vt, reflect.TypeOf(""))
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}
	return out.(string), nil
}
