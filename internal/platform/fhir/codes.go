package fhir

// codeBearingElements are the elements scanned for codings when matching a
// resource against transformation rules.
var codeBearingElements = []string{"code", "type", "category", "vaccineCode", "medicationCodeableConcept"}

// ExtractCodes collects the codings of a resource's code-bearing elements.
// Each coding contributes its "system|code" form and, for rule sets keyed by
// bare code, the code alone. Order is stable; duplicates are removed.
func ExtractCodes(r *Resource) []string {
	if r == nil || r.Data == nil {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, el := range codeBearingElements {
		v, ok := r.Data[el]
		if !ok {
			continue
		}
		for _, cc := range asConcepts(v) {
			for _, coding := range asCodings(cc["coding"]) {
				system, _ := coding["system"].(string)
				code, _ := coding["code"].(string)
				if code == "" {
					continue
				}
				if system != "" {
					add(system + "|" + code)
				}
				add(code)
			}
		}
	}
	return out
}

// asConcepts normalizes an element that may be a single CodeableConcept or a
// list of them.
func asConcepts(v interface{}) []map[string]interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return []map[string]interface{}{t}
	case []interface{}:
		var out []map[string]interface{}
		for _, e := range t {
			if m, ok := e.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func asCodings(v interface{}) []map[string]interface{} {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []map[string]interface{}
	for _, e := range list {
		if m, ok := e.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}
