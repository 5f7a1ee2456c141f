package marshal

import "sort"

// Special is a non-JSON value found during validation, together with
// the location it was found at.
type Special struct {
	Path  Path  `json:"path"`
	Value Value `json:"value"`
}

// Validate checks a value against a schema and collects the special
// values matched by marker slots. The input value and schema are never
// modified. On failure the returned error is a *ValidationError
// carrying the path of the first failure, or a *SchemaError for a
// malformed schema.
func Validate(v Value, s *Schema) ([]Special, error) {
	return validate(v, s, nil)
}

type combineMode uint8

const (
	modeAny combineMode = iota
	modeAll
	modeOne
)

func validate(v Value, s *Schema, path Path) ([]Special, error) {
	if s == nil {
		return nil, schemaErrorf("schema must be an object or boolean")
	}
	if s.literal != nil {
		if *s.literal {
			return nil, nil
		}
		return nil, failf(path, "schema is false")
	}

	var specials []Special

	// Base type check. A single type dispatches directly; a list (or
	// an absent one, meaning all seven kinds) expands into one
	// single-type variant per candidate, combined in mode any.
	if len(s.Types) == 1 {
		sp, err := validateKind(v, s, s.Types[0], path)
		if err != nil {
			return nil, err
		}
		specials = append(specials, sp...)
	} else {
		kinds := s.Types
		if len(kinds) == 0 {
			kinds = allTypeNames
		}
		variants := make([]*Schema, len(kinds))
		for i, k := range kinds {
			variants[i] = s.variant(k)
		}
		sp, err := combine(v, variants, modeAny, path)
		if err != nil {
			return nil, err
		}
		specials = append(specials, sp...)
	}

	// Combinators apply in addition to the base check; their specials
	// are concatenated onto the result.
	for _, group := range []struct {
		branches []*Schema
		mode     combineMode
	}{
		{s.AllOf, modeAll},
		{s.AnyOf, modeAny},
		{s.OneOf, modeOne},
	} {
		if len(group.branches) == 0 {
			continue
		}
		sp, err := combine(v, group.branches, group.mode, path)
		if err != nil {
			return nil, err
		}
		specials = append(specials, sp...)
	}

	return specials, nil
}

// combine evaluates a list of schemas against the same value.
//
//	any: first branch that validates wins; its specials propagate. If
//	     every branch fails the first branch's error is reported.
//	all: every branch must validate; specials are concatenated in
//	     branch order.
//	one: exactly one branch may validate; more than one is its own
//	     failure, independent of which branches matched.
func combine(v Value, branches []*Schema, mode combineMode, path Path) ([]Special, error) {
	var firstErr error
	var specials []Special
	matched := 0

	for _, branch := range branches {
		sp, err := validate(v, branch, path)
		if err != nil {
			if _, ok := err.(*SchemaError); ok {
				return nil, err
			}
			if firstErr == nil {
				firstErr = err
			}
			if mode == modeAll {
				return nil, err
			}
			continue
		}

		matched++
		switch mode {
		case modeAny:
			return sp, nil
		case modeAll:
			specials = append(specials, sp...)
		case modeOne:
			if matched == 1 {
				specials = sp
			}
		}
	}

	switch mode {
	case modeAny:
		return nil, firstErr
	case modeOne:
		if matched == 0 {
			return nil, firstErr
		}
		if matched > 1 {
			return nil, failf(path, "matches more than one schema")
		}
	}
	return specials, nil
}

// validateKind runs the simple validator for one primitive kind.
func validateKind(v Value, s *Schema, typeName string, path Path) ([]Special, error) {
	switch typeName {
	case "object":
		return validateObject(v, s, path)
	case "array":
		return validateArray(v, s, path)
	case "string":
		if v.Kind() != KindString {
			return nil, failf(path, "expected string, got %s", v.Kind())
		}
		return nil, nil
	case "number":
		if v.Kind() != KindNumber {
			return nil, failf(path, "expected number, got %s", v.Kind())
		}
		return nil, nil
	case "integer":
		if v.Kind() != KindNumber {
			return nil, failf(path, "expected integer, got %s", v.Kind())
		}
		if !v.IsIntegral() {
			return nil, failf(path, "expected integer, got %v", v.Number())
		}
		return nil, nil
	case "boolean":
		if v.Kind() != KindBool {
			return nil, failf(path, "expected boolean, got %s", v.Kind())
		}
		return nil, nil
	case "null":
		if v.Kind() != KindNull {
			return nil, failf(path, "expected null, got %s", v.Kind())
		}
		return nil, nil
	}
	return nil, schemaErrorf("unknown type name %q", typeName)
}

// validateObject handles the object kind. A recognized marker
// short-circuits into special-slot detection: the whole subtree is
// recorded as one special value and never recursed into.
func validateObject(v Value, s *Schema, path Path) ([]Special, error) {
	if s.Marker != nil {
		shape := v.runtimeKind()
		if shape == "" || !s.Marker.accepts(shape) {
			return nil, failf(path, "value of kind %s does not satisfy %s marker", v.Kind(), s.Marker.Kind)
		}
		return []Special{{Path: path.Clone(), Value: v}}, nil
	}

	if v.Kind() != KindObject {
		return nil, failf(path, "expected object, got %s", v.Kind())
	}

	var specials []Special
	declared := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		declared = append(declared, name)
	}
	sort.Strings(declared)

	for _, name := range declared {
		sub := s.Properties[name]
		child, present := v.Field(name)
		if !present {
			if s.IsRequired(name) {
				return nil, failf(path, "missing required property %q", name)
			}
			continue
		}
		if !s.IsRequired(name) {
			sub = widenOptional(sub)
		}
		sp, err := validate(child, sub, path.Child(Key(name)))
		if err != nil {
			return nil, err
		}
		specials = append(specials, sp...)
	}

	if s.AdditionalProperties != nil {
		for _, name := range v.FieldNames() {
			if _, ok := s.Properties[name]; ok {
				continue
			}
			child, _ := v.Field(name)
			sp, err := validate(child, s.AdditionalProperties, path.Child(Key(name)))
			if err != nil {
				return nil, err
			}
			specials = append(specials, sp...)
		}
	}

	return specials, nil
}

func validateArray(v Value, s *Schema, path Path) ([]Special, error) {
	if v.Kind() != KindArray {
		return nil, failf(path, "expected array, got %s", v.Kind())
	}
	items := v.Items()
	if s.MinItems != nil && len(items) < *s.MinItems {
		return nil, failf(path, "expected at least %d items, got %d", *s.MinItems, len(items))
	}
	if s.MaxItems != nil && len(items) > *s.MaxItems {
		return nil, failf(path, "expected at most %d items, got %d", *s.MaxItems, len(items))
	}

	var specials []Special
	for i, item := range items {
		var sub *Schema
		if i < len(s.PrefixItems) {
			sub = s.PrefixItems[i]
		} else {
			sub = s.Items
		}
		if sub == nil {
			continue
		}
		sp, err := validate(item, sub, path.Child(Index(i)))
		if err != nil {
			return nil, err
		}
		specials = append(specials, sp...)
	}
	return specials, nil
}
