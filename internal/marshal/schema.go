package marshal

// The seven primitive kinds a schema "type" may name. An absent or
// empty type list means any of them.
var allTypeNames = []string{"object", "array", "string", "number", "integer", "boolean", "null"}

func isTypeName(name string) bool {
	for _, t := range allTypeNames {
		if t == name {
			return true
		}
	}
	return false
}

// MarkerKind selects which family of special values a marker slot
// accepts.
type MarkerKind uint8

const (
	// MarkerRemote accepts live handles (objects, functions, symbols).
	MarkerRemote MarkerKind = iota
	// MarkerBigInt accepts arbitrary-precision integers.
	MarkerBigInt
	// MarkerUndefined accepts the undefined value.
	MarkerUndefined
)

func (k MarkerKind) String() string {
	switch k {
	case MarkerRemote:
		return "remote"
	case MarkerBigInt:
		return "bigint"
	case MarkerUndefined:
		return "undefined"
	}
	return "unknown"
}

// Marker declares a schema node as a special-value slot. For remote
// markers an empty Allow list accepts all three runtime shapes.
type Marker struct {
	Kind  MarkerKind
	Allow []HandleType
}

func (m *Marker) accepts(shape HandleType) bool {
	switch m.Kind {
	case MarkerBigInt:
		return shape == "bigint"
	case MarkerUndefined:
		return shape == "undefined"
	}
	if len(m.Allow) == 0 {
		return shape == HandleObject || shape == HandleFunction || shape == HandleSymbol
	}
	for _, a := range m.Allow {
		if a == shape {
			return true
		}
	}
	return false
}

// Schema is a parsed schema node. Instances are logically immutable:
// validation derives private copies when it needs variants and never
// alters a node after parsing.
type Schema struct {
	// literal is non-nil for the boolean schemas true (accept all)
	// and false (reject all).
	literal *bool

	Types                []string
	Properties           map[string]*Schema
	Required             map[string]struct{}
	AdditionalProperties *Schema
	Items                *Schema
	PrefixItems          []*Schema
	MinItems             *int
	MaxItems             *int
	OneOf                []*Schema
	AnyOf                []*Schema
	AllOf                []*Schema

	// Marker is non-nil when the node's properties carry one of the
	// three marker keys, turning the node into a special-value slot.
	Marker *Marker
}

// TrueSchema returns the accept-all literal.
func TrueSchema() *Schema {
	t := true
	return &Schema{literal: &t}
}

// FalseSchema returns the reject-all literal.
func FalseSchema() *Schema {
	f := false
	return &Schema{literal: &f}
}

// IsRequired reports whether a property is exempt from the implicit
// null/absent widening.
func (s *Schema) IsRequired(name string) bool {
	_, ok := s.Required[name]
	return ok
}

// variant derives a single-type copy with combinators nulled out, used
// by type-list expansion so combinators are not applied once per
// candidate kind.
func (s *Schema) variant(typeName string) *Schema {
	c := *s
	c.Types = []string{typeName}
	c.OneOf = nil
	c.AnyOf = nil
	c.AllOf = nil
	return &c
}

var nullOnly = &Schema{Types: []string{"null"}}

// widenOptional derives a copy of a property schema that also accepts
// null, implementing the implicit widening of non-required properties.
// The input schema is never modified.
func widenOptional(s *Schema) *Schema {
	if s.literal != nil {
		if *s.literal {
			return s
		}
		return &Schema{AnyOf: []*Schema{nullOnly, s}}
	}
	if len(s.Types) == 0 {
		return s
	}
	for _, t := range s.Types {
		if t == "null" {
			return s
		}
	}
	c := *s
	c.Types = make([]string, 0, len(s.Types)+1)
	c.Types = append(c.Types, s.Types...)
	c.Types = append(c.Types, "null")
	return &c
}

// ParseSchema parses a JSON schema document.
func ParseSchema(data []byte) (*Schema, error) {
	v, err := FromJSON(data)
	if err != nil {
		return nil, schemaErrorf("not valid JSON: %v", err)
	}
	return SchemaFromValue(v)
}

// SchemaFromValue parses a schema from its value form, as it arrives in
// the positional argument protocol.
func SchemaFromValue(v Value) (*Schema, error) {
	switch v.Kind() {
	case KindBool:
		if v.Bool() {
			return TrueSchema(), nil
		}
		return FalseSchema(), nil
	case KindObject:
		return parseSchemaObject(v)
	}
	return nil, schemaErrorf("schema must be an object or boolean, got %s", v.Kind())
}

func parseSchemaObject(v Value) (*Schema, error) {
	s := &Schema{}

	if t, ok := v.Field("type"); ok {
		switch t.Kind() {
		case KindString:
			if !isTypeName(t.Str()) {
				return nil, schemaErrorf("unknown type name %q", t.Str())
			}
			s.Types = []string{t.Str()}
		case KindArray:
			for _, item := range t.Items() {
				if item.Kind() != KindString || !isTypeName(item.Str()) {
					return nil, schemaErrorf("unknown type name %s", item.String())
				}
				s.Types = append(s.Types, item.Str())
			}
		default:
			return nil, schemaErrorf("type must be a string or list of strings, got %s", t.Kind())
		}
	}

	if props, ok := v.Field("properties"); ok {
		if props.Kind() != KindObject {
			return nil, schemaErrorf("properties must be an object, got %s", props.Kind())
		}
		marker, err := parseMarker(props)
		if err != nil {
			return nil, err
		}
		if marker != nil {
			s.Marker = marker
		} else {
			s.Properties = make(map[string]*Schema, props.Len())
			for _, name := range props.FieldNames() {
				sub, _ := props.Field(name)
				parsed, err := SchemaFromValue(sub)
				if err != nil {
					return nil, err
				}
				s.Properties[name] = parsed
			}
		}
	}

	if req, ok := v.Field("required"); ok {
		if req.Kind() != KindArray {
			return nil, schemaErrorf("required must be a list of strings, got %s", req.Kind())
		}
		s.Required = make(map[string]struct{}, req.Len())
		for _, item := range req.Items() {
			if item.Kind() != KindString {
				return nil, schemaErrorf("required entries must be strings, got %s", item.Kind())
			}
			s.Required[item.Str()] = struct{}{}
		}
	}

	if ap, ok := v.Field("additionalProperties"); ok {
		parsed, err := SchemaFromValue(ap)
		if err != nil {
			return nil, err
		}
		s.AdditionalProperties = parsed
	}

	if items, ok := v.Field("items"); ok {
		parsed, err := SchemaFromValue(items)
		if err != nil {
			return nil, err
		}
		s.Items = parsed
	}

	if prefix, ok := v.Field("prefixItems"); ok {
		if prefix.Kind() != KindArray {
			return nil, schemaErrorf("prefixItems must be a list of schemas, got %s", prefix.Kind())
		}
		for _, item := range prefix.Items() {
			parsed, err := SchemaFromValue(item)
			if err != nil {
				return nil, err
			}
			s.PrefixItems = append(s.PrefixItems, parsed)
		}
	}

	var err error
	if s.MinItems, err = parseBound(v, "minItems"); err != nil {
		return nil, err
	}
	if s.MaxItems, err = parseBound(v, "maxItems"); err != nil {
		return nil, err
	}

	if s.OneOf, err = parseSchemaList(v, "oneOf"); err != nil {
		return nil, err
	}
	if s.AnyOf, err = parseSchemaList(v, "anyOf"); err != nil {
		return nil, err
	}
	if s.AllOf, err = parseSchemaList(v, "allOf"); err != nil {
		return nil, err
	}

	return s, nil
}

func parseBound(v Value, name string) (*int, error) {
	raw, ok := v.Field(name)
	if !ok {
		return nil, nil
	}
	if !raw.IsIntegral() || raw.Number() < 0 {
		return nil, schemaErrorf("%s must be a non-negative integer, got %s", name, raw.String())
	}
	n := int(raw.Number())
	return &n, nil
}

func parseSchemaList(v Value, name string) ([]*Schema, error) {
	raw, ok := v.Field(name)
	if !ok {
		return nil, nil
	}
	if raw.Kind() != KindArray {
		return nil, schemaErrorf("%s must be a list of schemas, got %s", name, raw.Kind())
	}
	list := make([]*Schema, 0, raw.Len())
	for _, item := range raw.Items() {
		parsed, err := SchemaFromValue(item)
		if err != nil {
			return nil, err
		}
		list = append(list, parsed)
	}
	return list, nil
}

// parseMarker inspects a properties object for the three marker keys.
// The marker property's own sub-schema is not parsed as a regular
// schema; for remote markers only the runtime-shape allow-list is read
// out of it.
func parseMarker(props Value) (*Marker, error) {
	if slot, ok := props.Field(RemoteKey); ok {
		allow, err := parseAllowList(slot)
		if err != nil {
			return nil, err
		}
		return &Marker{Kind: MarkerRemote, Allow: allow}, nil
	}
	if _, ok := props.Field(BigIntKey); ok {
		return &Marker{Kind: MarkerBigInt}, nil
	}
	if _, ok := props.Field(UndefinedKey); ok {
		return &Marker{Kind: MarkerUndefined}, nil
	}
	return nil, nil
}

func parseAllowList(slot Value) ([]HandleType, error) {
	sub, ok := slot.Field("properties")
	if !ok {
		return nil, nil
	}
	typ, ok := sub.Field("type")
	if !ok {
		return nil, nil
	}
	enum, ok := typ.Field("enum")
	if !ok || enum.Kind() != KindArray {
		return nil, nil
	}
	allow := make([]HandleType, 0, enum.Len())
	for _, item := range enum.Items() {
		shape := HandleType(item.Str())
		switch shape {
		case HandleObject, HandleFunction, HandleSymbol:
			allow = append(allow, shape)
		default:
			return nil, schemaErrorf("remote marker allow-list entry must be object, function or symbol, got %s", item.String())
		}
	}
	return allow, nil
}
