package marshal

// MergeArguments reconstructs call arguments from their descriptors.
// Descriptors are processed in order; each consumes a contiguous run of
// specials equal to the number of its paths. Operands are the call
// site's own evaluated expression operands: a slot holding a small
// integer selects one of them by position.
func MergeArguments(descriptors []Descriptor, specials []Value, operands []Value) ([]Value, error) {
	out := make([]Value, 0, len(descriptors))
	offset := 0
	for i, d := range descriptors {
		n := len(d.Paths)
		if offset+n > len(specials) {
			return nil, mergeErrorf("descriptor %d expects %d special values, only %d remain", i, n, len(specials)-offset)
		}
		merged, err := d.Merge(specials[offset:offset+n], operands)
		if err != nil {
			return nil, err
		}
		out = append(out, merged)
		offset += n
	}
	if offset != len(specials) {
		return nil, mergeErrorf("%d special values left unconsumed", len(specials)-offset)
	}
	return out, nil
}

// Merge splices the resolved specials back into the skeleton at the
// descriptor's recorded paths. The descriptor is not modified; merging
// works on a clone of the skeleton.
func (d Descriptor) Merge(specials []Value, operands []Value) (Value, error) {
	if len(specials) != len(d.Paths) {
		return Value{}, mergeErrorf("descriptor has %d paths but %d special values", len(d.Paths), len(specials))
	}
	v := d.Value.Clone()
	for i, p := range d.Paths {
		resolved, err := resolveSlot(specials[i], operands)
		if err != nil {
			return Value{}, err
		}
		if len(p) == 0 {
			v = resolved
			continue
		}
		v = splice(v, p, resolved)
	}
	return v, nil
}

// resolveSlot turns a slot entry into the value to splice. Runtime
// values with no JSON representation are used directly; a small integer
// indexes the operands list; anything else means extraction and merge
// disagree about the schema.
func resolveSlot(slot Value, operands []Value) (Value, error) {
	switch slot.Kind() {
	case KindRemote, KindBigInt, KindUndefined, KindObject, KindArray:
		return slot, nil
	case KindNumber:
		if !slot.IsIntegral() {
			return Value{}, mergeErrorf("unsupported special value %s", slot.String())
		}
		idx := int(slot.Number())
		if idx < 0 || idx >= len(operands) {
			return Value{}, mergeErrorf("operand index %d out of range (have %d operands)", idx, len(operands))
		}
		return operands[idx].Clone(), nil
	}
	return Value{}, mergeErrorf("unsupported special value of kind %s", slot.Kind())
}

// splice writes a value at a path, auto-creating containers along the
// way: an object when the next segment is a key and the current node is
// not object-shaped, an array (grown with nulls) when it is an index.
func splice(v Value, path Path, resolved Value) Value {
	if len(path) == 0 {
		return resolved
	}
	seg := path[0]
	if seg.IsIndex() {
		if v.Kind() != KindArray {
			v = Array()
		}
		items := v.items
		for len(items) <= seg.Position() {
			items = append(items, Null())
		}
		items[seg.Position()] = splice(items[seg.Position()], path[1:], resolved)
		return Value{kind: KindArray, items: items}
	}
	if v.Kind() != KindObject || v.fields == nil {
		v = Value{kind: KindObject, fields: make(map[string]Value)}
	}
	v.fields[seg.Name()] = splice(v.fields[seg.Name()], path[1:], resolved)
	return v
}
