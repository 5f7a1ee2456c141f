package marshal

import "sort"

// Descriptor is the JSON-safe residue of a value: a skeleton in which
// every special subtree has been replaced by an empty placeholder,
// paired with the paths those subtrees were removed from. A descriptor
// and its specials list always travel together and stay parallel:
// len(Paths) equals the number of specials.
type Descriptor struct {
	Value Value  `json:"value"`
	Paths []Path `json:"paths"`
}

// Extract validates a value against a schema and splits it into a
// JSON-safe descriptor plus the ordered list of special values removed
// from it. The input value is never modified; the skeleton shares
// untouched subtrees with it.
func Extract(v Value, s *Schema) (Descriptor, []Value, error) {
	found, err := Validate(v, s)
	if err != nil {
		return Descriptor{}, nil, err
	}

	sort.SliceStable(found, func(i, j int) bool {
		return ComparePaths(found[i].Path, found[j].Path) < 0
	})
	found = pruneDominated(found)

	paths := make([]Path, len(found))
	specials := make([]Value, len(found))
	for i, sp := range found {
		paths[i] = sp.Path
		specials[i] = sp.Value
	}

	return Descriptor{Value: carve(v, paths), Paths: paths}, specials, nil
}

// pruneDominated drops any special whose path has a strict-prefix
// ancestor in the set: a special value's subtree is opaque, so nothing
// beneath it can be special too. Validation already refuses to recurse
// into marker matches; this enforces the invariant regardless. The
// input must be sorted, which guarantees ancestors precede descendants.
func pruneDominated(found []Special) []Special {
	kept := found[:0]
	for _, cand := range found {
		dominated := false
		for _, anc := range kept {
			if len(anc.Path) < len(cand.Path) && cand.Path.HasPrefix(anc.Path) {
				dominated = true
				break
			}
		}
		if !dominated {
			kept = append(kept, cand)
		}
	}
	return kept
}

// carve clones exactly the spine from the root to each special path,
// copy-on-write, and replaces each special leaf with an empty
// placeholder object. Subtrees off the spines are shared with the
// original value. A special at the root reduces the whole skeleton to
// a bare placeholder.
func carve(v Value, paths []Path) Value {
	if len(paths) == 0 {
		return v
	}
	for _, p := range paths {
		if len(p) == 0 {
			return Object(nil)
		}
	}

	switch v.Kind() {
	case KindObject:
		fields := make(map[string]Value, len(v.fields))
		for name, f := range v.fields {
			fields[name] = f
		}
		for name, tails := range groupByKey(paths) {
			fields[name] = carve(fields[name], tails)
		}
		return Object(fields)
	case KindArray:
		items := make([]Value, len(v.items))
		copy(items, v.items)
		for idx, tails := range groupByIndex(paths) {
			if idx < len(items) {
				items[idx] = carve(items[idx], tails)
			}
		}
		return Array(items...)
	}
	return v
}

func groupByKey(paths []Path) map[string][]Path {
	groups := make(map[string][]Path)
	for _, p := range paths {
		if p[0].IsIndex() {
			continue
		}
		groups[p[0].Name()] = append(groups[p[0].Name()], p[1:])
	}
	return groups
}

func groupByIndex(paths []Path) map[int][]Path {
	groups := make(map[int][]Path)
	for _, p := range paths {
		if !p[0].IsIndex() {
			continue
		}
		groups[p[0].Position()] = append(groups[p[0].Position()], p[1:])
	}
	return groups
}

// DescriptorFromValue parses a descriptor out of its value form, as it
// arrives in the positional argument protocol: an object with a
// "value" and a "paths" field.
func DescriptorFromValue(v Value) (Descriptor, error) {
	if v.Kind() != KindObject {
		return Descriptor{}, mergeErrorf("descriptor must be an object, got %s", v.Kind())
	}
	d := Descriptor{}
	if val, ok := v.Field("value"); ok {
		d.Value = val
	}
	rawPaths, ok := v.Field("paths")
	if !ok {
		return d, nil
	}
	if rawPaths.Kind() != KindArray {
		return Descriptor{}, mergeErrorf("descriptor paths must be an array, got %s", rawPaths.Kind())
	}
	for _, rawPath := range rawPaths.Items() {
		if rawPath.Kind() != KindArray {
			return Descriptor{}, mergeErrorf("descriptor path must be an array, got %s", rawPath.Kind())
		}
		p := make(Path, 0, rawPath.Len())
		for _, seg := range rawPath.Items() {
			switch seg.Kind() {
			case KindString:
				p = append(p, Key(seg.Str()))
			case KindNumber:
				if !seg.IsIntegral() || seg.Number() < 0 {
					return Descriptor{}, mergeErrorf("path index must be a non-negative integer, got %v", seg.Number())
				}
				p = append(p, Index(int(seg.Number())))
			default:
				return Descriptor{}, mergeErrorf("path segment must be a string or integer, got %s", seg.Kind())
			}
		}
		d.Paths = append(d.Paths, p)
	}
	return d, nil
}
