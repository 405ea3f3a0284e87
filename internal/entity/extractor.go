package entity

// Extract walks an arbitrary JSON-like tree (a GraphQL response or a
// raw notification payload) and collects every tagged entity into a
// flat Set keyed by identity.
//
// Traversal is depth-first. While descending through a tagged entity
// its key sits in a visiting guard set; re-entering that key breaks
// the branch, so cyclic references (Notification → Bucket → back)
// terminate without error. When the same entity appears in several
// places the instance with the larger field set wins, so no entity is
// dropped and partial stubs do not clobber full records.
func Extract(root any) *Set {
	set := NewSet()
	ExtractInto(set, root)
	return set
}

// ExtractInto merges every tagged entity found under root into set.
func ExtractInto(set *Set, root any) {
	walk(root, set, map[Key]struct{}{})
}

func walk(node any, set *Set, visiting map[Key]struct{}) {
	switch v := node.(type) {
	case map[string]any:
		ent := Entity(v)
		key, tagged := ent.Key()
		if !tagged {
			for _, val := range v {
				walk(val, set, visiting)
			}
			return
		}

		if _, busy := visiting[key]; busy {
			return
		}

		existing, seen := set.Get(key)
		if !seen || len(ent) > len(existing) {
			set.Put(key, ent)
		}

		visiting[key] = struct{}{}
		for _, val := range v {
			walk(val, set, visiting)
		}
		delete(visiting, key)

	case []any:
		for _, item := range v {
			walk(item, set, visiting)
		}
	}
}
