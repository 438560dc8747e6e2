package filter

// Combine merges fragments into the AND or OR branch of tree.
//
// With useAnd the whole fragment list is appended to the AND branch as one
// Group, so two calls leave two entries. With OR an absent branch is set to
// the fragments directly; an existing branch gets them appended as a Group.
func Combine(tree *Tree, fragments []*Tree, useAnd bool) *Tree {
	if len(fragments) == 0 {
		return tree
	}
	if tree == nil {
		tree = NewTree()
	}

	group := append(Group(nil), fragments...)
	if useAnd {
		if tree.and == nil {
			tree.and = []Clause{}
		}
		tree.and = append(tree.and, group)
		return tree
	}

	if tree.or == nil {
		tree.or = make([]Clause, len(fragments))
		for i, f := range fragments {
			tree.or[i] = f
		}
		return tree
	}
	tree.or = append(tree.or, group)
	return tree
}
