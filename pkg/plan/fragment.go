package plan

import "github.com/quillsql/quill/pkg/expr"

// Fragment is one independently schedulable slice of a distributed query's
// logical plan: a root node plus the output layout the fragment produces.
// Fragments are the unit shipped over the wire between coordinator and
// workers.
type Fragment struct {
	// ID identifies the fragment within its query.
	ID string

	// Root is the top of the fragment's node tree, typically an
	// [OutputNode] for the final fragment.
	Root Node

	// OutputLayout is the ordered list of variables the fragment emits.
	OutputLayout []expr.VariableReference
}
