package physical

// Operator is a node in the physical operator tree produced by lowering.
// The tree's nesting mirrors the logical plan; each operator carries the id
// of the logical node it was lowered from, so runtime telemetry can be
// joined back to the logical plan. The runtime behavior of operators is the
// execution engine's concern, not this package's.
type Operator interface {
	// Name returns the operator kind name, e.g. "Filter" or "Values".
	Name() string

	// ID returns the identifier carried over from the originating logical
	// node. Operators synthesized during lowering (exchanges) carry ids
	// derived from the logical node that caused them.
	ID() string

	// Sources returns the ordered input operators.
	Sources() []Operator
}
