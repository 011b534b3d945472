package lowering

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/quillsql/quill/pkg/expr"
	"github.com/quillsql/quill/pkg/physical"
	"github.com/quillsql/quill/pkg/plan"
)

// QueryContext is the per-invocation execution context of one lowering pass.
// It owns the mutable accumulator state (the id-to-operator correlation
// table and the dynamic filter registry) and must not be shared across
// concurrent lowering calls; the logical tree itself is immutable and safe
// to lower concurrently from multiple contexts.
type QueryContext struct {
	// QueryID identifies the query the lowered fragment belongs to.
	QueryID string

	// ExchangeID optionally identifies the partitioning/exchange this
	// fragment feeds into. It is carried for the scheduler, not
	// interpreted during lowering.
	ExchangeID string

	// Allocator is the memory arena used to materialize literal batches.
	Allocator memory.Allocator

	// OutputTarget is the optional table-writer/output target of the
	// fragment, recorded at conversion time.
	OutputTarget string

	// OutputNames holds the externally visible column names of the
	// fragment's Output node, if the lowered tree had one.
	OutputNames []string

	// DynamicFilters collects the runtime filters published by build sides
	// during lowering, for probe-side scans to consume.
	DynamicFilters *DynamicFilterRegistry

	operators map[string]physical.Operator
}

// NewQueryContext returns a fresh context for a single lowering invocation.
func NewQueryContext(queryID string, allocator memory.Allocator) *QueryContext {
	return &QueryContext{
		QueryID:        queryID,
		Allocator:      allocator,
		DynamicFilters: NewDynamicFilterRegistry(),
		operators:      make(map[string]physical.Operator),
	}
}

// Operator returns the physical operator correlated with the given id, if
// the lowering pass produced one.
func (c *QueryContext) Operator(id string) (physical.Operator, bool) {
	op, ok := c.operators[id]
	return op, ok
}

// NumOperators returns the number of operators produced so far.
func (c *QueryContext) NumOperators() int { return len(c.operators) }

func (c *QueryContext) correlate(op physical.Operator) {
	c.operators[op.ID()] = op
}

// Release releases the columnar batches held by the operators produced so
// far and resets the correlation table. [Converter.Convert] calls it when
// lowering fails partway, so batches materialized before the failing node
// are returned to the arena; callers use it to discard a lowered tree once
// they are done with it. Release is idempotent.
func (c *QueryContext) Release() {
	for _, op := range c.operators {
		if v, ok := op.(*physical.Values); ok && v.Batch != nil {
			v.Batch.Release()
			v.Batch = nil
		}
	}
	c.operators = make(map[string]physical.Operator)
}

// DynamicFilter is one runtime filter registration: the build side of a
// join publishes the values of BuildVariable under ID, and probe-side scans
// consume them to prune rows before the join executes.
type DynamicFilter struct {
	ID            string
	BuildVariable expr.VariableReference

	// Producer is the logical id of the join node publishing the filter.
	Producer plan.NodeID
}

// DynamicFilterRegistry collects dynamic filters in registration order.
type DynamicFilterRegistry struct {
	order   []string
	filters map[string]DynamicFilter
}

// NewDynamicFilterRegistry returns an empty registry.
func NewDynamicFilterRegistry() *DynamicFilterRegistry {
	return &DynamicFilterRegistry{filters: make(map[string]DynamicFilter)}
}

// Register records a dynamic filter. Filter ids are unique within a query;
// registering a duplicate id is an error. Distinct ids may target the same
// build variable.
func (r *DynamicFilterRegistry) Register(f DynamicFilter) error {
	if _, ok := r.filters[f.ID]; ok {
		return fmt.Errorf("dynamic filter %q registered twice", f.ID)
	}
	r.filters[f.ID] = f
	r.order = append(r.order, f.ID)
	return nil
}

// Lookup returns the filter registered under id.
func (r *DynamicFilterRegistry) Lookup(id string) (DynamicFilter, bool) {
	f, ok := r.filters[id]
	return f, ok
}

// IDs returns the registered filter ids in registration order.
func (r *DynamicFilterRegistry) IDs() []string { return r.order }
