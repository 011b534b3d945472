package physical

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/quillsql/quill/pkg/expr"
)

// Values is a leaf operator producing a single pre-materialized columnar
// batch of literal rows.
type Values struct {
	id string

	// Schema describes the batch columns, one field per declared output
	// variable.
	Schema *arrow.Schema

	// Batch holds all declared rows. It is owned by the operator tree and
	// released when the tree is discarded.
	Batch arrow.Record
}

var _ Operator = (*Values)(nil)

// NewValues returns a Values operator over the given materialized batch.
func NewValues(id string, schema *arrow.Schema, batch arrow.Record) *Values {
	return &Values{id: id, Schema: schema, Batch: batch}
}

// Name implements the [Operator] interface.
func (*Values) Name() string { return "Values" }

// ID implements the [Operator] interface.
func (v *Values) ID() string { return v.id }

// Sources implements the [Operator] interface. Values is a leaf.
func (*Values) Sources() []Operator { return nil }

// Project computes one output column per expression over its input.
type Project struct {
	id string

	// Names holds the output column names, matching Exprs by index.
	Names []string

	// Exprs holds the per-column expressions evaluated against the input.
	Exprs []expr.Expression

	Source Operator
}

var _ Operator = (*Project)(nil)

// NewProject returns a Project operator over the given source.
func NewProject(id string, names []string, exprs []expr.Expression, source Operator) *Project {
	return &Project{id: id, Names: names, Exprs: exprs, Source: source}
}

// Name implements the [Operator] interface.
func (*Project) Name() string { return "Project" }

// ID implements the [Operator] interface.
func (p *Project) ID() string { return p.id }

// Sources implements the [Operator] interface.
func (p *Project) Sources() []Operator { return []Operator{p.Source} }

// Filter evaluates a boolean predicate per row batch, passing matching rows
// through unchanged.
type Filter struct {
	id string

	Predicate expr.Expression
	Source    Operator
}

var _ Operator = (*Filter)(nil)

// NewFilter returns a Filter operator over the given source.
func NewFilter(id string, predicate expr.Expression, source Operator) *Filter {
	return &Filter{id: id, Predicate: predicate, Source: source}
}

// Name implements the [Operator] interface.
func (*Filter) Name() string { return "Filter" }

// ID implements the [Operator] interface.
func (f *Filter) ID() string { return f.id }

// Sources implements the [Operator] interface.
func (f *Filter) Sources() []Operator { return []Operator{f.Source} }

// LocalPartition is an intra-worker exchange boundary. The execution engine
// may run the pipelines above and below it in parallel.
type LocalPartition struct {
	id string

	Source Operator
}

var _ Operator = (*LocalPartition)(nil)

// NewLocalPartition returns a LocalPartition operator over the given source.
func NewLocalPartition(id string, source Operator) *LocalPartition {
	return &LocalPartition{id: id, Source: source}
}

// Name implements the [Operator] interface.
func (*LocalPartition) Name() string { return "LocalPartition" }

// ID implements the [Operator] interface.
func (l *LocalPartition) ID() string { return l.id }

// Sources implements the [Operator] interface.
func (l *LocalPartition) Sources() []Operator { return []Operator{l.Source} }
