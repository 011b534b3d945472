package lowering

import (
	"context"
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quillsql/quill/pkg/expr"
	"github.com/quillsql/quill/pkg/physical"
	"github.com/quillsql/quill/pkg/plan"
)

var tracer = otel.Tracer("pkg/lowering")

// Config configures a [Converter].
type Config struct {
	// Logger receives per-conversion debug logging. Defaults to a nop
	// logger.
	Logger log.Logger

	// Allocator is the fallback memory arena used when a [QueryContext]
	// does not carry its own. Defaults to the process-wide allocator.
	Allocator memory.Allocator
}

// Converter lowers a logical plan node tree into a physical operator tree.
// Lowering is a single post-order pass over the tree: children are lowered
// first, then each node's own operator is constructed wrapping the lowered
// children and tagged with the logical node's id. A Converter is stateless
// and safe for concurrent use; all per-invocation state lives in the
// [QueryContext].
type Converter struct {
	logger    log.Logger
	allocator memory.Allocator
}

// NewConverter creates a converter with the given config.
func NewConverter(cfg Config) *Converter {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	allocator := cfg.Allocator
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	return &Converter{logger: logger, allocator: allocator}
}

// Convert lowers the given logical tree and returns the root of the
// physical operator tree. If root is an Output node, lowering begins at its
// single child; the Output node contributes no physical operator and its
// naming metadata is recorded on the context instead. outputTarget
// optionally names the table-writer/output target of the fragment.
//
// On failure no partial operator tree is returned; batches materialized
// before the failure are released back to the arena and the error carries
// the offending node's id and kind where available. Failures are never retried
// here: re-planning, if any, belongs to the caller.
func (c *Converter) Convert(ctx context.Context, qctx *QueryContext, root plan.Node, outputTarget string) (physical.Operator, error) {
	_, span := tracer.Start(ctx, "Converter.Convert", trace.WithAttributes(
		attribute.String("query_id", qctx.QueryID),
		attribute.String("root_kind", root.Kind().String()),
		attribute.String("root_id", string(root.ID())),
	))
	defer span.End()

	qctx.OutputTarget = outputTarget
	if output, ok := root.(*plan.OutputNode); ok {
		qctx.OutputNames = output.ColumnNames()
		root = output.Source()
	}

	op, err := c.lower(root, qctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		qctx.Release()
		return nil, err
	}

	level.Debug(c.logger).Log(
		"msg", "lowered plan fragment",
		"query_id", qctx.QueryID,
		"root_id", op.ID(),
		"operators", qctx.NumOperators(),
		"dynamic_filters", len(qctx.DynamicFilters.IDs()),
	)
	return op, nil
}

// ConvertFragment lowers a wire-decoded plan fragment.
func (c *Converter) ConvertFragment(ctx context.Context, qctx *QueryContext, fragment *plan.Fragment, outputTarget string) (physical.Operator, error) {
	return c.Convert(ctx, qctx, fragment.Root, outputTarget)
}

func (c *Converter) lower(n plan.Node, qctx *QueryContext) (physical.Operator, error) {
	return plan.Dispatch[*QueryContext, physical.Operator](n, c, qctx)
}

var _ plan.Visitor[*QueryContext, physical.Operator] = (*Converter)(nil)

// VisitValues implements [plan.Visitor] by materializing the literal rows
// into a single columnar batch.
func (c *Converter) VisitValues(n *plan.ValuesNode, qctx *QueryContext) (physical.Operator, error) {
	schema, batch, err := materializeValues(c.arena(qctx), n)
	if err != nil {
		return nil, err
	}
	op := physical.NewValues(string(n.ID()), schema, batch)
	qctx.correlate(op)
	return op, nil
}

// VisitProject implements [plan.Visitor].
func (c *Converter) VisitProject(n *plan.ProjectNode, qctx *QueryContext) (physical.Operator, error) {
	source, err := c.lower(n.Source(), qctx)
	if err != nil {
		return nil, err
	}

	assignments := n.Assignments()
	names := make([]string, len(assignments))
	exprs := make([]expr.Expression, len(assignments))
	for i, a := range assignments {
		names[i] = a.Variable.Name
		exprs[i] = a.Expression
	}

	op := physical.NewProject(string(n.ID()), names, exprs, source)
	qctx.correlate(op)
	return op, nil
}

// VisitFilter implements [plan.Visitor].
func (c *Converter) VisitFilter(n *plan.FilterNode, qctx *QueryContext) (physical.Operator, error) {
	source, err := c.lower(n.Source(), qctx)
	if err != nil {
		return nil, err
	}
	op := physical.NewFilter(string(n.ID()), n.Predicate(), source)
	qctx.correlate(op)
	return op, nil
}

// VisitLocalPartition implements [plan.Visitor] by inserting an intra-worker
// exchange boundary between the lowered child and its consumer.
func (c *Converter) VisitLocalPartition(n *plan.LocalPartitionNode, qctx *QueryContext) (physical.Operator, error) {
	source, err := c.lower(n.Source(), qctx)
	if err != nil {
		return nil, err
	}
	op := physical.NewLocalPartition(string(n.ID()), source)
	qctx.correlate(op)
	return op, nil
}

// VisitOutput implements [plan.Visitor]. Output contributes no physical
// operator: lowering propagates the lowered child unchanged.
func (c *Converter) VisitOutput(n *plan.OutputNode, qctx *QueryContext) (physical.Operator, error) {
	qctx.OutputNames = n.ColumnNames()
	return c.lower(n.Source(), qctx)
}

// VisitMergeJoin implements [plan.Visitor].
func (c *Converter) VisitMergeJoin(n *plan.MergeJoinNode, qctx *QueryContext) (physical.Operator, error) {
	left, err := c.lower(n.Left(), qctx)
	if err != nil {
		return nil, err
	}
	right, err := c.lower(n.Right(), qctx)
	if err != nil {
		return nil, err
	}

	criteria := n.Criteria()
	leftKeys := make([]expr.VariableReference, len(criteria))
	rightKeys := make([]expr.VariableReference, len(criteria))
	for i, clause := range criteria {
		leftKeys[i] = clause.Left
		rightKeys[i] = clause.Right
	}

	op := physical.NewMergeJoin(string(n.ID()), n.JoinType(), leftKeys, rightKeys, n.Filter(), n.OutputVariables(), left, right)
	qctx.correlate(op)
	return op, nil
}

// VisitSemiJoin implements [plan.Visitor]. The build side is lowered first
// and its dynamic filters are registered before the probe side is lowered,
// so that probe-side scans can subscribe to them.
func (c *Converter) VisitSemiJoin(n *plan.SemiJoinNode, qctx *QueryContext) (physical.Operator, error) {
	build, err := c.lower(n.FilteringSource(), qctx)
	if err != nil {
		return nil, err
	}

	filterIDs := sortedFilterIDs(n.DynamicFilters())
	for _, id := range filterIDs {
		err := qctx.DynamicFilters.Register(DynamicFilter{
			ID:            id,
			BuildVariable: n.DynamicFilters()[id],
			Producer:      n.ID(),
		})
		if err != nil {
			return nil, fmt.Errorf("semiJoin %q: %w", n.ID(), err)
		}
	}

	probe, err := c.lower(n.Source(), qctx)
	if err != nil {
		return nil, err
	}

	// The synthesized exchanges are the one place lowering re-tags
	// operator ids, deriving them from the join's logical id.
	switch n.DistributionType() {
	case plan.DistributionReplicated:
		exchange := physical.NewBroadcastExchange(string(n.ID())+".broadcast", build)
		qctx.correlate(exchange)
		build = exchange
	case plan.DistributionPartitioned:
		probeExchange := physical.NewPartitionExchange(string(n.ID())+".probe.partition", []expr.VariableReference{n.SourceJoinVariable()}, probe)
		buildExchange := physical.NewPartitionExchange(string(n.ID())+".build.partition", []expr.VariableReference{n.FilteringSourceJoinVariable()}, build)
		qctx.correlate(probeExchange)
		qctx.correlate(buildExchange)
		probe, build = probeExchange, buildExchange
	}

	op := physical.NewHashSemiJoin(
		string(n.ID()),
		n.SourceJoinVariable(),
		n.FilteringSourceJoinVariable(),
		n.SemiJoinOutput(),
		n.DistributionType(),
		filterIDs,
		probe,
		build,
	)
	qctx.correlate(op)
	return op, nil
}

func (c *Converter) arena(qctx *QueryContext) memory.Allocator {
	if qctx.Allocator != nil {
		return qctx.Allocator
	}
	return c.allocator
}

// sortedFilterIDs returns the filter ids in a deterministic order so that
// registration order is stable across runs.
func sortedFilterIDs(filters map[string]expr.VariableReference) []string {
	if len(filters) == 0 {
		return nil
	}
	ids := make([]string, 0, len(filters))
	for id := range filters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
