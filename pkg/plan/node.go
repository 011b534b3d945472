package plan

import (
	"errors"

	"github.com/quillsql/quill/pkg/expr"
)

var (
	// ErrArityMismatch is returned by ReplaceChildren when the supplied
	// child list does not match the node's fixed child arity.
	ErrArityMismatch = errors.New("child arity mismatch")

	// ErrInvalidNode is returned by node constructors when a structural
	// invariant is violated, such as a join variable that is not part of
	// the corresponding child's output schema.
	ErrInvalidNode = errors.New("invalid plan node")

	// ErrUnsupportedNode is returned when dispatching a node kind the
	// consumer does not handle.
	ErrUnsupportedNode = errors.New("unsupported plan node")
)

// NodeID uniquely identifies a plan node within one plan fragment. It is
// assigned by the plan producer and carried through lowering unchanged, so
// that runtime telemetry can be correlated back to the logical plan.
type NodeID string

// NodeKind represents the kind of a logical plan node. The set of kinds is
// closed; every cross-cutting operation (codec, visitor dispatch, lowering)
// is an exhaustive switch over it.
type NodeKind uint32

const (
	_ NodeKind = iota // zero-value is an invalid kind

	KindValues
	KindProject
	KindFilter
	KindLocalPartition
	KindOutput
	KindMergeJoin
	KindSemiJoin
)

// String returns the canonical kind name. It doubles as the wire
// discriminant, so existing names must never change.
func (k NodeKind) String() string {
	switch k {
	case KindValues:
		return "values"
	case KindProject:
		return "project"
	case KindFilter:
		return "filter"
	case KindLocalPartition:
		return "localPartition"
	case KindOutput:
		return "output"
	case KindMergeJoin:
		return "mergeJoin"
	case KindSemiJoin:
		return "semiJoin"
	default:
		return "invalid"
	}
}

// Node is the common interface for all logical plan nodes. Nodes form a
// strict tree and are immutable after construction: rewrites return new
// nodes, leaving prior instances independently referenceable.
type Node interface {
	// ID returns the node's identifier within its plan fragment.
	ID() NodeID

	// Kind returns the kind of the node.
	Kind() NodeKind

	// SourceLocation returns the optional provenance of the node in the
	// original query text. It is carried for diagnostics, never interpreted.
	SourceLocation() string

	// Sources returns the ordered child nodes. It is empty for leaves and
	// never contains the stats-equivalent node.
	Sources() []Node

	// OutputVariables returns the ordered output schema of the node. The
	// ordering is significant and preserved through rewrites.
	OutputVariables() []expr.VariableReference

	// ReplaceChildren returns a copy of the node with its children replaced
	// by the given list. It fails with [ErrArityMismatch] unless the list
	// length equals the node's child arity. All non-child fields and the
	// node id are preserved.
	ReplaceChildren(children []Node) (Node, error)

	// WithStatsEquivalent returns a copy of the node with the given
	// stats-equivalent reference attached. The reference is a pure lookup
	// side-channel for the cost model: it is not a child, never appears in
	// Sources, and is never visited as part of a tree walk.
	WithStatsEquivalent(node Node) Node

	// StatsEquivalent returns the attached stats-equivalent node, or nil.
	StatsEquivalent() Node

	isNode()
}

// base carries the fields shared by every node kind.
type base struct {
	id              NodeID
	sourceLocation  string
	statsEquivalent Node
}

func (b base) ID() NodeID             { return b.id }
func (b base) SourceLocation() string { return b.sourceLocation }
func (b base) StatsEquivalent() Node  { return b.statsEquivalent }
func (base) isNode()                  {}

// Option configures optional node fields at construction time.
type Option func(*base)

// WithSourceLocation attaches query-text provenance to a node.
func WithSourceLocation(loc string) Option {
	return func(b *base) { b.sourceLocation = loc }
}

func newBase(id NodeID, opts []Option) base {
	b := base{id: id}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// containsVariable reports whether v is part of the given output schema.
// Membership is by (name, type) equality.
func containsVariable(vars []expr.VariableReference, v expr.VariableReference) bool {
	for i := range vars {
		if vars[i] == v {
			return true
		}
	}
	return false
}
