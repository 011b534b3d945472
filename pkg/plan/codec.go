package plan

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/quillsql/quill/pkg/expr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrUnknownNodeKind is returned when decoding a node whose
	// discriminant does not name a known node kind. Unknown kinds are
	// rejected, never silently dropped.
	ErrUnknownNodeKind = errors.New("unknown plan node kind")

	// ErrDecodeNode is returned for malformed node payloads, such as a
	// missing required field. It is distinct from construction-invariant
	// failures, which surface as [ErrInvalidNode].
	ErrDecodeNode = errors.New("malformed plan node")
)

// Node envelopes define the wire layout of each kind: a `@type` discriminant
// carrying the canonical kind name plus one field per constructor parameter,
// named after the matching accessor. The field names are the cross-process
// compatibility surface; new optional fields may be added, existing names
// must not change meaning. Optional fields are omitted when absent, never
// encoded as nulls. The stats-equivalent reference is intentionally not part
// of the wire layout.

type valuesEnvelope struct {
	Tag             string                   `json:"@type"`
	ID              NodeID                   `json:"id"`
	SourceLocation  string                   `json:"sourceLocation,omitempty"`
	OutputVariables []expr.VariableReference `json:"outputVariables"`
	Rows            [][]jsoniter.RawMessage  `json:"rows"`
}

type assignmentEnvelope struct {
	Variable   expr.VariableReference `json:"variable"`
	Expression jsoniter.RawMessage    `json:"expression"`
}

type projectEnvelope struct {
	Tag            string               `json:"@type"`
	ID             NodeID               `json:"id"`
	SourceLocation string               `json:"sourceLocation,omitempty"`
	Source         jsoniter.RawMessage  `json:"source"`
	Assignments    []assignmentEnvelope `json:"assignments"`
}

type filterEnvelope struct {
	Tag            string              `json:"@type"`
	ID             NodeID              `json:"id"`
	SourceLocation string              `json:"sourceLocation,omitempty"`
	Source         jsoniter.RawMessage `json:"source"`
	Predicate      jsoniter.RawMessage `json:"predicate"`
}

type localPartitionEnvelope struct {
	Tag            string              `json:"@type"`
	ID             NodeID              `json:"id"`
	SourceLocation string              `json:"sourceLocation,omitempty"`
	Source         jsoniter.RawMessage `json:"source"`
}

type outputEnvelope struct {
	Tag             string                   `json:"@type"`
	ID              NodeID                   `json:"id"`
	SourceLocation  string                   `json:"sourceLocation,omitempty"`
	Source          jsoniter.RawMessage      `json:"source"`
	ColumnNames     []string                 `json:"columnNames"`
	OutputVariables []expr.VariableReference `json:"outputVariables"`
}

type mergeJoinEnvelope struct {
	Tag               string                   `json:"@type"`
	ID                NodeID                   `json:"id"`
	SourceLocation    string                   `json:"sourceLocation,omitempty"`
	Type              string                   `json:"type"`
	Left              jsoniter.RawMessage      `json:"left"`
	Right             jsoniter.RawMessage      `json:"right"`
	Criteria          []EquiJoinClause         `json:"criteria"`
	OutputVariables   []expr.VariableReference `json:"outputVariables"`
	Filter            jsoniter.RawMessage      `json:"filter,omitempty"`
	LeftHashVariable  *expr.VariableReference  `json:"leftHashVariable,omitempty"`
	RightHashVariable *expr.VariableReference  `json:"rightHashVariable,omitempty"`
}

type semiJoinEnvelope struct {
	Tag                         string                            `json:"@type"`
	ID                          NodeID                            `json:"id"`
	SourceLocation              string                            `json:"sourceLocation,omitempty"`
	Source                      jsoniter.RawMessage               `json:"source"`
	FilteringSource             jsoniter.RawMessage               `json:"filteringSource"`
	SourceJoinVariable          expr.VariableReference            `json:"sourceJoinVariable"`
	FilteringSourceJoinVariable expr.VariableReference            `json:"filteringSourceJoinVariable"`
	SemiJoinOutput              expr.VariableReference            `json:"semiJoinOutput"`
	SourceHashVariable          *expr.VariableReference           `json:"sourceHashVariable,omitempty"`
	FilteringSourceHashVariable *expr.VariableReference           `json:"filteringSourceHashVariable,omitempty"`
	DistributionType            string                            `json:"distributionType,omitempty"`
	DynamicFilters              map[string]expr.VariableReference `json:"dynamicFilters,omitempty"`
}

type fragmentEnvelope struct {
	ID           string                   `json:"id"`
	Root         jsoniter.RawMessage      `json:"root"`
	OutputLayout []expr.VariableReference `json:"outputLayout,omitempty"`
}

// EncodeNode serializes a node tree to its tagged wire form.
func EncodeNode(n Node) ([]byte, error) {
	switch n := n.(type) {
	case *ValuesNode:
		var rows [][]jsoniter.RawMessage
		if n.rows != nil {
			rows = make([][]jsoniter.RawMessage, len(n.rows))
			for i, row := range n.rows {
				rows[i] = make([]jsoniter.RawMessage, len(row))
				for j, cell := range row {
					data, err := expr.Marshal(cell)
					if err != nil {
						return nil, err
					}
					rows[i][j] = data
				}
			}
		}
		return json.Marshal(valuesEnvelope{
			Tag:             KindValues.String(),
			ID:              n.id,
			SourceLocation:  n.sourceLocation,
			OutputVariables: n.outputVariables,
			Rows:            rows,
		})

	case *ProjectNode:
		source, err := EncodeNode(n.source)
		if err != nil {
			return nil, err
		}
		var assignments []assignmentEnvelope
		if n.assignments != nil {
			assignments = make([]assignmentEnvelope, len(n.assignments))
			for i, a := range n.assignments {
				data, err := expr.Marshal(a.Expression)
				if err != nil {
					return nil, err
				}
				assignments[i] = assignmentEnvelope{Variable: a.Variable, Expression: data}
			}
		}
		return json.Marshal(projectEnvelope{
			Tag:            KindProject.String(),
			ID:             n.id,
			SourceLocation: n.sourceLocation,
			Source:         source,
			Assignments:    assignments,
		})

	case *FilterNode:
		source, err := EncodeNode(n.source)
		if err != nil {
			return nil, err
		}
		predicate, err := expr.Marshal(n.predicate)
		if err != nil {
			return nil, err
		}
		return json.Marshal(filterEnvelope{
			Tag:            KindFilter.String(),
			ID:             n.id,
			SourceLocation: n.sourceLocation,
			Source:         source,
			Predicate:      predicate,
		})

	case *LocalPartitionNode:
		source, err := EncodeNode(n.source)
		if err != nil {
			return nil, err
		}
		return json.Marshal(localPartitionEnvelope{
			Tag:            KindLocalPartition.String(),
			ID:             n.id,
			SourceLocation: n.sourceLocation,
			Source:         source,
		})

	case *OutputNode:
		source, err := EncodeNode(n.source)
		if err != nil {
			return nil, err
		}
		return json.Marshal(outputEnvelope{
			Tag:             KindOutput.String(),
			ID:              n.id,
			SourceLocation:  n.sourceLocation,
			Source:          source,
			ColumnNames:     n.columnNames,
			OutputVariables: n.outputVariables,
		})

	case *MergeJoinNode:
		left, err := EncodeNode(n.left)
		if err != nil {
			return nil, err
		}
		right, err := EncodeNode(n.right)
		if err != nil {
			return nil, err
		}
		var filter jsoniter.RawMessage
		if n.filter != nil {
			filter, err = expr.Marshal(n.filter)
			if err != nil {
				return nil, err
			}
		}
		return json.Marshal(mergeJoinEnvelope{
			Tag:               KindMergeJoin.String(),
			ID:                n.id,
			SourceLocation:    n.sourceLocation,
			Type:              n.joinType.String(),
			Left:              left,
			Right:             right,
			Criteria:          n.criteria,
			OutputVariables:   n.outputVariables,
			Filter:            filter,
			LeftHashVariable:  n.leftHashVariable,
			RightHashVariable: n.rightHashVariable,
		})

	case *SemiJoinNode:
		source, err := EncodeNode(n.source)
		if err != nil {
			return nil, err
		}
		filteringSource, err := EncodeNode(n.filteringSource)
		if err != nil {
			return nil, err
		}
		var distributionType string
		if n.distributionType != DistributionUnspecified {
			distributionType = n.distributionType.String()
		}
		return json.Marshal(semiJoinEnvelope{
			Tag:                         KindSemiJoin.String(),
			ID:                          n.id,
			SourceLocation:              n.sourceLocation,
			Source:                      source,
			FilteringSource:             filteringSource,
			SourceJoinVariable:          n.sourceJoinVariable,
			FilteringSourceJoinVariable: n.filteringSourceJoinVariable,
			SemiJoinOutput:              n.semiJoinOutput,
			SourceHashVariable:          n.sourceHashVariable,
			FilteringSourceHashVariable: n.filteringSourceHashVariable,
			DistributionType:            distributionType,
			DynamicFilters:              n.dynamicFilters,
		})

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownNodeKind, n)
	}
}

// DecodeNode deserializes a node tree, dispatching on the `@type`
// discriminant. Nodes are reconstructed through their public constructors,
// so construction invariants are re-checked on the receiving side.
func DecodeNode(data []byte) (Node, error) {
	var tag struct {
		Tag string `json:"@type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}

	switch tag.Tag {
	case KindValues.String():
		var env valuesEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		var rows [][]expr.Expression
		if env.Rows != nil {
			rows = make([][]expr.Expression, len(env.Rows))
			for i, row := range env.Rows {
				rows[i] = make([]expr.Expression, len(row))
				for j, cell := range row {
					e, err := expr.Unmarshal(cell)
					if err != nil {
						return nil, err
					}
					rows[i][j] = e
				}
			}
		}
		return NewValues(env.ID, env.OutputVariables, rows, locationOpts(env.SourceLocation)...), nil

	case KindProject.String():
		var env projectEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		source, err := decodeChild(env.ID, "source", env.Source)
		if err != nil {
			return nil, err
		}
		var assignments []Assignment
		if env.Assignments != nil {
			assignments = make([]Assignment, len(env.Assignments))
			for i, a := range env.Assignments {
				e, err := expr.Unmarshal(a.Expression)
				if err != nil {
					return nil, err
				}
				assignments[i] = Assignment{Variable: a.Variable, Expression: e}
			}
		}
		return NewProject(env.ID, source, assignments, locationOpts(env.SourceLocation)...), nil

	case KindFilter.String():
		var env filterEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		source, err := decodeChild(env.ID, "source", env.Source)
		if err != nil {
			return nil, err
		}
		if len(env.Predicate) == 0 {
			return nil, fmt.Errorf("%w: filter %q is missing predicate", ErrDecodeNode, env.ID)
		}
		predicate, err := expr.Unmarshal(env.Predicate)
		if err != nil {
			return nil, err
		}
		return NewFilter(env.ID, source, predicate, locationOpts(env.SourceLocation)...), nil

	case KindLocalPartition.String():
		var env localPartitionEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		source, err := decodeChild(env.ID, "source", env.Source)
		if err != nil {
			return nil, err
		}
		return NewLocalPartition(env.ID, source, locationOpts(env.SourceLocation)...), nil

	case KindOutput.String():
		var env outputEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		source, err := decodeChild(env.ID, "source", env.Source)
		if err != nil {
			return nil, err
		}
		return NewOutput(env.ID, source, env.ColumnNames, env.OutputVariables, locationOpts(env.SourceLocation)...)

	case KindMergeJoin.String():
		var env mergeJoinEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		left, err := decodeChild(env.ID, "left", env.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeChild(env.ID, "right", env.Right)
		if err != nil {
			return nil, err
		}
		joinType := ParseJoinType(env.Type)
		if joinType == 0 {
			return nil, fmt.Errorf("%w: mergeJoin %q has unknown join type %q", ErrDecodeNode, env.ID, env.Type)
		}
		var filter expr.Expression
		if len(env.Filter) > 0 {
			filter, err = expr.Unmarshal(env.Filter)
			if err != nil {
				return nil, err
			}
		}
		return NewMergeJoin(env.ID, MergeJoinParams{
			Type:              joinType,
			Left:              left,
			Right:             right,
			Criteria:          env.Criteria,
			OutputVariables:   env.OutputVariables,
			Filter:            filter,
			LeftHashVariable:  env.LeftHashVariable,
			RightHashVariable: env.RightHashVariable,
		}, locationOpts(env.SourceLocation)...)

	case KindSemiJoin.String():
		var env semiJoinEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		source, err := decodeChild(env.ID, "source", env.Source)
		if err != nil {
			return nil, err
		}
		filteringSource, err := decodeChild(env.ID, "filteringSource", env.FilteringSource)
		if err != nil {
			return nil, err
		}
		distributionType := ParseDistributionType(env.DistributionType)
		if env.DistributionType != "" && distributionType == DistributionUnspecified {
			return nil, fmt.Errorf("%w: semiJoin %q has unknown distribution type %q",
				ErrDecodeNode, env.ID, env.DistributionType)
		}
		return NewSemiJoin(env.ID, SemiJoinParams{
			Source:                      source,
			FilteringSource:             filteringSource,
			SourceJoinVariable:          env.SourceJoinVariable,
			FilteringSourceJoinVariable: env.FilteringSourceJoinVariable,
			SemiJoinOutput:              env.SemiJoinOutput,
			SourceHashVariable:          env.SourceHashVariable,
			FilteringSourceHashVariable: env.FilteringSourceHashVariable,
			DistributionType:            distributionType,
			DynamicFilters:              env.DynamicFilters,
		}, locationOpts(env.SourceLocation)...)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeKind, tag.Tag)
	}
}

// EncodeFragment serializes a plan fragment.
func EncodeFragment(f *Fragment) ([]byte, error) {
	root, err := EncodeNode(f.Root)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fragmentEnvelope{
		ID:           f.ID,
		Root:         root,
		OutputLayout: f.OutputLayout,
	})
}

// DecodeFragment deserializes a plan fragment.
func DecodeFragment(data []byte) (*Fragment, error) {
	var env fragmentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if len(env.Root) == 0 {
		return nil, fmt.Errorf("%w: fragment %q is missing root", ErrDecodeNode, env.ID)
	}
	root, err := DecodeNode(env.Root)
	if err != nil {
		return nil, err
	}
	return &Fragment{ID: env.ID, Root: root, OutputLayout: env.OutputLayout}, nil
}

func decodeChild(id NodeID, field string, raw jsoniter.RawMessage) (Node, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: node %q is missing %s", ErrDecodeNode, id, field)
	}
	return DecodeNode(raw)
}

func locationOpts(loc string) []Option {
	if loc == "" {
		return nil
	}
	return []Option{WithSourceLocation(loc)}
}
