package physical

import (
	"fmt"
	"io"
	"strings"
)

// PrintTree renders an operator tree as a human-readable indented tree for
// debugging and plan inspection.
func PrintTree(root Operator) string {
	sb := &strings.Builder{}
	WriteTree(sb, root)
	return sb.String()
}

// WriteTree writes the tree representation of root to w.
func WriteTree(w io.Writer, root Operator) {
	writeNode(w, root, "", "")
}

func writeNode(w io.Writer, op Operator, prefix, childPrefix string) {
	fmt.Fprintf(w, "%s%s #%s%s\n", prefix, op.Name(), op.ID(), properties(op))

	sources := op.Sources()
	for i, src := range sources {
		if i == len(sources)-1 {
			writeNode(w, src, childPrefix+"└── ", childPrefix+"    ")
		} else {
			writeNode(w, src, childPrefix+"├── ", childPrefix+"│   ")
		}
	}
}

func properties(op Operator) string {
	switch op := op.(type) {
	case *Values:
		if op.Batch == nil {
			return " rows=0"
		}
		return fmt.Sprintf(" rows=%d cols=%d", op.Batch.NumRows(), op.Batch.NumCols())
	case *Project:
		return fmt.Sprintf(" columns=(%s)", strings.Join(op.Names, ", "))
	case *Filter:
		return fmt.Sprintf(" predicate=%s", op.Predicate)
	case *MergeJoin:
		keys := make([]string, len(op.LeftKeys))
		for i := range op.LeftKeys {
			keys[i] = fmt.Sprintf("%s = %s", op.LeftKeys[i], op.RightKeys[i])
		}
		return fmt.Sprintf(" type=%s criteria=(%s)", op.JoinType, strings.Join(keys, ", "))
	case *HashSemiJoin:
		return fmt.Sprintf(" probe=%s build=%s match=%s distribution=%s",
			op.ProbeKey, op.BuildKey, op.MatchOutput, op.Distribution)
	case *PartitionExchange:
		keys := make([]string, len(op.Keys))
		for i := range op.Keys {
			keys[i] = op.Keys[i].String()
		}
		return fmt.Sprintf(" keys=(%s)", strings.Join(keys, ", "))
	default:
		return ""
	}
}
