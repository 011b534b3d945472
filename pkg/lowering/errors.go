package lowering

import (
	"errors"

	"github.com/quillsql/quill/pkg/plan"
)

var (
	// ErrUnsupportedNode is returned when the lowering pass encounters a
	// node kind it has no rule for. The error names the offending kind and
	// id; there is no silent skip and no partial operator tree.
	ErrUnsupportedNode = plan.ErrUnsupportedNode

	// ErrSchemaMismatch is returned when a Values node's literal rows do
	// not match its declared output schema, in arity or in type.
	ErrSchemaMismatch = errors.New("schema mismatch")
)
