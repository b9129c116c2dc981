package imports

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/alexaandru/go-sitter-forest/python"
)

// Sentinel errors for structural extraction.
var (
	// ErrSyntax indicates the source is not valid Python. It is the signal
	// FallbackExtractor uses to switch strategies.
	ErrSyntax   = errors.New("python syntax error")
	errNoRoot   = errors.New("structural extractor: no root node")
	errPoolType = errors.New("structural extractor: unexpected pool type")
	errLanguage = errors.New("structural extractor: python grammar not available")
)

var pythonGrammar = sync.OnceValue(loadPython)

// Tree-sitter Python node and field names.
const (
	nodeImport       = "import_statement"
	nodeImportFrom   = "import_from_statement"
	nodeFutureImport = "future_import_statement"
	nodeDottedName   = "dotted_name"
	nodeAliased      = "aliased_import"
	nodeRelative     = "relative_import"
	nodeIdentifier   = "identifier"

	fieldName       = "name"
	fieldModuleName = "module_name"

	futureModule = "__future__"
)

// StructuralExtractor extracts imports from a tree-sitter syntax tree.
// It is safe for concurrent use; each call takes its own parser from a pool.
type StructuralExtractor struct {
	pool sync.Pool
}

// NewStructuralExtractor creates a StructuralExtractor.
func NewStructuralExtractor() (*StructuralExtractor, error) {
	lang := pythonGrammar()
	if lang == nil {
		return nil, errLanguage
	}

	return &StructuralExtractor{
		pool: sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		},
	}, nil
}

// Extract parses src and collects every import statement in the tree,
// however deeply nested. It returns ErrSyntax if the tree has error nodes.
func (e *StructuralExtractor) Extract(ctx context.Context, src []byte) (*Record, error) {
	err := ctx.Err()
	if err != nil {
		return nil, fmt.Errorf("structural extractor: %w", err)
	}

	tsParser, ok := e.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer e.pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("structural extractor: parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRoot
	}

	if root.HasError() {
		return nil, ErrSyntax
	}

	w := walker{src: src, rec: NewRecord()}
	w.walk(root)

	return w.rec, nil
}

type walker struct {
	src []byte
	rec *Record
}

// walk visits the tree depth-first without recursion.
func (w *walker) walk(root sitter.Node) {
	stack := []sitter.Node{root}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n.Type() {
		case nodeImport:
			w.importStatement(n)

			continue
		case nodeImportFrom:
			w.fromStatement(n)

			continue
		case nodeFutureImport:
			w.rec.From.Add(futureModule)

			continue
		}

		for idx := range n.NamedChildCount() {
			stack = append(stack, n.NamedChild(idx))
		}
	}
}

// importStatement handles "import a.b, c as d".
func (w *walker) importStatement(n sitter.Node) {
	for idx := range n.NamedChildCount() {
		child := n.NamedChild(idx)

		switch child.Type() {
		case nodeDottedName:
			w.rec.Plain.Add(w.topLevel(child))
		case nodeAliased:
			if name := child.ChildByFieldName(fieldName); !name.IsNull() {
				w.rec.Plain.Add(w.topLevel(name))
			}
		}
	}
}

// fromStatement handles "from a.b import c" and "from .a import b".
// "from . import x" names no module and contributes nothing.
func (w *walker) fromStatement(n sitter.Node) {
	module := n.ChildByFieldName(fieldModuleName)
	if module.IsNull() {
		return
	}

	switch module.Type() {
	case nodeDottedName:
		w.rec.From.Add(w.topLevel(module))
	case nodeRelative:
		for idx := range module.NamedChildCount() {
			child := module.NamedChild(idx)
			if child.Type() == nodeDottedName {
				w.rec.From.Add(w.topLevel(child))

				return
			}
		}
	}
}

// topLevel returns the first identifier of a dotted_name node.
func (w *walker) topLevel(dotted sitter.Node) string {
	if dotted.NamedChildCount() > 0 {
		first := dotted.NamedChild(0)
		if first.Type() == nodeIdentifier {
			return w.text(first)
		}
	}

	return TopLevel(w.text(dotted))
}

func (w *walker) text(n sitter.Node) string {
	start, end := n.StartByte(), n.EndByte()
	if end > uint(len(w.src)) || start > end {
		return ""
	}

	return string(w.src[start:end])
}

func loadPython() *sitter.Language {
	var lang *sitter.Language

	func() {
		defer func() {
			_ = recover() //nolint:errcheck // recover() returns any, not error
		}()

		lang = sitter.NewLanguage(python.GetLanguage())
	}()

	return lang
}
