package obfuscatorio

import (
	"context"
	"fmt"
	"strings"

	"github.com/t14raptor/go-fast/ast"

	"github.com/tcortega/webcrack/internal/jsast"
	"github.com/tcortega/webcrack/internal/sandbox"
)

// VMDecoder evaluates decoder calls inside the sandbox. Each call is prefixed
// with the canonical setup (array declaration, rotator, decoder declarations)
// regenerated from the tree, so the codec executed is the obfuscator's own:
// rotation, offsets and keys all behave exactly as shipped.
type VMDecoder struct {
	eval  sandbox.Evaluator
	setup string
	names map[string]bool
}

// NewVMDecoder binds the evaluator to the located infrastructure.
func NewVMDecoder(eval sandbox.Evaluator, arr *StringArray, rot *Rotator, decoders []*Decoder) *VMDecoder {
	cells := []*ast.Statement{arr.Cell}
	if rot != nil {
		cells = append(cells, rot.Cell)
	}
	names := map[string]bool{}
	for _, d := range decoders {
		names[d.Name] = true
		cells = append(cells, d.Cell)
	}

	var b strings.Builder
	emitted := map[*ast.Statement]bool{}
	for _, cell := range cells {
		if cell == nil || emitted[cell] {
			continue
		}
		emitted[cell] = true
		b.WriteString(jsast.GenerateStmt(cell.Stmt))
		b.WriteString("\n")
	}
	return &VMDecoder{eval: eval, setup: b.String(), names: names}
}

// IsDecoderCall reports whether the expression is a call to one of the known
// decoders with fully literal arguments, the only shape worth evaluating.
func (vm *VMDecoder) IsDecoderCall(e ast.Expr) bool {
	call, ok := e.(*ast.CallExpression)
	if !ok {
		return false
	}
	name, ok := jsast.IdentName(call.Callee.Expr)
	if !ok || !vm.names[name] {
		return false
	}
	if len(call.ArgumentList) == 0 {
		return false
	}
	for i := range call.ArgumentList {
		if !literalArg(call.ArgumentList[i].Expr) {
			return false
		}
	}
	return true
}

func literalArg(e ast.Expr) bool {
	switch e.(type) {
	case *ast.NumberLiteral, *ast.StringLiteral:
		return true
	}
	_, ok := jsast.NumericValue(e)
	return ok
}

// Decode runs one decoder call and returns the string it yields.
func (vm *VMDecoder) Decode(ctx context.Context, call *ast.CallExpression) (string, error) {
	source := vm.setup + jsast.GenerateExpr(call)
	value, err := vm.eval.Eval(ctx, source)
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: decoder returned %T, not a string", sandbox.ErrEval, value)
	}
	return s, nil
}
