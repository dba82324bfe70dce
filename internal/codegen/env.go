package codegen

import (
	"fmt"

	"pinebt/internal/ast"
	"pinebt/internal/kernel"
)

// Env is the evaluation environment threaded through evalExpr: every bound
// price column, input parameter, and assigned variable the expressions in
// a program may reference.
type Env struct {
	N         int
	Series    map[string][]float64
	Params    map[string]float64
	maxPeriod int
}

func newEnv(n int, prices map[string][]float64, params map[string]float64) *Env {
	series := make(map[string][]float64, len(prices))
	for k, v := range prices {
		series[k] = v
	}
	return &Env{N: n, Series: series, Params: params}
}

func (e *Env) trackPeriod(n int) {
	if n > e.maxPeriod {
		e.maxPeriod = n
	}
}

func (e *Env) bindAssignment(name string, value []float64) {
	e.Series[name] = value
}

// evalExpr evaluates e to a series of length e.N. Booleans are
// represented as 0/1 float64 and NaN never appears as the sole carrier of
// "false" in a generated boolean series (see OpCoerceBool).
func evalExpr(e ast.Expr, env *Env) ([]float64, error) {
	switch v := e.(type) {
	case *ast.Literal:
		switch v.Kind {
		case ast.LitNumber:
			return kernel.Broadcast(v.Num, env.N), nil
		case ast.LitBool:
			if v.Bool {
				return kernel.Broadcast(1, env.N), nil
			}
			return kernel.Broadcast(0, env.N), nil
		case ast.LitNa:
			return kernel.Broadcast(kernel.NaN, env.N), nil
		default:
			return nil, fmt.Errorf("codegen: string literal used in numeric context")
		}

	case *ast.Ident:
		if s, ok := env.Series[v.Name]; ok {
			return s, nil
		}
		if p, ok := env.Params[v.Name]; ok {
			return kernel.Broadcast(p, env.N), nil
		}
		return nil, fmt.Errorf("codegen: unbound identifier %q", v.Name)

	case *ast.PropertyAccess:
		// Strategy-action constants (strategy.long, strategy.short, ...)
		// are resolved by classify.go from the raw AST node, never
		// evaluated numerically; reaching here in an expression context
		// means the value is opaque to the numeric evaluator.
		return kernel.Broadcast(kernel.NaN, env.N), nil

	case *ast.Subscript:
		base, err := evalExpr(v.Expr, env)
		if err != nil {
			return nil, err
		}
		return kernel.Shift(base, v.Index), nil

	case *ast.UnaryOp:
		operand, err := evalExpr(v.Operand, env)
		if err != nil {
			return nil, err
		}
		out := make([]float64, env.N)
		for i, x := range operand {
			switch v.Op {
			case "-":
				out[i] = -x
			case "not":
				out[i] = boolNot(x)
			default:
				return nil, fmt.Errorf("codegen: unknown unary operator %q", v.Op)
			}
		}
		return out, nil

	case *ast.BinOp:
		return evalBinOp(v, env)

	case *ast.FuncCall:
		results, err := evalCall(v, env)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, fmt.Errorf("codegen: call %q produced no output", v.Name)
		}
		return results[0], nil

	default:
		return nil, fmt.Errorf("codegen: unsupported expression node %T", e)
	}
}

// evalTuple evaluates an expression that is expected to be a multi-output
// kernel call, returning every output series in declared order.
func evalTuple(e ast.Expr, env *Env) ([][]float64, error) {
	call, ok := e.(*ast.FuncCall)
	if !ok {
		single, err := evalExpr(e, env)
		if err != nil {
			return nil, err
		}
		return [][]float64{single}, nil
	}
	return evalCall(call, env)
}

func evalBinOp(v *ast.BinOp, env *Env) ([]float64, error) {
	switch v.Op {
	case "and", "or":
		left, err := evalExpr(v.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := evalExpr(v.Right, env)
		if err != nil {
			return nil, err
		}
		out := make([]float64, env.N)
		for i := 0; i < env.N; i++ {
			lt, rt := boolTrue(left[i]), boolTrue(right[i])
			var t bool
			if v.Op == "and" {
				t = lt && rt
			} else {
				t = lt || rt
			}
			if t {
				out[i] = 1
			}
		}
		return out, nil
	}

	left, err := evalExpr(v.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := evalExpr(v.Right, env)
	if err != nil {
		return nil, err
	}

	switch v.Op {
	case "+":
		return kernel.Add(left, right), nil
	case "-":
		return kernel.Sub(left, right), nil
	case "*":
		return kernel.Mul(left, right), nil
	case "/":
		return kernel.Div(left, right), nil
	case "%":
		out := make([]float64, env.N)
		for i := 0; i < env.N; i++ {
			a, b := left[i], right[i]
			if isNaN(a) || isNaN(b) || b == 0 {
				out[i] = kernel.NaN
				continue
			}
			out[i] = mod(a, b)
		}
		return out, nil
	case ">", "<", ">=", "<=", "==", "!=":
		out := make([]float64, env.N)
		for i := 0; i < env.N; i++ {
			if cmp(left[i], right[i], v.Op) {
				out[i] = 1
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("codegen: unknown binary operator %q", v.Op)
	}
}

func mod(a, b float64) float64 {
	r := a - b*float64(int(a/b))
	return r
}

func cmp(a, b float64, op string) bool {
	if isNaN(a) || isNaN(b) {
		return false
	}
	switch op {
	case ">":
		return a > b
	case "<":
		return a < b
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	case "==":
		return a == b
	case "!=":
		return a != b
	}
	return false
}

func boolTrue(x float64) bool  { return !isNaN(x) && x != 0 }
func boolNot(x float64) float64 {
	if boolTrue(x) {
		return 0
	}
	return 1
}

func isNaN(x float64) bool { return x != x }
