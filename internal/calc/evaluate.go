package calc

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
)

var (
	// typedDisallowed strips characters that typed input may never carry.
	typedDisallowed = regexp.MustCompile(`[^0-9+\-*/.()\s^a-zA-Z]`)

	// forbiddenIdent matches identifiers that are refused outright.
	forbiddenIdent = regexp.MustCompile(`\b(?:import|exec|eval|os|sys)\b`)

	// numberLiteral matches decimal literals in source text.
	numberLiteral = regexp.MustCompile(`[0-9]+(?:\.[0-9]*)?`)
)

// maxIntLiteral is the longest digit run the parser accepts as an integer
// literal. Longer runs are rewritten as float literals before parsing.
const maxIntLiteral = 18

var (
	// errDomain marks math functions called outside their domain.
	errDomain = errors.New("math domain error")

	errDivisionByZero = errors.New("division by zero")
)

// Evaluator evaluates expressions in a closed environment.
// It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	env     map[string]any
	options []expr.Option
}

// NewEvaluator creates an Evaluator exposing pi, e and the unary math
// functions sqrt, abs, ceil, floor, round, log, ln, log10, exp, sin, cos
// and tan.
func NewEvaluator() *Evaluator {
	env := map[string]any{
		"pi": math.Pi,
		"e":  math.E,
	}

	options := []expr.Option{
		expr.Env(env),
		expr.DisableAllBuiltins(),
		expr.Patch(floatArithmetic{}),
		binary("div", func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, errDivisionByZero
			}
			return a / b, nil
		}),
		binary("mod", func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, errDivisionByZero
			}
			// Result takes the sign of the divisor: -7 % 3 == 2.
			r := math.Mod(a, b)
			if r != 0 && (r < 0) != (b < 0) {
				r += b
			}
			return r, nil
		}),
		unary("sqrt", func(x float64) (float64, error) {
			if x < 0 {
				return 0, fmt.Errorf("%w: sqrt of negative number", errDomain)
			}
			return math.Sqrt(x), nil
		}),
		unary("abs", wrap(math.Abs)),
		unary("ceil", wrap(math.Ceil)),
		unary("floor", wrap(math.Floor)),
		unary("round", wrap(math.Round)),
		unary("log", logFn(math.Log)),
		unary("ln", logFn(math.Log)),
		unary("log10", logFn(math.Log10)),
		unary("exp", wrap(math.Exp)),
		unary("sin", wrap(math.Sin)),
		unary("cos", wrap(math.Cos)),
		unary("tan", wrap(math.Tan)),
	}

	return &Evaluator{env: env, options: options}
}

// Evaluate compiles and runs a cleaned expression.
func (e *Evaluator) Evaluate(expression string) (Value, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return Value{}, newError(ErrCodeEmpty, expression, nil)
	}

	program, err := expr.Compile(widenLiterals(expression), e.options...)
	if err != nil {
		if isDivideByZero(err) {
			return Value{}, newError(ErrCodeDivisionByZero, expression, err)
		}
		return Value{}, newError(ErrCodeParse, expression, err)
	}

	out, err := expr.Run(program, e.env)
	if err != nil {
		if isDivideByZero(err) {
			return Value{}, newError(ErrCodeDivisionByZero, expression, err)
		}
		return Value{}, newError(ErrCodeUnexpected, expression, err)
	}

	return toValue(expression, out)
}

// Calculate evaluates typed input. Characters outside the typed whitelist
// are dropped and blocked identifiers are refused before evaluation.
func (e *Evaluator) Calculate(expression string) (Value, error) {
	clean := typedDisallowed.ReplaceAllString(expression, "")
	if forbiddenIdent.MatchString(strings.ToLower(clean)) {
		return Value{}, newError(ErrCodeForbidden, clean, nil)
	}
	return e.Evaluate(clean)
}

func toValue(expression string, out any) (Value, error) {
	var f float64
	switch v := out.(type) {
	case int:
		return IntValue(int64(v)), nil
	case int64:
		return IntValue(v), nil
	case int32:
		return IntValue(int64(v)), nil
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return Value{}, newError(ErrCodeUnexpected, expression,
			fmt.Errorf("result of type %T is not a number", out))
	}

	// Zero divisors fail inside div and mod, so a non-finite value here
	// is an overflow or an undefined function result.
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Value{}, newError(ErrCodeUnexpected, expression, errors.New("result is not a finite number"))
	}
	return Format(f), nil
}

// floatArithmetic makes every number a float64 so results never wrap
// around at the int range. Division and modulo become calls to div and mod,
// which report zero divisors and accept float operands.
type floatArithmetic struct{}

func (floatArithmetic) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IntegerNode:
		ast.Patch(node, &ast.FloatNode{Value: float64(n.Value)})
	case *ast.BinaryNode:
		var fn string
		switch n.Operator {
		case "/":
			fn = "div"
		case "%":
			fn = "mod"
		default:
			return
		}
		ast.Patch(node, &ast.CallNode{
			Callee:    &ast.IdentifierNode{Value: fn},
			Arguments: []ast.Node{n.Left, n.Right},
		})
	}
}

// widenLiterals appends ".0" to integer literals too long for int64 so the
// parser reads them as floats.
func widenLiterals(expression string) string {
	return numberLiteral.ReplaceAllStringFunc(expression, func(lit string) string {
		if len(lit) > maxIntLiteral && !strings.Contains(lit, ".") {
			return lit + ".0"
		}
		return lit
	})
}

func isDivideByZero(err error) bool {
	return strings.Contains(err.Error(), "divide by zero") ||
		strings.Contains(err.Error(), "division by zero")
}

func unary(name string, fn func(float64) (float64, error)) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("%s expects 1 argument, got %d", name, len(params))
		}
		x, err := toFloat(params[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return fn(x)
	})
}

func binary(name string, fn func(a, b float64) (float64, error)) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("%s expects 2 arguments, got %d", name, len(params))
		}
		a, err := toFloat(params[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		b, err := toFloat(params[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return fn(a, b)
	})
}

func wrap(fn func(float64) float64) func(float64) (float64, error) {
	return func(x float64) (float64, error) {
		return fn(x), nil
	}
}

func logFn(fn func(float64) float64) func(float64) (float64, error) {
	return func(x float64) (float64, error) {
		if x <= 0 {
			return 0, fmt.Errorf("%w: log of non-positive number", errDomain)
		}
		return fn(x), nil
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("argument of type %T is not a number", v)
	}
}
