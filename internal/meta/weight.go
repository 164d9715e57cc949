package meta

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
)

// EvalWeight evaluates an arithmetic weight expression. Only numeric literals,
// named constants, parentheses, unary signs and + - * / are accepted.
func EvalWeight(expr string, constants map[string]float64) (float64, error) {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid weight expression %q: %w", expr, err)
	}
	v, err := evalNode(node, constants)
	if err != nil {
		return 0, fmt.Errorf("invalid weight expression %q: %w", expr, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("weight expression %q is not finite", expr)
	}
	return v, nil
}

func evalNode(node ast.Expr, constants map[string]float64) (float64, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return 0, fmt.Errorf("unsupported literal %s", n.Value)
		}
		return strconv.ParseFloat(n.Value, 64)
	case *ast.Ident:
		v, ok := constants[n.Name]
		if !ok {
			return 0, fmt.Errorf("unknown constant %q", n.Name)
		}
		return v, nil
	case *ast.ParenExpr:
		return evalNode(n.X, constants)
	case *ast.UnaryExpr:
		x, err := evalNode(n.X, constants)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.ADD:
			return x, nil
		case token.SUB:
			return -x, nil
		}
		return 0, fmt.Errorf("unsupported operator %s", n.Op)
	case *ast.BinaryExpr:
		x, err := evalNode(n.X, constants)
		if err != nil {
			return 0, err
		}
		y, err := evalNode(n.Y, constants)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.ADD:
			return x + y, nil
		case token.SUB:
			return x - y, nil
		case token.MUL:
			return x * y, nil
		case token.QUO:
			if y == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return x / y, nil
		}
		return 0, fmt.Errorf("unsupported operator %s", n.Op)
	default:
		return 0, fmt.Errorf("unsupported expression %T", node)
	}
}
