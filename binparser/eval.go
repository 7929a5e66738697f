// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package binparser

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/MultiTechSystems/binparser/codec"
	"github.com/MultiTechSystems/binparser/schema"
)

// evaluate resolves an operand: a nested expression or a token.
func (s *scope) evaluate(operand any) (any, error) {
	e, ok := operand.(*schema.Expr)
	if !ok {
		return s.valueOf(operand), nil
	}

	// all operands are evaluated, there is no short circuit
	args := make([]any, len(e.Operands))
	for i, o := range e.Operands {
		v, err := s.evaluate(o)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return apply(e.Op, args)
}

// test evaluates a condition for its truth value.
func (s *scope) test(e *schema.Expr) (bool, error) {
	v, err := s.evaluate(e)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func apply(op schema.Operator, args []any) (any, error) {
	if len(args) != op.Arity() {
		return nil, fmt.Errorf("operator %s takes %d operand(s), got %d", op, op.Arity(), len(args))
	}

	switch op {
	case schema.OpNone:
		return args[0], nil
	case schema.OpNot:
		return !truthy(args[0]), nil
	}

	a, b := args[0], args[1]
	switch op {
	case schema.OpAnd:
		if x, y, ok := bothInts(a, b); ok {
			return int(x & y), nil
		}
		return truthy(a) && truthy(b), nil
	case schema.OpOr:
		if x, y, ok := bothInts(a, b); ok {
			return int(x | y), nil
		}
		return truthy(a) || truthy(b), nil
	case schema.OpXor:
		if x, y, ok := bothInts(a, b); ok {
			return int(x ^ y), nil
		}
		return truthy(a) != truthy(b), nil
	case schema.OpEq:
		return equal(a, b), nil
	case schema.OpNe:
		return !equal(a, b), nil
	case schema.OpGe, schema.OpGt, schema.OpLe, schema.OpLt:
		c, err := compare(a, b)
		if err != nil {
			return nil, err
		}
		switch op {
		case schema.OpGe:
			return c >= 0, nil
		case schema.OpGt:
			return c > 0, nil
		case schema.OpLe:
			return c <= 0, nil
		}
		return c < 0, nil
	case schema.OpMod:
		return mod(a, b)
	case schema.OpContains:
		// a in b
		found, ok := contains(b, a)
		if !ok {
			return nil, fmt.Errorf("contains: %v is not a collection", b)
		}
		return found, nil
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	case map[any]any:
		return len(val) > 0
	}
	if f, ok := codec.ToFloat64(v); ok {
		return f != 0
	}
	return true
}

func bothInts(a, b any) (int64, int64, bool) {
	if _, isBool := a.(bool); isBool {
		return 0, 0, false
	}
	if _, isBool := b.(bool); isBool {
		return 0, 0, false
	}
	x, ok := codec.ToInt64(a)
	if !ok {
		return 0, 0, false
	}
	y, ok := codec.ToInt64(b)
	if !ok {
		return 0, 0, false
	}
	return x, y, true
}

func isNumber(v any) bool {
	if _, isBool := v.(bool); isBool {
		return false
	}
	_, ok := codec.ToFloat64(v)
	return ok
}

func equal(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		if x, y, ok := bothInts(a, b); ok {
			return x == y
		}
		x, _ := codec.ToFloat64(a)
		y, _ := codec.ToFloat64(b)
		return x == y
	}
	return reflect.DeepEqual(a, b)
}

func compare(a, b any) (int, error) {
	if isNumber(a) && isNumber(b) {
		if x, y, ok := bothInts(a, b); ok {
			return cmpOrdered(x, y), nil
		}
		x, _ := codec.ToFloat64(a)
		y, _ := codec.ToFloat64(b)
		return cmpOrdered(x, y), nil
	}
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	}
	return 0, fmt.Errorf("cannot order %v (%T) and %v (%T)", a, a, b, b)
}

func cmpOrdered[T int64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func mod(a, b any) (any, error) {
	if x, y, ok := bothInts(a, b); ok {
		if y == 0 {
			return nil, fmt.Errorf("mod: division by zero")
		}
		return int(x % y), nil
	}
	if isNumber(a) && isNumber(b) {
		x, _ := codec.ToFloat64(a)
		y, _ := codec.ToFloat64(b)
		if y == 0 {
			return nil, fmt.Errorf("mod: division by zero")
		}
		return math.Mod(x, y), nil
	}
	return nil, fmt.Errorf("mod: %v and %v are not numbers", a, b)
}

// contains reports whether item is a member of coll. The second result is
// false when coll is not a collection.
func contains(coll, item any) (bool, bool) {
	switch c := coll.(type) {
	case map[string]any:
		_, found := c[fmt.Sprint(item)]
		return found, true
	case map[any]any:
		for k := range c {
			if equal(k, item) {
				return true, true
			}
		}
		return false, true
	case []any:
		for _, e := range c {
			if equal(e, item) {
				return true, true
			}
		}
		return false, true
	case string:
		s, ok := item.(string)
		if !ok {
			return false, false
		}
		return strings.Contains(c, s), true
	}
	return false, false
}
