// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import "fmt"

// Operator is an expression operator, resolved from its name at load time.
type Operator int

const (
	OpNone Operator = iota
	OpNot
	OpAnd
	OpOr
	OpXor
	OpEq
	OpNe
	OpGe
	OpGt
	OpLe
	OpLt
	OpMod
	OpContains
)

var operatorNames = map[string]Operator{
	"not":      OpNot,
	"and":      OpAnd,
	"or":       OpOr,
	"xor":      OpXor,
	"eq":       OpEq,
	"ne":       OpNe,
	"ge":       OpGe,
	"gt":       OpGt,
	"le":       OpLe,
	"lt":       OpLt,
	"mod":      OpMod,
	"contains": OpContains,
}

func (op Operator) String() string {
	for name, o := range operatorNames {
		if o == op {
			return name
		}
	}
	return "none"
}

// Arity returns the number of operands the operator takes.
func (op Operator) Arity() int {
	switch op {
	case OpNone, OpNot:
		return 1
	}
	return 2
}

// ParseOperator resolves an operator name.
func ParseOperator(name string) (Operator, error) {
	op, ok := operatorNames[name]
	if !ok {
		return OpNone, fmt.Errorf("unknown operator %q", name)
	}
	return op, nil
}

// Expr is a condition tree. Each operand is either a literal token, resolved
// through the variable resolver at evaluation time, or a nested *Expr.
type Expr struct {
	Op       Operator
	Operands []any
	// Term is only used by while loops.
	Term string
}

// buildExpr converts a generic {operator, operands[, term]} mapping.
func buildExpr(raw any, field, attr string) (*Expr, error) {
	m, ok := toStringMap(raw)
	if !ok {
		return nil, Errorf(field, attr, "expression must be a mapping, got %T", raw)
	}

	e := &Expr{}
	if opRaw, ok := m["operator"]; ok {
		name, ok := opRaw.(string)
		if !ok {
			return nil, Errorf(field, attr, "operator must be a string, got %T", opRaw)
		}
		op, err := ParseOperator(name)
		if err != nil {
			return nil, &Error{Field: field, Attr: attr, Err: err}
		}
		e.Op = op
	}

	operands, ok := m["operands"].([]any)
	if !ok {
		return nil, Errorf(field, attr, "expression needs an operands list")
	}
	if len(operands) != e.Op.Arity() {
		return nil, Errorf(field, attr, "operator %s takes %d operand(s), got %d",
			e.Op, e.Op.Arity(), len(operands))
	}
	for _, o := range operands {
		if _, isMap := toStringMap(o); isMap {
			sub, err := buildExpr(o, field, attr)
			if err != nil {
				return nil, err
			}
			e.Operands = append(e.Operands, sub)
			continue
		}
		e.Operands = append(e.Operands, o)
	}

	if term, ok := m["term"]; ok {
		s, ok := term.(string)
		if !ok {
			return nil, Errorf(field, attr, "term must be a string, got %T", term)
		}
		e.Term = s
	}
	return e, nil
}
