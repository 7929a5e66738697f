// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package binparser

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MultiTechSystems/binparser/schema"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		op   schema.Operator
		args []any
		want any
	}{
		{"identity", schema.OpNone, []any{"x"}, "x"},
		{"not true", schema.OpNot, []any{true}, false},
		{"not zero", schema.OpNot, []any{0}, true},
		{"and bool", schema.OpAnd, []any{true, false}, false},
		{"and int", schema.OpAnd, []any{6, 3}, 2},
		{"or bool", schema.OpOr, []any{false, true}, true},
		{"or int", schema.OpOr, []any{4, 1}, 5},
		{"xor bool", schema.OpXor, []any{true, false}, true},
		{"xor same", schema.OpXor, []any{true, true}, false},
		{"xor int", schema.OpXor, []any{6, 3}, 5},
		{"eq int", schema.OpEq, []any{2, 2}, true},
		{"eq int float", schema.OpEq, []any{2, 2.0}, true},
		{"eq string", schema.OpEq, []any{"a", "a"}, true},
		{"eq mixed", schema.OpEq, []any{"1", 1}, false},
		{"ne", schema.OpNe, []any{"a", "b"}, true},
		{"ge equal", schema.OpGe, []any{2, 2}, true},
		{"gt", schema.OpGt, []any{3, 2}, true},
		{"gt false", schema.OpGt, []any{2, 3}, false},
		{"le", schema.OpLe, []any{1, 2}, true},
		{"lt", schema.OpLt, []any{2, 1}, false},
		{"lt strings", schema.OpLt, []any{"a", "b"}, true},
		{"mod", schema.OpMod, []any{7, 3}, 1},
		{"mod float", schema.OpMod, []any{7.5, 2}, 1.5},
		{"contains key", schema.OpContains, []any{2, map[any]any{1: "a", 2: "b"}}, true},
		{"contains missing key", schema.OpContains, []any{3, map[any]any{1: "a", 2: "b"}}, false},
		{"contains string key", schema.OpContains, []any{"bit_two", map[string]any{"bit_two": true}}, true},
		{"contains element", schema.OpContains, []any{"x", []any{"w", "x"}}, true},
		{"contains substring", schema.OpContains, []any{"ab", "xaby"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := apply(tt.op, tt.args)
			if err != nil {
				t.Fatalf("apply() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("apply() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name string
		op   schema.Operator
		args []any
	}{
		{"mod by zero", schema.OpMod, []any{1, 0}},
		{"mod strings", schema.OpMod, []any{"a", "b"}},
		{"order mixed", schema.OpLt, []any{"a", 1}},
		{"contains scalars", schema.OpContains, []any{1, 2}},
		{"contains collection first", schema.OpContains, []any{[]any{1, 2}, 2}},
		{"contains map first", schema.OpContains, []any{map[string]any{"a": true}, "a"}},
		{"wrong arity", schema.OpEq, []any{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := apply(tt.op, tt.args); err == nil {
				t.Error("apply() expected error")
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	s := newScope(map[string]any{"limit": 10, "shadowed": "constant"})
	s.internal["count"] = 4
	s.internal["shadowed"] = "field"

	tests := []struct {
		name    string
		operand any
		want    any
	}{
		{"field", "count", 4},
		{"constant", "limit", 10},
		{"field wins over constant", "shadowed", "field"},
		{"literal", "nobody", "nobody"},
		{"number literal", 3, 3},
		{"identity expression", &schema.Expr{Operands: []any{"count"}}, 4},
		{"nested", &schema.Expr{Op: schema.OpAnd, Operands: []any{
			&schema.Expr{Op: schema.OpLt, Operands: []any{"count", "limit"}},
			&schema.Expr{Op: schema.OpEq, Operands: []any{
				&schema.Expr{Op: schema.OpMod, Operands: []any{"count", 2}},
				0,
			}},
		}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.evaluate(tt.operand)
			if err != nil {
				t.Fatalf("evaluate() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("evaluate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScopeStoreFlattens(t *testing.T) {
	s := newScope(nil)
	s.store("flags", map[string]any{"a": true, "b": false})
	s.store("n", 3)

	want := map[string]any{"a": true, "b": false, "n": 3}
	if diff := cmp.Diff(want, s.internal); diff != "" {
		t.Errorf("internal mismatch (-want +got):\n%s", diff)
	}
	if got := s.valueOf("missing"); got != "missing" {
		t.Errorf("valueOf(missing) = %v, want missing", got)
	}
}
