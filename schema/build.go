// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultType is the type used for fields that declare none.
const DefaultType = "text"

// BuiltinDefaults returns the global defaults every types bundle starts from.
func BuiltinDefaults() map[string]any {
	return map[string]any{
		AttrDelimiter:          []any{},
		AttrName:               "",
		AttrSize:               0,
		AttrType:               DefaultType,
		AttrUnknownDestination: "__raw__",
		AttrUnknownFunction:    "raw",
	}
}

// builtinTypes are always defined unless the types bundle overrides them.
var builtinTypes = []string{"int", "raw", "text"}

// keys that shape the tree rather than being resolvable attributes
var structuralKeys = map[string]bool{
	"structure": true,
	"if":        true,
	"for":       true,
	"do_while":  true,
	"while":     true,
}

// ParseStructure parses a YAML (or JSON) structure definition.
func ParseStructure(data []byte) ([]*Node, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse structure: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, Errorf("", "structure", "structure must be a sequence, got %T", raw)
	}
	return BuildStructure(list)
}

// ParseTypes parses a YAML (or JSON) types definition.
func ParseTypes(data []byte) (*Types, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse types: %w", err)
	}
	if raw == nil {
		return BuildTypes(nil)
	}
	m, ok := toStringMap(raw)
	if !ok {
		return nil, Errorf("", "types", "types must be a mapping, got %T", raw)
	}
	return BuildTypes(m)
}

// BuildStructure builds a structure from an already deserialized tree.
func BuildStructure(raw []any) ([]*Node, error) {
	nodes := make([]*Node, 0, len(raw))
	for i, r := range raw {
		n, err := buildNode(r, fmt.Sprintf("structure[%d]", i))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// BuildTypes builds a types bundle from an already deserialized tree.
// A nil map yields the built-in defaults and types.
func BuildTypes(raw map[string]any) (*Types, error) {
	t := &Types{
		Constants: map[string]any{},
		Defaults:  BuiltinDefaults(),
		Types:     map[string]*TypeDef{},
		Macros:    map[string][]*Node{},
	}
	for _, name := range builtinTypes {
		t.Types[name] = &TypeDef{Attrs: map[string]any{}, Function: name}
	}

	if c, ok := raw["constants"]; ok {
		m, ok := toStringMap(c)
		if !ok {
			return nil, Errorf("", "constants", "must be a mapping, got %T", c)
		}
		for k, v := range m {
			t.Constants[k] = v
		}
	}

	if d, ok := raw["defaults"]; ok {
		m, ok := toStringMap(d)
		if !ok {
			return nil, Errorf("", "defaults", "must be a mapping, got %T", d)
		}
		for k, v := range m {
			t.Defaults[k] = v
		}
	}

	if ts, ok := raw["types"]; ok {
		m, ok := toStringMap(ts)
		if !ok {
			return nil, Errorf("", "types", "must be a mapping, got %T", ts)
		}
		for name, def := range m {
			td, err := buildTypeDef(name, def)
			if err != nil {
				return nil, err
			}
			t.Types[name] = td
		}
	}

	if ms, ok := raw["macros"]; ok {
		m, ok := toStringMap(ms)
		if !ok {
			return nil, Errorf("", "macros", "must be a mapping, got %T", ms)
		}
		for name, body := range m {
			list, ok := body.([]any)
			if !ok {
				return nil, Errorf(name, "macros", "macro body must be a sequence, got %T", body)
			}
			nodes, err := BuildStructure(list)
			if err != nil {
				return nil, fmt.Errorf("macro %s: %w", name, err)
			}
			t.Macros[name] = nodes
		}
	}

	return t, nil
}

func buildTypeDef(name string, raw any) (*TypeDef, error) {
	td := &TypeDef{Attrs: map[string]any{}, Function: name}
	if raw == nil {
		return td, nil
	}
	m, ok := toStringMap(raw)
	if !ok {
		return nil, Errorf(name, "types", "type definition must be a mapping, got %T", raw)
	}
	for k, v := range m {
		if k != "function" {
			td.Attrs[k] = v
		}
	}

	switch f := m["function"].(type) {
	case nil:
	case string:
		td.Function = f
	default:
		fm, ok := toStringMap(f)
		if !ok {
			return nil, Errorf(name, "function", "must be a mapping or a name, got %T", f)
		}
		if fn, ok := fm["name"]; ok {
			s, ok := fn.(string)
			if !ok {
				return nil, Errorf(name, "function", "name must be a string, got %T", fn)
			}
			td.Function = s
		}
		if args, ok := fm["args"]; ok {
			am, ok := toStringMap(args)
			if !ok {
				return nil, Errorf(name, "function", "args must be a mapping, got %T", args)
			}
			td.Args = am
		}
	}
	return td, nil
}

func buildNode(raw any, path string) (*Node, error) {
	m, ok := toStringMap(raw)
	if !ok {
		return nil, Errorf(path, "", "node must be a mapping, got %T", raw)
	}

	n := &Node{Attrs: map[string]any{}}
	for k, v := range m {
		if !structuralKeys[k] {
			n.Attrs[k] = v
		}
	}
	label := path
	if name, ok := n.Attrs[AttrName].(string); ok && name != "" {
		label = name
	}

	if cond, ok := m["if"]; ok {
		e, err := buildExpr(cond, label, "if")
		if err != nil {
			return nil, err
		}
		n.If = e
	}

	_, hasStructure := m["structure"]
	_, hasMacro := m[AttrMacro]

	_, hasFor := m["for"]
	_, hasDoWhile := m["do_while"]
	_, hasWhile := m["while"]
	loops := 0
	for _, present := range []bool{hasFor, hasDoWhile, hasWhile} {
		if present {
			loops++
		}
	}
	if loops > 1 {
		return nil, Errorf(label, "", "for, do_while and while are mutually exclusive")
	}

	if !hasStructure && !hasMacro {
		if loops > 0 {
			return nil, Errorf(label, "", "loop marker on a node without structure or macro")
		}
		n.Kind = KindPrimitive
		return n, nil
	}

	if hasStructure {
		list, ok := m["structure"].([]any)
		if !ok && m["structure"] != nil {
			return nil, Errorf(label, "structure", "must be a sequence, got %T", m["structure"])
		}
		for i, r := range list {
			child, err := buildNode(r, fmt.Sprintf("%s.structure[%d]", label, i))
			if err != nil {
				return nil, err
			}
			n.Structure = append(n.Structure, child)
		}
	}

	switch {
	case hasFor:
		n.Kind = KindFor
		n.Count = m["for"]
	case hasDoWhile:
		e, err := buildExpr(m["do_while"], label, "do_while")
		if err != nil {
			return nil, err
		}
		n.Kind = KindDoWhile
		n.Cond = e
	case hasWhile:
		e, err := buildExpr(m["while"], label, "while")
		if err != nil {
			return nil, err
		}
		if e.Term == "" {
			return nil, Errorf(label, "while", "missing term")
		}
		if hasStructure && (len(n.Structure) == 0 || !n.Structure[0].IsPrimitive()) {
			return nil, Errorf(label, "while", "structure[0] must be a primitive sentinel field")
		}
		n.Kind = KindWhile
		n.Cond = e
		n.Term = e.Term
	case hasMacro:
		n.Kind = KindMacro
	default:
		n.Kind = KindStruct
	}
	return n, nil
}

// toStringMap normalises the two mapping shapes produced by YAML decoders.
func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprintf("%v", k)] = val
		}
		return out, true
	}
	return nil, false
}

// ByteSeq converts a delimiter-like attribute, a list of byte values or a
// string, into bytes.
func ByteSeq(v any) ([]byte, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(s), nil
	case []byte:
		return s, nil
	case []any:
		out := make([]byte, 0, len(s))
		for _, e := range s {
			b, ok := toInt(e)
			if !ok || b < 0 || b > 0xff {
				return nil, fmt.Errorf("invalid byte value %v", e)
			}
			out = append(out, byte(b))
		}
		return out, nil
	case int:
		if s < 0 || s > 0xff {
			return nil, fmt.Errorf("invalid byte value %d", s)
		}
		return []byte{byte(s)}, nil
	}
	return nil, fmt.Errorf("expected a byte list or string, got %T", v)
}

func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case uint64:
		return int(val), true
	case float64:
		if val == float64(int(val)) {
			return int(val), true
		}
	}
	return 0, false
}
