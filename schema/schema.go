// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package schema describes binary record layouts declaratively.
// A structure is an ordered list of nodes; a types bundle supplies
// reusable field types, format-wide constants, global defaults and macros.
// Both are built from generic key/value trees, usually loaded from YAML.
package schema

import "fmt"

// Attribute names understood by the default resolution chain.
const (
	AttrName               = "name"
	AttrType               = "type"
	AttrSize               = "size"
	AttrDelimiter          = "delimiter"
	AttrOrder              = "order"
	AttrTrim               = "trim"
	AttrMacro              = "macro"
	AttrUnknownDestination = "unknown_destination"
	AttrUnknownFunction    = "unknown_function"
)

// Byte order values for the order attribute.
const (
	OrderNormal  = "normal"
	OrderReverse = "reverse"
)

// Kind identifies how a node is processed.
type Kind int

const (
	KindPrimitive Kind = iota
	KindStruct
	KindFor
	KindDoWhile
	KindWhile
	KindMacro
)

var kindNames = [...]string{
	KindPrimitive: "primitive",
	KindStruct:    "struct",
	KindFor:       "for",
	KindDoWhile:   "do_while",
	KindWhile:     "while",
	KindMacro:     "macro",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsLoop reports whether nodes of this kind produce a sequence.
func (k Kind) IsLoop() bool {
	return k == KindFor || k == KindDoWhile || k == KindWhile
}

// Node is one entry of a structure tree. Nodes are immutable once built.
type Node struct {
	// Attrs holds the resolvable attributes set on the node itself.
	Attrs map[string]any
	Kind  Kind
	If    *Expr

	// Count is the for operand: a literal or a variable name.
	Count any
	// Cond is the do_while or while condition.
	Cond *Expr
	// Term names the destination of a while loop's terminal value.
	Term string

	Structure []*Node
}

// Attr returns an attribute set on the node itself.
func (n *Node) Attr(attr string) (any, bool) {
	v, ok := n.Attrs[attr]
	return v, ok
}

// IsPrimitive reports whether the node is a leaf field.
func (n *Node) IsPrimitive() bool {
	return n.Kind == KindPrimitive
}

// Label returns a human readable identifier for error messages.
func (n *Node) Label() string {
	if name, ok := n.Attrs[AttrName].(string); ok && name != "" {
		return name
	}
	if t, ok := n.Attrs[AttrType].(string); ok {
		return "<" + t + ">"
	}
	return "<unnamed>"
}

// TypeDef is a named bundle of field defaults and a codec binding.
type TypeDef struct {
	Attrs    map[string]any
	Function string
	Args     map[string]any
}

// Types bundles constants, defaults, type definitions and macros.
// The layers are kept apart and never merged into nodes.
type Types struct {
	Constants map[string]any
	Defaults  map[string]any
	Types     map[string]*TypeDef
	Macros    map[string][]*Node
}

// Resolve looks up attr on the node, then on the named type, then in the
// global defaults.
func (t *Types) Resolve(n *Node, typeName, attr string) (any, bool) {
	if n != nil {
		if v, ok := n.Attrs[attr]; ok {
			return v, true
		}
	}
	if td, ok := t.Types[typeName]; ok {
		if v, ok := td.Attrs[attr]; ok {
			return v, true
		}
	}
	v, ok := t.Defaults[attr]
	return v, ok
}

// Constant returns a named constant.
func (t *Types) Constant(name string) (any, bool) {
	v, ok := t.Constants[name]
	return v, ok
}

// Type returns a type definition by name.
func (t *Types) Type(name string) (*TypeDef, bool) {
	td, ok := t.Types[name]
	return td, ok
}

// Macro returns a macro body by name.
func (t *Types) Macro(name string) ([]*Node, bool) {
	m, ok := t.Macros[name]
	return m, ok
}

// Error reports a malformed schema or an attribute that cannot be resolved.
type Error struct {
	Field string
	Attr  string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.Attr != "":
		return fmt.Sprintf("schema: field %s: %s: %v", e.Field, e.Attr, e.Err)
	case e.Field != "":
		return fmt.Sprintf("schema: field %s: %v", e.Field, e.Err)
	case e.Attr != "":
		return fmt.Sprintf("schema: %s: %v", e.Attr, e.Err)
	}
	return fmt.Sprintf("schema: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error for a field and attribute.
func Errorf(field, attr, format string, args ...any) *Error {
	return &Error{Field: field, Attr: attr, Err: fmt.Errorf(format, args...)}
}
