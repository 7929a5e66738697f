// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package binparser decodes binary data into a value tree, and encodes value
// trees back into binary data, as described by a schema structure and types
// bundle.
//
// A Parser is built once per schema and holds only read-only state. Each
// Decode or Encode call owns its own position and variable scope, so one
// Parser may be used from several goroutines at a time.
package binparser

import (
	"fmt"
	"log/slog"

	"github.com/MultiTechSystems/binparser/codec"
	"github.com/MultiTechSystems/binparser/schema"
)

// Debug bits.
const (
	DebugInternal = 1 << iota // dump the internal scope in the debug report
	DebugTrace                // log every field as it is processed
)

// Parser interprets one structure against one types bundle.
type Parser struct {
	structure []*schema.Node
	types     *schema.Types
	funcs     *codec.Registry
	prune     bool
	debug     int
	log       *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithFunctions replaces the built-in codec registry.
func WithFunctions(r *codec.Registry) Option {
	return func(p *Parser) { p.funcs = r }
}

// WithPrune drops unnamed fields from decoded trees.
func WithPrune(prune bool) Option {
	return func(p *Parser) { p.prune = prune }
}

// WithDebug sets the debug bitmask.
func WithDebug(debug int) Option {
	return func(p *Parser) { p.debug = debug }
}

// WithLogger sets the logger for field traces and warnings.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) { p.log = l }
}

// New returns a parser for structure and types. A nil types bundle means
// the built-in defaults.
func New(structure []*schema.Node, types *schema.Types, opts ...Option) (*Parser, error) {
	if types == nil {
		var err error
		if types, err = schema.BuildTypes(nil); err != nil {
			return nil, err
		}
	}
	p := &Parser{
		structure: structure,
		types:     types,
		funcs:     codec.New(),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.debug&^(DebugInternal|DebugTrace) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDebug, p.debug)
	}
	for name, td := range types.Types {
		if _, ok := p.funcs.Lookup(td.Function); !ok {
			return nil, schema.Errorf(name, "function", "unknown function %q", td.Function)
		}
	}

	// Any field name or constant may be used as a variable type or macro
	// name, so only names that cannot be variables are checked here.
	vars := map[string]bool{}
	for name := range types.Constants {
		vars[name] = true
	}
	collectNames(structure, vars)
	for _, body := range types.Macros {
		collectNames(body, vars)
	}
	if err := p.checkNames(structure, vars); err != nil {
		return nil, err
	}
	for _, body := range types.Macros {
		if err := p.checkNames(body, vars); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func collectNames(nodes []*schema.Node, names map[string]bool) {
	for _, n := range nodes {
		if name, ok := n.Attrs[schema.AttrName].(string); ok && name != "" {
			names[name] = true
		}
		collectNames(n.Structure, names)
	}
}

// checkNames rejects literal type and macro names that resolve to nothing.
func (p *Parser) checkNames(nodes []*schema.Node, vars map[string]bool) error {
	for _, n := range nodes {
		if t, ok := n.Attrs[schema.AttrType].(string); ok && !vars[t] && n.IsPrimitive() && p.fieldName(n, t) != "" {
			_, isType := p.types.Type(t)
			_, isFunc := p.funcs.Lookup(t)
			if !isType && !isFunc {
				return schema.Errorf(n.Label(), schema.AttrType, "unknown type or function %q", t)
			}
		}
		if m, ok := n.Attrs[schema.AttrMacro].(string); ok && !vars[m] && len(n.Structure) == 0 {
			if _, ok := p.types.Macro(m); !ok {
				return schema.Errorf(n.Label(), schema.AttrMacro, "unknown macro %q", m)
			}
		}
		if err := p.checkNames(n.Structure, vars); err != nil {
			return err
		}
	}
	return nil
}

// Debug returns the debug bitmask.
func (p *Parser) Debug() int {
	return p.debug
}

func (p *Parser) tracing() bool {
	return p.debug&DebugTrace != 0
}

// field is a primitive node with every attribute resolved.
type field struct {
	framing
	Name  string
	Func  string
	Codec codec.Func
	Args  codec.Args
}

// typeName resolves the type of a node. Type names may be variables.
func (p *Parser) typeName(n *schema.Node, s *scope) (string, error) {
	v, _ := p.types.Resolve(n, "", schema.AttrType)
	return tokenString(n, schema.AttrType, s.valueOf(v))
}

// fieldName resolves the destination name of a node.
func (p *Parser) fieldName(n *schema.Node, dtype string) string {
	v, _ := p.types.Resolve(n, dtype, schema.AttrName)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// unknownFunction resolves the representation of unnamed fields.
func (p *Parser) unknownFunction(n *schema.Node, dtype string, s *scope) (string, error) {
	v, _ := p.types.Resolve(n, dtype, schema.AttrUnknownFunction)
	return tokenString(n, schema.AttrUnknownFunction, s.valueOf(v))
}

// unknownDestination resolves where unnamed fields are kept.
func (p *Parser) unknownDestination(n *schema.Node, dtype string) (string, error) {
	v, _ := p.types.Resolve(n, dtype, schema.AttrUnknownDestination)
	return tokenString(n, schema.AttrUnknownDestination, v)
}

// resolveField resolves framing from the node and its declared type, and
// the codec from fn, a type or function name.
func (p *Parser) resolveField(n *schema.Node, dtype, name, fn string, s *scope) (*field, error) {
	f := &field{Name: name}

	delim, _ := p.types.Resolve(n, dtype, schema.AttrDelimiter)
	d, err := schema.ByteSeq(delim)
	if err != nil {
		return nil, &schema.Error{Field: n.Label(), Attr: schema.AttrDelimiter, Err: err}
	}
	f.Delimiter = d

	size, _ := p.types.Resolve(n, dtype, schema.AttrSize)
	if size = s.valueOf(size); size != nil {
		sz, ok := codec.ToInt64(size)
		if !ok || sz < 0 {
			return nil, schema.Errorf(n.Label(), schema.AttrSize, "size must be a non-negative integer, got %v", size)
		}
		f.Size = int(sz)
	}
	if f.Size == 0 && len(f.Delimiter) == 0 {
		f.Size = 1
	}

	order, _ := p.types.Resolve(n, dtype, schema.AttrOrder)
	switch order {
	case nil, "", schema.OrderNormal:
	case schema.OrderReverse:
		f.Reverse = true
	default:
		return nil, schema.Errorf(n.Label(), schema.AttrOrder, "must be %q or %q, got %v",
			schema.OrderNormal, schema.OrderReverse, order)
	}

	trim, _ := p.types.Resolve(n, dtype, schema.AttrTrim)
	if trim != nil {
		b, err := schema.ByteSeq(trim)
		if err != nil || len(b) != 1 {
			return nil, schema.Errorf(n.Label(), schema.AttrTrim, "must be a single byte, got %v", trim)
		}
		f.Trim, f.HasTrim = b[0], true
	}

	f.Func = fn
	if td, ok := p.types.Type(fn); ok {
		f.Func = td.Function
		f.Args = td.Args
	}
	c, ok := p.funcs.Lookup(f.Func)
	if !ok {
		return nil, schema.Errorf(n.Label(), schema.AttrType, "unknown type or function %q", fn)
	}
	f.Codec = c
	return f, nil
}

// macro resolves the body of a macro node. Macro names may be variables.
func (p *Parser) macro(n *schema.Node, s *scope) ([]*schema.Node, error) {
	v, _ := p.types.Resolve(n, "", schema.AttrMacro)
	name, err := tokenString(n, schema.AttrMacro, s.valueOf(v))
	if err != nil {
		return nil, err
	}
	body, ok := p.types.Macro(name)
	if !ok {
		return nil, schema.Errorf(n.Label(), schema.AttrMacro, "unknown macro %q", name)
	}
	return body, nil
}

// loopBody returns the records of a loop node: its own structure, or the
// macro it names.
func (p *Parser) loopBody(n *schema.Node, s *scope) ([]*schema.Node, error) {
	if len(n.Structure) > 0 {
		return n.Structure, nil
	}
	if _, ok := n.Attr(schema.AttrMacro); !ok {
		return nil, nil
	}
	return p.macro(n, s)
}

// count resolves the iteration count of a for node.
func (p *Parser) count(n *schema.Node, s *scope) (int, error) {
	v := s.valueOf(n.Count)
	c, ok := codec.ToInt64(v)
	if !ok || c < 0 {
		return 0, schema.Errorf(n.Label(), "for", "count must be a non-negative integer, got %v", v)
	}
	return int(c), nil
}

func tokenString(n *schema.Node, attr string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", schema.Errorf(n.Label(), attr, "must be a name, got %v (%T)", v, v)
	}
	return s, nil
}

// asMap accepts the mapping shapes a value tree can carry.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	case nil:
		return map[string]any{}, true
	}
	return nil, false
}
