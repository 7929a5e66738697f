// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package binparser

import (
	"fmt"

	"github.com/MultiTechSystems/binparser/schema"
)

// Output is an encoded buffer together with the final variable scope.
type Output struct {
	Data     []byte
	Internal map[string]any
}

// encodeContext maintains state during one Encode call.
type encodeContext struct {
	*Parser
	out   *sink
	scope *scope
}

// Encode encodes a value tree shaped like the one Decode produces.
func (p *Parser) Encode(parsed map[string]any) (*Output, error) {
	ctx := &encodeContext{
		Parser: p,
		out:    &sink{},
		scope:  newScope(p.types.Constants),
	}
	if err := ctx.encode(p.structure, parsed); err != nil {
		return nil, err
	}
	return &Output{Data: ctx.out.buf, Internal: ctx.scope.internal}, nil
}

func (ctx *encodeContext) encode(structure []*schema.Node, source map[string]any) error {
	rawIndex := 0

	for _, n := range structure {
		if n.If != nil {
			ok, err := ctx.scope.test(n.If)
			if err != nil {
				return &schema.Error{Field: n.Label(), Attr: "if", Err: err}
			}
			if !ok {
				continue
			}
		}

		dtype, err := ctx.typeName(n, ctx.scope)
		if err != nil {
			return err
		}
		name := ctx.fieldName(n, dtype)

		if n.IsPrimitive() && name == "" {
			fn, err := ctx.unknownFunction(n, dtype, ctx.scope)
			if err != nil {
				return err
			}
			unknown, err := ctx.unknownDestination(n, dtype)
			if err != nil {
				return err
			}
			list, _ := source[unknown].([]any)
			if rawIndex >= len(list) {
				return fmt.Errorf("%s[%d]: %w", unknown, rawIndex, ErrMissingValue)
			}
			value := list[rawIndex]
			rawIndex++
			if err := ctx.encodePrimitive(n, dtype, name, fn, value); err != nil {
				return err
			}
			continue
		}

		value, ok := source[name]
		if !ok {
			return fmt.Errorf("field %s: %w", n.Label(), ErrMissingValue)
		}

		if n.IsPrimitive() {
			if err := ctx.encodePrimitive(n, dtype, name, dtype, value); err != nil {
				return err
			}
			continue
		}

		if ctx.tracing() {
			ctx.log.Debug("enter", "field", name, "kind", n.Kind.String(), "offset", hexOffset(ctx.out.Len()))
		}
		if err := ctx.encodeContainer(n, name, value, source); err != nil {
			return err
		}
		if ctx.tracing() {
			ctx.log.Debug("leave", "field", name, "offset", hexOffset(ctx.out.Len()))
		}
	}
	return nil
}

func (ctx *encodeContext) encodePrimitive(n *schema.Node, dtype, name, fn string, value any) error {
	f, err := ctx.resolveField(n, dtype, name, fn, ctx.scope)
	if err != nil {
		return err
	}

	offset := ctx.out.Len()
	if ctx.tracing() {
		ctx.log.Debug("field", "offset", hexOffset(offset), "field", name, "value", value)
	}
	if name != "" {
		ctx.scope.store(name, value)
	}

	data, err := f.Codec.Encode(value, f.Args)
	if err != nil {
		return &CodecError{Field: n.Label(), Func: f.Func, Offset: offset, Err: err}
	}
	ctx.out.Write(data, f.framing)
	return nil
}

func (ctx *encodeContext) encodeContainer(n *schema.Node, name string, value any, source map[string]any) error {
	switch n.Kind {
	case schema.KindFor, schema.KindDoWhile, schema.KindWhile:
		return ctx.encodeLoop(n, name, value, source)
	case schema.KindMacro:
		body, err := ctx.macro(n, ctx.scope)
		if err != nil {
			return err
		}
		m, ok := asMap(value)
		if !ok {
			return fmt.Errorf("field %s: expected a mapping, got %T", n.Label(), value)
		}
		return ctx.encode(body, m)
	case schema.KindStruct:
		m, ok := asMap(value)
		if !ok {
			return fmt.Errorf("field %s: expected a mapping, got %T", n.Label(), value)
		}
		return ctx.encode(n.Structure, m)
	}
	return schema.Errorf(n.Label(), "", "unexpected node kind %s", n.Kind)
}

// encodeLoop writes one record per element actually present. For a while
// loop the terminal value is written last as a record of its own.
func (ctx *encodeContext) encodeLoop(n *schema.Node, name string, value any, source map[string]any) error {
	seq, ok := value.([]any)
	if !ok && value != nil {
		return fmt.Errorf("field %s: expected a sequence, got %T", n.Label(), value)
	}

	if n.Kind == schema.KindFor {
		count, err := ctx.count(n, ctx.scope)
		if err != nil || count != len(seq) {
			ctx.log.Warn("loop count differs from the number of records",
				"field", name, "for", n.Count, "records", len(seq))
		}
	}

	body, err := ctx.loopBody(n, ctx.scope)
	if err != nil {
		return err
	}
	for i, item := range seq {
		m, ok := asMap(item)
		if !ok {
			return fmt.Errorf("field %s[%d]: expected a mapping, got %T", n.Label(), i, item)
		}
		if err := ctx.encode(body, m); err != nil {
			return err
		}
	}

	if n.Kind != schema.KindWhile {
		return nil
	}
	if len(body) == 0 || !body[0].IsPrimitive() {
		return schema.Errorf(n.Label(), "while", "structure[0] must be a primitive sentinel field")
	}
	term := termNode(n, body)
	termValue, ok := source[n.Term]
	if !ok {
		return fmt.Errorf("field %s: %w", n.Term, ErrMissingValue)
	}
	termName := ctx.fieldName(term, "")
	if dtype, err := ctx.typeName(term, ctx.scope); err == nil {
		termName = ctx.fieldName(term, dtype)
	}
	return ctx.encode([]*schema.Node{term}, map[string]any{termName: termValue})
}

// termNode finds the field a while loop's terminal value belongs to: the
// first condition operand naming a field of the loop body, or the sentinel.
func termNode(n *schema.Node, body []*schema.Node) *schema.Node {
	for _, o := range n.Cond.Operands {
		token, ok := o.(string)
		if !ok {
			continue
		}
		for _, child := range body {
			if child.IsPrimitive() && child.Attrs[schema.AttrName] == token {
				return child
			}
		}
	}
	return body[0]
}
