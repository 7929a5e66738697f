// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package binparser

import (
	"errors"
	"fmt"

	"github.com/MultiTechSystems/binparser/schema"
)

// Result is a decoded value tree together with the final parse state.
type Result struct {
	Parsed   map[string]any
	Internal map[string]any
	// Offset is the position reached in the input.
	Offset int
	// Size is the length of the input.
	Size int
	// RawBytes counts the bytes consumed by unnamed fields.
	RawBytes int
}

// decodeContext maintains state during one Decode call.
type decodeContext struct {
	*Parser
	cur      *cursor
	scope    *scope
	rawBytes int
}

// Decode decodes data. Running out of input is a clean stop: the fields
// decoded so far are returned with a nil error.
func (p *Parser) Decode(data []byte) (*Result, error) {
	ctx := &decodeContext{
		Parser: p,
		cur:    newCursor(data),
		scope:  newScope(p.types.Constants),
	}

	parsed := map[string]any{}
	if err := ctx.decode(p.structure, parsed); err != nil && !errors.Is(err, ErrEndOfStream) {
		return nil, err
	}
	return &Result{
		Parsed:   parsed,
		Internal: ctx.scope.internal,
		Offset:   ctx.cur.offset,
		Size:     len(data),
		RawBytes: ctx.rawBytes,
	}, nil
}

func (ctx *decodeContext) decode(structure []*schema.Node, dest map[string]any) error {
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

		if n.IsPrimitive() {
			if err := ctx.decodePrimitive(n, dtype, name, dest); err != nil {
				return err
			}
			continue
		}

		if ctx.tracing() {
			ctx.log.Debug("enter", "field", name, "kind", n.Kind.String(), "offset", hexOffset(ctx.cur.offset))
		}
		if err := ctx.decodeContainer(n, name, dest); err != nil {
			return err
		}
		if ctx.tracing() {
			ctx.log.Debug("leave", "field", name, "offset", hexOffset(ctx.cur.offset))
		}
	}
	return nil
}

func (ctx *decodeContext) decodePrimitive(n *schema.Node, dtype, name string, dest map[string]any) error {
	fn := dtype
	if name == "" {
		var err error
		if fn, err = ctx.unknownFunction(n, dtype, ctx.scope); err != nil {
			return err
		}
	}
	f, err := ctx.resolveField(n, dtype, name, fn, ctx.scope)
	if err != nil {
		return err
	}

	offset := ctx.cur.offset
	data, err := ctx.cur.Read(f.framing)
	if err != nil {
		return err
	}
	value, err := f.Codec.Decode(data, f.Args)
	if err != nil {
		return &CodecError{Field: n.Label(), Func: f.Func, Offset: offset, Err: err}
	}

	if ctx.tracing() {
		ctx.log.Debug("field", "offset", hexOffset(offset), "field", name,
			"size", ctx.cur.offset-offset, "value", value)
	}

	if name != "" {
		ctx.scope.store(name, value)
		dest[name] = value
		return nil
	}

	ctx.rawBytes += ctx.cur.offset - offset
	if ctx.prune {
		return nil
	}
	unknown, err := ctx.unknownDestination(n, dtype)
	if err != nil {
		return err
	}
	list, _ := dest[unknown].([]any)
	dest[unknown] = append(list, value)
	return nil
}

func (ctx *decodeContext) decodeContainer(n *schema.Node, name string, dest map[string]any) error {
	switch n.Kind {
	case schema.KindFor:
		return ctx.decodeFor(n, name, dest)
	case schema.KindDoWhile:
		return ctx.decodeDoWhile(n, name, dest)
	case schema.KindWhile:
		return ctx.decodeWhile(n, name, dest)
	case schema.KindMacro:
		body, err := ctx.macro(n, ctx.scope)
		if err != nil {
			return err
		}
		return ctx.decode(body, childMap(dest, name))
	case schema.KindStruct:
		return ctx.decode(n.Structure, childMap(dest, name))
	}
	return schema.Errorf(n.Label(), "", "unexpected node kind %s", n.Kind)
}

// childMap returns dest[name] as a mapping, creating it when absent.
func childMap(dest map[string]any, name string) map[string]any {
	if m, ok := dest[name].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	dest[name] = m
	return m
}

// appendChild appends a fresh mapping to the sequence dest[name]. The
// mapping is linked in before it is filled so that a partial record is kept
// when the input runs out.
func appendChild(dest map[string]any, name string) map[string]any {
	seq, _ := dest[name].([]any)
	m := map[string]any{}
	dest[name] = append(seq, m)
	return m
}

func (ctx *decodeContext) decodeFor(n *schema.Node, name string, dest map[string]any) error {
	count, err := ctx.count(n, ctx.scope)
	if err != nil {
		return err
	}
	body, err := ctx.loopBody(n, ctx.scope)
	if err != nil {
		return err
	}
	if _, ok := dest[name].([]any); !ok {
		dest[name] = []any{}
	}
	for i := 0; i < count; i++ {
		start := ctx.cur.offset
		if err := ctx.decode(body, appendChild(dest, name)); err != nil {
			return err
		}
		if ctx.stalled(start) {
			return ErrEndOfStream
		}
	}
	return nil
}

func (ctx *decodeContext) decodeDoWhile(n *schema.Node, name string, dest map[string]any) error {
	body, err := ctx.loopBody(n, ctx.scope)
	if err != nil {
		return err
	}
	if _, ok := dest[name].([]any); !ok {
		dest[name] = []any{}
	}
	for {
		start := ctx.cur.offset
		if err := ctx.decode(body, appendChild(dest, name)); err != nil {
			return err
		}
		if ctx.stalled(start) {
			return ErrEndOfStream
		}
		ok, err := ctx.scope.test(n.Cond)
		if err != nil {
			return &schema.Error{Field: n.Label(), Attr: "do_while", Err: err}
		}
		if !ok {
			return nil
		}
	}
}

// decodeWhile reads the sentinel field into a trailing record, and while
// the condition holds completes that record with the remaining fields and
// starts the next one. The last, unfinished record holds the terminal value
// and is lifted out under the term key.
func (ctx *decodeContext) decodeWhile(n *schema.Node, name string, dest map[string]any) error {
	records, err := ctx.loopBody(n, ctx.scope)
	if err != nil {
		return err
	}
	if len(records) == 0 || !records[0].IsPrimitive() {
		return schema.Errorf(n.Label(), "while", "structure[0] must be a primitive sentinel field")
	}
	sentinel, body := records[:1], records[1:]

	dest[name] = []any{}
	last := appendChild(dest, name)
	if err := ctx.decode(sentinel, last); err != nil {
		return err
	}
	for {
		ok, err := ctx.scope.test(n.Cond)
		if err != nil {
			return &schema.Error{Field: n.Label(), Attr: "while", Err: err}
		}
		if !ok {
			break
		}
		if err := ctx.decode(body, last); err != nil {
			return err
		}
		last = appendChild(dest, name)
		if err := ctx.decode(sentinel, last); err != nil {
			return err
		}
	}

	seq := dest[name].([]any)
	dest[name] = seq[:len(seq)-1]
	if len(last) != 1 {
		return schema.Errorf(n.Label(), "while", "terminal record must hold exactly one value, got %d", len(last))
	}
	for _, v := range last {
		dest[n.Term] = v
	}
	return nil
}

// stalled reports whether a loop iteration that started at start read
// nothing while the input is exhausted. Further iterations could only add
// empty records.
func (ctx *decodeContext) stalled(start int) bool {
	return ctx.cur.offset == start && ctx.cur.Remaining() == 0
}

func hexOffset(offset int) string {
	return fmt.Sprintf("0x%06x", offset)
}
