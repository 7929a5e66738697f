// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package codec provides the field codec registry: named pairs of decode
// (bytes to value) and encode (value to bytes) functions, and the built-in
// functions every parser starts with.
//
// An encode function must be the exact left inverse of its decode function
// on every value the decoder produces. A decode function that yields several
// named members returns a map[string]any.
package codec

import (
	"fmt"
	"sort"
)

// Args is the static keyword-argument bundle of a type definition.
type Args map[string]any

// DecodeFunc interprets the bytes of one field.
type DecodeFunc func(data []byte, args Args) (any, error)

// EncodeFunc produces the bytes of one field.
type EncodeFunc func(value any, args Args) ([]byte, error)

// Func is a decode/encode pair.
type Func struct {
	Decode DecodeFunc
	Encode EncodeFunc
}

// Registry maps function names to codec pairs. A registry handed to a
// parser must not be modified afterwards.
type Registry struct {
	funcs map[string]Func
}

// Empty returns a registry without any functions.
func Empty() *Registry {
	return &Registry{funcs: map[string]Func{}}
}

// New returns a registry holding the built-in functions.
func New() *Registry {
	r := Empty()
	r.Register("raw", Func{decodeRaw, encodeRaw})
	r.Register("bit", Func{decodeBit, encodeBit})
	r.Register("int", Func{decodeInt, encodeInt})
	r.Register("colour", Func{decodeColour, encodeColour})
	r.Register("float", Func{decodeFloat, encodeFloat})
	r.Register("text", Func{decodeText, encodeText})
	r.Register("date", Func{decodeDate, encodeDate})
	r.Register("map", Func{decodeMap, encodeMap})
	r.Register("flags", Func{decodeFlags, encodeFlags})
	r.Register("struct", Func{decodeStruct, encodeStruct})
	return r
}

// Register adds or replaces a function.
func (r *Registry) Register(name string, f Func) {
	r.funcs[name] = f
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	f, ok := r.funcs[name]
	return f, ok
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy that can be extended.
func (r *Registry) Clone() *Registry {
	c := Empty()
	for name, f := range r.funcs {
		c.funcs[name] = f
	}
	return c
}

// String returns the named string argument or def.
func (a Args) String(key, def string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %s must be a string, got %T", key, v)
	}
	return s, nil
}

// Bytes returns the named byte-sequence argument: a list of byte values or
// a string.
func (a Args) Bytes(key string) ([]byte, error) {
	switch v := a[key].(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []any:
		out := make([]byte, 0, len(v))
		for _, e := range v {
			b, ok := ToInt64(e)
			if !ok || b < 0 || b > 0xff {
				return nil, fmt.Errorf("argument %s: invalid byte value %v", key, e)
			}
			out = append(out, byte(b))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("argument %s must be a byte list, got %T", key, v)
	}
}

// Strings returns the named list-of-strings argument.
func (a Args) Strings(key string) ([]string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %s must be a list, got %T", key, v)
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, fmt.Sprintf("%v", e))
	}
	return out, nil
}

// Annotation returns the named substitution table, or nil.
func (a Args) Annotation(key string) (*Annotation, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, nil
	}
	ann, err := NewAnnotation(v)
	if err != nil {
		return nil, fmt.Errorf("argument %s: %w", key, err)
	}
	return ann, nil
}
