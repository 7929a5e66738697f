// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package codec

import (
	"fmt"
	"math"
	"strconv"
)

// ToInt64 converts any integral value to int64.
func ToInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		if uint64(val) <= math.MaxInt64 {
			return int64(val), true
		}
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		if val <= math.MaxInt64 {
			return int64(val), true
		}
	case float64:
		if val == math.Trunc(val) && val >= math.MinInt64 && val <= math.MaxInt64 {
			return int64(val), true
		}
	case float32:
		f := float64(val)
		if f == math.Trunc(f) {
			return int64(f), true
		}
	}
	return 0, false
}

// ToUint64 converts any non-negative integral value to uint64.
func ToUint64(v any) (uint64, bool) {
	switch val := v.(type) {
	case uint64:
		return val, true
	case uint:
		return uint64(val), true
	}
	i, ok := ToInt64(v)
	if !ok || i < 0 {
		return 0, false
	}
	return uint64(i), true
}

// ToFloat64 converts any numeric value to float64.
func ToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case uint:
		return float64(val), true
	}
	if i, ok := ToInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// uintValue returns u as an int when it fits, otherwise as uint64.
func uintValue(u uint64) any {
	if u <= math.MaxInt64 {
		return int(u)
	}
	return u
}

// decodeUint reads an unsigned integer of up to eight bytes.
func decodeUint(data []byte, endian string) (uint64, error) {
	if len(data) > 8 {
		return 0, fmt.Errorf("integer field of %d bytes exceeds 8", len(data))
	}
	var val uint64
	if endian == "little" {
		for i := len(data) - 1; i >= 0; i-- {
			val = (val << 8) | uint64(data[i])
		}
	} else {
		for _, b := range data {
			val = (val << 8) | uint64(b)
		}
	}
	return val, nil
}

func decodeSint(data []byte, endian string) (int64, error) {
	uval, err := decodeUint(data, endian)
	if err != nil {
		return 0, err
	}
	bits := uint(len(data) * 8)
	if bits == 0 || bits == 64 {
		return int64(uval), nil
	}
	if uval&(1<<(bits-1)) != 0 {
		return int64(uval) - (1 << bits), nil
	}
	return int64(uval), nil
}

func encodeUint(val uint64, length int, endian string) []byte {
	buf := make([]byte, length)
	if endian == "little" {
		for i := 0; i < length; i++ {
			buf[i] = byte(val >> (8 * i))
		}
	} else {
		for i := length - 1; i >= 0; i-- {
			buf[i] = byte(val)
			val >>= 8
		}
	}
	return buf
}

func encodeSint(val int64, length int, endian string) []byte {
	return encodeUint(uint64(val), length, endian)
}

// minimalLE encodes val in as few little-endian bytes as possible, at
// least one.
func minimalLE(val uint64) []byte {
	out := []byte{byte(val)}
	for val >>= 8; val != 0; val >>= 8 {
		out = append(out, byte(val))
	}
	return out
}

// Annotation is a two-way substitution table between raw values and names.
// Keys are compared numerically when they are integral.
type Annotation struct {
	forward map[string]any
	inverse map[string]any
}

// NewAnnotation builds an annotation from a generic mapping.
func NewAnnotation(raw any) (*Annotation, error) {
	a := &Annotation{forward: map[string]any{}, inverse: map[string]any{}}
	add := func(k, v any) {
		key := normalizeKey(k)
		a.forward[canonical(key)] = v
		a.inverse[canonical(v)] = key
	}
	switch m := raw.(type) {
	case map[string]any:
		for k, v := range m {
			add(k, v)
		}
	case map[any]any:
		for k, v := range m {
			add(k, v)
		}
	case map[int]any:
		for k, v := range m {
			add(k, v)
		}
	default:
		return nil, fmt.Errorf("annotation must be a mapping, got %T", raw)
	}
	return a, nil
}

// Name returns the annotation of a raw value.
func (a *Annotation) Name(raw any) (any, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a.forward[canonical(raw)]
	return v, ok
}

// Value returns the raw value annotated as name.
func (a *Annotation) Value(name any) (any, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a.inverse[canonical(name)]
	return v, ok
}

// normalizeKey turns numeric string keys into ints.
func normalizeKey(k any) any {
	if s, ok := k.(string); ok {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return int(i)
		}
		if i, err := strconv.ParseInt(s, 0, 64); err == nil {
			return int(i)
		}
	}
	return k
}

func canonical(v any) string {
	if i, ok := ToInt64(v); ok {
		return "i:" + strconv.FormatInt(i, 10)
	}
	if u, ok := v.(uint64); ok {
		return "i:" + strconv.FormatUint(u, 10)
	}
	if f, ok := ToFloat64(v); ok {
		return "f:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprintf("%T:%v", v, v)
}
