// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package codec

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// struct: a field described by a compact format string, the same
// mini-language as Python's struct module. Arguments:
//
//	fmt         format string, default "b"
//	labels      names for the unpacked values
//	annotation  substitution table applied to every value
//
// A single value is returned as is. Several values become a mapping when
// labels are given and a list otherwise.

const defaultStructFormat = "b"

var structTokenPattern = regexp.MustCompile(`(\d*)([a-zA-Z?])`)

type packKind int

const (
	packPad packKind = iota
	packChar
	packSint
	packUint
	packBool
	packFloat16
	packFloat32
	packFloat64
	packString
	packPascal
)

var structFormats = map[byte]struct {
	Kind   packKind
	Length int
}{
	'x': {packPad, 1},
	'c': {packChar, 1},
	'b': {packSint, 1},
	'B': {packUint, 1},
	'?': {packBool, 1},
	'h': {packSint, 2},
	'H': {packUint, 2},
	'i': {packSint, 4},
	'I': {packUint, 4},
	'l': {packSint, 4},
	'L': {packUint, 4},
	'q': {packSint, 8},
	'Q': {packUint, 8},
	'e': {packFloat16, 2},
	'f': {packFloat32, 4},
	'd': {packFloat64, 8},
	's': {packString, 0},
	'p': {packPascal, 0},
}

// Native order is taken to be little-endian and no alignment is applied.
var byteOrderPrefixes = map[byte]string{
	'>': "big",
	'<': "little",
	'!': "big",
	'=': "little",
	'@': "little",
}

type packItem struct {
	Kind   packKind
	Length int
}

type packFormat struct {
	Endian string
	Items  []packItem
}

// Size returns the number of bytes the format packs to.
func (f packFormat) Size() int {
	n := 0
	for _, it := range f.Items {
		n += it.Length
	}
	return n
}

// Values returns the number of values the format produces.
func (f packFormat) Values() int {
	n := 0
	for _, it := range f.Items {
		if it.Kind != packPad {
			n++
		}
	}
	return n
}

func parseStructFormat(format string) (packFormat, error) {
	f := packFormat{Endian: "little"}
	if len(format) > 0 {
		if e, ok := byteOrderPrefixes[format[0]]; ok {
			f.Endian = e
			format = format[1:]
		}
	}

	last := 0
	for _, loc := range structTokenPattern.FindAllStringSubmatchIndex(format, -1) {
		if gap := format[last:loc[0]]; strings.TrimSpace(gap) != "" {
			return f, fmt.Errorf("bad format %q near %q", format, gap)
		}
		last = loc[1]

		count := 1
		if loc[3] > loc[2] {
			n, err := strconv.Atoi(format[loc[2]:loc[3]])
			if err != nil {
				return f, fmt.Errorf("bad repeat count in %q: %w", format, err)
			}
			count = n
		}
		ch := format[loc[4]]
		def, ok := structFormats[ch]
		if !ok {
			return f, fmt.Errorf("unknown format character: %c", ch)
		}

		if def.Kind == packString || def.Kind == packPascal {
			f.Items = append(f.Items, packItem{Kind: def.Kind, Length: count})
			continue
		}
		for i := 0; i < count; i++ {
			f.Items = append(f.Items, packItem{Kind: def.Kind, Length: def.Length})
		}
	}
	if strings.TrimSpace(format[last:]) != "" {
		return f, fmt.Errorf("bad format %q near %q", format, format[last:])
	}
	return f, nil
}

type structArgs struct {
	format     packFormat
	labels     []string
	annotation *Annotation
}

func parseStructArgs(args Args) (structArgs, error) {
	var sa structArgs
	format, err := args.String("fmt", defaultStructFormat)
	if err != nil {
		return sa, err
	}
	if sa.format, err = parseStructFormat(format); err != nil {
		return sa, err
	}
	if sa.labels, err = args.Strings("labels"); err != nil {
		return sa, err
	}
	if sa.annotation, err = args.Annotation("annotation"); err != nil {
		return sa, err
	}
	return sa, nil
}

func decodeStruct(data []byte, args Args) (any, error) {
	sa, err := parseStructArgs(args)
	if err != nil {
		return nil, fmt.Errorf("struct: %w", err)
	}
	values, err := unpack(sa.format, data)
	if err != nil {
		return nil, fmt.Errorf("struct: %w", err)
	}

	for i, v := range values {
		if name, ok := sa.annotation.Name(v); ok {
			values[i] = name
		}
	}

	switch {
	case len(values) == 1:
		return values[0], nil
	case len(sa.labels) > 0:
		out := make(map[string]any, len(sa.labels))
		for i, label := range sa.labels {
			if i < len(values) {
				out[label] = values[i]
			}
		}
		return out, nil
	}
	return values, nil
}

func encodeStruct(value any, args Args) ([]byte, error) {
	sa, err := parseStructArgs(args)
	if err != nil {
		return nil, fmt.Errorf("struct: %w", err)
	}

	n := sa.format.Values()
	var values []any
	switch {
	case n == 1:
		values = []any{value}
	case len(sa.labels) > 0:
		m, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("struct: expected a mapping, got %T", value)
		}
		for _, label := range sa.labels {
			v, ok := m[label]
			if !ok {
				return nil, fmt.Errorf("struct: missing value for %s", label)
			}
			values = append(values, v)
		}
	default:
		list, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("struct: expected a list, got %T", value)
		}
		values = append(values, list...)
	}

	for i, v := range values {
		if raw, ok := sa.annotation.Value(v); ok {
			values[i] = raw
		}
	}

	data, err := pack(sa.format, values)
	if err != nil {
		return nil, fmt.Errorf("struct: %w", err)
	}
	return data, nil
}

func unpack(f packFormat, data []byte) ([]any, error) {
	if len(data) != f.Size() {
		return nil, fmt.Errorf("format needs %d bytes, got %d", f.Size(), len(data))
	}

	values := make([]any, 0, f.Values())
	pos := 0
	for _, it := range f.Items {
		chunk := data[pos : pos+it.Length]
		pos += it.Length

		switch it.Kind {
		case packPad:
		case packChar:
			values = append(values, string(chunk))
		case packBool:
			values = append(values, chunk[0] != 0)
		case packUint:
			u, err := decodeUint(chunk, f.Endian)
			if err != nil {
				return nil, err
			}
			values = append(values, uintValue(u))
		case packSint:
			s, err := decodeSint(chunk, f.Endian)
			if err != nil {
				return nil, err
			}
			values = append(values, int(s))
		case packFloat16:
			u, _ := decodeUint(chunk, f.Endian)
			values = append(values, float16ToFloat64(uint16(u)))
		case packFloat32:
			u, _ := decodeUint(chunk, f.Endian)
			values = append(values, float64(math.Float32frombits(uint32(u))))
		case packFloat64:
			u, _ := decodeUint(chunk, f.Endian)
			values = append(values, math.Float64frombits(u))
		case packString:
			values = append(values, string(chunk))
		case packPascal:
			if len(chunk) == 0 {
				values = append(values, "")
				continue
			}
			n := int(chunk[0])
			if n > len(chunk)-1 {
				n = len(chunk) - 1
			}
			values = append(values, string(chunk[1:1+n]))
		}
	}
	return values, nil
}

func pack(f packFormat, values []any) ([]byte, error) {
	if len(values) != f.Values() {
		return nil, fmt.Errorf("format takes %d values, got %d", f.Values(), len(values))
	}

	var buf bytes.Buffer
	i := 0
	for _, it := range f.Items {
		if it.Kind == packPad {
			buf.Write(make([]byte, it.Length))
			continue
		}
		v := values[i]
		i++

		switch it.Kind {
		case packChar:
			s, ok := v.(string)
			if !ok || len(s) != 1 {
				return nil, fmt.Errorf("char format requires a string of length 1, got %v", v)
			}
			buf.WriteString(s)
		case packBool:
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("bool format requires a boolean, got %T", v)
			}
			if b {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		case packUint:
			u, ok := ToUint64(v)
			if !ok {
				return nil, fmt.Errorf("unsigned format requires a non-negative integer, got %v", v)
			}
			if it.Length < 8 && u >= 1<<(8*it.Length) {
				return nil, fmt.Errorf("%d out of range for %d byte field", u, it.Length)
			}
			buf.Write(encodeUint(u, it.Length, f.Endian))
		case packSint:
			s, ok := ToInt64(v)
			if !ok {
				return nil, fmt.Errorf("signed format requires an integer, got %v", v)
			}
			if it.Length < 8 {
				limit := int64(1) << (8*it.Length - 1)
				if s < -limit || s >= limit {
					return nil, fmt.Errorf("%d out of range for %d byte field", s, it.Length)
				}
			}
			buf.Write(encodeSint(s, it.Length, f.Endian))
		case packFloat16, packFloat32, packFloat64:
			x, ok := ToFloat64(v)
			if !ok {
				return nil, fmt.Errorf("float format requires a number, got %T", v)
			}
			var bits uint64
			switch it.Kind {
			case packFloat16:
				bits = uint64(float64ToFloat16(x))
			case packFloat32:
				bits = uint64(math.Float32bits(float32(x)))
			default:
				bits = math.Float64bits(x)
			}
			buf.Write(encodeUint(bits, it.Length, f.Endian))
		case packString, packPascal:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("string format requires a string, got %T", v)
			}
			field := make([]byte, it.Length)
			if it.Kind == packPascal && it.Length > 0 {
				if len(s) > 0xff {
					s = s[:0xff]
				}
				field[0] = byte(copy(field[1:], s))
			} else {
				copy(field, s)
			}
			buf.Write(field)
		}
	}
	return buf.Bytes(), nil
}

func float16ToFloat64(u16 uint16) float64 {
	sign := (u16 >> 15) & 0x1
	exp := (u16 >> 10) & 0x1f
	mant := u16 & 0x3ff

	var val float64
	if exp == 0 {
		// Subnormal or zero
		val = math.Pow(2, -14) * float64(mant) / 1024
	} else if exp == 31 {
		// Inf or NaN
		if mant != 0 {
			return math.NaN()
		}
		val = math.Inf(1)
	} else {
		val = math.Pow(2, float64(exp)-15) * (1 + float64(mant)/1024)
	}

	if sign == 1 {
		val = -val
	}
	return val
}

// float64ToFloat16 rounds to the nearest half precision value, ties to even.
func float64ToFloat16(f float64) uint16 {
	bits := math.Float32bits(float32(f))
	sign := uint16(bits>>16) & 0x8000
	exp := int((bits >> 23) & 0xff)
	mant := bits & 0x7fffff

	if exp == 0xff {
		if mant != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	}

	e := exp - 127 + 15
	switch {
	case e >= 31:
		return sign | 0x7c00
	case e <= 0:
		// Subnormal
		if e < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint(14 - e)
		h := mant >> shift
		rem := mant & (1<<shift - 1)
		half := uint32(1) << (shift - 1)
		if rem > half || (rem == half && h&1 == 1) {
			h++
		}
		return sign | uint16(h)
	}

	h := uint16(e)<<10 | uint16(mant>>13)
	rem := mant & 0x1fff
	if rem > 0x1000 || (rem == 0x1000 && h&1 == 1) {
		// a carry into the exponent is still the correct result
		h++
	}
	return sign | h
}
