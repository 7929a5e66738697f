// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package codec

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// raw: space separated hex bytes, "0a 1b ff".

func decodeRaw(data []byte, _ Args) (any, error) {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = hex.EncodeToString([]byte{b})
	}
	return strings.Join(parts, " "), nil
}

func encodeRaw(value any, _ Args) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("raw: expected a hex string, got %T", value)
	}
	data, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return nil, fmt.Errorf("raw: %w", err)
	}
	return data, nil
}

// bit: binary digits, eight per byte.

func decodeBit(data []byte, _ Args) (any, error) {
	var sb strings.Builder
	for _, b := range data {
		fmt.Fprintf(&sb, "%08b", b)
	}
	return sb.String(), nil
}

func encodeBit(value any, _ Args) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("bit: expected a bit string, got %T", value)
	}
	if len(s)%8 != 0 {
		return nil, fmt.Errorf("bit: length %d is not a multiple of 8", len(s))
	}
	out := make([]byte, 0, len(s)/8)
	for i := 0; i < len(s); i += 8 {
		b, err := strconv.ParseUint(s[i:i+8], 2, 8)
		if err != nil {
			return nil, fmt.Errorf("bit: %w", err)
		}
		out = append(out, byte(b))
	}
	return out, nil
}

// int: little-endian unsigned integer.

func decodeInt(data []byte, _ Args) (any, error) {
	u, err := decodeUint(data, "little")
	if err != nil {
		return nil, fmt.Errorf("int: %w", err)
	}
	return uintValue(u), nil
}

func encodeInt(value any, _ Args) ([]byte, error) {
	u, ok := ToUint64(value)
	if !ok {
		return nil, fmt.Errorf("int: expected a non-negative integer, got %v (%T)", value, value)
	}
	return minimalLE(u), nil
}

// colour: little-endian integer written as 0xrrggbb.

func decodeColour(data []byte, _ Args) (any, error) {
	u, err := decodeUint(data, "little")
	if err != nil {
		return nil, fmt.Errorf("colour: %w", err)
	}
	return fmt.Sprintf("0x%06x", u), nil
}

func encodeColour(value any, _ Args) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("colour: expected a string, got %T", value)
	}
	u, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 64)
	if err != nil {
		return nil, fmt.Errorf("colour: %w", err)
	}
	return minimalLE(u), nil
}

// float: big-endian IEEE 754 single precision.

func decodeFloat(data []byte, _ Args) (any, error) {
	if len(data) != 4 {
		return nil, fmt.Errorf("float: need 4 bytes, got %d", len(data))
	}
	return float64(math.Float32frombits(binary.BigEndian.Uint32(data))), nil
}

func encodeFloat(value any, _ Args) ([]byte, error) {
	f, ok := ToFloat64(value)
	if !ok {
		return nil, fmt.Errorf("float: expected a number, got %T", value)
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, math.Float32bits(float32(f)))
	return buf, nil
}

// date: little-endian integer (year followed by day of year), with an
// optional annotation for special values.

func decodeDate(data []byte, args Args) (any, error) {
	ann, err := args.Annotation("annotation")
	if err != nil {
		return nil, fmt.Errorf("date: %w", err)
	}
	u, err := decodeUint(data, "little")
	if err != nil {
		return nil, fmt.Errorf("date: %w", err)
	}
	if name, ok := ann.Name(u); ok {
		return name, nil
	}
	return strconv.FormatUint(u, 10), nil
}

func encodeDate(value any, args Args) ([]byte, error) {
	ann, err := args.Annotation("annotation")
	if err != nil {
		return nil, fmt.Errorf("date: %w", err)
	}
	if raw, ok := ann.Value(value); ok {
		value = raw
	}
	if s, ok := value.(string); ok {
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("date: %w", err)
		}
		return minimalLE(u), nil
	}
	u, ok := ToUint64(value)
	if !ok {
		return nil, fmt.Errorf("date: unexpected value %v (%T)", value, value)
	}
	return minimalLE(u), nil
}

// map: one value replaced by its annotation, otherwise shown in hex.

func decodeMap(data []byte, args Args) (any, error) {
	ann, err := args.Annotation("annotation")
	if err != nil {
		return nil, fmt.Errorf("map: %w", err)
	}
	if len(data) == 1 {
		if name, ok := ann.Name(int(data[0])); ok {
			return name, nil
		}
	}
	return hex.EncodeToString(data), nil
}

func encodeMap(value any, args Args) ([]byte, error) {
	ann, err := args.Annotation("annotation")
	if err != nil {
		return nil, fmt.Errorf("map: %w", err)
	}
	if raw, ok := ann.Value(value); ok {
		b, ok := ToInt64(raw)
		if !ok || b < 0 || b > 0xff {
			return nil, fmt.Errorf("map: annotation key %v is not a byte", raw)
		}
		return []byte{byte(b)}, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("map: %v is neither annotated nor a hex string", value)
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("map: %w", err)
	}
	return data, nil
}

// flags: a little-endian bit field exploded into named booleans. Annotated
// bits are always present; unannotated bits appear as flag_XX when set.

const flagPrefix = "flag_"

func decodeFlags(data []byte, args Args) (any, error) {
	ann, err := args.Annotation("annotation")
	if err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	bitfield, err := decodeUint(data, "little")
	if err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}

	flags := make(map[string]any)
	for i := 0; i < len(data)*8; i++ {
		flag := uint64(1) << i
		value := bitfield&flag != 0
		if name, ok := ann.Name(flag); ok {
			flags[fmt.Sprintf("%v", name)] = value
		} else if value {
			flags[fmt.Sprintf("%s%02x", flagPrefix, flag)] = true
		}
	}
	return flags, nil
}

func encodeFlags(value any, args Args) ([]byte, error) {
	ann, err := args.Annotation("annotation")
	if err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("flags: expected a mapping, got %T", value)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var bitfield uint64
	for _, key := range keys {
		set, ok := m[key].(bool)
		if !ok {
			return nil, fmt.Errorf("flags: %s must be a boolean, got %T", key, m[key])
		}
		if !set {
			continue
		}
		if raw, ok := ann.Value(key); ok {
			bit, ok := ToUint64(raw)
			if !ok {
				return nil, fmt.Errorf("flags: annotation key %v is not a bit value", raw)
			}
			bitfield |= bit
			continue
		}
		if !strings.HasPrefix(key, flagPrefix) {
			return nil, fmt.Errorf("flags: unknown flag %s", key)
		}
		bit, err := strconv.ParseUint(key[len(flagPrefix):], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("flags: %s: %w", key, err)
		}
		bitfield |= bit
	}
	return minimalLE(bitfield), nil
}
