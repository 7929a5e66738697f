// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package codec

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// text: character data in the encoding named by the encoding argument
// (UTF-8 by default). An optional split byte sequence is the in-field line
// separator and is shown as a newline.

// lookupEncoding returns nil for UTF-8, which is passed through unchanged
// so arbitrary bytes survive a round trip.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", name)
}

func textArgs(args Args) (encoding.Encoding, []byte, error) {
	name, err := args.String("encoding", "utf-8")
	if err != nil {
		return nil, nil, err
	}
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, nil, err
	}
	split, err := args.Bytes("split")
	if err != nil {
		return nil, nil, err
	}
	return enc, split, nil
}

func decodeText(data []byte, args Args) (any, error) {
	enc, split, err := textArgs(args)
	if err != nil {
		return nil, fmt.Errorf("text: %w", err)
	}
	if len(split) > 0 {
		data = bytes.ReplaceAll(data, split, []byte("\n"))
	}
	if enc == nil {
		return string(data), nil
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("text: %w", err)
	}
	return string(decoded), nil
}

func encodeText(value any, args Args) ([]byte, error) {
	enc, split, err := textArgs(args)
	if err != nil {
		return nil, fmt.Errorf("text: %w", err)
	}

	var s string
	switch v := value.(type) {
	case string:
		s = v
	case nil:
	case int, int64, uint64, float64, bool:
		// YAML input turns unquoted digits into numbers.
		s = fmt.Sprint(v)
	default:
		return nil, fmt.Errorf("text: expected a string, got %T", value)
	}

	data := []byte(s)
	if enc != nil {
		data, err = enc.NewEncoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("text: %w", err)
		}
	}
	if len(split) > 0 {
		data = bytes.ReplaceAll(data, []byte("\n"), split)
	}
	return data, nil
}
