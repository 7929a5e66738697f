// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package binparser

import (
	"errors"
	"fmt"
)

// ErrEndOfStream is returned by the byte cursor when a read is attempted at
// or past the end of the input. Decode treats it as a clean stop and never
// returns it.
var ErrEndOfStream = errors.New("end of stream")

// ErrMissingValue is returned by Encode when the value tree lacks a value
// the structure asks for.
var ErrMissingValue = errors.New("missing value")

// ErrInvalidDebug is returned by New for a debug bitmask outside 0..3.
var ErrInvalidDebug = errors.New("invalid debug level")

// CodecError reports a codec function that could not interpret its input.
type CodecError struct {
	Field  string
	Func   string
	Offset int
	Err    error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("field %s at offset 0x%06x: %s: %v", e.Field, e.Offset, e.Func, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }
