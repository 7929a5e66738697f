// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package binparser

import "bytes"

// framing describes how one field is cut out of, or laid into, the stream.
type framing struct {
	Size      int
	Delimiter []byte
	Reverse   bool
	Trim      byte
	HasTrim   bool
}

// cursor is the read side: a linear position over the input.
type cursor struct {
	data   []byte
	offset int
}

func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

// Remaining returns the number of bytes not yet consumed.
func (c *cursor) Remaining() int {
	return len(c.data) - c.offset
}

// Read extracts one field and advances past it, delimiter included.
func (c *cursor) Read(f framing) ([]byte, error) {
	if c.offset >= len(c.data) {
		return nil, ErrEndOfStream
	}

	var field []byte
	if f.Size > 0 {
		end := c.offset + f.Size
		if end > len(c.data) {
			return nil, ErrEndOfStream
		}
		field = c.data[c.offset:end]
		c.offset = end
		if len(f.Delimiter) > 0 {
			// a variable sized value in a fixed sized slot
			if i := bytes.Index(field, f.Delimiter); i >= 0 {
				field = field[:i]
			}
		}
	} else {
		// The scan stops short of the last byte, which terminates the
		// field when no delimiter is found before it.
		window := c.data[c.offset : len(c.data)-1]
		i := -1
		if len(f.Delimiter) > 0 {
			i = bytes.Index(window, f.Delimiter)
		}
		if i >= 0 {
			field = window[:i]
			c.offset += i + len(f.Delimiter)
		} else {
			field = window
			c.offset = len(c.data)
		}
	}

	if f.Reverse {
		field = reversed(field)
	}
	if f.HasTrim {
		field = bytes.TrimRight(field, string([]byte{f.Trim}))
	}
	return field, nil
}

// sink is the write side: a growing output buffer.
type sink struct {
	buf []byte
}

// Len returns the number of bytes written so far.
func (s *sink) Len() int {
	return len(s.buf)
}

// Write appends one field, undoing what Read does. A reversed fixed slot is
// padded before it is reversed so the padding lands where Read trims it. The
// delimiter goes in before the trailing padding so a delimited value in a
// fixed slot reads back the same; a value longer than the slot is clipped,
// which can drop the delimiter.
func (s *sink) Write(data []byte, f framing) {
	field := append([]byte{}, data...)
	if f.Reverse {
		if len(f.Delimiter) == 0 {
			field = pad(field, f.Size, f.Trim)
		}
		field = reversed(field)
	}
	field = append(field, f.Delimiter...)

	if f.Size > 0 {
		field = pad(field, f.Size, f.Trim)[:f.Size]
	}
	s.buf = append(s.buf, field...)
}

func pad(b []byte, size int, fill byte) []byte {
	for len(b) < size {
		b = append(b, fill)
	}
	return b
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}
