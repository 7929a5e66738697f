// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package binparser

// Run with:
//   go test -fuzz=FuzzDecode -fuzztime=60s
//   go test -fuzz=FuzzDecodeEncode -fuzztime=60s

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/MultiTechSystems/binparser/schema"
)

const fuzzTypes = `
types:
  short:
    size: 2
    function: int
  flags:
    function:
      name: flags
      args:
        annotation:
          1: has_name
          2: has_points
  point:
    size: 4
    function:
      name: struct
      args:
        fmt: <hh
        labels: [x, y]
`

const fuzzStructure = `
- name: flags
  type: flags
- name: name
  if:
    operands: [has_name]
  delimiter: [0]
- name: count
  type: int
- name: points
  if:
    operands: [has_points]
  for: count
  structure:
    - name: p
      type: point
- name: lines
  while:
    operator: ne
    operands: [tag, 0]
    term: end
  structure:
    - name: tag
      type: int
    - name: line
      delimiter: [10]
- size: 2
`

// FuzzDecode checks that no input makes the decoder panic.
func FuzzDecode(f *testing.F) {
	f.Add([]byte{0x03, 'a', 0x00, 0x01, 0x01, 0x00, 0xff, 0xff, 0x01, 'x', '\n', 0x00, 0xaa, 0xbb})
	f.Add([]byte{})
	f.Add([]byte{0x00})
	f.Add([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	f.Add(make([]byte, 256))

	s, err := schema.ParseStructure([]byte(fuzzStructure))
	if err != nil {
		f.Fatal(err)
	}
	ty, err := schema.ParseTypes([]byte(fuzzTypes))
	if err != nil {
		f.Fatal(err)
	}
	p, err := New(s, ty, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = p.Decode(data)
	})
}

// FuzzDecodeEncode checks that fixed size records survive a round trip.
func FuzzDecodeEncode(f *testing.F) {
	f.Add([]byte{0x02, 0x01, 0x34, 0x12, 0x02, 0x00, 0x00})
	f.Add([]byte{0x00})
	f.Add([]byte{0x05, 0xff, 0xff, 0xff})

	s, err := schema.ParseStructure([]byte(`
- name: count
  type: int
- name: records
  for: count
  structure:
    - name: id
      type: int
    - name: value
      type: short
`))
	if err != nil {
		f.Fatal(err)
	}
	ty, err := schema.ParseTypes([]byte(fuzzTypes))
	if err != nil {
		f.Fatal(err)
	}
	p, err := New(s, ty, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		r, err := p.Decode(data)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		out, err := p.Encode(r.Parsed)
		if err != nil {
			// truncated records cannot be encoded
			return
		}
		if !bytes.Equal(out.Data, data[:r.Offset]) {
			t.Errorf("Encode(Decode(%x)) = %x, want %x", data, out.Data, data[:r.Offset])
		}
	})
}
