// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package binparser

import (
	"encoding/hex"
	"testing"

	"github.com/MultiTechSystems/binparser/schema"
)

const benchStructure = `
- name: name
- name: year_of_birth
  type: short
- name: count
  type: int
- name: entries
  for: count
  structure:
    - name: id
      type: int
    - name: amount
      type: short
`

// name "John Doe", 1999, three entries
var benchPayloadHex = "4a6f686e20446f6500cf070301e80302d00703b80b"

func newBenchParser(b *testing.B, structure, types string) *Parser {
	b.Helper()
	s, err := schema.ParseStructure([]byte(structure))
	if err != nil {
		b.Fatalf("Failed to parse structure: %v", err)
	}
	ty, err := schema.ParseTypes([]byte(types))
	if err != nil {
		b.Fatalf("Failed to parse types: %v", err)
	}
	p, err := New(s, ty)
	if err != nil {
		b.Fatalf("Failed to build parser: %v", err)
	}
	return p
}

func BenchmarkDecode(b *testing.B) {
	payload, _ := hex.DecodeString(benchPayloadHex)
	p := newBenchParser(b, benchStructure, balanceTypes)

	// Warmup and verify
	r, err := p.Decode(payload)
	if err != nil {
		b.Fatalf("Failed to decode: %v", err)
	}
	if r.Parsed["year_of_birth"] != 1999 {
		b.Fatalf("Unexpected year_of_birth: %v", r.Parsed["year_of_birth"])
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Decode(payload)
	}
}

func BenchmarkDecodeWithParse(b *testing.B) {
	payload, _ := hex.DecodeString(benchPayloadHex)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := newBenchParser(b, benchStructure, balanceTypes)
		_, _ = p.Decode(payload)
	}
}

func BenchmarkEncode(b *testing.B) {
	payload, _ := hex.DecodeString(benchPayloadHex)
	p := newBenchParser(b, benchStructure, balanceTypes)
	r, err := p.Decode(payload)
	if err != nil {
		b.Fatalf("Failed to decode: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Encode(r.Parsed)
	}
}
