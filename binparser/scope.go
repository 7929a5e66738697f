// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package binparser

// scope holds the values produced so far in one decode or encode call.
type scope struct {
	internal  map[string]any
	constants map[string]any
}

func newScope(constants map[string]any) *scope {
	return &scope{internal: map[string]any{}, constants: constants}
}

// valueOf resolves a token: a field seen earlier in this pass, then a
// constant, otherwise the token itself as a literal.
func (s *scope) valueOf(token any) any {
	name, ok := token.(string)
	if !ok {
		return token
	}
	if v, ok := s.internal[name]; ok {
		return v
	}
	if v, ok := s.constants[name]; ok {
		return v
	}
	return token
}

// store records a field value. Mappings are flattened so their members can
// be referenced on their own.
func (s *scope) store(name string, value any) {
	if m, ok := value.(map[string]any); ok {
		for k, v := range m {
			s.internal[k] = v
		}
		return
	}
	s.internal[name] = value
}
