// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package binparser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// WriteDebugInfo writes the decode report: the internal scope when debug
// has DebugInternal set, then how far the parse got.
func (r *Result) WriteDebugInfo(w io.Writer, debug int) error {
	if err := writeInternal(w, r.Internal, debug); err != nil {
		return err
	}

	parsed := r.Size - r.RawBytes
	percent := 0
	if r.Size > 0 {
		percent = parsed * 100 / r.Size
	}
	_, err := fmt.Fprintf(w, "Reached byte %d out of %d.\n%d bytes parsed (%d%%).\n",
		r.Offset, r.Size, parsed, percent)
	return err
}

// WriteDebugInfo writes the encode report: the internal scope when debug
// has DebugInternal set, then the output size.
func (o *Output) WriteDebugInfo(w io.Writer, debug int) error {
	if err := writeInternal(w, o.Internal, debug); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d bytes written.\n", len(o.Data))
	return err
}

func writeInternal(w io.Writer, internal map[string]any, debug int) error {
	if debug&DebugInternal != 0 {
		if _, err := io.WriteString(w, "--- INTERNAL VARIABLES ---\n\n"); err != nil {
			return err
		}
		if len(internal) > 0 {
			out, err := yaml.Marshal(internal)
			if err != nil {
				return fmt.Errorf("failed to dump internal variables: %w", err)
			}
			if _, err := w.Write(out); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "--- DEBUG INFO ---\n\n")
	return err
}
