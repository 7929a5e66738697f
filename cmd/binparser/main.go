// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Command binparser converts binary files to YAML and back using a
// structure and types schema.
//
//	binparser read [-p] [-d N] INPUT STRUCTURE TYPES OUTPUT
//	binparser write [-d N] INPUT STRUCTURE TYPES OUTPUT
//
// An OUTPUT of "-" writes to standard output.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/MultiTechSystems/binparser/binparser"
	"github.com/MultiTechSystems/binparser/schema"
)

const argsUsage = "INPUT STRUCTURE TYPES OUTPUT"

var (
	debugFlag = cli.IntFlag{
		Name:  "debug, d",
		Usage: "debug bitmask (1=internal variables, 2=field trace)",
	}
	pruneFlag = cli.BoolFlag{
		Name:  "prune, p",
		Usage: "drop unnamed fields from the output",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "binparser"
	app.Usage = "convert binary data to YAML and back"
	app.Version = "0.1.0"
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr
	app.Commands = []cli.Command{
		{
			Name:      "read",
			Usage:     "decode INPUT into a YAML value tree",
			ArgsUsage: argsUsage,
			Flags:     []cli.Flag{pruneFlag, debugFlag},
			Action:    readAction,
		},
		{
			Name:      "write",
			Usage:     "encode a YAML value tree from INPUT",
			ArgsUsage: argsUsage,
			Flags:     []cli.Flag{debugFlag},
			Action:    writeAction,
		},
	}
	return app
}

type paths struct {
	input, structure, types, output string
}

func parseArgs(c *cli.Context) (paths, error) {
	if c.NArg() != 4 {
		return paths{}, fmt.Errorf("%s: expected %s, got %d argument(s)", c.Command.Name, argsUsage, c.NArg())
	}
	args := c.Args()
	return paths{input: args.Get(0), structure: args.Get(1), types: args.Get(2), output: args.Get(3)}, nil
}

func readAction(c *cli.Context) error {
	p, err := parseArgs(c)
	if err != nil {
		return err
	}
	debug := c.Int("debug")
	parser, err := loadParser(p, binparser.WithPrune(c.Bool("prune")), binparser.WithDebug(debug))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(p.input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	r, err := parser.Decode(data)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(r.Parsed)
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := writeOutput(c, p.output, append([]byte("---\n"), out...)); err != nil {
		return err
	}
	if debug != 0 {
		return r.WriteDebugInfo(c.App.ErrWriter, debug)
	}
	return nil
}

func writeAction(c *cli.Context) error {
	p, err := parseArgs(c)
	if err != nil {
		return err
	}
	debug := c.Int("debug")
	parser, err := loadParser(p, binparser.WithDebug(debug))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(p.input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse input: %w", err)
	}
	if parsed == nil {
		parsed = map[string]any{}
	}

	out, err := parser.Encode(parsed)
	if err != nil {
		return err
	}
	if err := writeOutput(c, p.output, out.Data); err != nil {
		return err
	}
	if debug != 0 {
		return out.WriteDebugInfo(c.App.ErrWriter, debug)
	}
	return nil
}

func loadParser(p paths, opts ...binparser.Option) (*binparser.Parser, error) {
	raw, err := os.ReadFile(p.structure)
	if err != nil {
		return nil, fmt.Errorf("failed to read structure: %w", err)
	}
	structure, err := schema.ParseStructure(raw)
	if err != nil {
		return nil, err
	}

	raw, err = os.ReadFile(p.types)
	if err != nil {
		return nil, fmt.Errorf("failed to read types: %w", err)
	}
	types, err := schema.ParseTypes(raw)
	if err != nil {
		return nil, err
	}

	parser, err := binparser.New(structure, types, opts...)
	if err != nil {
		return nil, err
	}
	if parser.Debug()&binparser.DebugTrace != 0 {
		level.Set(slog.LevelDebug)
	}
	return parser, nil
}

func writeOutput(c *cli.Context, path string, data []byte) error {
	if path == "-" {
		if _, err := c.App.Writer.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
