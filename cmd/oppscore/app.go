package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/onnwee/oppscore/internal/record"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"

	stdinPath = "-"
)

var version = "v0.1.0-default"

var (
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs to stderr",
	}

	formatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"o"},
		Usage:   "Output format [json, yaml]",
		Value:   formatJSON,
	}

	inputFlag = &cli.StringFlag{
		Name:    "input",
		Aliases: []string{"i"},
		Usage:   "JSON or YAML file holding a list of records (or {records: [...]}), - for stdin",
		Value:   stdinPath,
	}
)

// errEmptyInput is returned when the input holds no records.
var errEmptyInput = errors.New("input contains no records")

func newApp() *cli.Command {
	return &cli.Command{
		Name:            "oppscore",
		Version:         version,
		Usage:           "Score opportunity records and rank similar ones",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			debugFlag,
			formatFlag,
		},
		Commands: []*cli.Command{
			scoreCmd,
			rankCmd,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool(debugFlag.Name) {
				initLogging(true)
			}
			switch cmd.String(formatFlag.Name) {
			case formatJSON, formatYAML, "yml":
				return ctx, nil
			default:
				return ctx, fmt.Errorf("unsupported output format %q", cmd.String(formatFlag.Name))
			}
		},
	}
}

// initLogging sends logs to stderr so stdout carries only command output.
func initLogging(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
}

// encode writes v to the command's writer in the selected format.
func encode(cmd *cli.Command, v any) error {
	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	if f := cmd.String(formatFlag.Name); f == formatYAML || f == "yml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml output: %w", err)
		}
		return enc.Close()
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	if err := e.Encode(v); err != nil {
		return fmt.Errorf("encoding json output: %w", err)
	}
	return nil
}

// readRecords loads records from path, or from the command's reader when
// path is "-".
func readRecords(cmd *cli.Command, path string) ([]record.Record, error) {
	if path == "" || path == stdinPath {
		r := cmd.Root().Reader
		if r == nil {
			r = os.Stdin
		}
		return decodeRecords(r)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()
	return decodeRecords(f)
}

// decodeRecords accepts a YAML or JSON document holding either a list of
// records or a mapping with a records key.
func decodeRecords(r io.Reader) ([]record.Record, error) {
	var node yaml.Node
	if err := yaml.NewDecoder(r).Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errEmptyInput
		}
		return nil, fmt.Errorf("parsing input: %w", err)
	}

	doc := &node
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}

	var recs []record.Record
	if doc.Kind == yaml.MappingNode {
		var file struct {
			Records []record.Record `yaml:"records"`
		}
		if err := doc.Decode(&file); err != nil {
			return nil, fmt.Errorf("parsing records: %w", err)
		}
		recs = file.Records
	} else if err := doc.Decode(&recs); err != nil {
		return nil, fmt.Errorf("parsing records: %w", err)
	}

	if len(recs) == 0 {
		return nil, errEmptyInput
	}
	return recs, nil
}
