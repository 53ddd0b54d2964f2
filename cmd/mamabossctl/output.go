package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// result is what a command prints: data for the structured formats and a
// header plus rows for the table.
type result struct {
	data   any
	header []string
	rows   [][]string
}

type printer struct {
	format string
	quiet  bool
}

func newPrinter(format string, quiet bool) (*printer, error) {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return &printer{format: format, quiet: quiet}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q: use table, json or yaml", format)
	}
}

func (p *printer) print(w io.Writer, r result) error {
	switch p.format {
	case formatJSON:
		return printJSON(w, r.data)
	case formatYAML:
		return printYAML(w, r.data)
	default:
		return p.printTable(w, r)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printYAML goes through the JSON encoding so keys and values match the
// API, then re-emits it in block style with the original key order.
func printYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return err
	}
	blockStyle(&node)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		n.Style &^= yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func (p *printer) printTable(w io.Writer, r result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if !p.quiet && len(r.header) > 0 {
		fmt.Fprintln(tw, strings.Join(r.header, "\t"))
	}
	for _, row := range r.rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
