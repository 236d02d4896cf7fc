// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/zsls/services/zs/protocol"
	"github.com/AleutianAI/zsls/services/zs/providers"
)

func newResolveCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "resolve FILE LINE COLUMN",
		Short: "Print the declaration of the identifier at a position",
		Long: `Resolve the identifier at LINE and COLUMN (both one-based) in FILE and
print where it is declared. Exits 1 when nothing resolves.`,
		Args: cobra.ExactArgs(3),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		pos, err := parsePosition(args[1], args[2])
		if err != nil {
			return err
		}
		return flags.runWith(cmd, nil, func(ctx context.Context, rt *runtime) error {
			doc, err := rt.document(ctx, args[0])
			if err != nil {
				return err
			}
			result := rt.svc.Resolve(ctx, doc, pos)
			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else {
				p := flags.printer(cmd)
				if !result.Resolved {
					p.Warning("unresolved")
				} else {
					p.Title(result.Kind + " " + result.Identifier)
					p.Location(result.FilePath, result.Range.Start.Line+1, result.Range.Start.Character+1, result.Declaration)
				}
			}
			if !result.Resolved {
				return errUnresolved
			}
			return nil
		})
	}
	return cmd
}

func newExportsCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "exports FILE",
		Short: "List the file-scope names a file exports",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the exports as JSON")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return flags.runWith(cmd, nil, func(ctx context.Context, rt *runtime) error {
			doc, err := rt.document(ctx, args[0])
			if err != nil {
				return err
			}
			exports := providers.Exports(doc.Tree)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), exports)
			}
			rows := make([][]string, 0, len(exports))
			for _, e := range exports {
				rows = append(rows, []string{e.Name, e.Kind, strconv.Itoa(e.Range.Start.Line + 1), e.Summary})
			}
			flags.printer(cmd).Table([]string{"NAME", "KIND", "LINE", "SUMMARY"}, rows)
			return nil
		})
	}
	return cmd
}

func newPreprocessCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "preprocess FILE",
		Short: "Print FILE with inactive conditional branches commented out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.runWith(cmd, nil, func(ctx context.Context, rt *runtime) error {
				doc, err := rt.document(ctx, args[0])
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), doc.Text)
				return err
			})
		},
	}
}

func newDiagnoseCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "diagnose FILE...",
		Short: "Report syntax errors; exits 1 if any file has errors",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print diagnostics as JSON keyed by file")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return flags.runWith(cmd, nil, func(ctx context.Context, rt *runtime) error {
			p := flags.printer(cmd)
			all := make(map[string][]protocol.Diagnostic, len(args))
			errCount, warnCount := 0, 0
			for _, path := range args {
				doc, err := rt.document(ctx, path)
				if err != nil {
					return err
				}
				diags := providers.Diagnostics(doc.Tree)
				all[path] = diags
				for _, d := range diags {
					severity := "warning"
					if d.Severity == protocol.SeverityError {
						severity = "error"
						errCount++
					} else {
						warnCount++
					}
					if !asJSON {
						p.Diagnostic(path, d.Range.Start.Line+1, d.Range.Start.Character+1, severity, d.Message)
					}
				}
			}
			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), all); err != nil {
					return err
				}
			} else {
				p.Summary(errCount, warnCount, len(args))
			}
			if errCount > 0 {
				return errDiagnostics
			}
			return nil
		})
	}
	return cmd
}

// parsePosition converts one-based CLI arguments to a zero-based position.
func parsePosition(line, col string) (protocol.Position, error) {
	l, err := strconv.Atoi(line)
	if err != nil || l < 1 {
		return protocol.Position{}, fmt.Errorf("invalid line %q: want a number >= 1", line)
	}
	c, err := strconv.Atoi(col)
	if err != nil || c < 1 {
		return protocol.Position{}, fmt.Errorf("invalid column %q: want a number >= 1", col)
	}
	return protocol.Position{Line: l - 1, Character: c - 1}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
