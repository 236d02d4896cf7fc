// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"
)

func plain() (*Printer, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewPrinterMode(&buf, ModePlain), &buf
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"rich", ModeRich},
		{"COLOR", ModeRich},
		{"plain", ModePlain},
		{"", ModePlain},
		{"bogus", ModePlain},
	}
	for _, tt := range tests {
		if got := ParseMode(tt.in); got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDetectMode(t *testing.T) {
	t.Setenv(EnvOutput, "")
	var buf bytes.Buffer
	if got := DetectMode(&buf); got != ModePlain {
		t.Errorf("DetectMode(buffer) = %v, want plain", got)
	}

	t.Setenv(EnvOutput, "rich")
	if got := DetectMode(&buf); got != ModeRich {
		t.Errorf("DetectMode with %s=rich = %v", EnvOutput, got)
	}
	if got := NewPrinter(&buf).Mode(); got != ModeRich {
		t.Errorf("NewPrinter mode = %v", got)
	}
}

func TestPrinter_PlainLines(t *testing.T) {
	p, buf := plain()
	p.Title("ignored")
	p.Success("done")
	p.Warning("careful")
	p.Error("failed")
	p.Text("raw")
	p.Location("a.zs", 3, 5, "class A {}")
	p.Diagnostic("a.zs", 1, 10, "error", `missing ";"`)
	p.Summary(1, 0, 2)

	want := strings.Join([]string{
		"OK: done",
		"WARN: careful",
		"ERROR: failed",
		"raw",
		"a.zs:3:5\tclass A {}",
		`a.zs:1:10: error: missing ";"`,
		"SUMMARY: errors=1 warnings=0 files=2",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("plain output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestPrinter_PlainTable(t *testing.T) {
	p, buf := plain()
	p.Table([]string{"NAME", "KIND"}, [][]string{{"Shape", "class"}, {"s", "variable"}})
	if got, want := buf.String(), "Shape\tclass\ns\tvariable\n"; got != want {
		t.Errorf("Table() = %q, want %q", got, want)
	}
}

func TestPrinter_RichTable(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterMode(&buf, ModeRich)
	p.Table([]string{"NAME", "KIND"}, [][]string{{"Shape", "class"}, {"s"}})

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("rich table has %d lines: %q", len(lines), buf.String())
	}
	for _, want := range []string{"NAME", "Shape", "class"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("rich table missing %q", want)
		}
	}
}

func TestPrinter_RichDiagnostic(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterMode(&buf, ModeRich)
	p.Diagnostic("a.zs", 2, 1, "error", "syntax error")
	p.Summary(0, 0, 1)
	out := buf.String()
	for _, want := range []string{"a.zs:2:1", "error:", "syntax error", "files"} {
		if !strings.Contains(out, want) {
			t.Errorf("rich output %q missing %q", out, want)
		}
	}
}
