// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package protocol

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Position encodings negotiated in initialize. zsls counts columns in
// bytes internally, which is the utf-8 encoding.
const (
	PositionEncodingUTF8  = "utf-8"
	PositionEncodingUTF16 = "utf-16"
)

// NegotiateEncoding picks utf-8 when the client offers it and falls back
// to utf-16, which every client must support.
func NegotiateEncoding(offered []string) string {
	for _, enc := range offered {
		if enc == PositionEncodingUTF8 {
			return PositionEncodingUTF8
		}
	}
	return PositionEncodingUTF16
}

// Lines converts columns between byte offsets and UTF-16 code units for
// one document.
//
// Thread Safety:
//
//	Lines is immutable after SplitLines and safe for concurrent use.
type Lines []string

// SplitLines indexes text by line.
func SplitLines(text string) Lines {
	return Lines(strings.Split(text, "\n"))
}

func (l Lines) line(n int) string {
	if n < 0 || n >= len(l) {
		return ""
	}
	return l[n]
}

// ToUTF16 converts a byte-column position to UTF-16 code units.
func (l Lines) ToUTF16(p Position) Position {
	p.Character = bytesToUTF16(l.line(p.Line), p.Character)
	return p
}

// FromUTF16 converts a UTF-16 position to a byte column.
func (l Lines) FromUTF16(p Position) Position {
	p.Character = utf16ToBytes(l.line(p.Line), p.Character)
	return p
}

// RangeToUTF16 converts both ends of r.
func (l Lines) RangeToUTF16(r Range) Range {
	return Range{Start: l.ToUTF16(r.Start), End: l.ToUTF16(r.End)}
}

// SemanticTokensToUTF16 re-encodes delta-encoded token data with UTF-16
// start columns and lengths. Tokens never span lines.
func (l Lines) SemanticTokensToUTF16(data []uint32) []uint32 {
	out := make([]uint32, 0, len(data))
	line, start := 0, 0
	prevLine, prevStart := 0, 0
	for i := 0; i+4 < len(data); i += 5 {
		if data[i] > 0 {
			line += int(data[i])
			start = 0
		}
		start += int(data[i+1])
		text := l.line(line)
		s := bytesToUTF16(text, start)
		e := bytesToUTF16(text, start+int(data[i+2]))

		deltaStart := s
		if line == prevLine {
			deltaStart = s - prevStart
		}
		out = append(out, uint32(line-prevLine), uint32(deltaStart), uint32(e-s), data[i+3], data[i+4])
		prevLine, prevStart = line, s
	}
	return out
}

// bytesToUTF16 counts the UTF-16 units in the first col bytes of line.
// Columns past the end of the line keep their excess unchanged.
func bytesToUTF16(line string, col int) int {
	if col <= 0 {
		return col
	}
	if col > len(line) {
		return bytesToUTF16(line, len(line)) + col - len(line)
	}
	units := 0
	for i := 0; i < col; {
		r, size := utf8.DecodeRuneInString(line[i:])
		if i+size > col {
			// Inside a multi-byte rune.
			break
		}
		units += utf16.RuneLen(r)
		i += size
	}
	return units
}

// utf16ToBytes is the inverse of bytesToUTF16. A column inside a
// surrogate pair maps to the start of its rune.
func utf16ToBytes(line string, units int) int {
	if units <= 0 {
		return units
	}
	n := 0
	for i := 0; i < len(line); {
		r, size := utf8.DecodeRuneInString(line[i:])
		w := utf16.RuneLen(r)
		if n+w > units {
			return i
		}
		n += w
		i += size
		if n == units {
			return i
		}
	}
	return len(line) + units - n
}
