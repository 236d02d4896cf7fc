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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNegotiateEncoding(t *testing.T) {
	assert.Equal(t, PositionEncodingUTF8, NegotiateEncoding([]string{"utf-16", "utf-8"}))
	assert.Equal(t, PositionEncodingUTF16, NegotiateEncoding([]string{"utf-32", "utf-16"}))
	assert.Equal(t, PositionEncodingUTF16, NegotiateEncoding(nil))
}

func TestLines_ColumnConversion(t *testing.T) {
	lines := SplitLines("é = x\n𝄞a\nab")

	tests := []struct {
		name  string
		bytes Position
		utf16 Position
	}{
		{"line start", Position{0, 0}, Position{0, 0}},
		{"after two-byte rune", Position{0, 3}, Position{0, 2}},
		{"line end", Position{0, 6}, Position{0, 5}},
		{"after surrogate pair", Position{1, 4}, Position{1, 2}},
		{"after pair and ascii", Position{1, 5}, Position{1, 3}},
		{"ascii is identity", Position{2, 1}, Position{2, 1}},
		{"past line end keeps excess", Position{2, 5}, Position{2, 5}},
		{"past last line", Position{9, 3}, Position{9, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.utf16, lines.ToUTF16(tt.bytes))
			assert.Equal(t, tt.bytes, lines.FromUTF16(tt.utf16))
		})
	}

	// Inside a surrogate pair maps back to the rune start.
	assert.Equal(t, Position{1, 0}, lines.FromUTF16(Position{1, 1}))
	// Inside a multi-byte rune counts only the complete runes.
	assert.Equal(t, Position{0, 0}, lines.ToUTF16(Position{0, 1}))

	assert.Equal(t,
		Range{Start: Position{0, 2}, End: Position{0, 5}},
		lines.RangeToUTF16(Range{Start: Position{0, 3}, End: Position{0, 6}}))
}

func TestLines_SemanticTokensToUTF16(t *testing.T) {
	lines := SplitLines("éa ü\ny")
	// a at byte 2, ü at byte 4 (two bytes), y on the next line.
	data := []uint32{
		0, 2, 1, 3, 0,
		0, 2, 2, 4, 1,
		1, 0, 1, 3, 0,
	}
	assert.Equal(t, []uint32{
		0, 1, 1, 3, 0,
		0, 2, 1, 4, 1,
		1, 0, 1, 3, 0,
	}, lines.SemanticTokensToUTF16(data))
	assert.Empty(t, lines.SemanticTokensToUTF16(nil))
}
