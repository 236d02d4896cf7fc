// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package preprocess neutralizes conditional-compilation directives so the
// parser sees exactly one branch of every #if block.
package preprocess

import "strings"

const commentPrefix = "//"

// Normalize comments out conditional-compilation directives.
//
// Description:
//
//	Lines whose trimmed text starts with "#if" (covering #ifdef and
//	#ifndef) or "#endif" are commented in place after their indentation.
//	An "#else" line is commented and so is every line above it, up to but
//	excluding the nearest line already commented as "//#if". All other lines, #elif and
//	#define included, are left alone. The surviving branch is the #else
//	body when present, otherwise the #if body.
//
// Inputs:
//
//	text - Raw source text.
//
// Outputs:
//
//	string - Text with the same number of lines. Untouched lines keep their
//	         byte columns. Normalize(Normalize(x)) == Normalize(x).
//
// Thread Safety:
//
//	Safe for concurrent use.
func Normalize(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#if"), strings.HasPrefix(trimmed, "#endif"):
			lines[i] = comment(line)
		case strings.HasPrefix(trimmed, "#else"):
			lines[i] = comment(line)
			commentBranchAbove(lines, i)
		}
	}
	return strings.Join(lines, "\n")
}

// commentBranchAbove comments lines above i until the opening "//#if".
func commentBranchAbove(lines []string, i int) {
	for j := i - 1; j >= 0; j-- {
		trimmed := strings.TrimSpace(lines[j])
		if strings.HasPrefix(trimmed, commentPrefix+"#if") {
			return
		}
		lines[j] = commentPrefix + lines[j]
	}
}

// comment inserts the comment marker after the indentation of a
// directive line.
func comment(line string) string {
	body := strings.TrimLeft(line, " \t")
	return line[:len(line)-len(body)] + commentPrefix + body
}
