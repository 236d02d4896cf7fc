// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package preprocess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const guardedSource = `
#include "123.zs"
#ifndef X
#define X
class X {
#if 1
  int y, xxxx;
#elif 2
  int z;
#else
  int z;
#endif
  private void foo() {
    int a = xxxx;
  }
}
#endif // X
`

func TestNormalize_ElseBranchSurvives(t *testing.T) {
	want := `
#include "123.zs"
//#ifndef X
#define X
class X {
//#if 1
//  int y, xxxx;
//#elif 2
//  int z;
//#else
  int z;
//#endif
  private void foo() {
    int a = xxxx;
  }
}
//#endif // X
`
	assert.Equal(t, want, Normalize(guardedSource))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no directives",
			input: "int a = 1;\nint b = 2;",
			want:  "int a = 1;\nint b = 2;",
		},
		{
			name:  "if without else keeps body",
			input: "#ifdef DEBUG\nint a;\n#endif",
			want:  "//#ifdef DEBUG\nint a;\n//#endif",
		},
		{
			name:  "indented directives",
			input: "class A {\n  #if X\n  int a;\n  #else\n  int b;\n  #endif\n}",
			want:  "class A {\n  //#if X\n//  int a;\n  //#else\n  int b;\n  //#endif\n}",
		},
		{
			name:  "define and undef untouched",
			input: "#define A 1\n#undef A",
			want:  "#define A 1\n#undef A",
		},
		{
			name:  "crlf lines",
			input: "#if A\r\nint a;\r\n#endif\r\n",
			want:  "//#if A\r\nint a;\r\n//#endif\r\n",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_IdempotentAndLinePreserving(t *testing.T) {
	inputs := []string{
		guardedSource,
		"#if A\n#if B\nx;\n#endif\n#else\ny;\n#endif\n",
		"  #ifndef G\n  #define G\n  #endif",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once))
		assert.Equal(t, strings.Count(in, "\n"), strings.Count(once, "\n"))
	}
}
