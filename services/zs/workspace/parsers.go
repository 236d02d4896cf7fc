// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package workspace

import (
	"fmt"

	"github.com/smacker/go-tree-sitter/java"

	"github.com/AleutianAI/zsls/services/zs/parser"
	"github.com/AleutianAI/zsls/services/zs/syntax"
)

// Parser backends selectable by name.
const (
	// ParserZS is the native ZS parser. It understands the whole language.
	ParserZS = "zs"

	// ParserTreeSitterJava parses with the tree-sitter Java grammar. Its
	// node vocabulary matches ZS for classes, interfaces, members, locals
	// and member access; ZS-only syntax such as #include and str becomes
	// ERROR or unknown nodes.
	ParserTreeSitterJava = "tree-sitter-java"
)

// NewParser returns the parser backend called name. An empty name selects
// ParserZS.
//
// Outputs:
//
//	Parser - The backend, safe for concurrent use.
//	error  - ErrUnknownParser for any other name.
func NewParser(name string, opts ...parser.Option) (Parser, error) {
	switch name {
	case "", ParserZS:
		return parser.New(opts...), nil
	case ParserTreeSitterJava:
		return syntax.NewSitterParser(java.GetLanguage()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownParser, name)
	}
}
