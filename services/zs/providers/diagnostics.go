// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package providers

import (
	"fmt"

	"github.com/AleutianAI/zsls/services/zs/protocol"
	"github.com/AleutianAI/zsls/services/zs/syntax"
)

// DiagnosticSource is the source reported on every diagnostic.
const DiagnosticSource = "zsls"

// DiagnosticCodeSyntax is the code of parse diagnostics.
const DiagnosticCodeSyntax = "syntax"

// Diagnostics reports the parse errors of tree in source order.
//
// Description:
//
//	Each ERROR node yields one "syntax error" spanning the node; nested
//	errors inside it are not reported again. Each MISSING node yields
//	missing "<symbol>" at its zero-width position.
func Diagnostics(tree *syntax.Tree) []protocol.Diagnostic {
	out := []protocol.Diagnostic{}
	if tree == nil {
		return out
	}
	tree.Root().Walk(func(n syntax.Node) bool {
		switch {
		case n.IsError():
			out = append(out, syntaxDiagnostic(toRange(n), "syntax error"))
			return false
		case n.IsMissing():
			out = append(out, syntaxDiagnostic(toRange(n), fmt.Sprintf("missing %q", n.Type())))
		}
		return true
	})
	return out
}

func syntaxDiagnostic(rng protocol.Range, message string) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    rng,
		Severity: protocol.SeverityError,
		Code:     DiagnosticCodeSyntax,
		Source:   DiagnosticSource,
		Message:  message,
	}
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(diags []protocol.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == protocol.SeverityError {
			return true
		}
	}
	return false
}
