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
	"context"
	"time"

	"github.com/AleutianAI/zsls/services/zs/protocol"
	"github.com/AleutianAI/zsls/services/zs/resolver"
	"github.com/AleutianAI/zsls/services/zs/workspace"
)

// Declaration returns the location of the name that declares the
// reference at pos.
//
// Description:
//
//	The location is the declaring identifier in the file that owns it,
//	which differs from doc when resolution crossed an include. An include
//	path jumps to the start of the included file.
//
// Outputs:
//
//	[]protocol.Location - One location, or nil when nothing resolves.
func (s *Service) Declaration(ctx context.Context, doc *workspace.Document, pos protocol.Position) []protocol.Location {
	start := time.Now()
	ctx, span := startProviderSpan(ctx, "Declaration", doc.Path, pos)
	defer span.End()

	d := s.declarationAt(ctx, doc, pos)
	recordProvider(ctx, "declaration", time.Since(start), d != nil)
	if d == nil {
		return nil
	}

	if d.Kind == resolver.KindInclude {
		path, _, err := s.res.IncludeExports(ctx, resolver.IncludeTarget(d.Node), doc.Path)
		if err != nil {
			return nil
		}
		return []protocol.Location{{URI: protocol.PathToURI(path)}}
	}
	return []protocol.Location{{
		URI:   protocol.PathToURI(d.FilePath),
		Range: toRange(declaringName(d)),
	}}
}
