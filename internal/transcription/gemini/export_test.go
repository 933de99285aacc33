// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package gemini

var (
	BuildContents = buildContents
	BaseMime      = baseMime
	Unquote       = unquote
)
