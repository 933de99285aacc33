// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package whatsapp

var (
	Translate   = translate
	TranslateQR = translateQR
	KindOf      = kindOf
	BodyOf      = bodyOf
	Muted       = muted
	StoreDSN    = storeDSN
)
