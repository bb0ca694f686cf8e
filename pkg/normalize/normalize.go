// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

// Package normalize canonicalizes user-supplied identifiers before lookup.
//
// # Why normalize?
//
// Usernames arrive from many client platforms with inconsistent Unicode
// composition (e.g., "é" as one code point or as "e" + combining acute).
// Without canonicalization, two visually identical usernames would resolve
// to different credential records, which breaks both login and the
// account-level lockout keying.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Username canonicalizes a username for storage and lookup.
//
// # Transformation Pipeline
//
// 1. Trims surrounding whitespace.
// 2. Applies Unicode NFKC normalization (compatibility composition) so that
// visually equivalent sequences collapse to a single form.
// 3. Lowercases the result.
func Username(raw string) string {
	trimmed := strings.TrimSpace(raw)
	composed := norm.NFKC.String(trimmed)
	return strings.ToLower(composed)
}
