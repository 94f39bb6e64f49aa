// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package h2k

import "strings"

// normalizeTypeName canonicalizes a declared column type name: trim,
// upper-case, strip parenthesized parameters (VARCHAR(10) -> VARCHAR),
// normalize array syntax (T[] and ARRAY<T> -> "T ARRAY"), replace
// underscores with spaces, and collapse whitespace runs to a single
// space. An empty or all-whitespace input normalizes to "VARCHAR".
func normalizeTypeName(typeName string) string {
	t := strings.ToUpper(strings.TrimSpace(typeName))
	if t == "" {
		return "VARCHAR"
	}
	t = stripParenParams(t)
	t = normalizeArraySyntax(t)
	t = strings.ReplaceAll(t, "_", " ")
	return collapseSpaces(t)
}

// stripParenParams removes a trailing "(...)" parameter list:
// VARCHAR(100) -> VARCHAR, DECIMAL(10,2) -> DECIMAL.
func stripParenParams(t string) string {
	p := strings.IndexByte(t, '(')
	if p < 0 {
		return t
	}
	q := strings.IndexByte(t[p+1:], ')')
	if q >= 0 {
		return strings.TrimSpace(t[:p] + t[p+1+q+1:])
	}
	return strings.TrimSpace(t[:p])
}

// normalizeArraySyntax unifies array type spellings: T[] and ARRAY<T>
// both become "T ARRAY", with the inner type also stripped of
// parameters.
func normalizeArraySyntax(t string) string {
	if strings.HasSuffix(t, "[]") {
		base := strings.TrimSpace(t[:len(t)-2])
		return stripParenParams(base) + " ARRAY"
	}
	if strings.HasPrefix(t, "ARRAY<") && strings.HasSuffix(t, ">") {
		inner := strings.TrimSpace(t[len("ARRAY<") : len(t)-1])
		return stripParenParams(inner) + " ARRAY"
	}
	return t
}

// collapseSpaces collapses runs of whitespace to a single space.
func collapseSpaces(t string) string {
	var sb strings.Builder
	sb.Grow(len(t))
	space := false
	for _, c := range t {
		switch c {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				sb.WriteByte(' ')
				space = true
			}
		default:
			sb.WriteRune(c)
			space = false
		}
	}
	return sb.String()
}

// decimalSynonyms folds the DECIMAL family's explicit name-level
// synonyms (§4.3: "DECIMAL/NUMERIC/NUMBER"). Other families
// (BOOLEAN/BOOL, INTEGER/INT, BIGINT/LONG, UNSIGNED_*) keep their
// surface spelling out of normalization; the decoder's dispatch table
// recognizes those spellings directly instead.
var decimalSynonyms = map[string]bool{
	"NUMERIC": true,
	"NUMBER":  true,
}

// resolveTypeName canonicalizes typeName and folds DECIMAL's explicit
// synonyms, so "NUMBER(10,2)" resolves to "DECIMAL" the same as
// "DECIMAL(10,2)".
func resolveTypeName(typeName string) string {
	n := normalizeTypeName(typeName)
	if decimalSynonyms[n] {
		return "DECIMAL"
	}
	return n
}
