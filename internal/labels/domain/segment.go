package labels

import "strings"

// Segment turns a camelCase or PascalCase identifier into a space separated
// display label, e.g. "TotalACOutputActivePower" -> "Total AC Output Active Power".
//
// Letters are never added, dropped or re-cased. A trailing acronym run stays
// fused ("InputACPV" -> "Input ACPV") because the acronym-end rule needs a
// lowercase letter after the run.
func Segment(identifier string) string {
	if len(identifier) < 2 {
		return identifier
	}
	return splitAcronymEnds(splitLowerUpper(identifier))
}

// splitLowerUpper cuts between a lowercase letter and the uppercase letter after it.
func splitLowerUpper(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	for i := 0; i < len(s); i++ {
		if i > 0 && isLower(s[i-1]) && isUpper(s[i]) {
			b.WriteByte(' ')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// splitAcronymEnds cuts an acronym run from the capitalised word that follows
// it: for every upper, upper, lower triple the cut goes after the first letter.
func splitAcronymEnds(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	for i := 0; i < len(s); i++ {
		if i > 0 && i+1 < len(s) && isUpper(s[i-1]) && isUpper(s[i]) && isLower(s[i+1]) {
			b.WriteByte(' ')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
