package order

import "strings"

const (
	keySeparator = "|"

	// NoSelection stands in for a category without a chosen label.
	NoSelection = "-"
)

var keyEscaper = strings.NewReplacer(`\`, `\\`, keySeparator, `\`+keySeparator)

// escapeField makes a field unambiguous: separators and backslashes are
// escaped, and a label equal to NoSelection is written as `\-`.
func escapeField(s string) string {
	if s == NoSelection {
		return `\` + NoSelection
	}
	return keyEscaper.Replace(s)
}

// IdentityKey derives the cart identity of an item name plus its chosen options.
// Equal names with equal per-category labels produce equal keys regardless of
// map iteration order; categories outside Categories are ignored. Distinct
// inputs never share a key, even when a label contains the separator or is
// literally NoSelection.
func IdentityKey(name string, choices Choices) string {
	var b strings.Builder
	b.WriteString(escapeField(name))
	for _, cat := range Categories {
		b.WriteString(keySeparator)
		if label, ok := choices[cat]; ok && label != "" {
			b.WriteString(escapeField(label))
		} else {
			b.WriteString(NoSelection)
		}
	}
	return b.String()
}
