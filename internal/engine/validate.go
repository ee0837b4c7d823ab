package engine

import (
	"strings"
	"unicode"
)

// maxLabelChars bounds stored concept labels. Longer inputs are truncated
// at a word boundary rather than rejected.
const maxLabelChars = 120

// normalizeLabel canonicalizes a raw concept label: trim, lowercase,
// collapse internal whitespace. Returns empty string when nothing remains.
func normalizeLabel(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxLabelChars {
		s = truncateClean(s, maxLabelChars)
	}
	return s
}

// normalizeBatch normalizes a batch of labels, dropping empties and
// duplicates while preserving first-seen order.
func normalizeBatch(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	labels := make([]string, 0, len(raw))
	for _, r := range raw {
		label := normalizeLabel(r)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels
}

// truncateClean truncates a string to maxLen, cutting at the last word boundary
// to avoid mid-word breaks.
func truncateClean(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	// Back up to last space
	truncated := s[:maxLen]
	if idx := strings.LastIndexFunc(truncated, unicode.IsSpace); idx > maxLen/2 {
		truncated = truncated[:idx]
	}
	return strings.TrimSpace(truncated)
}
