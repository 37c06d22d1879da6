package topics

import "strings"

// DefaultLabel is assigned when no keyword matches.
const DefaultLabel = "general"

// topicTable maps labels to their trigger keywords. Order matters: labels
// are emitted in table order so classification is deterministic.
var topicTable = []struct {
	label    string
	keywords []string
}{
	{"color", []string{"color", "colour", "colored", "coloured", "hue", "shade"}},
	{"appearance", []string{"look", "appearance", "shape", "form", "size"}},
	{"description", []string{"describe", "tell me about", "what is", "explain"}},
	{"summary", []string{"summarize", "summary", "main points", "overview"}},
	{"cultivation", []string{"grow", "plant", "cultivation", "garden", "care"}},
	{"habitat", []string{"where", "native", "habitat", "location", "found"}},
	{"uses", []string{"use", "purpose", "benefit", "application", "medicine"}},
}

// Classify maps a question to the set of topic labels whose keywords appear
// in it (case-insensitive substring match). Questions matching nothing get
// the default label. Never fails; purely advisory.
func Classify(question string) []string {
	q := strings.ToLower(question)
	var labels []string
	for _, entry := range topicTable {
		for _, kw := range entry.keywords {
			if strings.Contains(q, kw) {
				labels = append(labels, entry.label)
				break
			}
		}
	}
	if len(labels) == 0 {
		return []string{DefaultLabel}
	}
	return labels
}

// Distinct de-duplicates labels preserving first-seen order.
func Distinct(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	var out []string
	for _, label := range labels {
		if !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}
	return out
}
