// Package safety interprets the cooperative markers the model is instructed
// to append to its replies. The crisis signal is the model's own judgement,
// not a deterministic classifier; keeping it behind this package lets a
// secondary classifier be substituted without touching the conversation
// machinery.
package safety

import (
	"regexp"
	"strings"
)

// CrisisMarker is the literal token the prompt instructs the model to emit
// when it judges the user's emotional state to be severe.
const CrisisMarker = "[FLAG:CRISIS]"

var reactPattern = regexp.MustCompile(`\[REACT:([^\]]*)\]`)

// Classification is the outcome of scanning one model reply.
type Classification struct {
	IsCrisis  bool
	CleanText string
	Reactions []string
}

// Classify detects and strips the crisis marker and the optional reaction
// annotation. Text without either marker is the common case, not an error.
func Classify(text string) Classification {
	result := Classification{}

	if strings.Contains(text, CrisisMarker) {
		result.IsCrisis = true
		text = strings.ReplaceAll(text, CrisisMarker, "")
	}

	if match := reactPattern.FindStringSubmatch(text); match != nil {
		result.Reactions = splitReactions(match[1])
		text = reactPattern.ReplaceAllString(text, "")
	}

	result.CleanText = strings.TrimSpace(text)
	return result
}

func splitReactions(raw string) []string {
	parts := strings.Split(raw, ",")
	reactions := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			reactions = append(reactions, trimmed)
		}
	}
	return reactions
}
