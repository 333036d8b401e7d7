// Package quiz types the multiple-choice artifacts produced by one
// generation call. A quiz set is created atomically and never mutated.
package quiz

import (
	"errors"
	"fmt"
	"strings"

	"mindloom/internal/extract"
)

// OptionCount is the fixed number of choices per question.
const OptionCount = 4

type Item struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// ParseSet extracts the quiz array embedded in model text. Elements that
// fail validation are returned as-is; deciding whether to filter them is the
// caller's call, reported separately via InvalidIndices.
func ParseSet(text string) ([]Item, error) {
	var items []Item
	if err := extract.ArrayInto(text, &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &extract.ExtractionError{Raw: text, Err: errors.New("quiz array is empty")}
	}
	return items, nil
}

// Validate checks the structural contract of one question.
func (i Item) Validate() error {
	if strings.TrimSpace(i.Question) == "" {
		return errors.New("question is empty")
	}
	if len(i.Options) != OptionCount {
		return fmt.Errorf("expected %d options, got %d", OptionCount, len(i.Options))
	}
	for _, option := range i.Options {
		if i.Answer == option {
			return nil
		}
	}
	return fmt.Errorf("answer %q is not one of the options", i.Answer)
}

// InvalidIndices reports which items of a parsed set fail validation.
func InvalidIndices(items []Item) []int {
	var invalid []int
	for index, item := range items {
		if err := item.Validate(); err != nil {
			invalid = append(invalid, index)
		}
	}
	return invalid
}
