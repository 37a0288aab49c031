package ai

import (
	"encoding/json"
	"strings"

	"tifo/pkg/errors"
)

// rawClassification is the provider-agnostic element shape expected in
// the model's JSON reply. Pointers distinguish missing from zero.
type rawClassification struct {
	Index           *int     `json:"index"`
	Category        string   `json:"category"`
	Score           *int     `json:"score"`
	Intensity       string   `json:"intensity"`
	SarcasmDetected bool     `json:"sarcasm_detected"`
	Topics          []string `json:"topics"`
	EmotionKeywords []string `json:"emotion_keywords"`
	Language        string   `json:"language"`
	MentionedClub   string   `json:"mentioned_club"`
}

// parseClassifications recovers classifications from free-form model
// output. The model's format is not contractually guaranteed, so parsing
// is deliberately tolerant: it accepts a bare JSON array, an object
// wrapping one, or a JSON fragment embedded in surrounding prose. It
// returns ErrInvalidResponse only when no recoverable fragment exists.
func parseClassifications(raw string) ([]rawClassification, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.Wrap(errors.ErrInvalidResponse, "empty payload")
	}

	// Fenced code blocks are common in model output.
	trimmed = stripCodeFences(trimmed)

	if out, ok := tryParse(trimmed); ok {
		return out, nil
	}

	// Grep for an embedded JSON array.
	if start, end := strings.Index(trimmed, "["), strings.LastIndex(trimmed, "]"); start >= 0 && end > start {
		if out, ok := tryParse(trimmed[start : end+1]); ok {
			return out, nil
		}
	}

	// Or an embedded wrapper object.
	if start, end := strings.Index(trimmed, "{"), strings.LastIndex(trimmed, "}"); start >= 0 && end > start {
		if out, ok := tryParse(trimmed[start : end+1]); ok {
			return out, nil
		}
	}

	return nil, errors.Wrap(errors.ErrInvalidResponse, "no recoverable JSON fragment")
}

// tryParse attempts the two accepted top-level shapes.
func tryParse(s string) ([]rawClassification, bool) {
	var arr []rawClassification
	if err := json.Unmarshal([]byte(s), &arr); err == nil {
		return arr, true
	}

	var wrapper struct {
		Results []rawClassification `json:"results"`
	}
	if err := json.Unmarshal([]byte(s), &wrapper); err == nil && wrapper.Results != nil {
		return wrapper.Results, true
	}

	return nil, false
}

func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
