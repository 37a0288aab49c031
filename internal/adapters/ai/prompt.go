package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"tifo/internal/domain/post"
	"tifo/internal/domain/sentiment"
)

// systemInstruction describes the fixed 10-category taxonomy to the model.
// Every provider receives the same instruction; only transport differs.
func systemInstruction(domain DomainContext) string {
	var b strings.Builder

	b.WriteString("You classify the sentiment of short social-media posts written by football fans.\n")
	b.WriteString("Assign each post exactly one category from this fixed taxonomy, with a score inside the category's range:\n")
	for _, c := range sentiment.Categories {
		min, max := c.Range()
		fmt.Fprintf(&b, "- %s: %d-%d\n", c, min, max)
	}
	b.WriteString("Also report intensity (Weak, Moderate, Strong, Extreme), whether the post is sarcastic, ")
	b.WriteString("up to five short topics, emotion keywords, the ISO language code, ")
	b.WriteString("and the mentioned club name if any.\n")

	if len(domain.Clubs) > 0 {
		fmt.Fprintf(&b, "Clubs in scope: %s.\n", strings.Join(domain.Clubs, ", "))
	}
	if len(domain.Players) > 0 {
		fmt.Fprintf(&b, "Known players: %s.\n", strings.Join(domain.Players, ", "))
	}

	b.WriteString("Respond with a JSON array only. Each element: ")
	b.WriteString(`{"index": <input index>, "category": "...", "score": <int>, "intensity": "...", ` +
		`"sarcasm_detected": <bool>, "topics": [...], "emotion_keywords": [...], ` +
		`"language": "...", "mentioned_club": "..."}`)

	return b.String()
}

// batchPayload renders the posts of one batch as the JSON document sent
// in the user turn.
func batchPayload(posts []post.RawPost) (string, error) {
	type item struct {
		Index    int    `json:"index"`
		Platform string `json:"platform"`
		Content  string `json:"content"`
	}

	items := make([]item, len(posts))
	for i, p := range posts {
		items[i] = item{Index: i, Platform: string(p.Platform), Content: p.Content}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
