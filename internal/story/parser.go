package story

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StructuredTurn is the parsed triple extracted from a raw model reply.
type StructuredTurn struct {
	NarrativeChapter string
	NextChoices      []string
	ImagePrompt      string
}

// ParseError means the model reply could not be parsed into a StructuredTurn.
// It carries the raw offending text so failures can be diagnosed without
// server-side log access.
type ParseError struct {
	RawReply string
	Reason   string
}

func (e *ParseError) Error() string {
	return "failed to parse model reply: " + e.Reason
}

// ParseTurn extracts a StructuredTurn from a raw model reply. The reply is
// expected to be a JSON object but may be wrapped in code fences or stray
// whitespace; any such wrapping is stripped before structural parsing. Only
// structural well-formedness is checked, never content.
func ParseTurn(raw string) (*StructuredTurn, error) {
	cleaned := stripFences(raw)

	var fields struct {
		NarrativeChapter *string  `json:"narrative_chapter"`
		NextChoices      []string `json:"next_choices"`
		ImagePrompt      *string  `json:"image_prompt"`
	}
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, &ParseError{RawReply: raw, Reason: err.Error()}
	}

	var missing []string
	if fields.NarrativeChapter == nil {
		missing = append(missing, "narrative_chapter")
	}
	if fields.NextChoices == nil {
		missing = append(missing, "next_choices")
	}
	if fields.ImagePrompt == nil {
		missing = append(missing, "image_prompt")
	}
	if len(missing) > 0 {
		return nil, &ParseError{
			RawReply: raw,
			Reason:   fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")),
		}
	}

	return &StructuredTurn{
		NarrativeChapter: *fields.NarrativeChapter,
		NextChoices:      fields.NextChoices,
		ImagePrompt:      *fields.ImagePrompt,
	}, nil
}

// stripFences removes surrounding whitespace and markdown code-fence
// wrapping. Models occasionally wrap the JSON in ```json fences even when
// told not to.
func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}

	cleaned = strings.TrimPrefix(cleaned, "```")
	// Drop a language tag on the opening fence, e.g. ```json
	if idx := strings.IndexAny(cleaned, "\n{"); idx > 0 {
		cleaned = cleaned[idx:]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}
