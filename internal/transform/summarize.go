package transform

import (
	"context"
	"fmt"
	"strings"
)

const summarizePrompt = `You are a helpful assistant. Summarize the following meeting note into a concise paragraph and bullet points.

Document:
%s

Return a JSON object:
- 'summary': the overall summary (3-5 sentences)
- 'bullet_points': a list of key discussion points
`

// Summarize condenses a meeting note into a summary paragraph plus bullet
// points. The returned payload has a non-empty "summary" string and a
// "bullet_points" list.
func Summarize(ctx context.Context, g Generator, text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	raw, err := g.Generate(ctx, fmt.Sprintf(summarizePrompt, text))
	if err != nil {
		return nil, fmt.Errorf("summarizing meeting note: %w", err)
	}

	obj, err := decodeObject(TaskMeetingNote, raw)
	if err != nil {
		return nil, err
	}
	if err := stringField(TaskMeetingNote, obj, "summary"); err != nil {
		return nil, err
	}
	if _, err := listField(TaskMeetingNote, obj, "bullet_points"); err != nil {
		return nil, err
	}
	return obj, nil
}
