package transform

import (
	"context"
	"fmt"
	"strings"
)

const triagePrompt = `You are a support ticket triage assistant.

Given the following support message, classify it into:
- category: 'billing', 'technical', 'account', or 'general'
- urgency: 'low', 'medium', or 'high'
- route_to: based on the issue type and urgency (e.g., 'Billing Support', 'Level 2 Support', 'Account Admin')
- explanation: reason for the above decisions

Support Ticket:
%s

Return a JSON object:
- category
- urgency
- route_to
- explanation
`

// Triage classifies a support ticket into category, urgency and routing
// target. All four payload fields are strings.
func Triage(ctx context.Context, g Generator, text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	raw, err := g.Generate(ctx, fmt.Sprintf(triagePrompt, text))
	if err != nil {
		return nil, fmt.Errorf("triaging support ticket: %w", err)
	}

	obj, err := decodeObject(TaskSupportTicket, raw)
	if err != nil {
		return nil, err
	}
	for _, key := range []string{"category", "urgency", "route_to", "explanation"} {
		if err := stringField(TaskSupportTicket, obj, key); err != nil {
			return nil, err
		}
	}
	return obj, nil
}
