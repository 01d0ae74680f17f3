package transform

import (
	"context"
	"fmt"
	"strings"
)

const riskPrompt = `You are a legal assistant. Analyze the following contract text and identify any potential risk factors.

Focus on:
- Termination clauses
- Liability and indemnity
- Arbitration or jurisdiction
- Payment terms
- Unusual language

Return a JSON object:
- 'risks_found': a list of specific risks
- 'explanation': a high-level summary of why these risks were flagged

Contract Text:
%s
`

// FlagRisks scans contract text for risk factors. The returned payload has a
// "risks_found" list and an "explanation" string.
func FlagRisks(ctx context.Context, g Generator, text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	raw, err := g.Generate(ctx, fmt.Sprintf(riskPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("flagging contract risks: %w", err)
	}

	obj, err := decodeObject(TaskContract, raw)
	if err != nil {
		return nil, err
	}
	if _, err := listField(TaskContract, obj, "risks_found"); err != nil {
		return nil, err
	}
	if err := stringField(TaskContract, obj, "explanation"); err != nil {
		return nil, err
	}
	return obj, nil
}
