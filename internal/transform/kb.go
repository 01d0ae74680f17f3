package transform

import (
	"context"
	"fmt"
	"strings"
)

const kbPrompt = `You are a helpful assistant converting documentation into a knowledge base.

Given the following document, create 3-5 helpful question-answer (Q&A) pairs.
Avoid vague or generic questions. Be specific and concise.

Example:

Q: What is the purpose of the onboarding guide?
A: It helps new users get started with our platform quickly.

Q: How can users reset their password?
A: Through 'Account Settings' > 'Security' > 'Reset Password'.

Now generate Q&A pairs for this document:

%s

Return a JSON object:
{
  "qa_pairs": [
    {"question": "...", "answer": "..."},
    ...
  ]
}
`

// WriteKB turns documentation into question-answer pairs. The returned
// payload has a "qa_pairs" list whose elements each carry "question" and
// "answer" keys.
func WriteKB(ctx context.Context, g Generator, text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	raw, err := g.Generate(ctx, fmt.Sprintf(kbPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("generating knowledge base entries: %w", err)
	}

	obj, err := decodeObject(TaskKnowledgeBase, raw)
	if err != nil {
		return nil, err
	}
	pairs, err := listField(TaskKnowledgeBase, obj, "qa_pairs")
	if err != nil {
		return nil, err
	}
	for i, p := range pairs {
		qa, ok := p.(map[string]any)
		if !ok {
			return nil, invalid(TaskKnowledgeBase, "qa_pairs[%d] is not an object", i)
		}
		if _, ok := qa["question"]; !ok {
			return nil, invalid(TaskKnowledgeBase, "qa_pairs[%d] missing \"question\"", i)
		}
		if _, ok := qa["answer"]; !ok {
			return nil, invalid(TaskKnowledgeBase, "qa_pairs[%d] missing \"answer\"", i)
		}
	}
	return obj, nil
}
