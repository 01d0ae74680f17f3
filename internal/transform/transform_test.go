package transform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGenerator returns a canned response and records whether it was called.
type stubGenerator struct {
	response string
	err      error
	calls    int
}

func (s *stubGenerator) Generate(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestRunRejectsEmptyInputBeforeModelCall(t *testing.T) {
	g := &stubGenerator{response: `{}`}

	for _, task := range Tasks() {
		_, err := Run(context.Background(), g, task, "   \n\t")
		require.ErrorIs(t, err, ErrEmptyInput, "task %s", task)
	}
	assert.Zero(t, g.calls, "empty input must never reach the model")
}

func TestRunUnknownTask(t *testing.T) {
	g := &stubGenerator{response: `{}`}

	_, err := Run(context.Background(), g, Task("invoice"), "some text")
	require.ErrorIs(t, err, ErrUnknownTask)
	assert.Zero(t, g.calls)
}

func TestSummarizeValidPayload(t *testing.T) {
	g := &stubGenerator{response: `{
		"summary": "The team agreed to ship the beta next week.",
		"bullet_points": ["Beta ships next week", "QA signs off Friday"]
	}`}

	out, err := Summarize(context.Background(), g, "meeting note text")
	require.NoError(t, err)
	assert.Equal(t, "The team agreed to ship the beta next week.", out["summary"])
	assert.Len(t, out["bullet_points"], 2)
}

func TestSummarizeStripsMarkdownFences(t *testing.T) {
	g := &stubGenerator{response: "```json\n{\"summary\": \"Short recap.\", \"bullet_points\": []}\n```"}

	out, err := Summarize(context.Background(), g, "meeting note text")
	require.NoError(t, err)
	assert.Equal(t, "Short recap.", out["summary"])
}

func TestSummarizeSchemaViolations(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"missing summary", `{"bullet_points": []}`},
		{"summary not a string", `{"summary": 42, "bullet_points": []}`},
		{"missing bullet points", `{"summary": "ok"}`},
		{"bullet points not a list", `{"summary": "ok", "bullet_points": "nope"}`},
		{"not json at all", `the meeting went well`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &stubGenerator{response: tt.response}
			_, err := Summarize(context.Background(), g, "meeting note text")

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, TaskMeetingNote, vErr.Task)
		})
	}
}

func TestFlagRisksValidPayload(t *testing.T) {
	g := &stubGenerator{response: `{
		"risks_found": ["Unlimited liability clause", "30-day unilateral termination"],
		"explanation": "Both clauses shift disproportionate risk to the customer."
	}`}

	out, err := FlagRisks(context.Background(), g, "contract text")
	require.NoError(t, err)
	assert.Len(t, out["risks_found"], 2)
	assert.NotEmpty(t, out["explanation"])
}

func TestFlagRisksSchemaViolations(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"missing risks", `{"explanation": "ok"}`},
		{"risks not a list", `{"risks_found": "none", "explanation": "ok"}`},
		{"missing explanation", `{"risks_found": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &stubGenerator{response: tt.response}
			_, err := FlagRisks(context.Background(), g, "contract text")

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, TaskContract, vErr.Task)
		})
	}
}

func TestTriageValidPayload(t *testing.T) {
	g := &stubGenerator{response: `{
		"category": "billing",
		"urgency": "high",
		"route_to": "Billing Support",
		"explanation": "Customer was double-charged and requests an urgent refund."
	}`}

	out, err := Triage(context.Background(), g, "I was charged twice this month!")
	require.NoError(t, err)
	assert.Equal(t, "billing", out["category"])
	assert.Equal(t, "high", out["urgency"])
	assert.Equal(t, "Billing Support", out["route_to"])
}

func TestTriageRequiresAllStringFields(t *testing.T) {
	g := &stubGenerator{response: `{
		"category": "billing",
		"urgency": "high",
		"explanation": "missing route_to"
	}`}

	_, err := Triage(context.Background(), g, "ticket text")

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "route_to")
}

func TestWriteKBValidPayload(t *testing.T) {
	g := &stubGenerator{response: `{
		"qa_pairs": [
			{"question": "How do I reset my password?", "answer": "Via Account Settings > Security."},
			{"question": "Where are invoices stored?", "answer": "Under Billing > History."}
		]
	}`}

	out, err := WriteKB(context.Background(), g, "documentation text")
	require.NoError(t, err)
	assert.Len(t, out["qa_pairs"], 2)
}

func TestWriteKBRejectsMalformedPairs(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"missing qa_pairs", `{"pairs": []}`},
		{"pair not an object", `{"qa_pairs": ["just a string"]}`},
		{"pair missing question", `{"qa_pairs": [{"answer": "a"}]}`},
		{"pair missing answer", `{"qa_pairs": [{"question": "q"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &stubGenerator{response: tt.response}
			_, err := WriteKB(context.Background(), g, "documentation text")

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, TaskKnowledgeBase, vErr.Task)
		})
	}
}

func TestRunDispatchesByTask(t *testing.T) {
	tests := []struct {
		task     Task
		response string
		check    func(t *testing.T, out map[string]any)
	}{
		{
			task:     TaskMeetingNote,
			response: `{"summary": "s", "bullet_points": []}`,
			check:    func(t *testing.T, out map[string]any) { assert.Equal(t, "s", out["summary"]) },
		},
		{
			task:     TaskContract,
			response: `{"risks_found": [], "explanation": "e"}`,
			check:    func(t *testing.T, out map[string]any) { assert.Equal(t, "e", out["explanation"]) },
		},
		{
			task:     TaskSupportTicket,
			response: `{"category": "general", "urgency": "low", "route_to": "Support", "explanation": "e"}`,
			check:    func(t *testing.T, out map[string]any) { assert.Equal(t, "general", out["category"]) },
		},
		{
			task:     TaskKnowledgeBase,
			response: `{"qa_pairs": []}`,
			check:    func(t *testing.T, out map[string]any) { assert.Empty(t, out["qa_pairs"]) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.task.String(), func(t *testing.T) {
			g := &stubGenerator{response: tt.response}
			out, err := Run(context.Background(), g, tt.task, "document text")
			require.NoError(t, err)
			tt.check(t, out)
		})
	}
}

func TestGeneratorErrorPropagates(t *testing.T) {
	modelErr := errors.New("model unavailable")
	g := &stubGenerator{err: modelErr}

	_, err := Summarize(context.Background(), g, "text")
	require.ErrorIs(t, err, modelErr)
}
