package career

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelReply = `Here are some options.

ALTERNATIVE 1:
- ROLE: Data Analyst
- FIELD: Data Science
- SIMILARITY: 85%
- REASONING: Shares the analytical core. Needs far less math.
- GAP SCORE: 40
- TRANSITION: [Easy]

ALTERNATIVE 2:
- FIELD: Nowhere
- SIMILARITY: 10%

alternative 3:
- ROLE: DevOps Engineer
- TRANSITION: Impossible
`

func TestParseAlternatives(t *testing.T) {
	alts := ParseAlternatives(modelReply)
	require.Len(t, alts, 2)

	assert.Equal(t, AlternativeCareer{
		Role:       "Data Analyst",
		Field:      "Data Science",
		Similarity: 85,
		Reasons:    []string{"Shares the analytical core", "Needs far less math"},
		GapScore:   40,
		Transition: "Easy",
	}, alts[0])

	assert.Equal(t, "DevOps Engineer", alts[1].Role)
	assert.Equal(t, 50.0, alts[1].Similarity)
	assert.Equal(t, 50.0, alts[1].GapScore)
	assert.Equal(t, "Moderate", alts[1].Transition)

	assert.Empty(t, ParseAlternatives("no structured content"))
}

func noviceRequest(t *testing.T) SuggestRequest {
	t.Helper()
	r, ok := lookupRole("Machine Learning Engineer")
	require.True(t, ok)
	np := normalizeProfile(noviceProfile())
	return SuggestRequest{
		Target:  CareerFit{Title: r.Title, Field: r.Field},
		Profile: np,
		Gap:     analyzeGap(np, insightsFor(r)),
	}
}

func TestHeuristicSuggester(t *testing.T) {
	req := noviceRequest(t)
	alts, err := HeuristicSuggester{}.Suggest(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, alts, 3)

	for i, a := range alts {
		assert.NotEqual(t, req.Target.Title, a.Role)
		assert.Less(t, a.GapScore, req.Gap.OverallScore)
		assert.Equal(t, transitionFor(a.GapScore), a.Transition)
		if i > 0 {
			assert.LessOrEqual(t, alts[i-1].GapScore, a.GapScore)
		}
	}

	all, err := HeuristicSuggester{Limit: 100}.Suggest(context.Background(), req)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(all), len(catalog)-1)
}

func TestOpenAISuggester(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "chatcmpl-1",
			Model: got.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: modelReply},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	defer srv.Close()

	s := NewOpenAISuggester("test-key", srv.URL+"/v1", "")
	alts, err := s.Suggest(context.Background(), noviceRequest(t))
	require.NoError(t, err)
	assert.Len(t, alts, 2)

	assert.Equal(t, openai.GPT4oMini, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Contains(t, got.Messages[1].Content, "Original Target: Machine Learning Engineer")
	assert.Contains(t, got.Messages[1].Content, "Education: Requires a master degree")
}

func TestOpenAISuggester_Errors(t *testing.T) {
	for name, handler := range map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
		},
		"no choices": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
		},
		"unstructured": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":"try harder"}}]}`))
		},
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			_, err := NewOpenAISuggester("k", srv.URL, "gpt-test").Suggest(context.Background(), noviceRequest(t))
			assert.Error(t, err)
		})
	}
}
