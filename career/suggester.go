package career

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// SuggestRequest is what a Suggester knows about the run.
type SuggestRequest struct {
	Target  CareerFit
	Profile NormalizedProfile
	Gap     GapAnalysis
}

// Suggester proposes more reachable careers when the gap is too large.
type Suggester interface {
	Suggest(ctx context.Context, req SuggestRequest) ([]AlternativeCareer, error)
}

// HeuristicSuggester ranks catalog roles by the gap the profile would face.
// It never fails.
type HeuristicSuggester struct {
	// Limit caps the number of suggestions, 3 when zero.
	Limit int
}

// Suggest implements Suggester.
func (h HeuristicSuggester) Suggest(_ context.Context, req SuggestRequest) ([]AlternativeCareer, error) {
	limit := h.Limit
	if limit <= 0 {
		limit = 3
	}
	target, ok := lookupRole(req.Target.Title)
	if !ok {
		target = genericRole(req.Target.Title, req.Target.Field)
	}

	var out []AlternativeCareer
	for _, r := range catalog {
		if strings.EqualFold(r.Title, req.Target.Title) {
			continue
		}
		g := analyzeGap(req.Profile, insightsFor(r))
		out = append(out, AlternativeCareer{
			Role:       r.Title,
			Field:      r.Field,
			Similarity: similarity(target, r),
			GapScore:   g.OverallScore,
			Transition: transitionFor(g.OverallScore),
			Reasons: []string{
				fmt.Sprintf("Gap of %.0f/100 against %.0f/100 for %s", g.OverallScore, req.Gap.OverallScore, req.Target.Title),
				fmt.Sprintf("Typical time to entry is %s", r.TimeToEntry),
			},
		})
	}
	// Prefer roles that are closer than the target when there are any.
	if closer := slices.DeleteFunc(slices.Clone(out), func(a AlternativeCareer) bool {
		return a.GapScore >= req.Gap.OverallScore
	}); len(closer) > 0 {
		out = closer
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].GapScore != out[j].GapScore {
			return out[i].GapScore < out[j].GapScore
		}
		return out[i].Similarity > out[j].Similarity
	})
	return out[:min(limit, len(out))], nil
}

// similarity scores how much two roles share, 0-100.
func similarity(a, b role) float64 {
	score := 0.0
	if a.Field == b.Field {
		score = 50
	}
	for s := range a.Skills {
		if _, ok := b.Skills[s]; ok {
			score += 15
		}
	}
	return clamp(score, 0, 100)
}

// OpenAISuggester asks a chat completion model for alternatives.
type OpenAISuggester struct {
	client *openai.Client
	model  string
}

// NewOpenAISuggester creates a suggester. baseURL may be empty for the
// public endpoint.
func NewOpenAISuggester(apiKey, baseURL, model string) *OpenAISuggester {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAISuggester{client: openai.NewClientWithConfig(cfg), model: model}
}

const suggestSystemPrompt = `You are a career counselor. When a target career has a very high gap score, suggest 3-5 alternative careers that are more achievable while still aligned with the user's interests.`

// Suggest implements Suggester.
func (s *OpenAISuggester) Suggest(ctx context.Context, req SuggestRequest) ([]AlternativeCareer, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.5,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: suggestSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: suggestPrompt(req)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty response")
	}
	alts := ParseAlternatives(resp.Choices[0].Message.Content)
	if len(alts) == 0 {
		return nil, errors.New("openai: no alternatives in response")
	}
	return alts, nil
}

func suggestPrompt(req SuggestRequest) string {
	var gaps []string
	if req.Gap.EducationGap != "" {
		gaps = append(gaps, "Education: "+req.Gap.EducationGap)
	}
	for _, g := range req.Gap.SkillGaps[:min(3, len(req.Gap.SkillGaps))] {
		gaps = append(gaps, fmt.Sprintf("Skill: %s (%.0f/100)", g.Skill, g.Severity))
	}
	for _, b := range req.Gap.Bottlenecks[:min(2, len(req.Gap.Bottlenecks))] {
		gaps = append(gaps, "Bottleneck: "+b)
	}
	if len(gaps) == 0 {
		gaps = append(gaps, "Multiple significant gaps")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Gap score: %.0f/100 for %s\n\n", req.Gap.OverallScore, req.Target.Title)
	fmt.Fprintf(&b, "Profile: %s\n", req.Profile.Summary)
	fmt.Fprintf(&b, "Original Target: %s in %s\n\n", req.Target.Title, req.Target.Field)
	fmt.Fprintf(&b, "Key Gaps:\n%s\n\n", strings.Join(gaps, "\n"))
	b.WriteString("Suggest 3-5 alternatives in this format:\n\n")
	b.WriteString("ALTERNATIVE 1:\n- ROLE: [Role]\n- FIELD: [Field]\n- SIMILARITY: [0-100%]\n")
	b.WriteString("- REASONING: [2-3 sentences]\n- GAP SCORE: [0-100]\n- TRANSITION: [Easy/Moderate/Challenging]\n")
	return b.String()
}

var (
	alternativeHeader = regexp.MustCompile(`(?i)ALTERNATIVE\s*\d+:`)
	number            = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// ParseAlternatives extracts "ALTERNATIVE n:" blocks from a model response.
// Blocks without a role are dropped and at most five are returned.
func ParseAlternatives(text string) []AlternativeCareer {
	sections := alternativeHeader.Split(text, -1)
	var out []AlternativeCareer
	for _, section := range sections[1:] {
		alt := AlternativeCareer{Similarity: 50, GapScore: 50, Transition: "Moderate"}
		for _, line := range strings.Split(section, "\n") {
			key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
			if !ok {
				continue
			}
			key = strings.ToUpper(strings.TrimSpace(strings.TrimLeft(key, "-* ")))
			value = strings.Trim(strings.TrimSpace(value), "[]")

			switch {
			case strings.Contains(key, "ROLE"):
				alt.Role = value
			case strings.Contains(key, "FIELD"):
				alt.Field = value
			case strings.Contains(key, "SIMILARITY"):
				if n, ok := firstNumber(value); ok {
					alt.Similarity = n
				}
			case strings.Contains(key, "REASONING"):
				alt.Reasons = nil
				for _, r := range strings.Split(value, ".") {
					if r = strings.TrimSpace(r); r != "" {
						alt.Reasons = append(alt.Reasons, r)
					}
				}
			case strings.Contains(key, "GAP") && strings.Contains(key, "SCORE"):
				if n, ok := firstNumber(value); ok {
					alt.GapScore = n
				}
			case strings.Contains(key, "TRANSITION"):
				switch value {
				case "Easy", "Moderate", "Challenging":
					alt.Transition = value
				}
			}
		}
		if alt.Role != "" {
			out = append(out, alt)
		}
	}
	return out[:min(5, len(out))]
}

func firstNumber(s string) (float64, bool) {
	m := number.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	return n, err == nil
}
