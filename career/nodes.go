package career

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallnest/careergraph/graph"
	"github.com/smallnest/careergraph/session"
)

// Node names.
const (
	NodeProfileParser        = "profile_parser"
	NodeCareerMatcher        = "career_matcher"
	NodeMarketScout          = "market_scout"
	NodeGapAnalyst           = "gap_analyst"
	NodeAlternativeSuggester = "alternative_suggester"
	NodeTimelineSimulator    = "timeline_simulator"
	NodeFinancialAdvisor     = "financial_advisor"
	NodeRiskAssessor         = "risk_assessor"
	NodeDashboardFormatter   = "dashboard_formatter"
)

// Labels of the conditional edge leaving gap_analyst.
const (
	RouteAlternative = "alternative"
	RouteDirect      = "direct"
)

// FitCount is the number of ranked options phase one produces.
const FitCount = 3

func fallbackWarning(node string, cause error) []string {
	return []string{fmt.Sprintf("%s used fallback output after: %v", node, cause)}
}

func parseProfile(_ context.Context, state graph.State) (graph.State, error) {
	p, ok := get[Profile](state, FieldProfile)
	if !ok {
		return nil, errors.New("profile is missing")
	}
	return graph.State{FieldNormalizedProfile: normalizeProfile(p)}, nil
}

func parseProfileFallback(_ context.Context, state graph.State, cause error) graph.State {
	p, _ := get[Profile](state, FieldProfile)
	return graph.State{
		FieldNormalizedProfile: NormalizedProfile{
			Profile: p,
			Skills:  map[string]string{},
			Persona: "Unknown",
			Summary: "The profile could not be analysed.",
		},
		graph.FieldWarnings: fallbackWarning(NodeProfileParser, cause),
	}
}

func matchCareers(_ context.Context, state graph.State) (graph.State, error) {
	np, ok := get[NormalizedProfile](state, FieldNormalizedProfile)
	if !ok {
		return nil, errors.New("normalized profile is missing")
	}
	return graph.State{FieldCareerFits: rankRoles(np, FitCount)}, nil
}

// matchCareersFallback offers the highest demand roles with neutral scores.
func matchCareersFallback(_ context.Context, _ graph.State, cause error) graph.State {
	fits := rankRoles(NormalizedProfile{Skills: map[string]string{}}, FitCount)
	for i := range fits {
		fits[i].OverallFit, fits[i].SkillFit, fits[i].InterestFit = 50, 50, 50
		fits[i].Reasons = []string{"Suggested from market demand only"}
	}
	return graph.State{
		FieldCareerFits:     fits,
		graph.FieldWarnings: fallbackWarning(NodeCareerMatcher, cause),
	}
}

// targetRole is the selected career, or the first role the profile names.
func targetRole(state graph.State) (role, error) {
	if fit, ok := get[CareerFit](state, session.FieldSelected); ok && fit.Title != "" {
		if r, ok := lookupRole(fit.Title); ok {
			return r, nil
		}
		return genericRole(fit.Title, fit.Field), nil
	}
	p, _ := get[Profile](state, FieldProfile)
	if len(p.SpecificRoles) == 0 {
		return role{}, errors.New("no target role selected")
	}
	field := ""
	if len(p.TargetFields) > 0 {
		field = p.TargetFields[0]
	}
	if r, ok := lookupRole(p.SpecificRoles[0]); ok {
		return r, nil
	}
	return genericRole(p.SpecificRoles[0], field), nil
}

// targetFit describes the target as a CareerFit for nodes that only need
// its headline.
func targetFit(state graph.State) CareerFit {
	if fit, ok := get[CareerFit](state, session.FieldSelected); ok && fit.Title != "" {
		return fit
	}
	if mi, ok := get[MarketInsights](state, FieldMarketInsights); ok {
		return CareerFit{Title: mi.Role, Field: mi.Field}
	}
	return CareerFit{Title: "Target Role"}
}

func scoutMarket(_ context.Context, state graph.State) (graph.State, error) {
	r, err := targetRole(state)
	if err != nil {
		return nil, err
	}
	return graph.State{FieldMarketInsights: insightsFor(r)}, nil
}

func scoutMarketFallback(_ context.Context, state graph.State, cause error) graph.State {
	fit := targetFit(state)
	mi := insightsFor(genericRole(fit.Title, fit.Field))
	mi.Sources = []string{"generic estimate"}
	return graph.State{
		FieldMarketInsights: mi,
		graph.FieldWarnings: fallbackWarning(NodeMarketScout, cause),
	}
}

func analyzeGaps(_ context.Context, state graph.State) (graph.State, error) {
	np, ok := get[NormalizedProfile](state, FieldNormalizedProfile)
	if !ok {
		return nil, errors.New("normalized profile is missing")
	}
	mi, ok := get[MarketInsights](state, FieldMarketInsights)
	if !ok {
		return nil, errors.New("market insights are missing")
	}
	gap := analyzeGap(np, mi)
	return graph.State{
		FieldGapAnalysis:         gap,
		FieldSuggestAlternatives: gap.OverallScore > GapThreshold,
	}, nil
}

func analyzeGapsFallback(_ context.Context, _ graph.State, cause error) graph.State {
	return graph.State{
		FieldGapAnalysis:         GapAnalysis{OverallScore: 50, Category: gapCategory(50)},
		FieldSuggestAlternatives: false,
		graph.FieldWarnings:      fallbackWarning(NodeGapAnalyst, cause),
	}
}

// RouteOnGap routes to the alternative suggester when the gap score is
// strictly above GapThreshold.
func RouteOnGap(_ context.Context, state graph.State) string {
	if gap, ok := get[GapAnalysis](state, FieldGapAnalysis); ok && gap.OverallScore > GapThreshold {
		return RouteAlternative
	}
	return RouteDirect
}

func suggestRequest(state graph.State) SuggestRequest {
	np, _ := get[NormalizedProfile](state, FieldNormalizedProfile)
	gap, _ := get[GapAnalysis](state, FieldGapAnalysis)
	return SuggestRequest{Target: targetFit(state), Profile: np, Gap: gap}
}

func gapWarning(req SuggestRequest) []string {
	return []string{fmt.Sprintf("High gap score (%.0f/100) detected for %s. Alternative career paths have been suggested alongside your original target.",
		req.Gap.OverallScore, req.Target.Title)}
}

func suggestAlternatives(s Suggester) graph.NodeFunc {
	return func(ctx context.Context, state graph.State) (graph.State, error) {
		req := suggestRequest(state)
		alts, err := s.Suggest(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(alts) == 0 {
			return nil, errors.New("no alternatives suggested")
		}
		return graph.State{FieldAlternatives: alts, graph.FieldWarnings: gapWarning(req)}, nil
	}
}

func suggestAlternativesFallback(ctx context.Context, state graph.State, cause error) graph.State {
	req := suggestRequest(state)
	alts, _ := HeuristicSuggester{}.Suggest(ctx, req)
	return graph.State{
		FieldAlternatives:   alts,
		graph.FieldWarnings: append(gapWarning(req), fallbackWarning(NodeAlternativeSuggester, cause)...),
	}
}

func simulateTimeline(_ context.Context, state graph.State) (graph.State, error) {
	mi, ok := get[MarketInsights](state, FieldMarketInsights)
	if !ok {
		return nil, errors.New("market insights are missing")
	}
	gap, ok := get[GapAnalysis](state, FieldGapAnalysis)
	if !ok {
		return nil, errors.New("gap analysis is missing")
	}
	p, _ := get[Profile](state, FieldProfile)
	t := planTimeline(p, mi, gap)
	if alts, _ := get[[]AlternativeCareer](state, FieldAlternatives); len(alts) > 0 {
		t.Warnings = append(t.Warnings, fmt.Sprintf("Consider %s as a more reachable first step", alts[0].Role))
	}
	return graph.State{FieldTimeline: t}, nil
}

func simulateTimelineFallback(_ context.Context, state graph.State, cause error) graph.State {
	fit := targetFit(state)
	return graph.State{
		FieldTimeline: Timeline{
			Paths: []CareerPath{{
				Type:       PathRealistic,
				Label:      "Default Plan",
				Years:      3,
				Milestones: []Milestone{{Year: 3, Quarter: 4, Title: "Land a " + fit.Title + " role", Type: "career"}},
				FinalRole:  fit.Title,
			}},
			Recommended: PathRealistic,
			Reason:      "Default plan used because the simulation failed",
		},
		graph.FieldWarnings: fallbackWarning(NodeTimelineSimulator, cause),
	}
}

func adviseFinances(_ context.Context, state graph.State) (graph.State, error) {
	t, ok := get[Timeline](state, FieldTimeline)
	if !ok {
		return nil, errors.New("timeline is missing")
	}
	mi, ok := get[MarketInsights](state, FieldMarketInsights)
	if !ok {
		return nil, errors.New("market insights are missing")
	}
	path, ok := recommendedPath(t)
	if !ok {
		return nil, errors.New("timeline has no paths")
	}
	p, _ := get[Profile](state, FieldProfile)
	fa := projectFinancials(p, mi, path)
	return graph.State{
		FieldFinancialAnalysis: fa,
		FieldHighlights: map[string]string{
			NodeFinancialAdvisor: fmt.Sprintf("Invest $%.0f, break even in year %d (%s)", fa.TotalInvestment, fa.BreakEvenYear, fa.Affordability),
		},
	}, nil
}

func adviseFinancesFallback(_ context.Context, _ graph.State, cause error) graph.State {
	return graph.State{
		FieldFinancialAnalysis: FinancialAnalysis{Affordability: "unknown", ByCategory: map[string]float64{}},
		graph.FieldWarnings:    fallbackWarning(NodeFinancialAdvisor, cause),
	}
}

func assessRisks(_ context.Context, state graph.State) (graph.State, error) {
	mi, ok := get[MarketInsights](state, FieldMarketInsights)
	if !ok {
		return nil, errors.New("market insights are missing")
	}
	gap, ok := get[GapAnalysis](state, FieldGapAnalysis)
	if !ok {
		return nil, errors.New("gap analysis is missing")
	}
	t, _ := get[Timeline](state, FieldTimeline)
	path, _ := recommendedPath(t)
	p, _ := get[Profile](state, FieldProfile)
	ra := assessRisk(p, mi, gap, path)
	return graph.State{
		FieldRiskAssessment: ra,
		FieldHighlights: map[string]string{
			NodeRiskAssessor: fmt.Sprintf("%.0f%% estimated success probability, %s", ra.SuccessProbability, ra.ComparedToAverage),
		},
	}, nil
}

func assessRisksFallback(_ context.Context, _ graph.State, cause error) graph.State {
	return graph.State{
		FieldRiskAssessment: RiskAssessment{SuccessProbability: 50, ComparedToAverage: "Average"},
		graph.FieldWarnings: fallbackWarning(NodeRiskAssessor, cause),
	}
}

func formatDashboard(_ context.Context, state graph.State) (graph.State, error) {
	fit := targetFit(state)
	gap, _ := get[GapAnalysis](state, FieldGapAnalysis)
	t, _ := get[Timeline](state, FieldTimeline)
	fa, _ := get[FinancialAnalysis](state, FieldFinancialAnalysis)
	ra, _ := get[RiskAssessment](state, FieldRiskAssessment)
	alts, _ := get[[]AlternativeCareer](state, FieldAlternatives)

	d := Dashboard{
		Career:          fit.Title,
		Field:           fit.Field,
		RecommendedPath: t.Recommended,
		SuccessGauge:    ra.SuccessProbability,
		KeyMetrics: []Metric{
			{Title: "Gap score", Value: fmt.Sprintf("%.0f/100 (%s)", gap.OverallScore, gap.Category)},
			{Title: "Success probability", Value: fmt.Sprintf("%.0f%%", ra.SuccessProbability)},
			{Title: "Total investment", Value: fmt.Sprintf("$%.0f", fa.TotalInvestment)},
			{Title: "Break-even year", Value: breakEven(fa.BreakEvenYear)},
			{Title: "Affordability", Value: fa.Affordability},
		},
		TopRecommendations: append(append([]string(nil), ra.Recommendations...), gap.QuickWins...),
		Degraded:           graph.Degraded(state),
	}
	if path, ok := recommendedPath(t); ok {
		d.Milestones = path.Milestones
		for _, m := range path.Milestones {
			if m.Year == 1 && len(d.ImmediateActions) < 3 {
				d.ImmediateActions = append(d.ImmediateActions, m.Title)
			}
		}
	}
	for _, a := range alts {
		d.Alternatives = append(d.Alternatives, a.Role)
	}

	summary := fmt.Sprintf("%s via the %s path: gap %.0f/100, success probability %.0f%%, investment $%.0f.",
		fit.Title, t.Recommended, gap.OverallScore, ra.SuccessProbability, fa.TotalInvestment)
	return graph.State{
		FieldDashboard:          d,
		FieldSimulationComplete: true,
		FieldReportSummary:      summary,
	}, nil
}

func breakEven(year int) string {
	if year == 0 {
		return "not within projection"
	}
	return fmt.Sprintf("year %d", year)
}

func formatDashboardFallback(_ context.Context, state graph.State, cause error) graph.State {
	fit := targetFit(state)
	return graph.State{
		FieldDashboard:          Dashboard{Career: fit.Title, Field: fit.Field, Degraded: true},
		FieldSimulationComplete: true,
		FieldReportSummary:      fit.Title + ": the dashboard could not be assembled.",
		graph.FieldWarnings:     fallbackWarning(NodeDashboardFormatter, cause),
	}
}

// Prepare points the profile at the selected career before phase two.
func Prepare(state graph.State, _ int, option any) graph.State {
	fit, ok := option.(CareerFit)
	if !ok {
		return nil
	}
	p, _ := get[Profile](state, FieldProfile)
	p.SpecificRoles = []string{fit.Title}
	p.TargetFields = []string{fit.Field}
	return graph.State{FieldProfile: p}
}
