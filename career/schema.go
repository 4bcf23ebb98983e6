package career

import (
	"github.com/smallnest/careergraph/graph"
	"github.com/smallnest/careergraph/session"
)

// State fields of the career pipeline.
const (
	FieldProfile             = "profile"
	FieldNormalizedProfile   = "normalized_profile"
	FieldCareerFits          = "career_fits"
	FieldMarketInsights      = "market_insights"
	FieldGapAnalysis         = "gap_analysis"
	FieldSuggestAlternatives = "suggest_alternatives"
	FieldAlternatives        = "alternative_careers"
	FieldTimeline            = "timeline"
	FieldFinancialAnalysis   = "financial_analysis"
	FieldRiskAssessment      = "risk_assessment"
	FieldHighlights          = "highlights"
	FieldDashboard           = "dashboard"
	FieldSimulationComplete  = "simulation_complete"
	FieldReportSummary       = "report_summary"
)

var schema = graph.MustSchema(
	graph.FieldOf[Profile](FieldProfile, graph.Overwrite),
	graph.FieldOf[NormalizedProfile](FieldNormalizedProfile, graph.Overwrite),
	graph.FieldOf[[]CareerFit](FieldCareerFits, graph.Overwrite),
	graph.FieldOf[int](session.FieldSelectedIndex, graph.Overwrite),
	graph.FieldOf[CareerFit](session.FieldSelected, graph.Overwrite),
	graph.FieldOf[string](session.FieldStage, graph.Overwrite),
	graph.FieldOf[MarketInsights](FieldMarketInsights, graph.Overwrite),
	graph.FieldOf[GapAnalysis](FieldGapAnalysis, graph.Overwrite),
	graph.FieldOf[bool](FieldSuggestAlternatives, graph.Overwrite),
	graph.FieldOf[[]AlternativeCareer](FieldAlternatives, graph.Append),
	graph.FieldOf[Timeline](FieldTimeline, graph.Overwrite),
	graph.FieldOf[FinancialAnalysis](FieldFinancialAnalysis, graph.Overwrite),
	graph.FieldOf[RiskAssessment](FieldRiskAssessment, graph.Overwrite),
	// Written by both fan-out branches, keyed by node.
	graph.FieldOf[map[string]string](FieldHighlights, graph.Merge),
	graph.FieldOf[Dashboard](FieldDashboard, graph.Overwrite),
	graph.FieldOf[bool](FieldSimulationComplete, graph.Overwrite),
	graph.FieldOf[string](FieldReportSummary, graph.Overwrite),
)

// Schema returns the schema shared by every career graph.
func Schema() *graph.Schema {
	return schema
}

func get[T any](state graph.State, field string) (T, bool) {
	v, ok := state[field].(T)
	return v, ok
}

// Fits converts the options returned by phase one to career fits.
func Fits(options []any) []CareerFit {
	fits := make([]CareerFit, 0, len(options))
	for _, o := range options {
		if fit, ok := o.(CareerFit); ok {
			fits = append(fits, fit)
		}
	}
	return fits
}
