package career

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeProfile(t *testing.T) {
	np := normalizeProfile(Profile{
		GPA:              8.5,
		GradingScale:     10,
		EducationLevel:   "Master of Science",
		TechnicalSkills:  map[string]string{" Python ": "Expert", "SQL": "beginner"},
		ResumeText:       "Built dashboards, wrote Statistics reports",
		InvestmentBudget: 30000,
	})

	assert.Equal(t, 85.0, np.NormalizedGPA)
	assert.Equal(t, "advanced", np.Skills["python"])
	assert.Equal(t, "basic", np.Skills["sql"])
	assert.Contains(t, np.InferredSkills, "statistics")
	assert.Equal(t, "basic", np.Skills["statistics"])
	assert.Equal(t, 75.0, np.FinancialReadiness)
	assert.Equal(t, "High-Potential, High-Resource", np.Persona)
	assert.Contains(t, np.Summary, "The candidate")

	assert.Equal(t, "Developing-Potential, Low-Resource", normalizeProfile(Profile{}).Persona)
}

func TestGapCategory(t *testing.T) {
	for score, want := range map[float64]string{
		0:    "minimal",
		24.9: "minimal",
		25:   "manageable",
		50:   "significant",
		80:   "significant",
		80.1: "severe",
	} {
		assert.Equal(t, want, gapCategory(score), "score %v", score)
	}
}

func TestAnalyzeGap(t *testing.T) {
	ml, ok := lookupRole("Machine Learning Engineer")
	require.True(t, ok)

	gap := analyzeGap(normalizeProfile(noviceProfile()), insightsFor(ml))
	assert.InDelta(t, 94.0, gap.OverallScore, 0.01)
	assert.Equal(t, "severe", gap.Category)
	assert.Equal(t, "Requires a master degree", gap.EducationGap)
	assert.Len(t, gap.SkillGaps, len(ml.Skills))
	assert.Empty(t, gap.Strengths)
	assert.Contains(t, gap.Bottlenecks, gap.EducationGap)

	swe, ok := lookupRole("Software Engineer")
	require.True(t, ok)
	gap = analyzeGap(normalizeProfile(engineerProfile()), insightsFor(swe))
	assert.Empty(t, gap.SkillGaps)
	assert.Empty(t, gap.EducationGap)
	assert.Len(t, gap.Strengths, len(swe.Skills))
	assert.LessOrEqual(t, gap.OverallScore, GapThreshold)
}

func TestRankRoles(t *testing.T) {
	fits := rankRoles(normalizeProfile(engineerProfile()), FitCount)
	require.Len(t, fits, FitCount)
	assert.Equal(t, "Software Engineer", fits[0].Title)
	assert.Equal(t, 100.0, fits[0].SkillFit)
	assert.Equal(t, 100.0, fits[0].InterestFit)
	for i, f := range fits {
		assert.Equal(t, i+1, f.Rank)
	}
}

func TestPlanTimeline(t *testing.T) {
	mi := insightsFor(catalog[0])
	gap := GapAnalysis{OverallScore: 50}

	tl := planTimeline(Profile{HoursPerWeek: 15, RiskTolerance: "High"}, mi, gap)
	require.Len(t, tl.Paths, 3)
	years := map[string]int{}
	for _, p := range tl.Paths {
		years[p.Type] = p.Years
		assert.Equal(t, "Land a "+mi.Role+" role", p.Milestones[len(p.Milestones)-1].Title)
	}
	assert.Equal(t, map[string]int{PathConservative: 6, PathRealistic: 4, PathAmbitious: 3}, years)
	assert.Equal(t, PathAmbitious, tl.Recommended)
	assert.Empty(t, tl.Warnings)

	tl = planTimeline(Profile{HoursPerWeek: 5}, mi, GapAnalysis{OverallScore: 10, EducationGap: "Requires a master degree"})
	p, ok := tl.Path(PathRealistic)
	require.True(t, ok)
	assert.Equal(t, 4, p.Years)
	assert.Equal(t, PathRealistic, tl.Recommended)
	assert.Len(t, tl.Warnings, 2)
}

func TestProjectFinancials(t *testing.T) {
	mi := MarketInsights{Salary: SalaryRange{EntryMin: 60000, EntryMax: 80000}}
	path := CareerPath{Years: 2, Milestones: []Milestone{
		{Year: 1, Type: "skill", Cost: 1000},
		{Year: 2, Type: "certification", Cost: 800},
		{Year: 2, Type: "career"},
	}}

	fa := projectFinancials(Profile{InvestmentBudget: 1500, TargetMinSalary: 75000}, mi, path)
	assert.Equal(t, 1800.0, fa.TotalInvestment)
	assert.Equal(t, map[string]float64{"skill": 1000, "certification": 800}, fa.ByCategory)
	require.Len(t, fa.Yearly, 7)
	assert.Zero(t, fa.Yearly[1].Income)
	assert.Equal(t, 70000.0, fa.Yearly[2].Income)
	assert.Equal(t, 75600.0, fa.Yearly[3].Income)
	assert.Equal(t, 3, fa.BreakEvenYear)
	assert.True(t, fa.MeetsSalaryTarget)
	assert.Equal(t, 4, fa.YearsToTargetSalary)
	assert.Equal(t, "stretch", fa.Affordability)
	assert.Greater(t, fa.FiveYearROI, 0.0)
}

func TestAffordability(t *testing.T) {
	for _, tc := range []struct {
		cost, budget float64
		want         string
	}{
		{0, 0, "comfortable"},
		{100, 0, "stretch"},
		{500, 1000, "comfortable"},
		{1000, 1000, "feasible"},
		{2000, 1000, "stretch"},
		{2001, 1000, "unfeasible"},
	} {
		assert.Equal(t, tc.want, affordability(tc.cost, tc.budget), "%v of %v", tc.cost, tc.budget)
	}
}

func TestAssessRisk_ClampsProbability(t *testing.T) {
	mi := MarketInsights{Demand: "Low", Competition: "Intense", RequiredSkills: []Requirement{{Skill: "x", Level: "advanced"}}}
	gap := GapAnalysis{OverallScore: 100, SkillGaps: []SkillGap{{Skill: "x", Severity: 100}}}
	path := CareerPath{Milestones: []Milestone{{Cost: 100000}}}

	ra := assessRisk(Profile{HoursPerWeek: 5, InvestmentBudget: 1000}, mi, gap, path)
	assert.GreaterOrEqual(t, ra.SuccessProbability, 5.0)
	assert.Equal(t, "Below average", ra.ComparedToAverage)
	assert.Len(t, ra.Factors, 4)
	assert.Len(t, ra.Recommendations, 4)
}
