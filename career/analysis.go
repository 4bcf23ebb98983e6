package career

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
)

// GapThreshold is the gap score above which alternatives are suggested.
const GapThreshold = 80.0

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// skillUniverse is every skill named in the catalog, sorted.
func skillUniverse() []string {
	var out []string
	for _, r := range catalog {
		for s := range r.Skills {
			if !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	slices.Sort(out)
	return out
}

func normalizeProfile(p Profile) NormalizedProfile {
	scale := p.GradingScale
	if scale <= 0 {
		scale = 4
	}
	gpa := round1(clamp(p.GPA/scale*100, 0, 100))

	skills := make(map[string]string, len(p.TechnicalSkills))
	for name, level := range p.TechnicalSkills {
		skills[strings.ToLower(strings.TrimSpace(name))] = levelName(levelOf(level))
	}
	var inferred []string
	resume := strings.ToLower(p.ResumeText)
	if resume != "" {
		for _, s := range skillUniverse() {
			if _, ok := skills[s]; !ok && strings.Contains(resume, s) {
				skills[s] = levelName(levelBasic)
				inferred = append(inferred, s)
			}
		}
	}

	academic := round1(0.6*gpa + 0.4*float64(educationRank(p.EducationLevel))*25)

	var levels float64
	for _, level := range skills {
		levels += float64(levelOf(level))
	}
	skillReadiness := round1(clamp(levels/15*100, 0, 100))

	var financial float64
	switch b := p.InvestmentBudget; {
	case b >= 50000:
		financial = 90
	case b >= 20000:
		financial = 75
	case b >= 5000:
		financial = 55
	case b > 0:
		financial = 35
	default:
		financial = 20
	}

	readiness := round1(0.4*academic + 0.4*skillReadiness + 0.2*clamp(p.ExperienceYears*20, 0, 100))

	potential, resource := "Developing", "Low"
	if academic >= 70 || skillReadiness >= 60 {
		potential = "High"
	}
	if financial >= 60 {
		resource = "High"
	}

	var traits []string
	if p.WorkPreference != "" {
		traits = append(traits, "prefers working with "+strings.ToLower(p.WorkPreference))
	}
	if p.RiskTolerance != "" {
		traits = append(traits, strings.ToLower(p.RiskTolerance)+" risk tolerance")
	}
	if p.HoursPerWeek > 0 {
		traits = append(traits, fmt.Sprintf("%d hours per week available", p.HoursPerWeek))
	}

	name := p.Name
	if name == "" {
		name = "The candidate"
	}
	return NormalizedProfile{
		Profile:            p,
		NormalizedGPA:      gpa,
		AcademicStrength:   academic,
		Skills:             skills,
		InferredSkills:     inferred,
		Persona:            fmt.Sprintf("%s-Potential, %s-Resource", potential, resource),
		Traits:             traits,
		CareerReadiness:    readiness,
		FinancialReadiness: financial,
		SkillReadiness:     skillReadiness,
		Summary: fmt.Sprintf("%s has %d technical skill(s), academic strength %.0f/100 and career readiness %.0f/100.",
			name, len(skills), academic, readiness),
	}
}

// skillFit is the share of the role's required levels the profile holds.
func skillFit(np NormalizedProfile, r role) float64 {
	var have, need float64
	for s, req := range r.Skills {
		need += float64(req)
		have += float64(min(levelOf(np.Skills[s]), req))
	}
	if need == 0 {
		return 0
	}
	return round1(have / need * 100)
}

func interestFit(p Profile, r role) float64 {
	for _, title := range p.SpecificRoles {
		if strings.EqualFold(strings.TrimSpace(title), r.Title) {
			return 100
		}
	}
	score := 20.0
	for _, f := range p.TargetFields {
		if strings.EqualFold(strings.TrimSpace(f), r.Field) {
			score += 40
			break
		}
	}
	terms := strings.ToLower(strings.Join(append(append([]string{p.Major}, p.Interests...), p.TargetFields...), " "))
	for _, k := range r.Keywords {
		if strings.Contains(terms, k) {
			score += 15
		}
	}
	return round1(clamp(score, 0, 100))
}

func marketFit(r role) float64 {
	return round1(demandScore(r.Demand)*0.7 + (100-competitionScore(r.Competition))*0.3)
}

func scoreRole(np NormalizedProfile, r role) CareerFit {
	sf, inf, mf := skillFit(np, r), interestFit(np.Profile, r), marketFit(r)
	fit := CareerFit{
		Title:       r.Title,
		Field:       r.Field,
		OverallFit:  round1(0.45*sf + 0.35*inf + 0.2*mf),
		SkillFit:    sf,
		InterestFit: inf,
		MarketFit:   mf,
		Tagline:     r.Tagline,
		SalaryRange: r.salaryLabel(),
		TimeToEntry: r.TimeToEntry,
		Difficulty:  r.Difficulty,
		KeySkills:   r.requiredSkills(),
	}
	for _, s := range r.requiredSkills() {
		if levelOf(np.Skills[s]) < r.Skills[s] {
			fit.NextSteps = append(fit.NextSteps, fmt.Sprintf("Build %s to %s level", s, levelName(r.Skills[s])))
		}
		if len(fit.NextSteps) == 2 {
			break
		}
	}
	if len(r.Certifications) > 0 {
		fit.NextSteps = append(fit.NextSteps, "Prepare for "+r.Certifications[0])
	}
	if sf >= 60 {
		fit.Reasons = append(fit.Reasons, fmt.Sprintf("Holds %.0f%% of the required skill depth", sf))
	}
	if inf >= 60 {
		fit.Reasons = append(fit.Reasons, "Matches stated interests and target fields")
	}
	if mf >= 60 {
		fit.Reasons = append(fit.Reasons, fmt.Sprintf("%s demand with %s growth", r.Demand, strings.ToLower(r.Growth)))
	}
	return fit
}

// rankRoles scores every catalog role and returns the best n, ranked from 1.
func rankRoles(np NormalizedProfile, n int) []CareerFit {
	fits := make([]CareerFit, 0, len(catalog))
	for _, r := range catalog {
		fits = append(fits, scoreRole(np, r))
	}
	sort.SliceStable(fits, func(i, j int) bool {
		if fits[i].OverallFit != fits[j].OverallFit {
			return fits[i].OverallFit > fits[j].OverallFit
		}
		return fits[i].Title < fits[j].Title
	})
	fits = fits[:min(n, len(fits))]
	for i := range fits {
		fits[i].Rank = i + 1
	}
	return fits
}

func insightsFor(r role) MarketInsights {
	reqs := make([]Requirement, 0, len(r.Skills))
	for _, s := range r.requiredSkills() {
		reqs = append(reqs, Requirement{Skill: s, Level: levelName(r.Skills[s])})
	}
	return MarketInsights{
		Role:           r.Title,
		Field:          r.Field,
		Demand:         r.Demand,
		Growth:         r.Growth,
		Competition:    r.Competition,
		Salary:         r.Salary,
		RequiredSkills: reqs,
		MinEducation:   r.Education,
		Certifications: r.Certifications,
		EntryYears:     r.EntryYears,
		Sources:        []string{"career catalog"},
	}
}

func gapCategory(score float64) string {
	switch {
	case score < 25:
		return "minimal"
	case score < 50:
		return "manageable"
	case score <= GapThreshold:
		return "significant"
	default:
		return "severe"
	}
}

func analyzeGap(np NormalizedProfile, mi MarketInsights) GapAnalysis {
	var gap GapAnalysis
	var severities float64
	for _, req := range mi.RequiredSkills {
		need := levelOf(req.Level)
		have := levelOf(np.Skills[req.Skill])
		if need == 0 {
			continue
		}
		if have >= need {
			gap.Strengths = append(gap.Strengths, req.Skill)
			continue
		}
		severity := round1(float64(need-have) / float64(need) * 100)
		severities += severity
		sg := SkillGap{
			Skill:       req.Skill,
			Current:     levelName(have),
			Required:    req.Level,
			Severity:    severity,
			TimeToClose: fmt.Sprintf("%d months", (need-have)*3),
		}
		switch {
		case severity >= 67:
			sg.Priority = "high"
			gap.Bottlenecks = append(gap.Bottlenecks, fmt.Sprintf("%s is missing almost entirely", req.Skill))
		case severity >= 34:
			sg.Priority = "medium"
		default:
			sg.Priority = "low"
		}
		if need-have == 1 {
			gap.QuickWins = append(gap.QuickWins, fmt.Sprintf("Move %s from %s to %s", req.Skill, sg.Current, sg.Required))
		}
		gap.SkillGaps = append(gap.SkillGaps, sg)
	}
	var skillScore float64
	if n := len(mi.RequiredSkills); n > 0 {
		skillScore = severities / float64(n)
	}

	var eduScore float64
	have, need := educationRank(np.Profile.EducationLevel), educationRank(mi.MinEducation)
	if have < need {
		gap.EducationGap = fmt.Sprintf("Requires a %s degree", mi.MinEducation)
		gap.Bottlenecks = append(gap.Bottlenecks, gap.EducationGap)
		eduScore = clamp(float64(need-have)*35, 0, 100)
	}

	gap.ExperienceGapYears = math.Max(0, mi.EntryYears-np.Profile.ExperienceYears)
	expScore := clamp(gap.ExperienceGapYears*30, 0, 100)

	gap.OverallScore = round1(0.6*skillScore + 0.25*eduScore + 0.15*expScore)
	gap.Category = gapCategory(gap.OverallScore)
	return gap
}

func transitionFor(gapScore float64) string {
	switch {
	case gapScore < 30:
		return "Easy"
	case gapScore < 60:
		return "Moderate"
	default:
		return "Challenging"
	}
}

// Path types of a timeline.
const (
	PathConservative = "conservative"
	PathRealistic    = "realistic"
	PathAmbitious    = "ambitious"
)

func planTimeline(p Profile, mi MarketInsights, gap GapAnalysis) Timeline {
	realistic := 2 + int(math.Ceil(gap.OverallScore/25))
	if p.HoursPerWeek > 0 && p.HoursPerWeek < 10 {
		realistic++
	}

	var t Timeline
	for _, pace := range []struct {
		kind, label string
		years       int
		salary      float64
	}{
		{PathConservative, "The Steady Climb", realistic + 2, mi.Salary.EntryMid()},
		{PathRealistic, "The Balanced Route", realistic, mi.Salary.MidMin},
		{PathAmbitious, "The Fast Track", max(1, realistic-1), mi.Salary.MidMid()},
	} {
		t.Paths = append(t.Paths, CareerPath{
			Type:        pace.kind,
			Label:       pace.label,
			Years:       pace.years,
			Milestones:  milestones(mi, gap, pace.years),
			FinalRole:   mi.Role,
			FinalSalary: pace.salary,
		})
	}

	switch strings.ToLower(p.RiskTolerance) {
	case "high":
		t.Recommended, t.Reason = PathAmbitious, "High risk tolerance supports an accelerated plan"
	case "low":
		t.Recommended, t.Reason = PathConservative, "Low risk tolerance favours a gradual plan with buffers"
	default:
		t.Recommended, t.Reason = PathRealistic, "Balances speed against the size of the gap"
	}

	if p.HoursPerWeek > 0 && p.HoursPerWeek < 10 {
		t.Warnings = append(t.Warnings, fmt.Sprintf("Only %d hours per week limits every path", p.HoursPerWeek))
	}
	if gap.EducationGap != "" && p.InvestmentBudget < 20000 {
		t.Warnings = append(t.Warnings, "The education requirement may exceed the investment budget")
	}
	return t
}

// milestones spreads skill, education and certification work over the
// first years of a path and ends with landing the role.
func milestones(mi MarketInsights, gap GapAnalysis, years int) []Milestone {
	prep := max(1, years-1)
	var out []Milestone
	if gap.EducationGap != "" {
		out = append(out, Milestone{Year: 1, Quarter: 1, Title: gap.EducationGap, Type: "education", Cost: 30000, Hours: 1200})
	}
	perYear := int(math.Ceil(float64(len(gap.SkillGaps)) / float64(prep)))
	for i, sg := range gap.SkillGaps {
		out = append(out, Milestone{
			Year:    1 + i/max(1, perYear),
			Quarter: i%4 + 1,
			Title:   fmt.Sprintf("Reach %s level in %s", sg.Required, sg.Skill),
			Type:    "skill",
			Cost:    500 * float64(levelOf(sg.Required)-levelOf(sg.Current)),
			Hours:   60 * (levelOf(sg.Required) - levelOf(sg.Current)),
		})
	}
	for i, cert := range mi.Certifications {
		out = append(out, Milestone{Year: min(2, years), Quarter: 2 + i%3, Title: "Earn " + cert, Type: "certification", Cost: 800, Hours: 80})
	}
	out = append(out, Milestone{Year: years, Quarter: 4, Title: "Land a " + mi.Role + " role", Type: "career"})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Quarter < out[j].Quarter
	})
	return out
}

func pathCost(path CareerPath) float64 {
	var total float64
	for _, m := range path.Milestones {
		total += m.Cost
	}
	return total
}

func recommendedPath(t Timeline) (CareerPath, bool) {
	if p, ok := t.Path(t.Recommended); ok {
		return p, true
	}
	if len(t.Paths) > 0 {
		return t.Paths[0], true
	}
	return CareerPath{}, false
}

func affordability(cost, budget float64) string {
	switch {
	case cost == 0:
		return "comfortable"
	case budget <= 0:
		return "stretch"
	case cost <= 0.5*budget:
		return "comfortable"
	case cost <= budget:
		return "feasible"
	case cost <= 2*budget:
		return "stretch"
	default:
		return "unfeasible"
	}
}

// projectFinancials models the recommended path plus five working years.
func projectFinancials(p Profile, mi MarketInsights, path CareerPath) FinancialAnalysis {
	fa := FinancialAnalysis{ByCategory: map[string]float64{}}
	invest := make(map[int]float64)
	for _, m := range path.Milestones {
		if m.Cost == 0 {
			continue
		}
		fa.TotalInvestment += m.Cost
		fa.ByCategory[m.Type] += m.Cost
		invest[m.Year] += m.Cost
	}

	entry := path.Years + 1
	var cumInvest, cumIncome, earnedAfterEntry float64
	for year := 1; year <= path.Years+5; year++ {
		var income float64
		if year >= entry {
			income = math.Round(mi.Salary.EntryMid() * math.Pow(1.08, float64(year-entry)))
			earnedAfterEntry += income
		}
		cumInvest += invest[year]
		cumIncome += income
		fa.Yearly = append(fa.Yearly, YearlyFinancials{
			Year:                 year,
			Investment:           invest[year],
			Income:               income,
			NetCashFlow:          income - invest[year],
			CumulativeInvestment: cumInvest,
			CumulativeIncome:     cumIncome,
		})
		if fa.BreakEvenYear == 0 && income > 0 && cumIncome >= cumInvest {
			fa.BreakEvenYear = year
		}
		if p.TargetMinSalary > 0 && fa.YearsToTargetSalary == 0 && income >= p.TargetMinSalary {
			fa.MeetsSalaryTarget = true
			fa.YearsToTargetSalary = year
		}
	}
	if fa.TotalInvestment > 0 {
		fa.FiveYearROI = round1((earnedAfterEntry - fa.TotalInvestment) / fa.TotalInvestment * 100)
	}
	fa.Affordability = affordability(fa.TotalInvestment, p.InvestmentBudget)
	return fa
}

func severityOf(score float64) string {
	switch {
	case score >= 80:
		return "critical"
	case score >= 60:
		return "high"
	case score >= 35:
		return "medium"
	default:
		return "low"
	}
}

func assessRisk(p Profile, mi MarketInsights, gap GapAnalysis, path CareerPath) RiskAssessment {
	ra := RiskAssessment{
		MarketRisk: round1(competitionScore(mi.Competition)*0.6 + (100-demandScore(mi.Demand))*0.4),
	}

	personal := gap.OverallScore * 0.7
	switch {
	case p.HoursPerWeek > 0 && p.HoursPerWeek < 10:
		personal += 30
	case p.HoursPerWeek > 0 && p.HoursPerWeek < 20:
		personal += 15
	}
	ra.PersonalRisk = round1(clamp(personal, 0, 100))

	cost := pathCost(path)
	switch {
	case cost == 0:
		ra.FinancialRisk = 10
	default:
		ra.FinancialRisk = round1(clamp(cost/math.Max(p.InvestmentBudget, 1)*40, 0, 100))
	}

	var severities float64
	for _, sg := range gap.SkillGaps {
		severities += sg.Severity
	}
	if n := len(mi.RequiredSkills); n > 0 {
		ra.TechnicalRisk = round1(severities / float64(n))
	}

	weighted := 0.3*ra.MarketRisk + 0.3*ra.PersonalRisk + 0.2*ra.FinancialRisk + 0.2*ra.TechnicalRisk
	ra.SuccessProbability = round1(clamp(100-weighted, 5, 95))

	for _, f := range []struct {
		name, category string
		score          float64
		mitigation     string
	}{
		{"Competitive job market", "market", ra.MarketRisk, "Build a portfolio that stands out"},
		{"Limited time and large gap", "personal", ra.PersonalRisk, "Protect weekly study hours"},
		{"Transition cost", "financial", ra.FinancialRisk, "Look for scholarships and employer sponsorship"},
		{"Missing technical depth", "technical", ra.TechnicalRisk, "Start with the highest priority skill gap"},
	} {
		if f.score >= 35 {
			ra.Factors = append(ra.Factors, RiskFactor{
				Name:        f.name,
				Category:    f.category,
				Severity:    severityOf(f.score),
				Probability: f.score,
				Mitigation:  []string{f.mitigation},
			})
			ra.Recommendations = append(ra.Recommendations, f.mitigation)
		}
	}

	switch {
	case ra.SuccessProbability >= 65:
		ra.ComparedToAverage = "Above average"
	case ra.SuccessProbability >= 45:
		ra.ComparedToAverage = "Average"
	default:
		ra.ComparedToAverage = "Below average"
	}
	return ra
}
