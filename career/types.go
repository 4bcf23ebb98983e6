package career

// Profile is the raw input for a run, as submitted by the user.
type Profile struct {
	Name           string  `json:"name" yaml:"name"`
	Age            int     `json:"age,omitempty" yaml:"age"`
	Country        string  `json:"country,omitempty" yaml:"country"`
	EducationLevel string  `json:"education_level,omitempty" yaml:"education_level"`
	Major          string  `json:"major,omitempty" yaml:"major"`
	GPA            float64 `json:"gpa,omitempty" yaml:"gpa"`
	// GradingScale is the maximum GPA, 4 when unset.
	GradingScale   float64 `json:"grading_scale,omitempty" yaml:"grading_scale"`
	GraduationYear int     `json:"graduation_year,omitempty" yaml:"graduation_year"`

	TargetFields  []string `json:"target_fields,omitempty" yaml:"target_fields"`
	SpecificRoles []string `json:"specific_roles,omitempty" yaml:"specific_roles"`

	// TechnicalSkills maps a skill to basic, intermediate or advanced.
	TechnicalSkills map[string]string `json:"technical_skills,omitempty" yaml:"technical_skills"`
	// SoftSkills maps a skill to a 1-5 rating.
	SoftSkills map[string]int `json:"soft_skills,omitempty" yaml:"soft_skills"`
	Interests  []string       `json:"interests,omitempty" yaml:"interests"`

	// WorkPreference is people, data or things.
	WorkPreference string `json:"work_preference,omitempty" yaml:"work_preference"`
	// RiskTolerance is low, medium or high.
	RiskTolerance string `json:"risk_tolerance,omitempty" yaml:"risk_tolerance"`

	// InvestmentBudget is what the user can spend on the transition, in USD.
	InvestmentBudget float64 `json:"investment_budget,omitempty" yaml:"investment_budget"`
	TargetMinSalary  float64 `json:"target_min_salary,omitempty" yaml:"target_min_salary"`
	HoursPerWeek     int     `json:"hours_per_week,omitempty" yaml:"hours_per_week"`
	ExperienceYears  float64 `json:"experience_years,omitempty" yaml:"experience_years"`

	ResumeText string `json:"resume_text,omitempty" yaml:"resume_text"`
}

// NormalizedProfile is the profile after parsing and scoring.
type NormalizedProfile struct {
	Profile Profile `json:"profile"`

	NormalizedGPA    float64 `json:"normalized_gpa"`
	AcademicStrength float64 `json:"academic_strength"`

	// Skills combines declared skills with skills inferred from the resume,
	// keyed by lower-case name, valued by level.
	Skills         map[string]string `json:"skills"`
	InferredSkills []string          `json:"inferred_skills,omitempty"`

	Persona string   `json:"persona"`
	Traits  []string `json:"traits,omitempty"`

	CareerReadiness    float64 `json:"career_readiness"`
	FinancialReadiness float64 `json:"financial_readiness"`
	SkillReadiness     float64 `json:"skill_readiness"`

	Summary string `json:"summary"`
}

// CareerFit is one ranked option produced by phase one.
type CareerFit struct {
	Rank  int    `json:"rank"`
	Title string `json:"title"`
	Field string `json:"field"`

	OverallFit  float64 `json:"overall_fit"`
	SkillFit    float64 `json:"skill_fit"`
	InterestFit float64 `json:"interest_fit"`
	MarketFit   float64 `json:"market_fit"`

	Tagline     string   `json:"tagline"`
	SalaryRange string   `json:"salary_range"`
	TimeToEntry string   `json:"time_to_entry"`
	Difficulty  string   `json:"difficulty"`
	KeySkills   []string `json:"key_skills,omitempty"`
	NextSteps   []string `json:"next_steps,omitempty"`
	Reasons     []string `json:"reasons,omitempty"`
}

// SalaryRange holds yearly salaries in USD by seniority.
type SalaryRange struct {
	EntryMin  float64 `json:"entry_min"`
	EntryMax  float64 `json:"entry_max"`
	MidMin    float64 `json:"mid_min"`
	MidMax    float64 `json:"mid_max"`
	SeniorMin float64 `json:"senior_min"`
	SeniorMax float64 `json:"senior_max"`
}

// EntryMid is the midpoint of the entry level range.
func (r SalaryRange) EntryMid() float64 { return (r.EntryMin + r.EntryMax) / 2 }

// MidMid is the midpoint of the mid level range.
func (r SalaryRange) MidMid() float64 { return (r.MidMin + r.MidMax) / 2 }

// Requirement is a skill and the level the market expects.
type Requirement struct {
	Skill string `json:"skill"`
	Level string `json:"level"`
}

// MarketInsights describes the job market for the target role.
type MarketInsights struct {
	Role           string        `json:"role"`
	Field          string        `json:"field"`
	Demand         string        `json:"demand"`
	Growth         string        `json:"growth"`
	Competition    string        `json:"competition"`
	Salary         SalaryRange   `json:"salary"`
	RequiredSkills []Requirement `json:"required_skills"`
	MinEducation   string        `json:"min_education"`
	Certifications []string      `json:"certifications,omitempty"`
	EntryYears     float64       `json:"entry_years"`
	Sources        []string      `json:"sources,omitempty"`
}

// SkillGap is the distance between a held and a required skill level.
type SkillGap struct {
	Skill       string  `json:"skill"`
	Current     string  `json:"current"`
	Required    string  `json:"required"`
	Severity    float64 `json:"severity"`
	TimeToClose string  `json:"time_to_close"`
	Priority    string  `json:"priority"`
}

// GapAnalysis compares the profile with the market requirements.
type GapAnalysis struct {
	// OverallScore is 0-100, where 100 is the largest gap.
	OverallScore       float64    `json:"overall_score"`
	Category           string     `json:"category"`
	SkillGaps          []SkillGap `json:"skill_gaps,omitempty"`
	EducationGap       string     `json:"education_gap,omitempty"`
	ExperienceGapYears float64    `json:"experience_gap_years"`
	Strengths          []string   `json:"strengths,omitempty"`
	Bottlenecks        []string   `json:"bottlenecks,omitempty"`
	QuickWins          []string   `json:"quick_wins,omitempty"`
}

// AlternativeCareer is a more reachable role proposed when the gap is large.
type AlternativeCareer struct {
	Role       string   `json:"role"`
	Field      string   `json:"field"`
	Similarity float64  `json:"similarity"`
	Reasons    []string `json:"reasons,omitempty"`
	GapScore   float64  `json:"gap_score"`
	Transition string   `json:"transition"`
}

// Milestone is one step of a career path.
type Milestone struct {
	Year    int     `json:"year"`
	Quarter int     `json:"quarter"`
	Title   string  `json:"title"`
	Type    string  `json:"type"`
	Cost    float64 `json:"cost"`
	Hours   int     `json:"hours"`
}

// CareerPath is one simulated route to the target role.
type CareerPath struct {
	Type        string      `json:"type"`
	Label       string      `json:"label"`
	Years       int         `json:"years"`
	Milestones  []Milestone `json:"milestones"`
	FinalRole   string      `json:"final_role"`
	FinalSalary float64     `json:"final_salary"`
}

// Timeline holds the conservative, realistic and ambitious paths.
type Timeline struct {
	Paths       []CareerPath `json:"paths"`
	Recommended string       `json:"recommended"`
	Reason      string       `json:"reason"`
	Warnings    []string     `json:"warnings,omitempty"`
}

// Path returns the path of the given type.
func (t Timeline) Path(pathType string) (CareerPath, bool) {
	for _, p := range t.Paths {
		if p.Type == pathType {
			return p, true
		}
	}
	return CareerPath{}, false
}

// YearlyFinancials is one year of the cash flow projection.
type YearlyFinancials struct {
	Year                 int     `json:"year"`
	Investment           float64 `json:"investment"`
	Income               float64 `json:"income"`
	NetCashFlow          float64 `json:"net_cash_flow"`
	CumulativeInvestment float64 `json:"cumulative_investment"`
	CumulativeIncome     float64 `json:"cumulative_income"`
}

// FinancialAnalysis projects the cost and return of the recommended path.
type FinancialAnalysis struct {
	TotalInvestment     float64            `json:"total_investment"`
	ByCategory          map[string]float64 `json:"by_category"`
	Yearly              []YearlyFinancials `json:"yearly"`
	BreakEvenYear       int                `json:"break_even_year"`
	FiveYearROI         float64            `json:"five_year_roi"`
	Affordability       string             `json:"affordability"`
	MeetsSalaryTarget   bool               `json:"meets_salary_target"`
	YearsToTargetSalary int                `json:"years_to_target_salary"`
}

// RiskFactor is one identified risk.
type RiskFactor struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Severity    string   `json:"severity"`
	Probability float64  `json:"probability"`
	Mitigation  []string `json:"mitigation,omitempty"`
}

// RiskAssessment estimates the chance of reaching the target role.
type RiskAssessment struct {
	SuccessProbability float64      `json:"success_probability"`
	Factors            []RiskFactor `json:"factors,omitempty"`
	MarketRisk         float64      `json:"market_risk"`
	PersonalRisk       float64      `json:"personal_risk"`
	FinancialRisk      float64      `json:"financial_risk"`
	TechnicalRisk      float64      `json:"technical_risk"`
	ComparedToAverage  string       `json:"compared_to_average"`
	Recommendations    []string     `json:"recommendations,omitempty"`
}

// Metric is a headline number on the dashboard.
type Metric struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Dashboard is the final, presentation ready summary of a simulation.
type Dashboard struct {
	Career             string      `json:"career"`
	Field              string      `json:"field"`
	RecommendedPath    string      `json:"recommended_path"`
	SuccessGauge       float64     `json:"success_gauge"`
	KeyMetrics         []Metric    `json:"key_metrics"`
	Milestones         []Milestone `json:"milestones,omitempty"`
	Alternatives       []string    `json:"alternatives,omitempty"`
	TopRecommendations []string    `json:"top_recommendations,omitempty"`
	ImmediateActions   []string    `json:"immediate_actions,omitempty"`
	Degraded           bool        `json:"degraded"`
}
