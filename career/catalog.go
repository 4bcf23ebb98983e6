package career

import (
	"fmt"
	"slices"
	"strings"
)

// Skill levels used throughout the heuristics.
const (
	levelNone = iota
	levelBasic
	levelIntermediate
	levelAdvanced
)

var levelNames = []string{"none", "basic", "intermediate", "advanced"}

func levelOf(name string) int {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "basic", "beginner":
		return levelBasic
	case "intermediate":
		return levelIntermediate
	case "advanced", "expert":
		return levelAdvanced
	default:
		return levelNone
	}
}

func levelName(level int) string {
	if level < 0 || level >= len(levelNames) {
		return levelNames[levelNone]
	}
	return levelNames[level]
}

// role is a catalog entry. Skills map a lower-case skill to its required level.
type role struct {
	Title          string
	Field          string
	Skills         map[string]int
	Keywords       []string
	Demand         string
	Growth         string
	Competition    string
	Education      string
	Certifications []string
	Salary         SalaryRange
	EntryYears     float64
	Difficulty     string
	TimeToEntry    string
	Tagline        string
}

var catalog = []role{
	{
		Title:          "Software Engineer",
		Field:          "Technology",
		Skills:         map[string]int{"programming": levelAdvanced, "git": levelIntermediate, "algorithms": levelIntermediate, "sql": levelBasic, "testing": levelIntermediate},
		Keywords:       []string{"software", "coding", "technology", "programming", "computer science"},
		Demand:         "High",
		Growth:         "Growing",
		Competition:    "High",
		Education:      "bachelor",
		Certifications: []string{"AWS Certified Developer"},
		Salary:         SalaryRange{EntryMin: 75000, EntryMax: 105000, MidMin: 110000, MidMax: 150000, SeniorMin: 150000, SeniorMax: 210000},
		EntryYears:     0,
		Difficulty:     "Moderate",
		TimeToEntry:    "6-12 months",
		Tagline:        "Build the products other people use every day",
	},
	{
		Title:          "Data Scientist",
		Field:          "Data Science",
		Skills:         map[string]int{"python": levelAdvanced, "statistics": levelAdvanced, "machine learning": levelIntermediate, "sql": levelIntermediate, "data visualization": levelIntermediate},
		Keywords:       []string{"data", "statistics", "research", "analytics", "mathematics"},
		Demand:         "High",
		Growth:         "Growing",
		Competition:    "Intense",
		Education:      "master",
		Certifications: []string{"TensorFlow Developer Certificate"},
		Salary:         SalaryRange{EntryMin: 85000, EntryMax: 115000, MidMin: 120000, MidMax: 160000, SeniorMin: 160000, SeniorMax: 220000},
		EntryYears:     1,
		Difficulty:     "Challenging",
		TimeToEntry:    "12-24 months",
		Tagline:        "Turn raw data into decisions",
	},
	{
		Title:          "Machine Learning Engineer",
		Field:          "Technology",
		Skills:         map[string]int{"python": levelAdvanced, "machine learning": levelAdvanced, "deep learning": levelIntermediate, "programming": levelAdvanced, "cloud": levelIntermediate},
		Keywords:       []string{"ai", "machine learning", "artificial intelligence", "technology", "research"},
		Demand:         "Very High",
		Growth:         "Booming",
		Competition:    "Intense",
		Education:      "master",
		Certifications: []string{"AWS Certified Machine Learning"},
		Salary:         SalaryRange{EntryMin: 100000, EntryMax: 135000, MidMin: 140000, MidMax: 190000, SeniorMin: 190000, SeniorMax: 260000},
		EntryYears:     2,
		Difficulty:     "Challenging",
		TimeToEntry:    "18-36 months",
		Tagline:        "Ship models that learn in production",
	},
	{
		Title:          "Data Analyst",
		Field:          "Data Science",
		Skills:         map[string]int{"sql": levelIntermediate, "excel": levelIntermediate, "data visualization": levelIntermediate, "statistics": levelBasic, "python": levelBasic},
		Keywords:       []string{"data", "analytics", "business", "reporting", "spreadsheets"},
		Demand:         "High",
		Growth:         "Stable",
		Competition:    "Medium",
		Education:      "bachelor",
		Certifications: []string{"Google Data Analytics Certificate"},
		Salary:         SalaryRange{EntryMin: 55000, EntryMax: 75000, MidMin: 75000, MidMax: 95000, SeniorMin: 95000, SeniorMax: 125000},
		EntryYears:     0,
		Difficulty:     "Easy",
		TimeToEntry:    "3-6 months",
		Tagline:        "Find the story in the numbers",
	},
	{
		Title:          "Product Manager",
		Field:          "Business",
		Skills:         map[string]int{"communication": levelAdvanced, "product strategy": levelIntermediate, "data analysis": levelBasic, "leadership": levelIntermediate, "user research": levelBasic},
		Keywords:       []string{"product", "business", "strategy", "leadership", "startups"},
		Demand:         "Medium",
		Growth:         "Growing",
		Competition:    "High",
		Education:      "bachelor",
		Certifications: []string{"Certified Scrum Product Owner"},
		Salary:         SalaryRange{EntryMin: 85000, EntryMax: 110000, MidMin: 120000, MidMax: 160000, SeniorMin: 160000, SeniorMax: 230000},
		EntryYears:     3,
		Difficulty:     "Challenging",
		TimeToEntry:    "24-36 months",
		Tagline:        "Decide what gets built and why",
	},
	{
		Title:          "UX Designer",
		Field:          "Design",
		Skills:         map[string]int{"user research": levelIntermediate, "prototyping": levelIntermediate, "figma": levelIntermediate, "visual design": levelIntermediate, "communication": levelIntermediate},
		Keywords:       []string{"design", "art", "psychology", "creativity", "user experience"},
		Demand:         "Medium",
		Growth:         "Stable",
		Competition:    "High",
		Education:      "bachelor",
		Certifications: []string{"Google UX Design Certificate"},
		Salary:         SalaryRange{EntryMin: 60000, EntryMax: 80000, MidMin: 85000, MidMax: 115000, SeniorMin: 115000, SeniorMax: 150000},
		EntryYears:     0,
		Difficulty:     "Moderate",
		TimeToEntry:    "6-12 months",
		Tagline:        "Make technology feel obvious",
	},
	{
		Title:          "DevOps Engineer",
		Field:          "Technology",
		Skills:         map[string]int{"linux": levelAdvanced, "cloud": levelIntermediate, "programming": levelIntermediate, "docker": levelIntermediate, "networking": levelBasic},
		Keywords:       []string{"infrastructure", "cloud", "automation", "technology", "systems"},
		Demand:         "High",
		Growth:         "Growing",
		Competition:    "Medium",
		Education:      "bachelor",
		Certifications: []string{"Certified Kubernetes Administrator", "AWS Certified SysOps Administrator"},
		Salary:         SalaryRange{EntryMin: 80000, EntryMax: 105000, MidMin: 115000, MidMax: 150000, SeniorMin: 150000, SeniorMax: 200000},
		EntryYears:     1,
		Difficulty:     "Moderate",
		TimeToEntry:    "9-18 months",
		Tagline:        "Keep systems fast, safe and running",
	},
	{
		Title:          "Cybersecurity Analyst",
		Field:          "Security",
		Skills:         map[string]int{"networking": levelIntermediate, "linux": levelIntermediate, "security": levelIntermediate, "scripting": levelBasic},
		Keywords:       []string{"security", "hacking", "networks", "privacy", "technology"},
		Demand:         "Very High",
		Growth:         "Booming",
		Competition:    "Low",
		Education:      "bachelor",
		Certifications: []string{"CompTIA Security+", "CISSP"},
		Salary:         SalaryRange{EntryMin: 65000, EntryMax: 90000, MidMin: 95000, MidMax: 125000, SeniorMin: 125000, SeniorMax: 175000},
		EntryYears:     0,
		Difficulty:     "Moderate",
		TimeToEntry:    "6-12 months",
		Tagline:        "Defend the systems everyone depends on",
	},
	{
		Title:          "Financial Analyst",
		Field:          "Finance",
		Skills:         map[string]int{"excel": levelAdvanced, "financial modeling": levelIntermediate, "accounting": levelIntermediate, "communication": levelIntermediate},
		Keywords:       []string{"finance", "economics", "business", "investing", "mathematics"},
		Demand:         "Medium",
		Growth:         "Stable",
		Competition:    "High",
		Education:      "bachelor",
		Certifications: []string{"CFA Level I"},
		Salary:         SalaryRange{EntryMin: 60000, EntryMax: 80000, MidMin: 85000, MidMax: 115000, SeniorMin: 115000, SeniorMax: 160000},
		EntryYears:     0,
		Difficulty:     "Moderate",
		TimeToEntry:    "6-12 months",
		Tagline:        "Put a number on every decision",
	},
}

// genericRole stands in for roles missing from the catalog.
func genericRole(title, field string) role {
	if field == "" {
		field = "General"
	}
	return role{
		Title:       title,
		Field:       field,
		Skills:      map[string]int{"communication": levelIntermediate, "problem solving": levelIntermediate},
		Demand:      "Medium",
		Growth:      "Stable",
		Competition: "Medium",
		Education:   "bachelor",
		Salary:      SalaryRange{EntryMin: 50000, EntryMax: 65000, MidMin: 70000, MidMax: 90000, SeniorMin: 90000, SeniorMax: 120000},
		Difficulty:  "Moderate",
		TimeToEntry: "12 months",
		Tagline:     "A path worth exploring",
	}
}

func lookupRole(title string) (role, bool) {
	for _, r := range catalog {
		if strings.EqualFold(r.Title, strings.TrimSpace(title)) {
			return r, true
		}
	}
	return role{}, false
}

func (r role) requiredSkills() []string {
	out := make([]string, 0, len(r.Skills))
	for s := range r.Skills {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

func (r role) salaryLabel() string {
	return fmt.Sprintf("$%.0fk - $%.0fk", r.Salary.EntryMin/1000, r.Salary.EntryMax/1000)
}

func demandScore(demand string) float64 {
	switch demand {
	case "Very High":
		return 95
	case "High":
		return 80
	case "Medium":
		return 60
	default:
		return 40
	}
}

func competitionScore(competition string) float64 {
	switch competition {
	case "Intense":
		return 85
	case "High":
		return 65
	case "Medium":
		return 45
	default:
		return 25
	}
}

func educationRank(level string) int {
	l := strings.ToLower(level)
	switch {
	case strings.Contains(l, "phd"), strings.Contains(l, "doctor"):
		return 4
	case strings.Contains(l, "master"), strings.Contains(l, "mba"):
		return 3
	case strings.Contains(l, "bachelor"), strings.Contains(l, "b.tech"), strings.Contains(l, "undergrad"):
		return 2
	case strings.Contains(l, "associate"), strings.Contains(l, "diploma"):
		return 1
	default:
		return 0
	}
}
