package career

import (
	"time"

	"github.com/smallnest/careergraph/graph"
	"github.com/smallnest/careergraph/log"
	"github.com/smallnest/careergraph/session"
	"github.com/smallnest/careergraph/store"
)

// Pipeline builds the career graphs.
type Pipeline struct {
	suggester        Suggester
	suggesterRetry   *graph.RetryConfig
	suggesterTimeout time.Duration
	compileOpts      []graph.CompileOption
	logger           log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSuggester sets the suggester used by alternative_suggester. The
// heuristic suggester remains its fallback.
func WithSuggester(s Suggester) Option {
	return func(p *Pipeline) {
		p.suggester = s
	}
}

// WithSuggesterRetry retries failed suggester calls before falling back.
func WithSuggesterRetry(config *graph.RetryConfig) Option {
	return func(p *Pipeline) {
		p.suggesterRetry = config
	}
}

// WithSuggesterTimeout bounds each suggester call.
func WithSuggesterTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.suggesterTimeout = d
	}
}

// WithCompileOptions passes options to every graph compiled by the pipeline.
func WithCompileOptions(opts ...graph.CompileOption) Option {
	return func(p *Pipeline) {
		p.compileOpts = append(p.compileOpts, opts...)
	}
}

// WithLogger sets the logger of the graphs and the orchestrator.
func WithLogger(l log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// New creates a pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{suggester: HeuristicSuggester{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type nodeSpec struct {
	name        string
	description string
	fn          graph.NodeFunc
	fallback    graph.FallbackFunc
	opts        []graph.NodeOption
}

func (p *Pipeline) nodes() map[string]nodeSpec {
	var suggestOpts []graph.NodeOption
	if p.suggesterTimeout > 0 {
		suggestOpts = append(suggestOpts, graph.WithTimeout(p.suggesterTimeout))
	}
	if p.suggesterRetry != nil {
		suggestOpts = append(suggestOpts, graph.WithRetry(p.suggesterRetry))
	}

	specs := []nodeSpec{
		{NodeProfileParser, "Normalises and scores the raw profile", parseProfile, parseProfileFallback, nil},
		{NodeCareerMatcher, "Ranks the three best fitting careers", matchCareers, matchCareersFallback, nil},
		{NodeMarketScout, "Collects market data for the target role", scoutMarket, scoutMarketFallback, nil},
		{NodeGapAnalyst, "Scores the gap between profile and market", analyzeGaps, analyzeGapsFallback, nil},
		{NodeAlternativeSuggester, "Suggests more reachable careers", suggestAlternatives(p.suggester), suggestAlternativesFallback, suggestOpts},
		{NodeTimelineSimulator, "Simulates three career paths", simulateTimeline, simulateTimelineFallback, nil},
		{NodeFinancialAdvisor, "Projects investment and return", adviseFinances, adviseFinancesFallback, nil},
		{NodeRiskAssessor, "Estimates risks and success probability", assessRisks, assessRisksFallback, nil},
		{NodeDashboardFormatter, "Assembles the dashboard", formatDashboard, formatDashboardFallback, nil},
	}
	out := make(map[string]nodeSpec, len(specs))
	for _, s := range specs {
		out[s.name] = s
	}
	return out
}

func (p *Pipeline) build(names ...string) (*graph.StateGraph, error) {
	specs := p.nodes()
	g := graph.NewStateGraph(schema)
	for _, name := range names {
		s := specs[name]
		opts := append([]graph.NodeOption{graph.WithFallback(s.fallback)}, s.opts...)
		if err := g.AddNode(s.name, s.description, s.fn, opts...); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// simulation wires market_scout through dashboard_formatter onto g.
func simulation(g *graph.StateGraph) error {
	steps := []func() error{
		func() error { return g.AddEdge(NodeMarketScout, NodeGapAnalyst) },
		func() error {
			return g.AddConditionalEdge(NodeGapAnalyst, RouteOnGap, map[string]string{
				RouteAlternative: NodeAlternativeSuggester,
				RouteDirect:      NodeTimelineSimulator,
			})
		},
		func() error { return g.AddEdge(NodeAlternativeSuggester, NodeTimelineSimulator) },
		func() error { return g.AddEdge(NodeTimelineSimulator, NodeFinancialAdvisor) },
		func() error { return g.AddEdge(NodeTimelineSimulator, NodeRiskAssessor) },
		func() error { return g.AddEdge(NodeFinancialAdvisor, NodeDashboardFormatter) },
		func() error { return g.AddEdge(NodeRiskAssessor, NodeDashboardFormatter) },
		func() error { return g.AddFanIn(NodeDashboardFormatter, NodeFinancialAdvisor, NodeRiskAssessor) },
		func() error { return g.AddEdge(NodeDashboardFormatter, graph.END) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

var simulationNodes = []string{
	NodeMarketScout, NodeGapAnalyst, NodeAlternativeSuggester, NodeTimelineSimulator,
	NodeFinancialAdvisor, NodeRiskAssessor, NodeDashboardFormatter,
}

// PhaseOneGraph is profile_parser -> career_matcher -> END.
func (p *Pipeline) PhaseOneGraph() (*graph.StateGraph, error) {
	g, err := p.build(NodeProfileParser, NodeCareerMatcher)
	if err != nil {
		return nil, err
	}
	if err := g.SetEntryPoint(NodeProfileParser); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeProfileParser, NodeCareerMatcher); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeCareerMatcher, graph.END); err != nil {
		return nil, err
	}
	return g, nil
}

// PhaseTwoGraph runs the full simulation for a selected career.
func (p *Pipeline) PhaseTwoGraph() (*graph.StateGraph, error) {
	g, err := p.build(simulationNodes...)
	if err != nil {
		return nil, err
	}
	if err := g.SetEntryPoint(NodeMarketScout); err != nil {
		return nil, err
	}
	if err := simulation(g); err != nil {
		return nil, err
	}
	return g, nil
}

// LegacyGraph is the single stage pipeline: the profile is parsed and then
// simulated against the first role it names, without a matching pause.
func (p *Pipeline) LegacyGraph() (*graph.StateGraph, error) {
	g, err := p.build(append([]string{NodeProfileParser}, simulationNodes...)...)
	if err != nil {
		return nil, err
	}
	if err := g.SetEntryPoint(NodeProfileParser); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeProfileParser, NodeMarketScout); err != nil {
		return nil, err
	}
	if err := simulation(g); err != nil {
		return nil, err
	}
	return g, nil
}

func (p *Pipeline) compile(g *graph.StateGraph, err error) (*graph.Runnable, error) {
	if err != nil {
		return nil, err
	}
	opts := p.compileOpts
	if p.logger != nil {
		opts = append([]graph.CompileOption{graph.WithLogger(p.logger)}, opts...)
	}
	return g.Compile(opts...)
}

// PhaseOne compiles PhaseOneGraph.
func (p *Pipeline) PhaseOne() (*graph.Runnable, error) { return p.compile(p.PhaseOneGraph()) }

// PhaseTwo compiles PhaseTwoGraph.
func (p *Pipeline) PhaseTwo() (*graph.Runnable, error) { return p.compile(p.PhaseTwoGraph()) }

// Legacy compiles LegacyGraph.
func (p *Pipeline) Legacy() (*graph.Runnable, error) { return p.compile(p.LegacyGraph()) }

// Orchestrator wires both phases to st.
func (p *Pipeline) Orchestrator(st store.CheckpointStore, opts ...session.Option) (*session.Orchestrator, error) {
	one, err := p.PhaseOne()
	if err != nil {
		return nil, err
	}
	two, err := p.PhaseTwo()
	if err != nil {
		return nil, err
	}
	base := []session.Option{session.WithPrepare(Prepare)}
	if p.logger != nil {
		base = append(base, session.WithLogger(p.logger))
	}
	return session.NewOrchestrator(one, two, st, FieldCareerFits, append(base, opts...)...)
}

// NewOrchestrator is New(opts...).Orchestrator(st).
func NewOrchestrator(st store.CheckpointStore, opts ...Option) (*session.Orchestrator, error) {
	return New(opts...).Orchestrator(st)
}

// Input builds the phase one input for a profile.
func Input(p Profile) graph.State {
	return graph.State{FieldProfile: p}
}
