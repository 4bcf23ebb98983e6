// Package career implements the career planning workflow on top of the graph
// engine.
//
// Phase one parses a Profile and ranks the three best fitting careers.
// Phase two simulates one selected career:
//
//	market_scout -> gap_analyst -(gap > 80)-> alternative_suggester -> timeline_simulator
//	                            -(otherwise)-------------------------> timeline_simulator
//	timeline_simulator -> financial_advisor, risk_assessor -> dashboard_formatter
//
// Every node has a fallback, so a failing node degrades the run instead of
// stopping it. The two phases are joined by a session.Orchestrator built with
// NewOrchestrator:
//
//	o, _ := career.NewOrchestrator(memory.NewMemoryCheckpointStore())
//	res, _ := o.BeginPhaseOne(ctx, career.Input(profile))
//	fits := career.Fits(res.Options)
//	final, _ := o.ResumePhaseTwo(ctx, res.CheckpointID, 0)
//
// LegacyGraph runs both halves as one graph against the first role the
// profile names.
package career
