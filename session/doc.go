// Package session splits a workflow into two independently invoked phases
// joined by a stored checkpoint.
//
// Phase one runs to completion and produces a ranked list of options. Its
// final state is encoded with the graph schema and saved once. An external
// actor then picks an option by index, and phase two resumes from the
// checkpointed state plus that selection. The checkpoint is consumed exactly
// once; a second resume with the same id fails with ErrCheckpointNotFound.
//
//	o, err := session.NewOrchestrator(phaseOne, phaseTwo, store, "career_fits")
//	res, err := o.BeginPhaseOne(ctx, graph.State{"profile": p})
//	final, err := o.ResumePhaseTwo(ctx, res.CheckpointID, 1)
package session
