// Package models defines the pipeline state machine for LifeDraft.
package models

// Stage identifies one step of the decision pipeline. Stages are strictly
// ordered; each is gated on completion of its predecessor.
type Stage string

const (
	// StageInterpret extracts structure from the raw decision input.
	StageInterpret Stage = "INTERPRET"
	// StageDriverSelection is the pure-validation gate requiring exactly
	// five selected value drivers. No model call is made.
	StageDriverSelection Stage = "DRIVER_SELECTION"
	// StageSimulate produces the simulation result, its self-reflection, and
	// the best-effort vision image.
	StageSimulate Stage = "SIMULATE"
	// StageBranchResolution is the pure-validation gate requiring all ten
	// crossroads answered. No model call is made.
	StageBranchResolution Stage = "BRANCH_RESOLUTION"
	// StageSynthesize produces the final directive for the chosen path.
	StageSynthesize Stage = "SYNTHESIZE"
	// StageComplete means a directive has been produced.
	StageComplete Stage = "COMPLETE"
)
