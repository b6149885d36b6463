// Package models defines the core data structures for LifeDraft.
//
// This file holds the simulation result composite and its structural
// validation. Exact element counts and closed category enums are hard
// contracts: a response that violates them is malformed, never coerced.
package models

import "fmt"

// EmotionalImpact categorizes how an outcome is expected to feel.
type EmotionalImpact string

const (
	ImpactPositive EmotionalImpact = "Positive"
	ImpactNegative EmotionalImpact = "Negative"
	ImpactNeutral  EmotionalImpact = "Neutral"
)

// IsValidEmotionalImpact checks if the given category is supported.
func IsValidEmotionalImpact(e EmotionalImpact) bool {
	switch e {
	case ImpactPositive, ImpactNegative, ImpactNeutral:
		return true
	default:
		return false
	}
}

// ConfidenceLevel categorizes how confident the simulation is in an outcome.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "Low"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceHigh   ConfidenceLevel = "High"
)

// IsValidConfidenceLevel checks if the given level is supported.
func IsValidConfidenceLevel(c ConfidenceLevel) bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	default:
		return false
	}
}

// RegretLevel categorizes the projected regret risk.
type RegretLevel string

const (
	RegretLow      RegretLevel = "Low"
	RegretModerate RegretLevel = "Moderate"
	RegretHigh     RegretLevel = "High"
	RegretCritical RegretLevel = "Critical"
)

// IsValidRegretLevel checks if the given level is supported.
func IsValidRegretLevel(r RegretLevel) bool {
	switch r {
	case RegretLow, RegretModerate, RegretHigh, RegretCritical:
		return true
	default:
		return false
	}
}

// Sentiment categorizes a relational impact.
type Sentiment string

const (
	SentimentGrowth   Sentiment = "Growth"
	SentimentFriction Sentiment = "Friction"
	SentimentNeutral  Sentiment = "Neutral"
)

// IsValidSentiment checks if the given sentiment is supported.
func IsValidSentiment(s Sentiment) bool {
	switch s {
	case SentimentGrowth, SentimentFriction, SentimentNeutral:
		return true
	default:
		return false
	}
}

// Outcome is one named scenario result (best, worst, or most likely).
type Outcome struct {
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	Probability         float64         `json:"probability"`
	EmotionalImpact     EmotionalImpact `json:"emotionalImpact"`
	LongTermEffect      string          `json:"longTermEffect"`
	ImpactScore         int             `json:"impactScore"`
	ConfidenceLevel     ConfidenceLevel `json:"confidenceLevel"`
	ConfidenceReasoning string          `json:"confidenceReasoning"`
}

func (o *Outcome) validate(name string) error {
	if o.Probability < 0 || o.Probability > 1 {
		return fmt.Errorf("%w: %s outcome probability %v outside [0,1]", ErrMalformedResponse, name, o.Probability)
	}
	if o.ImpactScore < 0 || o.ImpactScore > 10 {
		return fmt.Errorf("%w: %s outcome impact score %d outside [0,10]", ErrMalformedResponse, name, o.ImpactScore)
	}
	if !IsValidEmotionalImpact(o.EmotionalImpact) {
		return fmt.Errorf("%w: %s outcome has unknown emotional impact %q", ErrMalformedResponse, name, o.EmotionalImpact)
	}
	if !IsValidConfidenceLevel(o.ConfidenceLevel) {
		return fmt.Errorf("%w: %s outcome has unknown confidence level %q", ErrMalformedResponse, name, o.ConfidenceLevel)
	}
	return nil
}

// Outcomes holds the three named scenario results of a simulation.
type Outcomes struct {
	Best       Outcome `json:"best"`
	Worst      Outcome `json:"worst"`
	MostLikely Outcome `json:"mostLikely"`
}

// SimulationPath is one broad road the decision could take.
type SimulationPath struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Prioritizes string `json:"prioritizes"`
	Offers      string `json:"offers"`
	Requires    string `json:"requires"`
}

// ValueAlignment scores one selected value driver against the decision.
type ValueAlignment struct {
	Value      string `json:"value"`
	Score      int    `json:"score"`
	Commentary string `json:"commentary"`
}

// DecisionCrossroad is a binary branch question whose answer influences the
// final synthesis.
type DecisionCrossroad struct {
	Question string `json:"question"`
	YesLabel string `json:"yesLabel"`
	NoLabel  string `json:"noLabel"`
	IfYes    string `json:"ifYes"`
	IfNo     string `json:"ifNo"`
}

// RelationalImpact describes how one social sphere is affected.
type RelationalImpact struct {
	Sphere    string    `json:"sphere"`
	Impact    string    `json:"impact"`
	Sentiment Sentiment `json:"sentiment"`
}

// TrajectoryNode is one year of a five-year projection.
type TrajectoryNode struct {
	Period          string `json:"period"`
	Milestone       string `json:"milestone"`
	Consequence     string `json:"consequence"`
	ButterflyEffect string `json:"butterflyEffect"`
}

// RegretAnalysis projects the regret risk of going ahead.
type RegretAnalysis struct {
	Probability        float64     `json:"probability"`
	Level              RegretLevel `json:"level"`
	RedFlags           []string    `json:"redFlags"`
	PreventativeAdvice string      `json:"preventativeAdvice"`
}

// InactionScenario projects what happens if the user does nothing, with its
// own five-year trajectory.
type InactionScenario struct {
	Summary             string           `json:"summary"`
	FiveYearFate        string           `json:"fiveYearFate"`
	StagnationRisk      int              `json:"stagnationRisk"`
	MissedOpportunities []string         `json:"missedOpportunities"`
	Trajectory          []TrajectoryNode `json:"trajectory"`
}

// SelfReflection is the auditor's review of a simulation, attached by the
// reflection sub-call.
type SelfReflection struct {
	AssumptionsMade          []string `json:"assumptionsMade"`
	SensitivityFactors       []string `json:"sensitivityFactors"`
	UncertaintyConcentration string   `json:"uncertaintyConcentration"`
	AdaptationAdvice         string   `json:"adaptationAdvice"`
}

// Verdict is the simulation's own headline recommendation.
type Verdict struct {
	Recommendation    string `json:"recommendation"`
	PrimaryBenefit    string `json:"primaryBenefit"`
	MainTradeoff      string `json:"mainTradeoff"`
	OverallConfidence int    `json:"overallConfidence"`
}

// ChartPoint is one chart-ready probability slice.
type ChartPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Fill  string  `json:"fill"`
}

// ChartScore is one chart-ready impact magnitude entry.
type ChartScore struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// Charts holds chart-ready aggregates produced alongside the simulation.
type Charts struct {
	ProbabilityDistribution []ChartPoint `json:"probabilityDistribution"`
	ImpactMagnitude         []ChartScore `json:"impactMagnitude"`
}

// VisionImage is the optional best-effort enrichment generated from the
// simulation's most likely outcome. The result is fully usable without it.
type VisionImage struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mime_type"`
}

// SimulationResult is the composite artifact of the simulate stage.
type SimulationResult struct {
	Outcomes              Outcomes            `json:"outcomes"`
	Paths                 []SimulationPath    `json:"paths,omitempty"`
	CrossPathObservations []string            `json:"crossPathObservations,omitempty"`
	Alignment             []ValueAlignment    `json:"alignment"`
	Crossroads            []DecisionCrossroad `json:"crossroads"`
	RelationalImpact      []RelationalImpact  `json:"relationalImpact"`
	Trajectory            []TrajectoryNode    `json:"trajectory"`
	RegretAnalysis        RegretAnalysis      `json:"regretAnalysis"`
	InactionScenario      InactionScenario    `json:"inactionScenario"`
	Reflection            *SelfReflection     `json:"reflection,omitempty"`
	ReasoningArtifact     *ReasoningArtifact  `json:"reasoningArtifacts,omitempty"`
	Verdict               Verdict             `json:"verdict"`
	Charts                Charts              `json:"charts"`
	Summary               string              `json:"summary"`
	VisionImage           *VisionImage        `json:"vision_image,omitempty"`
}

// Validate enforces the structural invariants of a simulation response.
// Violations mean the model broke its output contract; the caller must treat
// them as a stage failure, never pad or truncate.
func (s *SimulationResult) Validate() error {
	if err := s.Outcomes.Best.validate("best"); err != nil {
		return err
	}
	if err := s.Outcomes.Worst.validate("worst"); err != nil {
		return err
	}
	if err := s.Outcomes.MostLikely.validate("mostLikely"); err != nil {
		return err
	}
	if len(s.Crossroads) != ExactCrossroadCount {
		return fmt.Errorf("%w: got %d crossroads, want %d", ErrMalformedResponse, len(s.Crossroads), ExactCrossroadCount)
	}
	if len(s.Trajectory) != ExactTrajectoryYears {
		return fmt.Errorf("%w: got %d trajectory nodes, want %d", ErrMalformedResponse, len(s.Trajectory), ExactTrajectoryYears)
	}
	if len(s.InactionScenario.Trajectory) != ExactTrajectoryYears {
		return fmt.Errorf("%w: got %d inaction trajectory nodes, want %d", ErrMalformedResponse, len(s.InactionScenario.Trajectory), ExactTrajectoryYears)
	}
	if !IsValidRegretLevel(s.RegretAnalysis.Level) {
		return fmt.Errorf("%w: unknown regret level %q", ErrMalformedResponse, s.RegretAnalysis.Level)
	}
	for i, r := range s.RelationalImpact {
		if !IsValidSentiment(r.Sentiment) {
			return fmt.Errorf("%w: relational impact %d has unknown sentiment %q", ErrMalformedResponse, i, r.Sentiment)
		}
	}
	if s.InactionScenario.StagnationRisk < 1 || s.InactionScenario.StagnationRisk > 10 {
		return fmt.Errorf("%w: stagnation risk %d outside [1,10]", ErrMalformedResponse, s.InactionScenario.StagnationRisk)
	}
	if s.Verdict.OverallConfidence < 0 || s.Verdict.OverallConfidence > 100 {
		return fmt.Errorf("%w: overall confidence %d outside [0,100]", ErrMalformedResponse, s.Verdict.OverallConfidence)
	}
	for i, a := range s.Alignment {
		if a.Score < 0 || a.Score > 100 {
			return fmt.Errorf("%w: alignment %d score %d outside [0,100]", ErrMalformedResponse, i, a.Score)
		}
	}
	return nil
}
