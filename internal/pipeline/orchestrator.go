// Package pipeline drives the staged decision analysis: interpretation,
// scenario simulation, branch resolution, and final synthesis.
//
// Stages run strictly in sequence. Each stage serializes the prior artifacts
// into one model call made through the retry wrapper, sanitizes the raw
// response, parses it into the stage's target structure, and validates the
// structural invariants before committing any state. A failed stage leaves
// the pipeline exactly where it was, so the caller can re-invoke the same
// stage with identical input.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/LifeDraft/internal/genai"
	"github.com/BTreeMap/LifeDraft/internal/models"
	"github.com/BTreeMap/LifeDraft/internal/retry"
)

// Generator defines the generative operations the pipeline needs. The genai
// client satisfies it; tests substitute a scripted mock.
type Generator interface {
	// GenerateJSON requests structured output and returns the raw response text.
	GenerateJSON(ctx context.Context, req genai.JSONRequest) (string, error)
	// GenerateChat continues a multi-turn conversation and returns the reply.
	GenerateChat(ctx context.Context, systemInstruction string, history []models.ChatMessage) (string, error)
	// GenerateImage generates an image, returning bytes and media type.
	GenerateImage(ctx context.Context, prompt string) ([]byte, string, error)
	// GenerateSpeech synthesizes text and returns base64-encoded raw PCM.
	GenerateSpeech(ctx context.Context, text string) (string, error)
	// SimulationModel names the model used for the heavy simulation call.
	SimulationModel() string
}

// Orchestrator owns the pipeline state for one decision run. It is not safe
// for concurrent use: stages mutate state one transition at a time.
type Orchestrator struct {
	gen    Generator
	policy retry.Policy

	stage     models.Stage
	input     models.UserInput
	artifact  *models.ReasoningArtifact
	drivers   []string
	result    *models.SimulationResult
	answers   models.CrossroadAnswers
	directive *models.FinalDirective
	// directiveKey fingerprints the answer set the cached directive was
	// synthesized for.
	directiveKey string
}

// Option defines a configuration option for the orchestrator.
type Option func(*Orchestrator)

// WithRetryPolicy overrides the default retry policy for all model calls.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// New creates an orchestrator at the interpret stage.
func New(gen Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{gen: gen, stage: models.StageInterpret}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Stage returns the next stage the pipeline expects to run.
func (o *Orchestrator) Stage() models.Stage { return o.stage }

// Artifact returns the committed reasoning artifact, if any.
func (o *Orchestrator) Artifact() *models.ReasoningArtifact { return o.artifact }

// Result returns the committed simulation result, if any.
func (o *Orchestrator) Result() *models.SimulationResult { return o.result }

// Directive returns the cached final directive, if any.
func (o *Orchestrator) Directive() *models.FinalDirective { return o.directive }

// Input returns the decision input the pipeline is running on.
func (o *Orchestrator) Input() models.UserInput { return o.input }

// Interpret runs the first stage: extract structure from the raw decision
// input. When prev is non-nil it is supplied to the model as refinement
// context; the returned artifact replaces it wholesale, and any downstream
// state (simulation, answers, directive) is discarded.
func (o *Orchestrator) Interpret(ctx context.Context, input models.UserInput, prev *models.ReasoningArtifact) (*models.ReasoningArtifact, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	raw, err := retry.Do(ctx, o.policy, func(ctx context.Context) (string, error) {
		return o.gen.GenerateJSON(ctx, genai.JSONRequest{
			SystemInstruction: interpreterInstruction,
			Prompt:            interpretPrompt(input, prev),
			Images:            input.Images,
		})
	})
	if err != nil {
		slog.Error("Interpret stage call failed", "error", err)
		return nil, err
	}

	artifact, err := decodeStrict[models.ReasoningArtifact](raw)
	if err != nil {
		slog.Error("Interpret stage returned malformed response", "error", err)
		return nil, err
	}

	o.input = input
	o.artifact = artifact
	o.drivers = nil
	o.result = nil
	o.answers = nil
	o.directive = nil
	o.directiveKey = ""
	o.stage = models.StageDriverSelection
	slog.Debug("Interpret stage committed", "summary", artifact.DecisionSummary)
	return artifact, nil
}

// SelectDrivers records the user's five value drivers. Pure validation; no
// model call is made.
func (o *Orchestrator) SelectDrivers(values []string) error {
	if o.artifact == nil {
		return models.ErrNoArtifact
	}
	if err := models.ValidateDrivers(values); err != nil {
		return err
	}
	o.drivers = append([]string(nil), values...)
	o.stage = models.StageSimulate
	slog.Debug("Driver selection committed", "drivers", o.drivers)
	return nil
}

// Simulate runs the scenario simulation. It issues the primary call, then the
// reflection sub-call reviewing the fresh result, then best-effort vision
// image generation. The primary and reflection calls must both succeed; the
// image call may fail without failing the stage.
func (o *Orchestrator) Simulate(ctx context.Context) (*models.SimulationResult, error) {
	if o.artifact == nil {
		return nil, models.ErrNoArtifact
	}
	if err := models.ValidateDrivers(o.drivers); err != nil {
		return nil, err
	}

	raw, err := retry.Do(ctx, o.policy, func(ctx context.Context) (string, error) {
		return o.gen.GenerateJSON(ctx, genai.JSONRequest{
			Model:             o.gen.SimulationModel(),
			SystemInstruction: simulatorInstruction,
			Prompt:            simulatePrompt(o.artifact, o.drivers),
			Images:            o.input.Images,
		})
	})
	if err != nil {
		slog.Error("Simulate stage primary call failed", "error", err)
		return nil, err
	}

	result, err := decodeStrict[models.SimulationResult](raw)
	if err != nil {
		slog.Error("Simulate stage returned malformed response", "error", err)
		return nil, err
	}
	if err := result.Validate(); err != nil {
		slog.Error("Simulate stage result failed validation", "error", err)
		return nil, err
	}
	result.ReasoningArtifact = o.artifact

	reflection, err := o.reflect(ctx, result)
	if err != nil {
		slog.Error("Simulate stage reflection sub-call failed", "error", err)
		return nil, err
	}
	result.Reflection = reflection

	// Vision image is best-effort enrichment; the artifact is usable
	// without it.
	if img := o.visionImage(ctx, result); img != nil {
		result.VisionImage = img
	}

	o.result = result
	o.answers = make(models.CrossroadAnswers)
	o.directive = nil
	o.directiveKey = ""
	o.stage = models.StageBranchResolution
	slog.Debug("Simulate stage committed", "crossroads", len(result.Crossroads))
	return result, nil
}

// reflect issues the reflection sub-call reviewing a fresh simulation result.
func (o *Orchestrator) reflect(ctx context.Context, result *models.SimulationResult) (*models.SelfReflection, error) {
	raw, err := retry.Do(ctx, o.policy, func(ctx context.Context) (string, error) {
		return o.gen.GenerateJSON(ctx, genai.JSONRequest{
			SystemInstruction: reflectionInstruction,
			Prompt:            "REVIEW SIMULATION: " + marshalJSON(result),
		})
	})
	if err != nil {
		return nil, err
	}
	return decodeStrict[models.SelfReflection](raw)
}

// visionImage generates the optional vision-board image. Failures are logged
// and absorbed.
func (o *Orchestrator) visionImage(ctx context.Context, result *models.SimulationResult) *models.VisionImage {
	prompt := fmt.Sprintf(visionPromptFormat, result.Outcomes.MostLikely.Title, result.Summary)
	type image struct {
		data     []byte
		mimeType string
	}
	img, err := retry.Do(ctx, o.policy, func(ctx context.Context) (image, error) {
		data, mimeType, err := o.gen.GenerateImage(ctx, prompt)
		return image{data: data, mimeType: mimeType}, err
	})
	if err != nil {
		slog.Warn("Vision image generation failed; continuing without it", "error", err)
		return nil
	}
	return &models.VisionImage{Data: img.data, MIMEType: img.mimeType}
}

// AnswerCrossroad records one branch choice. Once all ten are answered the
// pipeline advances to the synthesize stage.
func (o *Orchestrator) AnswerCrossroad(index int, answer models.Answer) error {
	if o.result == nil {
		return models.ErrNoSimulation
	}
	if index < 0 || index >= models.ExactCrossroadCount {
		return models.ErrCrossroadIndex
	}
	if !models.IsValidAnswer(answer) {
		return models.ErrInvalidAnswer
	}
	o.answers[index] = answer
	if o.answers.Complete() {
		o.stage = models.StageSynthesize
	}
	return nil
}

// ResolveBranches records a full answer set in one call.
func (o *Orchestrator) ResolveBranches(answers models.CrossroadAnswers) error {
	if o.result == nil {
		return models.ErrNoSimulation
	}
	for index, answer := range answers {
		if index < 0 || index >= models.ExactCrossroadCount {
			return models.ErrCrossroadIndex
		}
		if !models.IsValidAnswer(answer) {
			return models.ErrInvalidAnswer
		}
	}
	for index, answer := range answers {
		o.answers[index] = answer
	}
	if o.answers.Complete() {
		o.stage = models.StageSynthesize
	}
	return nil
}

// Answers returns a copy of the branch answers recorded so far.
func (o *Orchestrator) Answers() models.CrossroadAnswers {
	out := make(models.CrossroadAnswers, len(o.answers))
	for k, v := range o.answers {
		out[k] = v
	}
	return out
}

// Synthesize runs the final stage, producing the directive for the chosen
// branch path. It is idempotent: re-invocation with an unchanged answer set
// returns the cached directive without a model call.
func (o *Orchestrator) Synthesize(ctx context.Context) (*models.FinalDirective, error) {
	if o.result == nil {
		return nil, models.ErrNoSimulation
	}
	if !o.answers.Complete() {
		return nil, models.ErrUnansweredCrossroads
	}

	key := answerKey(o.answers)
	if o.directive != nil && o.directiveKey == key {
		slog.Debug("Synthesize stage returning cached directive")
		return o.directive, nil
	}

	raw, err := retry.Do(ctx, o.policy, func(ctx context.Context) (string, error) {
		return o.gen.GenerateJSON(ctx, genai.JSONRequest{
			SystemInstruction: directiveInstruction,
			Prompt:            synthesizePrompt(o.artifact, o.result.Crossroads, o.answers),
		})
	})
	if err != nil {
		slog.Error("Synthesize stage call failed", "error", err)
		return nil, err
	}

	directive, err := decodeStrict[models.FinalDirective](raw)
	if err != nil {
		slog.Error("Synthesize stage returned malformed response", "error", err)
		return nil, err
	}
	if directive.FinalVerdict == "" {
		return nil, fmt.Errorf("%w: directive has empty verdict", models.ErrMalformedResponse)
	}

	o.directive = directive
	o.directiveKey = key
	o.stage = models.StageComplete
	slog.Debug("Synthesize stage committed", "plan_steps", len(directive.ActionPlan))
	return directive, nil
}

// SpeakDirective synthesizes the final verdict to speech, returning the
// base64-encoded PCM payload for the audio decoder. Callers treat failure as
// a non-critical degradation.
func (o *Orchestrator) SpeakDirective(ctx context.Context) (string, error) {
	if o.directive == nil {
		return "", fmt.Errorf("no directive to speak; run synthesize first")
	}
	return retry.Do(ctx, o.policy, func(ctx context.Context) (string, error) {
		return o.gen.GenerateSpeech(ctx, o.directive.FinalVerdict)
	})
}

// decodeStrict sanitizes a raw model response and parses it into T. Any
// parse failure, including an empty sanitized payload, is a malformed
// response: the caller must fail the stage, never substitute defaults.
func decodeStrict[T any](raw string) (*T, error) {
	cleaned := genai.ExtractJSON(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty payload after sanitization", models.ErrMalformedResponse)
	}
	var out T
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
	}
	return &out, nil
}

// marshalJSON serializes an artifact for inclusion in a prompt.
func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func valueOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func interpretPrompt(input models.UserInput, prev *models.ReasoningArtifact) string {
	var b strings.Builder
	b.WriteString("CURRENT INPUT:\n")
	fmt.Fprintf(&b, "Foundations: %s\n", valueOrNA(input.Situation))
	fmt.Fprintf(&b, "Pivot: %s\n", valueOrNA(input.Decision))
	fmt.Fprintf(&b, "Goals: %s\n", valueOrNA(input.Goals))
	fmt.Fprintf(&b, "Fears: %s\n", valueOrNA(input.Fears))
	fmt.Fprintf(&b, "Constraints: %s\n", valueOrNA(input.Constraints))
	b.WriteString("\nPREVIOUS INTERPRETATION (to refine): ")
	if prev != nil {
		b.WriteString(marshalJSON(prev))
	} else {
		b.WriteString("{}")
	}
	b.WriteString("\n\nIf an image is provided, analyze the environment and current reality context from the visual data as well.\n")
	return b.String()
}

func simulatePrompt(artifact *models.ReasoningArtifact, drivers []string) string {
	return fmt.Sprintf("DECISION STATE V1:\n%s\n\nSELECTED LIFE DRIVERS:\n%s\n",
		marshalJSON(artifact), strings.Join(drivers, ", "))
}

func synthesizePrompt(artifact *models.ReasoningArtifact, crossroads []models.DecisionCrossroad, answers models.CrossroadAnswers) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DECISION STATE V1: %s\n", marshalJSON(artifact))
	b.WriteString("PATH CHOSEN:\n")
	for i, c := range crossroads {
		fmt.Fprintf(&b, "Junction %d: %s -> %s\n", i+1, c.Question, answers[i])
	}
	return b.String()
}

// answerKey fingerprints an answer set for directive caching.
func answerKey(answers models.CrossroadAnswers) string {
	var b strings.Builder
	for i := 0; i < models.ExactCrossroadCount; i++ {
		if answers[i] == models.AnswerYes {
			b.WriteByte('y')
		} else {
			b.WriteByte('n')
		}
	}
	return b.String()
}
