// Package genai provides generative model operations using the Google GenAI
// API.
//
// One client serves all three modalities the pipeline needs: JSON-structured
// text generation (with optional inline image context), vision-image
// generation, and text-to-speech synthesis returning raw PCM audio.
package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/BTreeMap/LifeDraft/internal/models"
)

// Model defaults for each modality.
const (
	// DefaultTextModel handles interpretation, reflection, synthesis, and chat.
	DefaultTextModel = "gemini-3-flash-preview"
	// DefaultSimulationModel handles the heavier scenario simulation call.
	DefaultSimulationModel = "gemini-3-pro-preview"
	// DefaultImageModel generates the vision-board image.
	DefaultImageModel = "gemini-2.5-flash-image"
	// DefaultSpeechModel synthesizes spoken directives.
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	// DefaultVoice is the prebuilt voice used for spoken directives.
	DefaultVoice = "Kore"
)

// Error variables for better error handling and testability
var (
	ErrMissingAPIKey = errors.New("API key must be provided")
	ErrNoCandidates  = errors.New("no candidates returned")
	ErrNoInlineData  = errors.New("no inline data in response")
	ErrEmptyResponse = errors.New("empty text response")
)

// contentGenerator defines the minimal interface for content generation.
// *genai.Models satisfies it; tests substitute a mock.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Opts holds configuration options for the GenAI client. Credentials are
// always passed explicitly; this package never reads the process environment.
type Opts struct {
	APIKey          string
	TextModel       string
	SimulationModel string
	ImageModel      string
	SpeechModel     string
	Voice           string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the API key used to authenticate against the service.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithTextModel overrides the default text model.
func WithTextModel(model string) Option {
	return func(o *Opts) { o.TextModel = model }
}

// WithSimulationModel overrides the default simulation model.
func WithSimulationModel(model string) Option {
	return func(o *Opts) { o.SimulationModel = model }
}

// WithImageModel overrides the default image model.
func WithImageModel(model string) Option {
	return func(o *Opts) { o.ImageModel = model }
}

// WithSpeechModel overrides the default speech model.
func WithSpeechModel(model string) Option {
	return func(o *Opts) { o.SpeechModel = model }
}

// WithVoice overrides the default prebuilt voice.
func WithVoice(voice string) Option {
	return func(o *Opts) { o.Voice = voice }
}

// Client wraps the GenAI content-generation service for the pipeline.
type Client struct {
	gen  contentGenerator
	opts Opts
}

// NewClient initializes a new GenAI client from explicit options.
func NewClient(ctx context.Context, options ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	applyModelDefaults(&cfg)

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Client{gen: cli.Models, opts: cfg}, nil
}

func applyModelDefaults(cfg *Opts) {
	if cfg.TextModel == "" {
		cfg.TextModel = DefaultTextModel
	}
	if cfg.SimulationModel == "" {
		cfg.SimulationModel = DefaultSimulationModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = DefaultSpeechModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
}

// SimulationModel returns the configured heavy-simulation model name.
func (c *Client) SimulationModel() string { return c.opts.SimulationModel }

// JSONRequest describes one structured-output generation call.
type JSONRequest struct {
	// Model to invoke; defaults to the configured text model.
	Model string
	// SystemInstruction frames the model's role for this call.
	SystemInstruction string
	// Prompt is the user-content text payload.
	Prompt string
	// Images are optional inline attachments appended after the text part.
	Images []models.Attachment
}

// GenerateJSON requests structured (JSON) output and returns the raw text of
// the response. The caller is responsible for sanitizing and parsing it.
func (c *Client) GenerateJSON(ctx context.Context, req JSONRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.opts.TextModel
	}

	parts := []*genai.Part{{Text: req.Prompt}}
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIMEType},
		})
	}
	contents := []*genai.Content{{Parts: parts, Role: genai.RoleUser}}

	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}

	resp, err := c.gen.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", err
	}
	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	return text, nil
}

// GenerateChat continues a multi-turn conversation. The full transcript is
// sent on every call; the service holds no session state.
func (c *Client) GenerateChat(ctx context.Context, systemInstruction string, history []models.ChatMessage) (string, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.RoleUser
		if m.Role == models.ChatRoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: m.Body}}, Role: role})
	}

	var cfg *genai.GenerateContentConfig
	if systemInstruction != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		}
	}

	resp, err := c.gen.GenerateContent(ctx, c.opts.TextModel, contents, cfg)
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

// GenerateImage generates a single image for the given prompt and returns its
// bytes with their media type.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	contents := []*genai.Content{{Parts: []*genai.Part{{Text: prompt}}, Role: genai.RoleUser}}
	resp, err := c.gen.GenerateContent(ctx, c.opts.ImageModel, contents, nil)
	if err != nil {
		return nil, "", err
	}
	blob, err := responseInlineData(resp)
	if err != nil {
		return nil, "", err
	}
	return blob.Data, blob.MIMEType, nil
}

// GenerateSpeech synthesizes the given text and returns the raw PCM payload
// base64-encoded, as consumed by the audio decoder. Samples are signed 16-bit
// little-endian mono at 24 kHz.
func (c *Client) GenerateSpeech(ctx context.Context, text string) (string, error) {
	contents := []*genai.Content{{Parts: []*genai.Part{{Text: text}}, Role: genai.RoleUser}}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.opts.Voice},
			},
		},
	}
	resp, err := c.gen.GenerateContent(ctx, c.opts.SpeechModel, contents, cfg)
	if err != nil {
		return "", err
	}
	blob, err := responseInlineData(resp)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(blob.Data), nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoCandidates
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			text += part.Text
		}
	}
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// responseInlineData returns the first inline blob of the first candidate.
func responseInlineData(resp *genai.GenerateContentResponse) (*genai.Blob, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrNoCandidates
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData, nil
		}
	}
	return nil, ErrNoInlineData
}
