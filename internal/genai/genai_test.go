package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/BTreeMap/LifeDraft/internal/models"
)

// mockGenerator implements contentGenerator for testing.
type mockGenerator struct {
	resp *genai.GenerateContentResponse
	err  error

	lastModel    string
	lastContents []*genai.Content
	lastConfig   *genai.GenerateContentConfig
}

func (m *mockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.lastModel = model
	m.lastContents = contents
	m.lastConfig = config
	return m.resp, m.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

func inlineResponse(data []byte, mimeType string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{
				{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
			}}},
		},
	}
}

func newTestClient(gen contentGenerator) *Client {
	cfg := Opts{APIKey: "test"}
	applyModelDefaults(&cfg)
	return &Client{gen: gen, opts: cfg}
}

func TestGenerateJSON(t *testing.T) {
	mock := &mockGenerator{resp: textResponse(`{"ok": true}`)}
	client := newTestClient(mock)

	out, err := client.GenerateJSON(context.Background(), JSONRequest{
		SystemInstruction: "be structured",
		Prompt:            "analyze this",
		Images:            []models.Attachment{{Data: []byte{0xFF}, MIMEType: "image/jpeg"}},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != `{"ok": true}` {
		t.Errorf("unexpected output %q", out)
	}
	if mock.lastModel != DefaultTextModel {
		t.Errorf("expected default text model, got %q", mock.lastModel)
	}
	if mock.lastConfig.ResponseMIMEType != "application/json" {
		t.Errorf("expected JSON response MIME type, got %q", mock.lastConfig.ResponseMIMEType)
	}
	if mock.lastConfig.SystemInstruction == nil {
		t.Error("expected system instruction to be set")
	}
	parts := mock.lastContents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected text part plus image part, got %d parts", len(parts))
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "image/jpeg" {
		t.Error("expected inline image part tagged image/jpeg")
	}
}

func TestGenerateJSONModelOverride(t *testing.T) {
	mock := &mockGenerator{resp: textResponse(`{}`)}
	client := newTestClient(mock)

	_, err := client.GenerateJSON(context.Background(), JSONRequest{Model: DefaultSimulationModel, Prompt: "simulate"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if mock.lastModel != DefaultSimulationModel {
		t.Errorf("expected simulation model, got %q", mock.lastModel)
	}
}

func TestGenerateJSONServiceError(t *testing.T) {
	mock := &mockGenerator{err: errors.New("service failure")}
	client := newTestClient(mock)

	_, err := client.GenerateJSON(context.Background(), JSONRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestGenerateJSONNoCandidates(t *testing.T) {
	mock := &mockGenerator{resp: &genai.GenerateContentResponse{}}
	client := newTestClient(mock)

	_, err := client.GenerateJSON(context.Background(), JSONRequest{Prompt: "x"})
	if err != ErrNoCandidates {
		t.Errorf("expected ErrNoCandidates, got %v", err)
	}
}

func TestGenerateChat(t *testing.T) {
	mock := &mockGenerator{resp: textResponse("a gentle reply")}
	client := newTestClient(mock)

	history := []models.ChatMessage{
		{Role: models.ChatRoleUser, Body: "should I go?"},
		{Role: models.ChatRoleModel, Body: "what holds you back?"},
		{Role: models.ChatRoleUser, Body: "fear, mostly"},
	}
	out, err := client.GenerateChat(context.Background(), "be kind", history)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "a gentle reply" {
		t.Errorf("unexpected reply %q", out)
	}
	if len(mock.lastContents) != 3 {
		t.Fatalf("expected full transcript sent, got %d contents", len(mock.lastContents))
	}
	if mock.lastContents[1].Role != genai.RoleModel {
		t.Errorf("expected second turn to carry the model role, got %q", mock.lastContents[1].Role)
	}
	if mock.lastConfig == nil || mock.lastConfig.SystemInstruction == nil {
		t.Error("expected system instruction to be set")
	}
}

func TestGenerateImage(t *testing.T) {
	mock := &mockGenerator{resp: inlineResponse([]byte{1, 2, 3}, "image/png")}
	client := newTestClient(mock)

	data, mimeType, err := client.GenerateImage(context.Background(), "a vision board")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(data) != 3 || mimeType != "image/png" {
		t.Errorf("unexpected image payload %v %q", data, mimeType)
	}
	if mock.lastModel != DefaultImageModel {
		t.Errorf("expected image model, got %q", mock.lastModel)
	}
}

func TestGenerateImageNoInlineData(t *testing.T) {
	mock := &mockGenerator{resp: textResponse("sorry, words only")}
	client := newTestClient(mock)

	_, _, err := client.GenerateImage(context.Background(), "a vision board")
	if err != ErrNoInlineData {
		t.Errorf("expected ErrNoInlineData, got %v", err)
	}
}

func TestGenerateSpeech(t *testing.T) {
	pcm := []byte{0x00, 0x40, 0x00, 0xC0}
	mock := &mockGenerator{resp: inlineResponse(pcm, "audio/pcm")}
	client := newTestClient(mock)

	out, err := client.GenerateSpeech(context.Background(), "you've got this")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != base64.StdEncoding.EncodeToString(pcm) {
		t.Errorf("expected base64 PCM payload, got %q", out)
	}
	if mock.lastModel != DefaultSpeechModel {
		t.Errorf("expected speech model, got %q", mock.lastModel)
	}
	if len(mock.lastConfig.ResponseModalities) != 1 || mock.lastConfig.ResponseModalities[0] != "AUDIO" {
		t.Errorf("expected AUDIO response modality, got %v", mock.lastConfig.ResponseModalities)
	}
	if mock.lastConfig.SpeechConfig == nil || mock.lastConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != DefaultVoice {
		t.Error("expected prebuilt voice config with default voice")
	}
}

func TestNewClientNoKey(t *testing.T) {
	_, err := NewClient(context.Background())
	if err != ErrMissingAPIKey {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}
