// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"

	"github.com/nateginn/chiron/internal/httputil"
	"github.com/nateginn/chiron/pkg/types"
)

// systemPrompt is the fixed system role for generative filling.
const systemPrompt = "You are a medical assistant that creates SOAP notes from doctor-patient conversations."

// fillPromptTmpl is the user prompt sent to the chat-completions API.
// Each template section is shown with its placeholders visible so the
// model fills them in place.
var fillPromptTmpl = template.Must(template.New("fill").Parse(`I need you to create a SOAP note based on the following doctor-patient conversation.

CONVERSATION TRANSCRIPT:
{{.Transcript}}

EXTRACTED MEDICAL KEYWORDS:
{{.Keywords}}

Please create a SOAP note with the following sections:
{{range .Sections}}
{{.Header}}: {{.Body}}{{end}}

Replace all placeholders like [SYMPTOMS], [HISTORY], etc. with appropriate information from the conversation.
Format your response as a complete SOAP note with clear section headers.
`))

// ChatBackend abstracts the chat-completions API so tests can supply a mock.
type ChatBackend interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// openAIEndpoint is the chat-completions endpoint. Package-level var for
// test substitution.
var openAIEndpoint = "https://api.openai.com/v1/chat/completions"

// OpenAIBackend calls an OpenAI-compatible chat-completions API.
type OpenAIBackend struct {
	APIKey     string
	Model      string
	Endpoint   string
	Client     *http.Client
	MaxRetries int
}

// NewOpenAIBackend builds a backend from the filler configuration.
func NewOpenAIBackend(cfg types.FillerConfig) *OpenAIBackend {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = openAIEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	client := &http.Client{}
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	return &OpenAIBackend{
		APIKey:     cfg.APIKey,
		Model:      model,
		Endpoint:   endpoint,
		Client:     client,
		MaxRetries: cfg.MaxRetries,
	}
}

// chatRequest is the request body for the chat-completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// chatMessage is a single message in the conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response body from the chat-completions API.
type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

// Complete sends the system and user messages at low temperature and
// returns the first choice's text.
func (b *OpenAIBackend) Complete(ctx context.Context, system, user string) (string, error) {
	reqBody := chatRequest{
		Model: b.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.APIKey)

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, b.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("calling chat API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat API returned %d: %s", resp.StatusCode, string(msg))
	}

	var cResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(cResp.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}
	return strings.TrimSpace(cResp.Choices[0].Message.Content), nil
}

// fillWithModel renders the prompt, calls the backend, and parses the
// response back into the four sections.
func (f *Filler) fillWithModel(ctx context.Context, tpl types.Template, transcription string, keywords []types.Keyword) (types.SOAPNote, error) {
	prompt, err := buildPrompt(tpl, transcription, keywords)
	if err != nil {
		return types.SOAPNote{}, fmt.Errorf("rendering prompt: %w", err)
	}

	text, err := f.backend.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return types.SOAPNote{}, err
	}

	note := ParseResponse(text)
	if note == (types.SOAPNote{}) {
		return types.SOAPNote{}, fmt.Errorf("no recognizable sections in model response")
	}
	return note, nil
}

type promptSection struct {
	Header string
	Body   string
}

func buildPrompt(tpl types.Template, transcription string, keywords []types.Keyword) (string, error) {
	labeled := make([]string, len(keywords))
	for i, k := range keywords {
		labeled[i] = fmt.Sprintf("%s (%s)", k.Text, k.Label)
	}

	sections := make([]promptSection, 0, len(types.SOAPSections))
	for _, name := range types.SOAPSections {
		sections = append(sections, promptSection{
			Header: strings.ToUpper(name),
			Body:   tpl.Sections[name],
		})
	}

	var buf bytes.Buffer
	err := fillPromptTmpl.Execute(&buf, struct {
		Transcript string
		Keywords   string
		Sections   []promptSection
	}{
		Transcript: transcription,
		Keywords:   strings.Join(labeled, ", "),
		Sections:   sections,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
