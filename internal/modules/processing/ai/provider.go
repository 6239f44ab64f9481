package ai

import (
	"context"
	"errors"
	"fmt"
	neturl "net/url"
	"strings"
	"time"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ctenarsky-denik/journal/internal/config"
	"github.com/go-resty/resty/v2"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
)

const (
	frequencyPenalty = 0.3
	presencePenalty  = 0.1
)

// CompletionRequest is one call to the inference service.
type CompletionRequest struct {
	Model            string
	System           string
	User             string
	MaxTokens        int
	Temperature      float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// Completer calls an inference service. Implementations return
// ErrEmptyCompletion when the model answers with no text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// temperatureFor maps the writing style to a sampling temperature.
func temperatureFor(s Style) float64 {
	switch s {
	case StyleAcademic:
		return 0.3
	case StyleCreative:
		return 0.9
	default:
		return 0.7
	}
}

// NewCompleter builds the client for a configured provider.
func NewCompleter(provider config.AIProvider) (Completer, error) {
	apiKey := strings.TrimSpace(provider.APIKey)
	if apiKey == "" {
		return nil, errors.New("AI provider api key is empty")
	}
	endpoint := strings.TrimSpace(provider.Endpoint)

	switch normalizeProviderType(provider.Type) {
	case config.ProviderAnthropic:
		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(apiKey),
			anthropicoption.WithMaxRetries(0),
		}
		if endpoint != "" {
			opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
		}
		return &anthropicCompleter{client: anthropicclient.NewClient(opts...)}, nil

	case config.ProviderOpenAICompatible, "openaicompatible":
		client := resty.New().
			SetBaseURL(normalizeOpenAICompatibleEndpoint(endpoint)).
			SetAuthToken(apiKey).
			SetHeader("Content-Type", "application/json")
		return &compatibleCompleter{client: client}, nil

	case config.ProviderOpenAI, "":
		opts := []openaioption.RequestOption{
			openaioption.WithAPIKey(apiKey),
			openaioption.WithMaxRetries(0),
		}
		if normalized := normalizeOpenAIBaseURL(endpoint); normalized != "" {
			opts = append(opts, openaioption.WithBaseURL(normalized))
		}
		return &openAICompleter{client: openaiclient.NewClient(opts...)}, nil

	default:
		return nil, fmt.Errorf("unsupported AI provider type %q", provider.Type)
	}
}

// CompleterFor builds the client of the active provider in cfg. Without one
// every call fails with ErrNoProvider.
func CompleterFor(cfg config.AIConfig) (Completer, error) {
	provider, ok := cfg.ActiveProvider()
	if !ok {
		return noProvider{}, nil
	}
	return NewCompleter(provider)
}

type noProvider struct{}

func (noProvider) Complete(context.Context, CompletionRequest) (string, error) {
	return "", ErrNoProvider
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	return strings.ReplaceAll(t, " ", "")
}

type openAICompleter struct {
	client openaiclient.Client
}

func (c *openAICompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]openaiclient.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openaiclient.SystemMessage(req.System))
	}
	messages = append(messages, openaiclient.UserMessage(req.User))

	resp, err := c.client.Chat.Completions.New(ctx, openaiclient.ChatCompletionNewParams{
		Model:            openaiclient.ChatModel(req.Model),
		Messages:         messages,
		MaxTokens:        openaiclient.Int(int64(req.MaxTokens)),
		Temperature:      openaiclient.Float(req.Temperature),
		FrequencyPenalty: openaiclient.Float(req.FrequencyPenalty),
		PresencePenalty:  openaiclient.Float(req.PresencePenalty),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// anthropicCompleter goes through the jetify abstraction. Anthropic has no
// frequency or presence penalties.
type anthropicCompleter struct {
	client anthropicclient.Client
}

func (c *anthropicCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := jetanthropic.NewLanguageModel(req.Model, jetanthropic.WithClient(c.client))
	resp, err := jetai.GenerateText(
		ctx,
		buildMessages(req.System, req.User),
		jetai.WithModel(model),
		jetai.WithMaxOutputTokens(req.MaxTokens),
		jetai.WithTemperature(req.Temperature),
	)
	if err != nil {
		return "", err
	}
	return extractText(resp)
}

func buildMessages(systemPrompt, prompt string) []jetapi.Message {
	messages := make([]jetapi.Message, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, &jetapi.SystemMessage{Content: systemPrompt})
	}
	messages = append(messages, &jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)})
	return messages
}

func extractText(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", ErrEmptyCompletion
	}
	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}
	text := full.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// compatibleCompleter talks to any endpoint serving the OpenAI chat
// completions wire format.
type compatibleCompleter struct {
	client *resty.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens"`
	Temperature      float64       `json:"temperature"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	PresencePenalty  float64       `json:"presence_penalty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *compatibleCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	body := chatRequest{
		Model:            req.Model,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
	}
	if strings.TrimSpace(req.System) != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.User})

	var out chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&body).
		SetResult(&out).
		SetError(&out).
		Post("/v1/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openai-compatible request: %w", err)
	}
	if out.Error != nil && strings.TrimSpace(out.Error.Message) != "" {
		return "", fmt.Errorf("openai-compatible error: %s", out.Error.Message)
	}
	if resp.IsError() {
		return "", fmt.Errorf("openai-compatible status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}
	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		path += "/v1"
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}

func normalizeOpenAICompatibleEndpoint(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return "https://api.openai.com"
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimSuffix(strings.TrimRight(base, "/"), "/v1")
	}
	parsed.Path = strings.TrimSuffix(strings.TrimRight(parsed.Path, "/"), "/v1")
	return strings.TrimRight(parsed.String(), "/")
}

// timeoutCompleter bounds each call.
type timeoutCompleter struct {
	next    Completer
	timeout time.Duration
}

func (c timeoutCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.timeout <= 0 {
		return c.next.Complete(ctx, req)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.next.Complete(ctx, req)
}
