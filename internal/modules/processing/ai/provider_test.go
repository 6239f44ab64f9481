package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctenarsky-denik/journal/internal/config"
)

func TestNormalizeEndpoints(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", normalizeOpenAIBaseURL(""))
	assert.Equal(t, "https://api.example.com/v1", normalizeOpenAIBaseURL("https://api.example.com"))
	assert.Equal(t, "https://api.example.com/v1", normalizeOpenAIBaseURL("https://api.example.com/v1/"))

	assert.Equal(t, "https://api.openai.com", normalizeOpenAICompatibleEndpoint(""))
	assert.Equal(t, "http://localhost:8080", normalizeOpenAICompatibleEndpoint("http://localhost:8080/v1/"))
	assert.Equal(t, "http://localhost:8080/proxy", normalizeOpenAICompatibleEndpoint("http://localhost:8080/proxy"))
}

func TestTemperatureFor(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 0.3, temperatureFor(StyleAcademic), 1e-9)
	assert.InDelta(t, 0.7, temperatureFor(StyleCasual), 1e-9)
	assert.InDelta(t, 0.9, temperatureFor(StyleCreative), 1e-9)
}

func TestNewCompleter(t *testing.T) {
	t.Parallel()
	_, err := NewCompleter(config.AIProvider{Type: config.ProviderOpenAI})
	assert.Error(t, err)
	_, err = NewCompleter(config.AIProvider{Type: "cohere", APIKey: "k"})
	assert.Error(t, err)

	for _, typ := range []string{config.ProviderOpenAI, config.ProviderAnthropic, config.ProviderOpenAICompatible, "OpenAI_Compatible"} {
		c, err := NewCompleter(config.AIProvider{Type: typ, APIKey: "k"})
		require.NoError(t, err, typ)
		assert.NotNil(t, c)
	}
}

func TestCompleterFor_NoProvider(t *testing.T) {
	t.Parallel()
	c, err := CompleterFor(config.AIConfig{})
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestCompatibleCompleter(t *testing.T) {
	t.Parallel()
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-local", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		switch got.Model {
		case "overloaded":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
		case "silent":
			_, _ = w.Write([]byte(`{"choices":[]}`))
		default:
			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hotovo."}}]}`))
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewCompleter(config.AIProvider{Type: config.ProviderOpenAICompatible, APIKey: "sk-local", Endpoint: srv.URL + "/v1"})
	require.NoError(t, err)
	ctx := context.Background()

	text, err := c.Complete(ctx, CompletionRequest{
		Model: "local", System: "sys", User: "usr", MaxTokens: 600,
		Temperature: 0.3, FrequencyPenalty: frequencyPenalty, PresencePenalty: presencePenalty,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hotovo.", text)
	assert.Equal(t, 600, got.MaxTokens)
	assert.InDelta(t, 0.3, got.FrequencyPenalty, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "usr", got.Messages[1].Content)

	_, err = c.Complete(ctx, CompletionRequest{Model: "overloaded", User: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")

	_, err = c.Complete(ctx, CompletionRequest{Model: "silent", User: "u"})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

type blockingCompleter struct{}

func (blockingCompleter) Complete(ctx context.Context, _ CompletionRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestTimeoutCompleter(t *testing.T) {
	t.Parallel()
	c := timeoutCompleter{next: blockingCompleter{}, timeout: 20 * time.Millisecond}
	_, err := c.Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
