package ai

import (
	"errors"
	"net/http"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"agentchat/internal/infra/metrics"
)

const providerOpenAI = "openai"

// OpenAIOptions configures every OpenAI-backed adapter.
type OpenAIOptions struct {
	APIKey          string
	BaseURL         string // empty uses the SDK default
	DefaultModel    string
	MaxRetries      int
	RequestTimeout  time.Duration // per attempt, non-streaming calls only
	MaxOutputTokens int
	HTTPClient      *http.Client
}

func newOpenAIClient(o OpenAIOptions) (openai.Client, error) {
	if o.APIKey == "" {
		return openai.Client{}, errors.New("openai api key empty")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(o.APIKey),
		option.WithMaxRetries(o.MaxRetries),
	}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	if o.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(o.HTTPClient))
	}
	return openai.NewClient(opts...), nil
}

func (o OpenAIOptions) callOpts() []option.RequestOption {
	if o.RequestTimeout <= 0 {
		return nil
	}
	return []option.RequestOption{option.WithRequestTimeout(o.RequestTimeout)}
}

func (o OpenAIOptions) model(m string) string {
	return modelOrDefault(m, o.DefaultModel)
}

func observe(provider, op string, start time.Time, err error) {
	metrics.ObserveCall(provider, op, time.Since(start).Milliseconds(), err == nil)
}
