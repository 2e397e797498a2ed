// package to connect to an OpenAI compatible chat API (Groq by default)
package ai

import (
	"context"
	"net/http"
	"time"

	"mp3bot/m/v2/app/config"

	"github.com/DataDog/datadog-go/v5/statsd"
	log "github.com/sirupsen/logrus"
)

const (
	TIMEOUT = 60 * time.Second

	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
)

type API struct {
	client   *http.Client
	apiKey   string
	endpoint string
	model    string
	dd       statsd.ClientInterface
}

// NewAPI creates new AI API
func NewAPI(cfg *config.Config) *API {
	return NewAPIWithClient(cfg, &http.Client{Timeout: TIMEOUT})
}

func NewAPIWithClient(cfg *config.Config, client *http.Client) *API {
	dd := cfg.DataDogClient
	if dd == nil {
		dd = &statsd.NoOpClient{}
	}
	return &API{
		client:   client,
		apiKey:   cfg.AIAPIKey,
		endpoint: cfg.AIEndpoint,
		model:    cfg.AIModel,
		dd:       dd,
	}
}

func (a *API) Configured() bool {
	return a != nil && a.apiKey != ""
}

// IsAvailable checks whether AI API is available
func (a *API) IsAvailable(ctx context.Context) bool {
	response, err := a.Complete(ctx, "Reply only \"OK\" or \"Not OK\"", "test")
	if err != nil {
		log.Errorf("PING: API error: %+v", err)
		return false
	}

	log.Debugf("PING: API response: %+v", response)
	return true
}
