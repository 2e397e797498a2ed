// https://console.groq.com/docs/api-reference#chat-create
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mp3bot/m/v2/app/lib"
	"mp3bot/m/v2/app/models"
)

const provider = "ai"

// Complete sends a single system + user exchange and returns the first choice.
func (a *API) Complete(ctx context.Context, system string, user string) (string, error) {
	return a.ChatComplete(ctx, models.ChatCompletion{
		Messages: []models.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
}

func (a *API) ChatComplete(ctx context.Context, completion models.ChatCompletion) (string, error) {
	if !a.Configured() {
		return "", fmt.Errorf("ChatComplete: missing api key: %w", lib.ErrConfiguration)
	}
	timeNow := time.Now()
	if completion.Model == "" {
		completion.Model = a.model
	}
	if completion.Temperature == 0 {
		completion.Temperature = DefaultTemperature
	}
	if completion.MaxTokens == 0 {
		completion.MaxTokens = DefaultMaxTokens
	}

	body, err := json.Marshal(completion)
	if err != nil {
		return "", lib.NewProviderError(provider, "ChatComplete", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", lib.NewProviderError(provider, "ChatComplete", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	status := fmt.Sprintf("status:%d", 0)
	defer func() {
		_ = a.dd.Timing("ai.chat_complete.latency", time.Since(timeNow), []string{status, "model:" + completion.Model}, 1)
	}()
	resp, err := a.client.Do(req)
	if err != nil {
		return "", lib.NewProviderError(provider, "ChatComplete", err)
	}
	defer resp.Body.Close()
	status = fmt.Sprintf("status:%d", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", lib.NewProviderError(provider, "ChatComplete", fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(raw)))
	}

	var response models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		if err == io.EOF {
			return "", lib.NewProviderError(provider, "ChatComplete", errors.New("empty response"))
		}
		return "", lib.NewProviderError(provider, "ChatComplete", err)
	}
	if len(response.Choices) == 0 {
		return "", lib.NewProviderError(provider, "ChatComplete", errors.New("no choices"))
	}
	_ = a.dd.Incr("ai.tokens", []string{"model:" + completion.Model}, float64(response.Usage.TotalTokens))
	return response.Choices[0].Message.Content, nil
}
