// Package chat calls the hosted chat-completion API that backs the in-app
// quit coach.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"quitflow/internal/common/config"
	apperrors "quitflow/internal/common/errors"
	httpclient "quitflow/internal/common/http"
	"quitflow/internal/common/logger"
	"quitflow/internal/common/metrics"
)

const systemPrompt = "You are a supportive quit-smoking coach. Be encouraging, " +
	"practical and concise. Never give medical advice; suggest talking to a " +
	"doctor for anything clinical."

// Message is one turn of the conversation, role "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is the coach's answer to a conversation.
type Reply struct {
	Content string `json:"content"`
	Model   string `json:"model"`
}

// Client talks to an OpenAI-compatible chat-completion endpoint.
type Client struct {
	cfg    config.ChatConfig
	client *httpclient.Client
	log    logger.Logger
}

func NewClient(cfg config.ChatConfig, log logger.Logger) *Client {
	return &Client{
		cfg: cfg,
		// No client-level timeout; the per-call context carries the deadline.
		client: httpclient.NewClient(0),
		log:    log.WithFields(map[string]interface{}{"component": "chat"}),
	}
}

type completionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete sends the conversation, prefixed with the coaching system prompt,
// and returns the assistant's reply. Transient failures are retried with
// exponential backoff up to the configured attempt count.
func (c *Client) Complete(ctx context.Context, conversation []Message) (Reply, error) {
	timeout := time.Duration(c.cfg.Timeout) * time.Millisecond
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := make([]Message, 0, len(conversation)+1)
	messages = append(messages, Message{Role: "system", Content: systemPrompt})
	messages = append(messages, conversation...)

	body, err := json.Marshal(completionRequest{
		Model:     c.cfg.Model,
		Messages:  messages,
		MaxTokens: c.cfg.MaxTokens,
	})
	if err != nil {
		return Reply{}, apperrors.NewChatFailedError("marshal request", err)
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				metrics.ChatCompletions.WithLabelValues("timeout").Inc()
				return Reply{}, apperrors.NewChatTimeoutError("cancelled during backoff")
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			return Reply{}, apperrors.NewChatFailedError("build request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, lastErr = c.client.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			status := resp.StatusCode
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", status)
			resp = nil
			// Client errors other than rate limiting will not heal on retry.
			if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
				break
			}
		}

		if ctx.Err() != nil {
			metrics.ChatCompletions.WithLabelValues("timeout").Inc()
			return Reply{}, apperrors.NewChatTimeoutError(timeout.String())
		}
	}

	if resp == nil {
		if ctx.Err() == context.DeadlineExceeded {
			metrics.ChatCompletions.WithLabelValues("timeout").Inc()
			return Reply{}, apperrors.NewChatTimeoutError(timeout.String())
		}
		metrics.ChatCompletions.WithLabelValues("error").Inc()
		return Reply{}, apperrors.NewChatFailedError("no successful response after retries", lastErr)
	}
	defer resp.Body.Close()

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.ChatCompletions.WithLabelValues("error").Inc()
		return Reply{}, apperrors.NewChatFailedError("decode response", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		metrics.ChatCompletions.WithLabelValues("error").Inc()
		return Reply{}, apperrors.NewChatFailedError("empty completion", nil)
	}

	metrics.ChatCompletions.WithLabelValues("ok").Inc()
	c.log.Info("chat completion", map[string]interface{}{
		"model": parsed.Model,
		"turns": len(conversation),
	})
	return Reply{Content: parsed.Choices[0].Message.Content, Model: parsed.Model}, nil
}
