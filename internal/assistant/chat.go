package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrBadHistory is returned for chat histories the API would reject.
var ErrBadHistory = errors.New("invalid chat history")

// Chat answers the last user turn of history as the career assistant.
func (c *Client) Chat(ctx context.Context, history []Message) (string, error) {
	if err := checkHistory(history); err != nil {
		return "", err
	}
	trimmed := TrimHistory(history, c.maxContextTokens-EstimateTokens(ChatSystemPrompt))
	reply, err := c.complete(ctx, ChatSystemPrompt, trimmed, 1024)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func checkHistory(history []Message) error {
	if len(history) == 0 {
		return fmt.Errorf("%w: no messages", ErrBadHistory)
	}
	for i, m := range history {
		if m.Role != "user" && m.Role != "assistant" {
			return fmt.Errorf("%w: message %d has role %q", ErrBadHistory, i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: message %d is empty", ErrBadHistory, i)
		}
	}
	if history[len(history)-1].Role != "user" {
		return fmt.Errorf("%w: last message must be from the user", ErrBadHistory)
	}
	return nil
}

// TrimHistory drops the oldest turns until the estimated size fits budget.
// The final turn is always kept, and the result never starts with an
// assistant turn.
func TrimHistory(history []Message, budget int) []Message {
	if len(history) == 0 {
		return history
	}
	total := 0
	for _, m := range history {
		total += EstimateTokens(m.Content)
	}

	start := 0
	for start < len(history)-1 && total > budget {
		total -= EstimateTokens(history[start].Content)
		start++
	}
	for start < len(history)-1 && history[start].Role != "user" {
		start++
	}
	return history[start:]
}
