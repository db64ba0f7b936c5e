package assistant

import (
	"context"
	"fmt"
	"strings"
)

// Profile is a structured professional profile.
type Profile struct {
	Name       string     `json:"name"`
	Headline   string     `json:"headline"`
	Location   string     `json:"location"`
	Summary    string     `json:"summary"`
	Experience []Position `json:"experience"`
	Skills     []string   `json:"skills"`
}

// Position is one entry of a profile's work history.
type Position struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	Period  string `json:"period"`
}

// ExtractProfile asks the model to structure a profile page's text.
func (c *Client) ExtractProfile(ctx context.Context, text string) (*Profile, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoContent
	}

	var p Profile
	if err := c.completeJSON(ctx, buildPrompt(ProfilePrompt, "Profile", clipInput(text)), profileSchemaOnce, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validate profile: %w", err)
	}
	return &p, nil
}
