package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoContent is returned when there is no text to extract from.
var ErrNoContent = errors.New("no content to extract")

// Posting is the structured summary of a job posting.
type Posting struct {
	Company      string   `json:"company"`
	Role         string   `json:"role"`
	Location     string   `json:"location"`
	Salary       string   `json:"salary"`
	Summary      string   `json:"summary"`
	Requirements []string `json:"requirements"`
}

// ExtractPosting asks the model for the posting's key details.
func (c *Client) ExtractPosting(ctx context.Context, text string) (*Posting, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoContent
	}

	var p Posting
	if err := c.completeJSON(ctx, buildPrompt(PostingPrompt, "Job posting", clipInput(text)), postingSchemaOnce, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validate posting: %w", err)
	}
	return &p, nil
}

// Bullets renders the requirements as bullet text for the formatter. A "<"
// would make the formatter treat the text as HTML, and an inner "•" would
// split the item, so both are replaced.
func (p *Posting) Bullets() string {
	var lines []string
	for _, r := range p.Requirements {
		r = strings.NewReplacer("<", "‹", "•", "-").Replace(r)
		lines = append(lines, "• "+r)
	}
	return strings.Join(lines, "\n")
}
