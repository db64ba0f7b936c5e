package assistant

import (
	"regexp"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	maxRequirements = 15
	maxSkills       = 30
	maxExperience   = 20
	maxInputRunes   = 60000
)

// injectionPattern matches text addressed to the model rather than
// describing a job. Role phrases like "act as the point of contact" or
// "override defaults" must not match.
var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(all\s+)?(previous|prior|above|the\s+above)\b|ignore\s+all\b|` +
		`system\s*prompt|you\s+are\s+now\b|` +
		`act\s+as\s+(if\s+you\s+|an?\s+)?(unrestricted|unfiltered|jailbroken|ai\b|assistant|chatbot|language\s+model|root\b|admin\b)|` +
		`pretend\s+(you|to\s+be|that\s+you)\b|forget\s+(everything|all)\b|` +
		`override\s+(your|the|all|any|previous|prior)\s+(instructions|rules|guidelines|guardrails|prompt)|` +
		`new\s+instructions)`,
)

// screen blanks a field that reads as an instruction. Only the matching
// field is dropped; the rest of the extraction is kept.
func screen(fields ...*string) {
	for _, f := range fields {
		if injectionPattern.MatchString(*f) {
			*f = ""
		}
	}
}

// Validate trims the posting, drops unusable requirements and checks the
// remaining fields.
func (p *Posting) Validate() error {
	p.Company = strings.TrimSpace(p.Company)
	p.Role = strings.TrimSpace(p.Role)
	p.Location = strings.TrimSpace(p.Location)
	p.Salary = strings.TrimSpace(p.Salary)
	p.Summary = strings.TrimSpace(p.Summary)
	p.Requirements = cleanList(p.Requirements, 3, 300, maxRequirements)
	screen(&p.Company, &p.Role, &p.Location, &p.Salary, &p.Summary)

	return validation.ValidateStruct(p,
		validation.Field(&p.Company, validation.RuneLength(0, 200)),
		validation.Field(&p.Role, validation.RuneLength(0, 200)),
		validation.Field(&p.Location, validation.RuneLength(0, 200)),
		validation.Field(&p.Salary, validation.RuneLength(0, 100)),
		validation.Field(&p.Summary, validation.RuneLength(0, 1000)),
	)
}

// Validate trims the profile, drops unusable list entries and checks the
// remaining fields.
func (p *Profile) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Headline = strings.TrimSpace(p.Headline)
	p.Location = strings.TrimSpace(p.Location)
	p.Summary = strings.TrimSpace(p.Summary)
	p.Skills = cleanList(p.Skills, 1, 100, maxSkills)

	var positions []Position
	for _, pos := range p.Experience {
		pos.Title = strings.TrimSpace(pos.Title)
		pos.Company = strings.TrimSpace(pos.Company)
		pos.Period = strings.TrimSpace(pos.Period)
		if pos.Title == "" && pos.Company == "" {
			continue
		}
		if injectionPattern.MatchString(pos.Title + " " + pos.Company) {
			continue
		}
		positions = append(positions, pos)
		if len(positions) == maxExperience {
			break
		}
	}
	p.Experience = positions
	screen(&p.Name, &p.Headline, &p.Location, &p.Summary)

	return validation.ValidateStruct(p,
		validation.Field(&p.Name, validation.RuneLength(0, 200)),
		validation.Field(&p.Headline, validation.RuneLength(0, 300)),
		validation.Field(&p.Location, validation.RuneLength(0, 200)),
		validation.Field(&p.Summary, validation.RuneLength(0, 2000)),
	)
}

// cleanList trims entries, drops ones outside [minLen, maxLen] runes or
// matching the injection screen, removes duplicates and caps the count.
func cleanList(items []string, minLen, maxLen, limit int) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		it = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(it), "•"))
		n := utf8.RuneCountInString(it)
		if n < minLen || n > maxLen {
			continue
		}
		if injectionPattern.MatchString(it) {
			continue
		}
		key := strings.ToLower(it)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out
}

// clipInput bounds document text sent to the model.
func clipInput(s string) string {
	if utf8.RuneCountInString(s) <= maxInputRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxInputRunes])
}
