package applications

import (
	"errors"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxNameLen = 200

// InvalidError carries per-field validation failures. It matches ErrInvalid
// under errors.Is.
type InvalidError struct {
	Fields validation.Errors
}

func (e *InvalidError) Error() string {
	return ErrInvalid.Error() + ": " + e.Fields.Error()
}

func (e *InvalidError) Unwrap() error { return ErrInvalid }

// Validate checks the fields a stored application must have.
func (a Application) Validate() error {
	err := validation.ValidateStruct(&a,
		validation.Field(&a.UserID, validation.Required),
		validation.Field(&a.Company, validation.Required, validation.RuneLength(1, maxNameLen)),
		validation.Field(&a.Role, validation.Required, validation.RuneLength(1, maxNameLen)),
		validation.Field(&a.Status, validation.Required, validation.By(validStatus)),
		validation.Field(&a.JobURL, validation.By(httpURL)),
		validation.Field(&a.Location, validation.RuneLength(0, maxNameLen)),
		validation.Field(&a.Salary, validation.RuneLength(0, maxNameLen)),
	)
	if err == nil {
		return nil
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		return &InvalidError{Fields: fields}
	}
	return err
}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

func validStatus(value any) error {
	st, _ := value.(Status)
	for _, known := range Statuses {
		if st == known {
			return nil
		}
	}
	return validation.NewError("validation_status_unknown", "must be one of wishlist, applied, interviewing, offer, rejected, withdrawn")
}

func httpURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validation.NewError("validation_job_url", "must be an http or https URL")
	}
	return nil
}
