package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gosuda/taskboard/internal/domain"
)

// APIError is a non-2xx response. It unwraps to the domain sentinel matching
// its status code.
type APIError struct {
	Status int
	Title  string
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Title)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusBadRequest:
		return domain.ErrInvalidStatus
	case e.Status == http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return domain.ErrForbidden
	case e.Status == http.StatusNotFound:
		return domain.ErrNotFound
	case e.Status == http.StatusConflict:
		return domain.ErrConflict
	case e.Status == http.StatusTooManyRequests, e.Status >= 500:
		return domain.ErrBackend
	default:
		return domain.ErrUnexpected
	}
}

// problem is the RFC 9457 body huma writes for errors.
type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
	Errors []struct {
		Message  string `json:"message"`
		Location string `json:"location"`
	} `json:"errors"`
}

// decodeError turns an error response into a *domain.ValidationError for 422
// and an *APIError otherwise.
func decodeError(resp *http.Response) error {
	var p problem
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(body, &p)

	if resp.StatusCode == http.StatusUnprocessableEntity {
		verr := &domain.ValidationError{}
		for _, e := range p.Errors {
			verr.Add(strings.TrimPrefix(e.Location, "body."), e.Message)
		}
		if len(verr.Fields) == 0 {
			verr.Add("request", p.Detail)
		}
		return verr
	}

	title := p.Title
	if title == "" {
		title = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Title: title, Detail: p.Detail}
}
