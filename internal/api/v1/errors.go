package v1

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/domain"
)

// toHTTPError maps a domain error onto a huma status error. msg is the detail
// used for unexpected failures.
func toHTTPError(err error, msg string) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		details := make([]error, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			details = append(details, &huma.ErrorDetail{
				Location: "body." + f.Field,
				Message:  f.Message,
			})
		}
		return huma.Error422UnprocessableEntity("validation failed", details...)
	case errors.Is(err, domain.ErrInvalidStatus):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("not found")
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict("conflict")
	case errors.Is(err, domain.ErrBackend):
		log.Error().Err(err).Msg("api: backend unavailable")
		return huma.Error503ServiceUnavailable("task store unavailable")
	default:
		log.Error().Err(err).Msg("api: " + msg)
		return huma.Error500InternalServerError(msg)
	}
}
