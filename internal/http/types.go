package http

import (
	"github.com/fyrsmithlabs/casegen/internal/domain"
	"github.com/fyrsmithlabs/casegen/internal/pipeline"
	"github.com/fyrsmithlabs/casegen/internal/telemetry"
)

// StoryRequest is the request body for POST /api/v1/stories. Story is nil
// when the body has no story key.
type StoryRequest struct {
	Story     *domain.UserStory `json:"story"`
	ParentKey string            `json:"parent_key,omitempty"`
}

// BatchRequest is the request body for POST /api/v1/stories/batch. Each
// entry decodes on its own, so a malformed entry carries its error in
// BatchEntry.Err instead of failing the request.
type BatchRequest struct {
	Stories []pipeline.BatchEntry `json:"stories"`
}

// BatchResponse is the response body for POST /api/v1/stories/batch.
// Reports[i] corresponds to the request's Stories[i].
type BatchResponse struct {
	Reports []pipeline.Report `json:"reports"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Telemetry *telemetry.Status `json:"telemetry,omitempty"`
}

// ErrorResponse is the body echo writes for an *echo.HTTPError.
type ErrorResponse struct {
	Message string `json:"message"`
}
