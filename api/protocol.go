package api

import "kanban-api/domain"

const postCommandMaxSize = 64 * 1024 // 64 KiB

// Per-command outcomes reported in a batch response.
const (
	statusOK               = "ok"
	statusNotFound         = "not_found"
	statusInvalidReference = "invalid_reference"
	statusRejected         = "rejected"
	statusIgnored          = "ignored"
	statusInvalid          = "invalid"
	statusDuplicate        = "duplicate"
)

// /POST /api/commands response body
type postCommandsResponse struct {
	Results  []commandResult `json:"results"`
	Snapshot domain.Snapshot `json:"snapshot"`
}

type commandResult struct {
	IdempotencyKey string         `json:"idempotencyKey"`
	Status         string         `json:"status"`
	Error          string         `json:"error,omitempty"`
	Column         *domain.Column `json:"column,omitempty"`
	Task           *domain.Task   `json:"task,omitempty"`
}
