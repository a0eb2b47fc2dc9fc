package inbound

import (
	"context"

	"github.com/shandysiswandi/melody/internal/audit/usecase"
	"github.com/shandysiswandi/melody/internal/pkg/router"
)

type uc interface {
	Record(ctx context.Context, in usecase.RecordInput) error
	Recent(ctx context.Context) []usecase.Record
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/v1/audit/events", end.RecentEvents)
}

type RecentEventsResponse struct {
	Success bool             `json:"success"`
	Data    []usecase.Record `json:"data"`
}

// HTTPEndpoint exposes recently recorded audit events.
type HTTPEndpoint struct {
	uc uc
}

// RecentEvents lists the retained audit records, newest first.
// @Summary Recent audit events
// @Tags Audit
// @Produce json
// @Success 200 {object} RecentEventsResponse "Audit records"
// @Router /api/v1/audit/events [get]
func (h *HTTPEndpoint) RecentEvents(r *router.Request) (any, error) {
	return RecentEventsResponse{Success: true, Data: h.uc.Recent(r.Context())}, nil
}
