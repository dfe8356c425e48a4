package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	notesDTO "github.com/seedbridge/crm-portal/internal/adapter/dto/notes"
	"github.com/seedbridge/crm-portal/internal/adapter/presenter"
	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/internal/usecase/notes"
)

// NotesService runs sweeps and serves the review queue
type NotesService interface {
	RunSweep(ctx context.Context) (*notes.SweepSummary, error)
	ReviewQueue(ctx context.Context, limit, offset int) ([]*entities.NoteMatchAttempt, error)
}

// Notes handles notes ingestion endpoints
type Notes struct {
	service NotesService
	logger  *zap.Logger
}

// NewNotes creates a new notes handler
func NewNotes(service NotesService, logger *zap.Logger) *Notes {
	return &Notes{service: service, logger: logger}
}

// Sweep runs one ingestion sweep
// @Summary      Run a notes sweep
// @Tags         Notes
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  notes.SweepResponse
// @Failure      409  {object}  common.ErrorResponse  "A sweep is already running"
// @Router       /notes/sweep [post]
func (h *Notes) Sweep(c echo.Context) error {
	summary, err := h.service.RunSweep(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return c.JSON(http.StatusOK, notesDTO.SweepResponse{Success: true, Summary: summary})
}

// Review lists files flagged for manual review
// @Summary      Notes awaiting review
// @Tags         Notes
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Offset"
// @Success      200     {object}  common.ListResponse
// @Router       /notes/review [get]
func (h *Notes) Review(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	attempts, err := h.service.ReviewQueue(c.Request().Context(), limit, offset)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, listOf(presenter.ToReviewItems(attempts), limit, offset))
}
