package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/seedbridge/crm-portal/errors"
	"github.com/seedbridge/crm-portal/internal/adapter/dto/common"
	crmDTO "github.com/seedbridge/crm-portal/internal/adapter/dto/crm"
	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/internal/usecase/crm"
)

// LeadService is the lead intake
type LeadService interface {
	Submit(ctx context.Context, in crm.SubmitLead) (*entities.Lead, error)
	List(ctx context.Context, status entities.LeadStatus, limit, offset int) ([]*entities.Lead, error)
}

// EntityService serves entity reads
type EntityService interface {
	Meetings(ctx context.Context, ref entities.EntityRef, limit, offset int) (*crm.EntityMeetings, error)
}

// CRM handles lead intake and dashboard reads
type CRM struct {
	leads    LeadService
	entities EntityService
	logger   *zap.Logger
}

// NewCRM creates a new CRM handler
func NewCRM(leads LeadService, entityService EntityService, logger *zap.Logger) *CRM {
	return &CRM{leads: leads, entities: entityService, logger: logger}
}

// SubmitLead stores a public intake form
// @Summary      Submit a lead
// @Tags         Leads
// @Accept       json
// @Produce      json
// @Param        request  body      crm.SubmitLeadRequest  true  "Lead"
// @Success      201      {object}  crm.SubmitLeadResponse
// @Failure      400      {object}  common.ErrorResponse
// @Router       /leads [post]
func (h *CRM) SubmitLead(c echo.Context) error {
	var req crmDTO.SubmitLeadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	lead, err := h.leads.Submit(c.Request().Context(), crm.SubmitLead{
		Name:        req.Name,
		Email:       req.Email,
		Company:     req.Company,
		Stage:       req.Stage,
		RaiseAmount: req.RaiseAmount,
		Message:     req.Message,
		Source:      req.Source,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	return HandleSuccess(h.logger, c, http.StatusCreated, crmDTO.SubmitLeadResponse{
		ID:     lead.ID.String(),
		Status: string(lead.Status),
	})
}

// ListLeads lists intake submissions
// @Summary      List leads
// @Tags         Leads
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "new, contacted, converted or declined"
// @Param        limit   query     int     false  "Page size"
// @Param        offset  query     int     false  "Offset"
// @Success      200     {object}  common.ListResponse
// @Router       /leads [get]
func (h *CRM) ListLeads(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	status := entities.LeadStatus(c.QueryParam("status"))
	switch status {
	case "", entities.LeadStatusNew, entities.LeadStatusContacted, entities.LeadStatusConverted, entities.LeadStatusDeclined:
	default:
		return HandleError(h.logger, c, errors.ErrInvalidArgument("unknown lead status"))
	}

	leads, err := h.leads.List(c.Request().Context(), status, limit, offset)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, listOf(leads, limit, offset))
}

// EntityMeetings lists the meetings attributed to an entity
// @Summary      Meetings of an entity
// @Tags         Entities
// @Produce      json
// @Security     BearerAuth
// @Param        type    path      string  true   "client, investor or partner"
// @Param        id      path      string  true   "Entity ID (UUID)"
// @Param        limit   query     int     false  "Page size"
// @Param        offset  query     int     false  "Offset"
// @Success      200     {object}  crm.EntityMeetings
// @Failure      404     {object}  common.ErrorResponse
// @Router       /entities/{type}/{id}/meetings [get]
func (h *CRM) EntityMeetings(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("entity ID must be a valid UUID"))
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	ref := entities.EntityRef{Type: entities.EntityType(c.Param("type")), ID: id}
	result, err := h.entities.Meetings(c.Request().Context(), ref, limit, offset)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, result)
}

func listOf(data interface{}, limit, offset int) common.ListResponse {
	return common.ListResponse{Data: data, Limit: limit, Offset: offset}
}
