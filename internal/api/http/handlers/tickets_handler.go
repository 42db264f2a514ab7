package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/platform-desk/internal/api/dto"
	"github.com/spec-kit/platform-desk/internal/auth"
	"github.com/spec-kit/platform-desk/internal/domain"
	"github.com/spec-kit/platform-desk/internal/service"
	apperrors "github.com/spec-kit/platform-desk/pkg/util"
)

// TicketsHandler manages ticket endpoints for users and operators.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.PlatformID == "" || strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" {
		return apperrors.NewValidationError("platform_id, title, description required", nil)
	}

	ticket, err := h.service.CreateTicket(c.Context(), principal.User, service.TicketCreateInput{
		PlatformID:  req.PlatformID,
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.service.ListTickets(c.Context(), principal.User, parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, messages, edits, err := h.service.GetTicket(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, messages, edits)})
}

// Reply POST /tickets/:id/reply.
func (h *TicketsHandler) Reply(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Body) == "" {
		return apperrors.NewValidationError("body required", nil)
	}

	ticket, message, err := h.service.Reply(c.Context(), principal.User, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"ticket":  ticketSummary(ticket),
			"message": messageResponse(message),
		},
	})
}

// CloseTicket POST /tickets/:id/close. Staff only.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.CloseTicket(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AssignTicket POST /tickets/:id/assign. Staff only.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AssignTicket(c.Context(), principal.User, c.Params("id"), req.OperatorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if platformID := c.Query("platform_id"); platformID != "" {
		filter.PlatformID = &platformID
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if search := c.Query("q"); search != "" {
		filter.SearchTerm = &search
	}
	filter.AssignedToMe = c.QueryBool("assigned_to_me")
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:          ticket.ID,
		ExternalKey: ticket.ExternalKey,
		PlatformID:  ticket.PlatformID,
		OperatorID:  ticket.OperatorID,
		Type:        ticket.Type,
		Title:       ticket.Title,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, messages []domain.Message, edits []domain.Edit) dto.TicketDetailResponse {
	msgs := make([]dto.MessageResponse, 0, len(messages))
	for i := range messages {
		msgs = append(msgs, messageResponse(&messages[i]))
	}
	auditTrail := make([]dto.EditResponse, 0, len(edits))
	for _, edit := range edits {
		auditTrail = append(auditTrail, dto.EditResponse{
			ID:          edit.ID,
			UserID:      edit.UserID,
			Description: edit.Description,
			OldStatus:   edit.OldStatus,
			NewStatus:   edit.NewStatus,
			CreatedAt:   edit.CreatedAt,
		})
	}
	return dto.TicketDetailResponse{
		ID:          ticket.ID,
		ExternalKey: ticket.ExternalKey,
		PlatformID:  ticket.PlatformID,
		CreatorID:   ticket.CreatorID,
		OperatorID:  ticket.OperatorID,
		Type:        ticket.Type,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		ClosedAt:    ticket.ClosedAt,
		Messages:    msgs,
		Edits:       auditTrail,
	}
}

func messageResponse(msg *domain.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:        msg.ID,
		AuthorID:  msg.AuthorID,
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt,
	}
}
