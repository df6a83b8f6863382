package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/scrubbe-dev/incident-service/internal/api/dto"
	"github.com/scrubbe-dev/incident-service/internal/auth"
	"github.com/scrubbe-dev/incident-service/internal/domain"
	"github.com/scrubbe-dev/incident-service/internal/service"
	apperrors "github.com/scrubbe-dev/incident-service/pkg/util/errorutil"
)

// IncidentEngine is the lifecycle surface the HTTP layer drives.
type IncidentEngine interface {
	Submit(ctx context.Context, input service.SubmitInput, creatorID, businessID string) (*domain.IncidentTicket, error)
	SubmitFromIntegration(ctx context.Context, businessID string, input service.SubmitInput) (*domain.IncidentTicket, error)
	Authorize(ctx context.Context, ticketID, businessID string) (*domain.IncidentTicket, error)
	Acknowledge(ctx context.Context, ticketID string) (*service.Outcome, error)
	Resolve(ctx context.Context, ticketID string, input service.ResolveInput, resolverID string) (*service.Outcome, error)
	Update(ctx context.Context, ticketID string, input service.UpdateInput) (*domain.IncidentTicket, error)
	Close(ctx context.Context, ticketID string) (*service.Outcome, error)
	ListByBusiness(ctx context.Context, businessID string, filter service.ListFilter) ([]domain.IncidentTicket, error)
	Analytics(ctx context.Context, businessID string) (*service.Analytics, error)
	AddComment(ctx context.Context, ticketID, authorID, body string) (*domain.IncidentComment, error)
	Comments(ctx context.Context, ticketID string) ([]domain.IncidentComment, error)
	BreachLogs(ctx context.Context, ticketID string) ([]domain.SLABreachAuditLog, error)
	Resolution(ctx context.Context, ticketID string) (*domain.IncidentResolution, error)
}

// Escalator records escalations.
type Escalator interface {
	Escalate(ctx context.Context, input service.EscalateInput) (*service.EscalationResult, error)
	ListForTicket(ctx context.Context, ticketID string) ([]domain.EscalatedIncident, error)
}

// IncidentsHandler serves the business-scoped incident endpoints.
type IncidentsHandler struct {
	incidents   IncidentEngine
	escalations Escalator
}

// NewIncidentsHandler constructs handler.
func NewIncidentsHandler(incidents IncidentEngine, escalations Escalator) *IncidentsHandler {
	return &IncidentsHandler{incidents: incidents, escalations: escalations}
}

// Submit POST /incidents.
func (h *IncidentsHandler) Submit(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SubmitIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.incidents.Submit(c.UserContext(), submitInput(req), principal.UserID, principal.BusinessID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewIncidentResponse(ticket)})
}

// List GET /incidents.
func (h *IncidentsHandler) List(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	q := parseIncidentQuery(c)
	if q.Page > maxListPage {
		return apperrors.NewValidationError("page out of range", map[string]any{"max_page": maxListPage})
	}
	tickets, err := h.incidents.ListByBusiness(c.UserContext(), principal.BusinessID, service.ListFilter{
		Statuses:   q.Statuses,
		Priorities: q.Priorities,
		Assignee:   q.Assignee,
		Limit:      q.PageSize,
		Offset:     (q.Page - 1) * q.PageSize,
	})
	if err != nil {
		return err
	}

	items := make([]dto.IncidentResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewIncidentResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items, "page": q.Page, "page_size": q.PageSize})
}

// Analytics GET /incidents/analytics.
func (h *IncidentsHandler) Analytics(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	stats, err := h.incidents.Analytics(c.UserContext(), principal.BusinessID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Get GET /incidents/:ticketId.
func (h *IncidentsHandler) Get(c *fiber.Ctx) error {
	ticket, _, err := h.authorize(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIncidentResponse(ticket)})
}

// Update PUT /incidents/:ticketId.
func (h *IncidentsHandler) Update(c *fiber.Ctx) error {
	ticket, _, err := h.authorize(c)
	if err != nil {
		return err
	}
	var req dto.UpdateIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	updated, err := h.incidents.Update(c.UserContext(), ticket.TicketID, service.UpdateInput{
		Reason:          req.Reason,
		Description:     req.Description,
		Priority:        req.Priority,
		Category:        req.Category,
		SubCategory:     req.SubCategory,
		AssignedToEmail: req.AssignedToEmail,
		Status:          req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIncidentResponse(updated)})
}

// Acknowledge POST /incidents/:ticketId/acknowledge.
func (h *IncidentsHandler) Acknowledge(c *fiber.Ctx) error {
	ticket, _, err := h.authorize(c)
	if err != nil {
		return err
	}
	outcome, err := h.incidents.Acknowledge(c.UserContext(), ticket.TicketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": transitionResponse(outcome)})
}

// Resolve POST /incidents/:ticketId/resolve.
func (h *IncidentsHandler) Resolve(c *fiber.Ctx) error {
	ticket, principal, err := h.authorize(c)
	if err != nil {
		return err
	}
	var req dto.ResolveIncidentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	outcome, err := h.incidents.Resolve(c.UserContext(), ticket.TicketID, service.ResolveInput{
		RootCause:      req.RootCause,
		ActionsTaken:   req.ActionsTaken,
		LessonsLearned: req.LessonsLearned,
		PostmortemURL:  req.PostmortemURL,
	}, principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": transitionResponse(outcome)})
}

// Close POST /incidents/:ticketId/close.
func (h *IncidentsHandler) Close(c *fiber.Ctx) error {
	ticket, _, err := h.authorize(c)
	if err != nil {
		return err
	}
	outcome, err := h.incidents.Close(c.UserContext(), ticket.TicketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": transitionResponse(outcome)})
}

// AddComment POST /incidents/:ticketId/comments.
func (h *IncidentsHandler) AddComment(c *fiber.Ctx) error {
	ticket, principal, err := h.authorize(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	comment, err := h.incidents.AddComment(c.UserContext(), ticket.TicketID, principal.UserID, req.Body)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// Comments GET /incidents/:ticketId/comments.
func (h *IncidentsHandler) Comments(c *fiber.Ctx) error {
	ticket, _, err := h.authorize(c)
	if err != nil {
		return err
	}
	comments, err := h.incidents.Comments(c.UserContext(), ticket.TicketID)
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Escalate POST /incidents/:ticketId/escalate.
func (h *IncidentsHandler) Escalate(c *fiber.Ctx) error {
	ticket, principal, err := h.authorize(c)
	if err != nil {
		return err
	}
	var req dto.EscalateIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.escalations.Escalate(c.UserContext(), service.EscalateInput{
		TicketID:    ticket.TicketID,
		TargetEmail: req.TargetEmail,
		EscalatorID: principal.UserID,
		Reason:      req.Reason,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": result})
}

// Escalations GET /incidents/:ticketId/escalations.
func (h *IncidentsHandler) Escalations(c *fiber.Ctx) error {
	ticket, _, err := h.authorize(c)
	if err != nil {
		return err
	}
	list, err := h.escalations.ListForTicket(c.UserContext(), ticket.TicketID)
	if err != nil {
		return err
	}
	items := make([]dto.EscalationResponse, 0, len(list))
	for _, e := range list {
		items = append(items, dto.EscalationResponse{
			ID:                e.ID,
			EscalatedToUserID: e.EscalatedToUserID,
			EscalatedByID:     e.EscalatedByID,
			Reason:            e.EscalationReason,
			Status:            e.Status,
			EscalatedAt:       e.EscalatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Breaches GET /incidents/:ticketId/breaches.
func (h *IncidentsHandler) Breaches(c *fiber.Ctx) error {
	ticket, _, err := h.authorize(c)
	if err != nil {
		return err
	}
	logs, err := h.incidents.BreachLogs(c.UserContext(), ticket.TicketID)
	if err != nil {
		return err
	}
	items := make([]*dto.BreachResponse, 0, len(logs))
	for i := range logs {
		items = append(items, dto.NewBreachResponse(&logs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Resolution GET /incidents/:ticketId/resolution.
func (h *IncidentsHandler) Resolution(c *fiber.Ctx) error {
	ticket, _, err := h.authorize(c)
	if err != nil {
		return err
	}
	res, err := h.incidents.Resolution(c.UserContext(), ticket.TicketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewResolutionResponse(res)})
}

// SubmitFromIntegration POST /integrations/:businessId/incidents.
func (h *IncidentsHandler) SubmitFromIntegration(c *fiber.Ctx) error {
	var req dto.SubmitIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := submitInput(req)
	if input.Source == "" {
		input.Source = domain.SourceOthers
	}

	ticket, err := h.incidents.SubmitFromIntegration(c.UserContext(), c.Params("businessId"), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewIncidentResponse(ticket)})
}

// authorize loads the path ticket scoped to the caller's business.
func (h *IncidentsHandler) authorize(c *fiber.Ctx) (*domain.IncidentTicket, *auth.Principal, error) {
	principal, err := requirePrincipal(c)
	if err != nil {
		return nil, nil, err
	}
	ticket, err := h.incidents.Authorize(c.UserContext(), c.Params("ticketId"), principal.BusinessID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, principal, nil
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func submitInput(req dto.SubmitIncidentRequest) service.SubmitInput {
	return service.SubmitInput{
		Reason:          req.Reason,
		Description:     req.Description,
		Priority:        domain.IncidentPriority(strings.ToUpper(string(req.Priority))),
		Template:        domain.IncidentTemplate(strings.ToUpper(string(req.Template))),
		Category:        req.Category,
		SubCategory:     req.SubCategory,
		Source:          domain.IncidentSource(strings.ToUpper(string(req.Source))),
		AssignedToEmail: req.AssignedToEmail,
	}
}

func transitionResponse(o *service.Outcome) dto.TransitionResponse {
	return dto.TransitionResponse{
		Incident:      dto.NewIncidentResponse(o.Ticket),
		Changed:       o.Changed,
		AlreadyClosed: o.AlreadyClosed,
		Breach:        dto.NewBreachResponse(o.Breach),
	}
}

func commentResponse(c *domain.IncidentComment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        c.ID,
		AuthorID:  c.AuthorID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
}

// maxListPage keeps the computed offset well inside int range.
const maxListPage = 10000

func parseIncidentQuery(c *fiber.Ctx) dto.IncidentListQuery {
	q := dto.IncidentListQuery{
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("page_size"), 20),
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	for _, part := range splitList(c.Query("status")) {
		q.Statuses = append(q.Statuses, domain.IncidentStatus(part))
	}
	for _, part := range splitList(c.Query("priority")) {
		q.Priorities = append(q.Priorities, domain.IncidentPriority(part))
	}
	if assignee := strings.TrimSpace(c.Query("assignee")); assignee != "" {
		q.Assignee = &assignee
	}
	return q
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
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
