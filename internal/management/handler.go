package management

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"triage/internal/constants"
	"triage/internal/logger"
	"triage/internal/rules"
	pkgerrors "triage/pkg/errors"
)

// Handler exposes Service over the /api/v1 JSON API.
type Handler struct {
	service Service
	logger  logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	v1 := router.Group("/api/v1")

	r := v1.Group("/rules")
	r.GET("", h.ListRules)
	r.POST("", h.CreateRule)
	r.POST("/parse", h.ParseRule)
	r.POST("/import", h.ImportRules)
	r.POST("/evaluate", h.EvaluateSubject)
	r.DELETE("/:id", h.DeleteRule)

	v1.GET("/audit/events", h.ListAuditEvents)

	v1.GET("/config/parser", h.GetParserSettings)
	v1.PUT("/config/parser", h.UpdateParserSettings)
}

// fail renders err in the API error shape. Server-side failures log at error
// level, rejected requests at warn.
func (h *Handler) fail(c *gin.Context, err error) {
	status := pkgerrors.ToHTTPStatus(err)
	log := h.logger.WarnwCtx
	if status >= http.StatusInternalServerError {
		log = h.logger.ErrorwCtx
	}
	log(c.Request.Context(), "Request failed", "status", status, "error", err, "route", c.FullPath())
	c.JSON(status, pkgerrors.ToErrorResponse(err))
}

// bind decodes the JSON body into dst and answers 400 when it cannot.
func (h *Handler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, pkgerrors.ErrValidation.WithCause(err).WithMessage(err.Error()))
		return false
	}
	return true
}

// respond writes body with status, or the error if err is set.
func (h *Handler) respond(c *gin.Context, status int, body interface{}, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, body)
}

// ListRules godoc
// @Summary      List all rules
// @Description  Get every VIP and suppression rule, newest first
// @Tags         rules
// @Produce      json
// @Success      200  {array}   rules.Rule
// @Failure      500  {object}  map[string]interface{}
// @Router       /rules [get]
func (h *Handler) ListRules(c *gin.Context) {
	list, err := h.service.ListRules(c.Request.Context())
	h.respond(c, http.StatusOK, list, err)
}

// ParseRule godoc
// @Summary      Parse free text into a rule
// @Description  Runs deterministic heuristics and falls back to the AI extractor. Nothing is persisted.
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        request  body      ParseRuleRequest  true  "Free-text rule"
// @Success      200      {object}  ParseRuleResponse
// @Failure      400      {object}  map[string]interface{}
// @Failure      422      {object}  map[string]interface{}
// @Failure      503      {object}  map[string]interface{}
// @Router       /rules/parse [post]
func (h *Handler) ParseRule(c *gin.Context) {
	var req ParseRuleRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.service.ParseRule(c.Request.Context(), req)
	h.respond(c, http.StatusOK, result, err)
}

// CreateRule godoc
// @Summary      Create a rule
// @Description  Validates and canonicalizes a rule record, then stores it
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        rule  body      rules.RuleRecord  true  "Rule record"
// @Success      201   {object}  rules.Rule
// @Failure      400   {object}  map[string]interface{}
// @Failure      500   {object}  map[string]interface{}
// @Router       /rules [post]
func (h *Handler) CreateRule(c *gin.Context) {
	var rec rules.RuleRecord
	if !h.bind(c, &rec) {
		return
	}
	rule, err := h.service.CreateRule(c.Request.Context(), rec)
	h.respond(c, http.StatusCreated, rule, err)
}

// ImportRules godoc
// @Summary      Bulk import rules
// @Description  All-or-nothing import; duplicates by canonical form are stored once
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        request  body      ImportRulesRequest  true  "Rule records"
// @Success      201      {object}  ImportRulesResponse
// @Failure      400      {object}  map[string]interface{}
// @Failure      500      {object}  map[string]interface{}
// @Router       /rules/import [post]
func (h *Handler) ImportRules(c *gin.Context) {
	var req ImportRulesRequest
	if !h.bind(c, &req) {
		return
	}
	created, err := h.service.ImportRules(c.Request.Context(), req.Rules)
	h.respond(c, http.StatusCreated, ImportRulesResponse{Count: len(created)}, err)
}

// DeleteRule godoc
// @Summary      Delete a rule
// @Tags         rules
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  DeleteRuleResponse
// @Failure      404  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /rules/{id} [delete]
func (h *Handler) DeleteRule(c *gin.Context) {
	err := h.service.DeleteRule(c.Request.Context(), c.Param("id"))
	h.respond(c, http.StatusOK, DeleteRuleResponse{OK: true}, err)
}

// EvaluateSubject godoc
// @Summary      Evaluate a thread against the current rules
// @Description  Reports whether the sender/title would be suppressed or marked VIP and which rule fired
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        request  body      EvaluateRequest  true  "Thread participants and subject"
// @Success      200      {object}  EvaluateResponse
// @Failure      400      {object}  map[string]interface{}
// @Failure      500      {object}  map[string]interface{}
// @Router       /rules/evaluate [post]
func (h *Handler) EvaluateSubject(c *gin.Context) {
	var req EvaluateRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.service.EvaluateSubject(c.Request.Context(), req)
	h.respond(c, http.StatusOK, result, err)
}

// ListAuditEvents godoc
// @Summary      List audit events
// @Tags         audit
// @Produce      json
// @Param        entity_id  query     string  false  "Filter by entity ID"
// @Param        action     query     string  false  "Filter by action (RULE_CREATED, RULE_DELETED, ...)"
// @Param        limit      query     int     false  "Maximum number of events to return (1-1000)" default(100)
// @Success      200        {array}   audit.Event
// @Failure      500        {object}  map[string]interface{}
// @Router       /audit/events [get]
func (h *Handler) ListAuditEvents(c *gin.Context) {
	query := AuditQuery{
		EntityID: c.Query("entity_id"),
		Action:   c.Query("action"),
		Limit:    parseLimit(c.Query("limit")),
	}

	events, err := h.service.ListAuditEvents(c.Request.Context(), query)
	h.respond(c, http.StatusOK, events, err)
}

// GetParserSettings godoc
// @Summary      Get parser settings
// @Tags         config
// @Produce      json
// @Success      200  {object}  ParserSettings
// @Router       /config/parser [get]
func (h *Handler) GetParserSettings(c *gin.Context) {
	settings, err := h.service.GetParserSettings(c.Request.Context())
	h.respond(c, http.StatusOK, settings, err)
}

// UpdateParserSettings godoc
// @Summary      Update parser settings
// @Tags         config
// @Accept       json
// @Produce      json
// @Param        settings  body      UpdateParserSettingsRequest  true  "Changed settings"
// @Success      200       {object}  ParserSettings
// @Failure      400       {object}  map[string]interface{}
// @Router       /config/parser [put]
func (h *Handler) UpdateParserSettings(c *gin.Context) {
	var req UpdateParserSettingsRequest
	if !h.bind(c, &req) {
		return
	}
	settings, err := h.service.UpdateParserSettings(c.Request.Context(), req)
	h.respond(c, http.StatusOK, settings, err)
}

// parseLimit falls back to the default for anything outside 1..MaxLimit.
func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return n
}
