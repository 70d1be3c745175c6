package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"unifiedinbox/internal/categorize"
	"unifiedinbox/internal/repository"
	"unifiedinbox/internal/service"
	"unifiedinbox/pkg/logger"
)

type RuleHandler struct {
	svc    *service.RuleService
	logger *zap.Logger
}

func NewRuleHandler(svc *service.RuleService, logger *zap.Logger) *RuleHandler {
	return &RuleHandler{
		svc:    svc,
		logger: logger,
	}
}

// ListRules handles GET /api/rules
func (h *RuleHandler) ListRules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rules": h.svc.List()})
}

// CreateRule handles POST /api/rules
func (h *RuleHandler) CreateRule(c *gin.Context) {
	var req service.RuleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	rule, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.audit(c, "create", rule.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "rule": rule})
}

// UpdateRule handles PATCH /api/rules/:ruleId
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	var patch repository.RulePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	rule, err := h.svc.Update(c.Request.Context(), c.Param("ruleId"), patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.audit(c, "update", rule.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "rule": rule})
}

// DeleteRule handles DELETE /api/rules/:ruleId
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	id := c.Param("ruleId")
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	h.audit(c, "delete", id)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *RuleHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrRuleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
	case errors.Is(err, categorize.ErrInvalidRule):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.WithTrace(c.Request.Context(), h.logger).Error("Rule operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update rules"})
	}
}

func (h *RuleHandler) audit(c *gin.Context, op, id string) {
	log := logger.WithTrace(c.Request.Context(), h.logger)
	if operator, ok := c.Get(operatorKey); ok {
		log = log.With(zap.Any("operator", operator))
	}
	log.Info("Rule mutated via API", zap.String("op", op), zap.String("rule_id", id))
}
