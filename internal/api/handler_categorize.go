package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"unifiedinbox/internal/categorize"
	"unifiedinbox/internal/rawmail"
	"unifiedinbox/internal/service"
	"unifiedinbox/pkg/logger"
)

const maxRawMessageBytes = 10 << 20

const (
	msgNotArray    = "Emails must be an array"
	msgRequired    = "Sender and subject are required"
	msgInvalidJSON = "Invalid JSON body"
)

type CategorizeHandler struct {
	svc    *service.CategorizeService
	logger *zap.Logger
}

func NewCategorizeHandler(svc *service.CategorizeService, logger *zap.Logger) *CategorizeHandler {
	return &CategorizeHandler{
		svc:    svc,
		logger: logger,
	}
}

type emailsRequest struct {
	Emails json.RawMessage `json:"emails"`
}

// Categorize handles POST /api/categorize
func (h *CategorizeHandler) Categorize(c *gin.Context) {
	var req categorize.Email
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidJSON})
		return
	}
	// 只检查空串，纯空白的 sender/subject 照常分类
	if req.Sender == "" || req.Subject == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgRequired})
		return
	}

	var res categorize.Result
	err := h.guard(c, func() {
		res = h.svc.Categorize(c.Request.Context(), req, service.SourceAPI)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to categorize email"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// CategorizeBulk handles POST /api/categorize/bulk
func (h *CategorizeHandler) CategorizeBulk(c *gin.Context) {
	emails, msg := bindEmails(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	var results []service.BulkResult
	err := h.guard(c, func() {
		results = h.svc.CategorizeBulk(c.Request.Context(), emails)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to categorize emails"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"results":   results,
		"processed": len(results),
	})
}

// ProcessBatch handles POST /api/categorize/batch
func (h *CategorizeHandler) ProcessBatch(c *gin.Context) {
	emails, msg := bindEmails(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	var out categorize.BatchResult
	err := h.guard(c, func() {
		out = h.svc.ProcessBatch(c.Request.Context(), emails)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process batch"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// CategorizeRaw handles POST /api/categorize/raw with an RFC 822 body.
// The optional "owner" query parameter is the receiving mailbox.
func (h *CategorizeHandler) CategorizeRaw(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxRawMessageBytes)
	email, err := rawmail.Parse(body, c.Query("owner"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid MIME message"})
		return
	}

	var res categorize.Result
	err = h.guard(c, func() {
		res = h.svc.Categorize(c.Request.Context(), email, service.SourceRaw)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to categorize email"})
		return
	}
	c.JSON(http.StatusOK, service.BulkResult{ID: email.ID, Result: res})
}

// ListCategories handles GET /api/categories
func (h *CategorizeHandler) ListCategories(c *gin.Context) {
	type categoryView struct {
		Name    string   `json:"name"`
		Color   string   `json:"color"`
		Actions []string `json:"actions"`
	}

	cats := categorize.Categories()
	out := make([]categoryView, 0, len(cats))
	for _, cat := range cats {
		out = append(out, categoryView{Name: cat.String(), Color: cat.Color(), Actions: cat.Actions()})
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

// guard runs fn and turns a panic into an error so handlers can answer 500
// with their own message.
func (h *CategorizeHandler) guard(c *gin.Context, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			logger.WithTrace(c.Request.Context(), h.logger).Error("Categorization failed",
				zap.String("path", c.FullPath()),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
	return nil
}

// bindEmails decodes {"emails": [...]}; a non-empty message means 400.
func bindEmails(c *gin.Context) ([]categorize.Email, string) {
	var req emailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, msgNotArray
	}
	raw := bytes.TrimSpace(req.Emails)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, msgNotArray
	}

	// 单条字段类型不对时按零值处理，不拖垮整个请求
	var emails []categorize.Email
	if err := json.Unmarshal(raw, &emails); err != nil {
		return nil, msgNotArray
	}
	return emails, ""
}
