package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	mqcontracts "unifiedinbox/contracts/mq"
	"unifiedinbox/internal/categorize"
	"unifiedinbox/internal/rawmail"
	"unifiedinbox/internal/util"
	"unifiedinbox/pkg/logger"
	"unifiedinbox/pkg/metrics"
	"unifiedinbox/pkg/mq"
	"unifiedinbox/pkg/otel"
)

// HandlerName is the dedup / retry key namespace of this handler.
const HandlerName = "categorize"

const defaultMaxRetries = 3

var errMissingEmailID = errors.New("email_id is required")

type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, emailID int) bool
	Release(ctx context.Context, handler string, emailID int)
}

type RetryCounter interface {
	Attempt(ctx context.Context, handler string, emailID int) (int64, error)
	Clear(ctx context.Context, handler string, emailID int) error
}

type MetadataStore interface {
	Upsert(ctx context.Context, emailID int, category string, confidence float64, reason string) error
}

type Categorizer interface {
	CategorizeForUser(ctx context.Context, email categorize.Email, userID int) categorize.Result
}

type EmailReceivedCategorizeHandler struct {
	categorizer Categorizer
	store       MetadataStore
	deduper     Deduper
	retries     RetryCounter
	maxRetries  int64
	logger      *zap.Logger
}

// NewEmailReceivedCategorizeHandler builds the email.received consumer
// handler. deduper and retries may be nil.
func NewEmailReceivedCategorizeHandler(
	categorizer Categorizer,
	store MetadataStore,
	deduper Deduper,
	retries RetryCounter,
	logger *zap.Logger,
) *EmailReceivedCategorizeHandler {
	return &EmailReceivedCategorizeHandler{
		categorizer: categorizer,
		store:       store,
		deduper:     deduper,
		retries:     retries,
		maxRetries:  defaultMaxRetries,
		logger:      logger,
	}
}

// HandleEmailReceived categorizes one email.received event and stores the
// result in emails_metadata. Redelivery is safe: the row is upserted and
// already processed ids are skipped through the deduper.
func (h *EmailReceivedCategorizeHandler) HandleEmailReceived(ctx context.Context, raw json.RawMessage) error {
	ctx, span := otel.StartSpan(ctx, "mqhandler.HandleEmailReceived")
	defer span.End()

	var p mqcontracts.EmailReceivedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal email received payload", zap.Error(err))
		metrics.IncrementEmailProcessed("invalid")
		return mq.Permanent(err)
	}
	if p.EmailID <= 0 {
		metrics.IncrementEmailProcessed("invalid")
		return mq.Permanent(errMissingEmailID)
	}
	span.SetAttributes(attribute.Int("email_id", p.EmailID))

	log := logger.WithTrace(ctx, h.logger).With(
		zap.Int("email_id", p.EmailID),
		zap.Int("user_id", p.UserID),
	)

	if h.deduper != nil && !h.deduper.AcquireOnce(ctx, HandlerName, p.EmailID) {
		metrics.IncrementEmailProcessed("duplicate")
		return nil
	}

	email, err := toEmail(p)
	if err != nil {
		log.Error("Failed to parse raw message", zap.Error(err))
		h.release(ctx, p.EmailID)
		metrics.IncrementEmailProcessed("invalid")
		return mq.Permanent(err)
	}

	res := h.categorizer.CategorizeForUser(ctx, email, p.UserID)
	log.Info("Email categorized",
		zap.String("category", res.Category.String()),
		zap.Float64("confidence", res.Confidence),
	)

	if err := h.store.Upsert(ctx, p.EmailID, res.Category.String(), res.Confidence, res.Reason); err != nil {
		return h.fail(ctx, log, p.EmailID, fmt.Errorf("failed to store categorization: %w", err))
	}

	if h.retries != nil {
		_ = h.retries.Clear(ctx, HandlerName, p.EmailID)
	}
	metrics.IncrementEmailProcessed("success")
	return nil
}

// fail releases the dedup key and decides between requeue and dead-letter.
func (h *EmailReceivedCategorizeHandler) fail(ctx context.Context, log *zap.Logger, emailID int, err error) error {
	h.release(ctx, emailID)
	metrics.IncrementEmailProcessed("failed")

	retryable, kind := util.IsRetryableError(err)
	if retryable && h.retries != nil {
		count, cerr := h.retries.Attempt(ctx, HandlerName, emailID)
		if cerr == nil && !util.ShouldRetry(count, h.maxRetries, true) {
			retryable = false
		}
	}

	log.Error("Failed to process email received event",
		zap.String("error_type", kind),
		zap.Bool("retryable", retryable),
		zap.Error(err),
	)
	if !retryable {
		return mq.Permanent(err)
	}
	return err
}

func (h *EmailReceivedCategorizeHandler) release(ctx context.Context, emailID int) {
	if h.deduper != nil {
		h.deduper.Release(ctx, HandlerName, emailID)
	}
}

func toEmail(p mqcontracts.EmailReceivedPayload) (categorize.Email, error) {
	id := strconv.Itoa(p.EmailID)
	if p.Raw == "" {
		return categorize.Email{
			ID:       id,
			Sender:   p.Sender,
			Subject:  p.Subject,
			Content:  p.Body,
			Metadata: p.Metadata,
		}, nil
	}

	email, err := rawmail.Parse(strings.NewReader(p.Raw), p.Owner)
	if err != nil {
		return categorize.Email{}, err
	}
	email.ID = id
	return email, nil
}
