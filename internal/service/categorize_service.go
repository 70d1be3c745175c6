package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	mqcontracts "unifiedinbox/contracts/mq"
	"unifiedinbox/internal/categorize"
	"unifiedinbox/pkg/logger"
	"unifiedinbox/pkg/metrics"
	"unifiedinbox/pkg/mq"
	"unifiedinbox/pkg/otel"
)

// EventPublisher is satisfied by *mq.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// RuleSource yields the current rule table in evaluation order.
type RuleSource interface {
	List() []categorize.Rule
}

const (
	SourceAPI    = "api"
	SourceBulk   = "bulk"
	SourceBatch  = "batch"
	SourceRaw    = "raw"
	SourceWorker = "worker"
)

// BulkResult is one entry of a bulk categorization response.
type BulkResult struct {
	ID string `json:"id"`
	categorize.Result
}

type CategorizeService struct {
	categorizer *categorize.Categorizer
	rules       RuleSource
	publisher   EventPublisher
	logger      *zap.Logger
}

// NewCategorizeService wires the engine to the rule table. publisher may be
// nil, in which case no email.categorized events are emitted.
func NewCategorizeService(
	categorizer *categorize.Categorizer,
	rules RuleSource,
	publisher EventPublisher,
	logger *zap.Logger,
) *CategorizeService {
	return &CategorizeService{
		categorizer: categorizer,
		rules:       rules,
		publisher:   publisher,
		logger:      logger,
	}
}

// Categorize classifies a single email against a snapshot of the rule table.
func (s *CategorizeService) Categorize(ctx context.Context, email categorize.Email, source string) categorize.Result {
	ctx, span := otel.StartSpan(ctx, "categorize.Categorize")
	defer span.End()

	res := s.categorizer.Categorize(email, s.rules.List())
	span.SetAttributes(
		attribute.String("category", res.Category.String()),
		attribute.Float64("confidence", res.Confidence),
	)

	s.record(ctx, email.ID, 0, res, source)
	return res
}

// CategorizeBulk classifies each email independently; output order matches input.
func (s *CategorizeService) CategorizeBulk(ctx context.Context, emails []categorize.Email) []BulkResult {
	ctx, span := otel.StartSpan(ctx, "categorize.CategorizeBulk")
	defer span.End()
	span.SetAttributes(attribute.Int("emails", len(emails)))

	rules := s.rules.List()
	out := make([]BulkResult, 0, len(emails))
	for _, e := range emails {
		res := s.categorizer.Categorize(e, rules)
		s.record(ctx, e.ID, 0, res, SourceBulk)
		out = append(out, BulkResult{ID: e.ID, Result: res})
	}
	return out
}

// ProcessBatch enriches every email with its category, color and stats.
func (s *CategorizeService) ProcessBatch(ctx context.Context, emails []categorize.Email) categorize.BatchResult {
	ctx, span := otel.StartSpan(ctx, "categorize.ProcessBatch")
	defer span.End()

	out := s.categorizer.ProcessBatch(emails, s.rules.List())
	for _, e := range out.Emails {
		s.record(ctx, e.ID, 0, e.Result, SourceBatch)
	}

	logger.WithTrace(ctx, s.logger).Info("Processed email batch",
		zap.Int("processed", out.Processed),
		zap.Int("high_confidence", out.Stats.HighConfidence),
		zap.Int("needs_review", out.Stats.NeedsReview),
	)
	return out
}

// CategorizeForUser is used by the worker, which knows the owning user.
func (s *CategorizeService) CategorizeForUser(ctx context.Context, email categorize.Email, userID int) categorize.Result {
	ctx, span := otel.StartSpan(ctx, "categorize.CategorizeForUser")
	defer span.End()

	res := s.categorizer.Categorize(email, s.rules.List())
	s.record(ctx, email.ID, userID, res, SourceWorker)
	return res
}

func (s *CategorizeService) record(ctx context.Context, emailID string, userID int, res categorize.Result, source string) {
	metrics.RecordCategorized(res.Category.String(), source, res.Confidence)

	log := logger.WithTrace(ctx, s.logger)
	log.Debug("Email categorized",
		zap.String("email_id", emailID),
		zap.String("category", res.Category.String()),
		zap.Float64("confidence", res.Confidence),
		zap.String("source", source),
	)

	if s.publisher == nil {
		return
	}
	evt := mqcontracts.EmailCategorizedPayload{
		EmailID:       emailID,
		UserID:        userID,
		Category:      res.Category.String(),
		Confidence:    res.Confidence,
		Reason:        res.Reason,
		Source:        source,
		CategorizedAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, mq.RoutingKeyEmailCategorized, evt); err != nil {
		log.Warn("Failed to publish email.categorized",
			zap.String("email_id", emailID),
			zap.Error(err),
		)
	}
}
