package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	mqcontracts "unifiedinbox/contracts/mq"
	"unifiedinbox/internal/categorize"
	"unifiedinbox/internal/repository"
	"unifiedinbox/pkg/metrics"
	"unifiedinbox/pkg/mq"
)

const defaultRuleConfidence = 0.8

// RuleInput is the body of a rule creation request. Omitted confidence
// defaults to 0.8 and omitted enabled to true.
type RuleInput struct {
	Type       categorize.RuleType  `json:"type"`
	Condition  categorize.Condition `json:"condition"`
	Value      string               `json:"value"`
	Category   string               `json:"category"`
	Confidence *float64             `json:"confidence"`
	Enabled    *bool                `json:"enabled"`
}

type RuleService struct {
	repo      *repository.RuleRepository
	publisher EventPublisher
	logger    *zap.Logger
}

func NewRuleService(repo *repository.RuleRepository, publisher EventPublisher, logger *zap.Logger) *RuleService {
	return &RuleService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *RuleService) List() []categorize.Rule {
	return s.repo.List()
}

// Create validates the input and appends the rule to the end of the table.
func (s *RuleService) Create(ctx context.Context, in RuleInput) (categorize.Rule, error) {
	rule := categorize.Rule{
		Type:       in.Type,
		Condition:  in.Condition,
		Value:      in.Value,
		Category:   normalizeCategory(in.Category),
		Confidence: defaultRuleConfidence,
		Enabled:    true,
	}
	if in.Confidence != nil {
		rule.Confidence = *in.Confidence
	}
	if in.Enabled != nil {
		rule.Enabled = *in.Enabled
	}
	if err := rule.Validate(); err != nil {
		return categorize.Rule{}, err
	}

	rule = s.repo.Add(rule)
	s.changed(ctx, "create", rule.ID)
	return rule, nil
}

// Update applies a partial update. The merged rule must still validate.
func (s *RuleService) Update(ctx context.Context, id string, patch repository.RulePatch) (categorize.Rule, error) {
	rule, err := s.repo.UpdateFunc(id, func(cur categorize.Rule) (categorize.Rule, error) {
		next := patch.Apply(cur)
		next.Category = normalizeCategory(string(next.Category))
		if err := next.Validate(); err != nil {
			return categorize.Rule{}, err
		}
		return next, nil
	})
	if err != nil {
		return categorize.Rule{}, err
	}
	s.changed(ctx, "update", id)
	return rule, nil
}

func (s *RuleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Remove(id); err != nil {
		return err
	}
	s.changed(ctx, "delete", id)
	return nil
}

func (s *RuleService) changed(ctx context.Context, op, id string) {
	metrics.IncrementRuleMutation(op)
	s.logger.Info("Rule table changed",
		zap.String("op", op),
		zap.String("rule_id", id),
	)

	if s.publisher == nil {
		return
	}
	evt := mqcontracts.RulesChangedPayload{Op: op, RuleID: id, ChangedAt: time.Now().UTC()}
	if err := s.publisher.Publish(ctx, mq.RoutingKeyRulesChanged, evt); err != nil {
		s.logger.Warn("Failed to publish rules changed event", zap.Error(err))
	}
}

// normalizeCategory maps case variants onto the canonical label and leaves
// unknown names untouched so validation reports them.
func normalizeCategory(name string) categorize.Category {
	if c, ok := categorize.ParseCategory(name); ok {
		return c
	}
	return categorize.Category(name)
}
