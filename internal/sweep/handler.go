package sweep

import (
	"context"
	"errors"

	"triage/internal/constants"
	"triage/internal/logger"
	"triage/internal/rules"
	pkgerrors "triage/pkg/errors"
	"triage/pkg/models"
)

type Runner interface {
	Run(ctx context.Context, trigger string) (Result, error)
}

// EventHandler triggers a sweep when a suppression rule is created.
type EventHandler struct {
	runner Runner
	logger logger.Logger
}

func NewEventHandler(runner Runner, log logger.Logger) *EventHandler {
	return &EventHandler{runner: runner, logger: log}
}

func (h *EventHandler) HandleRuleEvent(ctx context.Context, envelope models.MessageEnvelope) error {
	eventType := envelope.EventType()
	if eventType == "" {
		h.logger.WarnwCtx(ctx, "Rule event missing event_type", "id", envelope.ID)
		return nil
	}
	if eventType != models.EventTypeRuleChanged {
		return nil
	}

	event, err := models.DecodeRuleEvent(envelope)
	if err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to decode rule event", "error", err, "id", envelope.ID)
		return pkgerrors.ErrValidation.WithCause(err).AsFatal()
	}

	if event.Action != models.ActionCreate || event.RuleAction != string(rules.ActionSuppress) {
		h.logger.DebugwCtx(ctx, "Ignoring rule event",
			"action", event.Action,
			"rule_action", event.RuleAction,
			"rule_id", event.RuleID,
		)
		return nil
	}

	h.logger.InfowCtx(ctx, "Suppression rule created, starting sweep",
		"rule_id", event.RuleID,
		"changed_by", event.ChangedBy,
	)

	if _, err := h.runner.Run(ctx, constants.SweepTriggerEvent); err != nil {
		// the next scheduled sweep picks the rule up
		if errors.Is(err, ErrSweepInProgress) {
			return nil
		}
		return pkgerrors.ErrStore.WithCause(err).AsRetryable()
	}
	return nil
}
