package repositories

import (
	"context"

	"github.com/vladvaleanu/automation-platform-sub000/internal/core/alerting"
)

// RuleRepository persists alert rule definitions. The engine holds the live
// in-memory copies; the repository is the durable source they load from.
type RuleRepository interface {
	Create(ctx context.Context, rule *alerting.AlertRule) error
	Update(ctx context.Context, rule *alerting.AlertRule) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*alerting.AlertRule, error)
	GetAll(ctx context.Context) ([]*alerting.AlertRule, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
}
