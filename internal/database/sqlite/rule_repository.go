package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vladvaleanu/automation-platform-sub000/internal/core/alerting"
	"github.com/vladvaleanu/automation-platform-sub000/internal/database/models"
)

// RuleRepository is the SQLite implementation of rule persistence.
type RuleRepository struct {
	db *sqlx.DB
}

// NewRuleRepository creates a new rule repository.
func NewRuleRepository(db *sqlx.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) Create(ctx context.Context, rule *alerting.AlertRule) error {
	row, err := ruleToRow(rule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO alert_rules (
			id, name, source, event_type, severity, conditions, condition_logic,
			cooldown_seconds, time_window, rate_limit, escalation, group_key,
			message, enabled, created_at, updated_at
		) VALUES (
			:id, :name, :source, :event_type, :severity, :conditions, :condition_logic,
			:cooldown_seconds, :time_window, :rate_limit, :escalation, :group_key,
			:message, :enabled, :created_at, :updated_at
		)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to create rule %s: %w", rule.ID, err)
	}
	return nil
}

func (r *RuleRepository) Update(ctx context.Context, rule *alerting.AlertRule) error {
	row, err := ruleToRow(rule)
	if err != nil {
		return err
	}

	query := `
		UPDATE alert_rules SET
			name = :name, source = :source, event_type = :event_type,
			severity = :severity, conditions = :conditions,
			condition_logic = :condition_logic, cooldown_seconds = :cooldown_seconds,
			time_window = :time_window, rate_limit = :rate_limit,
			escalation = :escalation, group_key = :group_key, message = :message,
			enabled = :enabled, updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("failed to update rule %s: %w", rule.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("rule %s: %w", rule.ID, alerting.ErrNotFound)
	}
	return nil
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM alert_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("rule %s: %w", id, alerting.ErrNotFound)
	}
	return nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*alerting.AlertRule, error) {
	var row models.AlertRuleRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM alert_rules WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %s: %w", id, alerting.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule %s: %w", id, err)
	}
	return rowToRule(&row)
}

func (r *RuleRepository) GetAll(ctx context.Context) ([]*alerting.AlertRule, error) {
	var rows []models.AlertRuleRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT * FROM alert_rules ORDER BY name"); err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	rules := make([]*alerting.AlertRule, 0, len(rows))
	for i := range rows {
		rule, err := rowToRule(&rows[i])
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (r *RuleRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alert_rules SET enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		enabled, id)
	if err != nil {
		return fmt.Errorf("failed to toggle rule %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("rule %s: %w", id, alerting.ErrNotFound)
	}
	return nil
}

func ruleToRow(rule *alerting.AlertRule) (*models.AlertRuleRow, error) {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conditions: %w", err)
	}

	row := &models.AlertRuleRow{
		ID:              rule.ID,
		Name:            rule.Name,
		Source:          rule.Source,
		EventType:       rule.EventType,
		Severity:        string(rule.Severity),
		Conditions:      string(conditions),
		ConditionLogic:  string(rule.ConditionLogic),
		CooldownSeconds: rule.CooldownSeconds,
		Enabled:         rule.Enabled,
		CreatedAt:       rule.CreatedAt,
		UpdatedAt:       rule.UpdatedAt,
	}
	if rule.GroupKey != "" {
		row.GroupKey = sql.NullString{String: string(rule.GroupKey), Valid: true}
	}
	if rule.Message != "" {
		row.Message = sql.NullString{String: rule.Message, Valid: true}
	}
	if row.TimeWindow, err = marshalNullable(rule.TimeWindow); err != nil {
		return nil, err
	}
	if row.RateLimit, err = marshalNullable(rule.RateLimit); err != nil {
		return nil, err
	}
	if row.Escalation, err = marshalNullable(rule.Escalation); err != nil {
		return nil, err
	}
	return row, nil
}

func rowToRule(row *models.AlertRuleRow) (*alerting.AlertRule, error) {
	rule := &alerting.AlertRule{
		ID:              row.ID,
		Name:            row.Name,
		Source:          row.Source,
		EventType:       row.EventType,
		Severity:        alerting.Severity(row.Severity),
		ConditionLogic:  alerting.ConditionLogic(row.ConditionLogic),
		CooldownSeconds: row.CooldownSeconds,
		GroupKey:        alerting.GroupKey(row.GroupKey.String),
		Message:         row.Message.String,
		Enabled:         row.Enabled,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}

	if err := json.Unmarshal([]byte(row.Conditions), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions for rule %s: %w", row.ID, err)
	}
	if row.TimeWindow.Valid {
		rule.TimeWindow = &alerting.TimeWindow{}
		if err := json.Unmarshal([]byte(row.TimeWindow.String), rule.TimeWindow); err != nil {
			return nil, fmt.Errorf("failed to unmarshal time window for rule %s: %w", row.ID, err)
		}
	}
	if row.RateLimit.Valid {
		rule.RateLimit = &alerting.RateLimit{}
		if err := json.Unmarshal([]byte(row.RateLimit.String), rule.RateLimit); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rate limit for rule %s: %w", row.ID, err)
		}
	}
	if row.Escalation.Valid {
		rule.Escalation = &alerting.Escalation{}
		if err := json.Unmarshal([]byte(row.Escalation.String), rule.Escalation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal escalation for rule %s: %w", row.ID, err)
		}
	}
	return rule, nil
}

func marshalNullable(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	switch t := v.(type) {
	case *alerting.TimeWindow:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *alerting.RateLimit:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *alerting.Escalation:
		if t == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal rule config: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
