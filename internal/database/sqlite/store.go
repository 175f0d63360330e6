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

// Store is the SQLite-backed alert and incident store. Mutate callbacks run
// inside immediate transactions, which serializes read-modify-write updates
// against concurrent writers.
type Store struct {
	db *sqlx.DB
}

// NewStore creates the SQLite store.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) SaveAlert(ctx context.Context, alert *alerting.Alert) error {
	row, err := alertToRow(alert)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO alerts (
			id, rule_id, incident_id, severity, message, source_event,
			created_at, acknowledged, escalated_at
		) VALUES (
			:id, :rule_id, :incident_id, :severity, :message, :source_event,
			:created_at, :acknowledged, :escalated_at
		)`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save alert %s: %w", alert.ID, err)
	}
	return nil
}

func (s *Store) UpdateAlert(ctx context.Context, id string, mutate func(*alerting.Alert) error) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var row models.AlertRow
		err := tx.GetContext(ctx, &row, "SELECT * FROM alerts WHERE id = ?", id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("alert %s: %w", id, alerting.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load alert %s: %w", id, err)
		}

		alert, err := rowToAlert(&row)
		if err != nil {
			return err
		}
		if err := mutate(alert); err != nil {
			return err
		}

		updated, err := alertToRow(alert)
		if err != nil {
			return err
		}
		_, err = tx.NamedExecContext(ctx, `
			UPDATE alerts SET
				incident_id = :incident_id, severity = :severity,
				message = :message, acknowledged = :acknowledged,
				escalated_at = :escalated_at
			WHERE id = :id`, updated)
		if err != nil {
			return fmt.Errorf("failed to update alert %s: %w", id, err)
		}
		return nil
	})
}

func (s *Store) GetAlert(ctx context.Context, id string) (*alerting.Alert, error) {
	var row models.AlertRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM alerts WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %s: %w", id, alerting.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert %s: %w", id, err)
	}
	return rowToAlert(&row)
}

func (s *Store) ListAlerts(ctx context.Context, limit int) ([]*alerting.Alert, error) {
	query := "SELECT * FROM alerts ORDER BY created_at DESC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []models.AlertRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return rowsToAlerts(rows)
}

func (s *Store) ListOpenAlerts(ctx context.Context) ([]*alerting.Alert, error) {
	var rows []models.AlertRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM alerts WHERE acknowledged = 0 AND escalated_at IS NULL ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to list open alerts: %w", err)
	}
	return rowsToAlerts(rows)
}

func (s *Store) CreateIncident(ctx context.Context, incident *alerting.Incident) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		row := incidentToRow(incident)
		query := `
			INSERT INTO incidents (
				id, title, severity, status, impact, alert_count,
				has_forge_analysis, created_at, updated_at, resolved_at
			) VALUES (
				:id, :title, :severity, :status, :impact, :alert_count,
				:has_forge_analysis, :created_at, :updated_at, :resolved_at
			)`
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("failed to create incident %s: %w", incident.ID, err)
		}

		for _, a := range incident.Alerts {
			if _, err := tx.ExecContext(ctx,
				"UPDATE alerts SET incident_id = ? WHERE id = ?", incident.ID, a.ID); err != nil {
				return fmt.Errorf("failed to attach alert %s to incident %s: %w", a.ID, incident.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateIncident(ctx context.Context, id string, mutate func(*alerting.Incident) error) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		incident, err := loadIncidentTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := mutate(incident); err != nil {
			return err
		}

		row := incidentToRow(incident)
		_, err = tx.NamedExecContext(ctx, `
			UPDATE incidents SET
				title = :title, severity = :severity, status = :status,
				impact = :impact, alert_count = :alert_count,
				has_forge_analysis = :has_forge_analysis,
				updated_at = :updated_at, resolved_at = :resolved_at
			WHERE id = :id`, row)
		if err != nil {
			return fmt.Errorf("failed to update incident %s: %w", id, err)
		}

		// Alerts appended by mutate get their membership persisted here.
		for _, a := range incident.Alerts {
			if _, err := tx.ExecContext(ctx,
				"UPDATE alerts SET incident_id = ? WHERE id = ? AND (incident_id IS NULL OR incident_id != ?)",
				id, a.ID, id); err != nil {
				return fmt.Errorf("failed to attach alert %s to incident %s: %w", a.ID, id, err)
			}
		}
		return nil
	})
}

func (s *Store) GetIncident(ctx context.Context, id string) (*alerting.Incident, error) {
	var incident *alerting.Incident
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		incident, err = loadIncidentTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return incident, nil
}

func (s *Store) ListIncidents(ctx context.Context, status alerting.IncidentStatus) ([]*alerting.Incident, error) {
	query := "SELECT * FROM incidents"
	args := []interface{}{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC"

	var rows []models.IncidentRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}

	incidents := make([]*alerting.Incident, 0, len(rows))
	for i := range rows {
		incident := rowToIncident(&rows[i])
		alerts, err := s.incidentAlerts(ctx, s.db, incident.ID)
		if err != nil {
			return nil, err
		}
		incident.Alerts = alerts
		incidents = append(incidents, incident)
	}
	return incidents, nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func loadIncidentTx(ctx context.Context, tx *sqlx.Tx, id string) (*alerting.Incident, error) {
	var row models.IncidentRow
	err := tx.GetContext(ctx, &row, "SELECT * FROM incidents WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("incident %s: %w", id, alerting.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load incident %s: %w", id, err)
	}

	incident := rowToIncident(&row)

	var alertRows []models.AlertRow
	err = tx.SelectContext(ctx, &alertRows,
		"SELECT * FROM alerts WHERE incident_id = ? ORDER BY created_at", id)
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts for incident %s: %w", id, err)
	}
	incident.Alerts, err = rowsToAlerts(alertRows)
	if err != nil {
		return nil, err
	}
	return incident, nil
}

func (s *Store) incidentAlerts(ctx context.Context, q sqlx.QueryerContext, id string) ([]*alerting.Alert, error) {
	var rows []models.AlertRow
	err := sqlx.SelectContext(ctx, q, &rows,
		"SELECT * FROM alerts WHERE incident_id = ? ORDER BY created_at", id)
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts for incident %s: %w", id, err)
	}
	return rowsToAlerts(rows)
}

func alertToRow(alert *alerting.Alert) (*models.AlertRow, error) {
	event, err := json.Marshal(alert.SourceEvent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal source event: %w", err)
	}

	row := &models.AlertRow{
		ID:           alert.ID,
		RuleID:       alert.RuleID,
		Severity:     string(alert.Severity),
		Message:      alert.Message,
		SourceEvent:  string(event),
		CreatedAt:    alert.CreatedAt,
		Acknowledged: alert.Acknowledged,
	}
	if alert.IncidentID != "" {
		row.IncidentID = sql.NullString{String: alert.IncidentID, Valid: true}
	}
	if alert.EscalatedAt != nil {
		row.EscalatedAt = sql.NullTime{Time: *alert.EscalatedAt, Valid: true}
	}
	return row, nil
}

func rowToAlert(row *models.AlertRow) (*alerting.Alert, error) {
	alert := &alerting.Alert{
		ID:           row.ID,
		RuleID:       row.RuleID,
		IncidentID:   row.IncidentID.String,
		Severity:     alerting.Severity(row.Severity),
		Message:      row.Message,
		CreatedAt:    row.CreatedAt,
		Acknowledged: row.Acknowledged,
	}
	if row.EscalatedAt.Valid {
		t := row.EscalatedAt.Time
		alert.EscalatedAt = &t
	}
	if err := json.Unmarshal([]byte(row.SourceEvent), &alert.SourceEvent); err != nil {
		return nil, fmt.Errorf("failed to unmarshal source event for alert %s: %w", row.ID, err)
	}
	return alert, nil
}

func rowsToAlerts(rows []models.AlertRow) ([]*alerting.Alert, error) {
	alerts := make([]*alerting.Alert, 0, len(rows))
	for i := range rows {
		alert, err := rowToAlert(&rows[i])
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func incidentToRow(incident *alerting.Incident) *models.IncidentRow {
	row := &models.IncidentRow{
		ID:               incident.ID,
		Title:            incident.Title,
		Severity:         string(incident.Severity),
		Status:           string(incident.Status),
		Impact:           incident.Impact,
		AlertCount:       incident.AlertCount,
		HasForgeAnalysis: incident.HasForgeAnalysis,
		CreatedAt:        incident.CreatedAt,
		UpdatedAt:        incident.UpdatedAt,
	}
	if incident.ResolvedAt != nil {
		row.ResolvedAt = sql.NullTime{Time: *incident.ResolvedAt, Valid: true}
	}
	return row
}

func rowToIncident(row *models.IncidentRow) *alerting.Incident {
	incident := &alerting.Incident{
		ID:               row.ID,
		Title:            row.Title,
		Severity:         alerting.Severity(row.Severity),
		Status:           alerting.IncidentStatus(row.Status),
		Impact:           row.Impact,
		AlertCount:       row.AlertCount,
		HasForgeAnalysis: row.HasForgeAnalysis,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if row.ResolvedAt.Valid {
		t := row.ResolvedAt.Time
		incident.ResolvedAt = &t
	}
	return incident
}
