package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladvaleanu/automation-platform-sub000/internal/config"
	"github.com/vladvaleanu/automation-platform-sub000/internal/core/alerting"
)

// failingRuleRepository rejects every write, for exercising the handlers'
// compensation paths.
type failingRuleRepository struct{}

var errRepoDown = assert.AnError

func (failingRuleRepository) Create(context.Context, *alerting.AlertRule) error { return errRepoDown }
func (failingRuleRepository) Update(context.Context, *alerting.AlertRule) error { return errRepoDown }
func (failingRuleRepository) Delete(context.Context, string) error              { return errRepoDown }
func (failingRuleRepository) GetByID(context.Context, string) (*alerting.AlertRule, error) {
	return nil, alerting.ErrNotFound
}
func (failingRuleRepository) GetAll(context.Context) ([]*alerting.AlertRule, error) {
	return nil, nil
}
func (failingRuleRepository) SetEnabled(context.Context, string, bool) error { return errRepoDown }

func handlerTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func seededRule() *alerting.AlertRule {
	return &alerting.AlertRule{
		ID:        "rule-1",
		Name:      "low voltage",
		Source:    "pdu-monitor",
		EventType: "reading",
		Severity:  alerting.SeverityWarning,
		Conditions: []alerting.Condition{
			{Field: "voltage", Operator: alerting.OpLt, Value: alerting.NumberValue(200)},
		},
		ConditionLogic:  alerting.LogicAnd,
		CooldownSeconds: 60,
		Enabled:         true,
	}
}

func newRuleHandlers(t *testing.T) (*Handlers, *alerting.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := alerting.NewMemoryStore()
	engine := alerting.NewEngine(alerting.Config{Workers: 1, QueueSize: 16}, store, alerting.NopNotifier{}, nil, handlerTestLogger())
	require.NoError(t, engine.AddRule(seededRule()))

	h := NewHandlers(&config.Config{}, engine, store, failingRuleRepository{}, nil, nil, handlerTestLogger())
	return h, engine
}

func ruleRequest(t *testing.T, method string, body interface{}, id string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/api/v1/alert-rules/"+id, bytes.NewReader(data))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: id}}
	return c, w
}

func TestUpdateAlertRule_PersistFailureRestoresEngine(t *testing.T) {
	h, engine := newRuleHandlers(t)

	changed := seededRule()
	changed.Name = "renamed rule"
	changed.CooldownSeconds = 5

	c, w := ruleRequest(t, http.MethodPut, changed, "rule-1")
	h.UpdateAlertRule(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	current, err := engine.GetRule("rule-1")
	require.NoError(t, err)
	assert.Equal(t, "low voltage", current.Name)
	assert.Equal(t, 60, current.CooldownSeconds)
}

func TestToggleAlertRule_PersistFailureRestoresEngine(t *testing.T) {
	h, engine := newRuleHandlers(t)

	c, w := ruleRequest(t, http.MethodPatch, map[string]bool{"enabled": false}, "rule-1")
	h.ToggleAlertRule(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	current, err := engine.GetRule("rule-1")
	require.NoError(t, err)
	assert.True(t, current.Enabled)
}
