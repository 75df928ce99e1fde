package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifsp-pirituba/almoco-bot/internal/cancel"
	"github.com/ifsp-pirituba/almoco-bot/internal/conversation"
	"github.com/ifsp-pirituba/almoco-bot/internal/notify"
	"github.com/ifsp-pirituba/almoco-bot/internal/observability/metrics"
	"github.com/ifsp-pirituba/almoco-bot/internal/orders"
	"github.com/ifsp-pirituba/almoco-bot/internal/students"
)

func newTestWebhook(t *testing.T) *WebhookHandler {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	studentsRepo := students.NewInMemoryRepository()
	id := studentsRepo.SeedStudent("3029791", "Maria Silva", true)
	studentsRepo.SeedContact(id, "5511999999999")

	ordersRepo := orders.NewInMemoryRepository()
	svc := cancel.NewService(ordersRepo, notify.NewStubEmailSender(nil), "cae@example.edu.br", nil, nil)
	conv := conversation.NewHandler(studentsRepo, ordersRepo, svc,
		conversation.NewInMemoryStateStore(), loc, nil,
		conversation.WithClock(func() time.Time { return time.Date(2025, 6, 10, 9, 0, 0, 0, loc) }))

	return NewWebhookHandler(conv, metrics.NewBotMetrics(prometheus.NewRegistry()), nil)
}

func TestHandleMessageReturnsReply(t *testing.T) {
	h := newTestWebhook(t)

	body := `{"chat_id":"5511999999999@c.us","text":"menu"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/message", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleMessage(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Reply string `json:"reply"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Contains(t, out.Reply, "Como posso ajudar?")
}

func TestHandleMessageEmptyTextIgnored(t *testing.T) {
	h := newTestWebhook(t)

	body := `{"chat_id":"5511999999999@c.us","text":"  "}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/message", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleMessage(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandleMessageRejectsBadJSON(t *testing.T) {
	h := newTestWebhook(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook/message", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.HandleMessage(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMessageRequiresChatID(t *testing.T) {
	h := newTestWebhook(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook/message", strings.NewReader(`{"text":"oi"}`))
	rec := httptest.NewRecorder()
	h.HandleMessage(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	h := newTestWebhook(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}
