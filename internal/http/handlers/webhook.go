// Package handlers exposes the HTTP surface of the bot: the inbound
// message webhook the WhatsApp gateway posts to, plus health checks.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ifsp-pirituba/almoco-bot/internal/conversation"
	"github.com/ifsp-pirituba/almoco-bot/internal/observability/metrics"
	"github.com/ifsp-pirituba/almoco-bot/pkg/logging"
)

// WebhookHandler receives inbound messages from the WhatsApp gateway and
// returns the reply the gateway should send back.
type WebhookHandler struct {
	conv    *conversation.Handler
	metrics *metrics.BotMetrics
	logger  *logging.Logger
}

// NewWebhookHandler creates the webhook handler. metrics may be nil.
func NewWebhookHandler(conv *conversation.Handler, m *metrics.BotMetrics, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{conv: conv, metrics: m, logger: logger}
}

type inboundMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type outboundReply struct {
	Reply string `json:"reply"`
}

// HandleMessage processes one inbound message.
// POST /webhook/message
func (h *WebhookHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var msg inboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.metrics.ObserveMessage("bad_request", time.Since(start).Seconds())
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(msg.ChatID) == "" {
		h.metrics.ObserveMessage("bad_request", time.Since(start).Seconds())
		http.Error(w, `{"error":"chat_id is required"}`, http.StatusBadRequest)
		return
	}

	reply, err := h.conv.ProcessText(r.Context(), msg.ChatID, msg.Text)
	if err != nil {
		h.logger.Error("message processing failed", "chat_id", msg.ChatID, "error", err)
		h.metrics.ObserveMessage("error", time.Since(start).Seconds())
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	if reply == "" {
		h.metrics.ObserveMessage("ignored", time.Since(start).Seconds())
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.metrics.ObserveMessage("ok", time.Since(start).Seconds())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(outboundReply{Reply: reply})
}

// HealthCheck reports liveness.
// GET /health
func (h *WebhookHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
