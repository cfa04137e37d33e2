package email

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"
)

// Message is a notification accepted by the sink.
type Message struct {
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	Accepted time.Time `json:"accepted"`
}

// Handler is a mail sink. It validates and logs messages and keeps the most
// recent ones in memory for inspection.
type Handler struct {
	logger *slog.Logger
	limit  int

	mu     sync.Mutex
	outbox []Message
	now    func() time.Time
}

func NewHandler(logger *slog.Logger, limit int) *Handler {
	return &Handler{
		logger: logger,
		limit:  limit,
		now:    time.Now,
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.To) == "" {
		h.writeError(w, http.StatusBadRequest, "missing recipient")
		return
	}
	if _, err := mail.ParseAddress(req.To); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid recipient")
		return
	}

	h.store(Message{To: req.To, Subject: req.Subject, Body: req.Body, Accepted: h.now()})
	h.logger.Info("email sent", "to", req.To, "subject", req.Subject)

	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
}

// HandleOutbox lists the retained messages, oldest first.
func (h *Handler) HandleOutbox(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	out := make([]Message, len(h.outbox))
	copy(out, h.outbox)
	h.mu.Unlock()

	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) store(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.outbox = append(h.outbox, m)
	if h.limit > 0 && len(h.outbox) > h.limit {
		h.outbox = h.outbox[len(h.outbox)-h.limit:]
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
