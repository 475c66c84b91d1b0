package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lexassist-ai/intake-platform/internal/middleware"
	"github.com/lexassist-ai/intake-platform/internal/model"
	"github.com/lexassist-ai/intake-platform/internal/service"
	"github.com/lexassist-ai/intake-platform/internal/store"
	"github.com/lexassist-ai/intake-platform/pkg/logger"
)

// MessageHandler handles message endpoints. Send is the inbound entrypoint
// for the chat widget: one POST runs one full intake turn.
type MessageHandler struct {
	intakeService       *service.IntakeService
	conversationService *service.ConversationService
	logger              *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(
	intakeSvc *service.IntakeService,
	convSvc *service.ConversationService,
	log *logger.Logger,
) *MessageHandler {
	return &MessageHandler{
		intakeService:       intakeSvc,
		conversationService: convSvc,
		logger:              log,
	}
}

// List handles GET /api/v1/conversations/{id}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.conversationService.Get(ctx, tenantID, conversationID); err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	afterSequence := uint64(0)
	if seq := r.URL.Query().Get("after_sequence"); seq != "" {
		if parsed, err := strconv.ParseUint(seq, 10, 64); err == nil {
			afterSequence = parsed
		}
	}
	limit, _ := parsePagination(r, 50)

	resp, err := h.intakeService.GetMessages(ctx, tenantID, conversationID, afterSequence, limit)
	if err != nil {
		h.logger.Error("failed to get messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get messages")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Send handles POST /api/v1/conversations/{id}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.intakeService.HandleMessage(ctx, tenantID, conversationID, &req)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConversationNotFound):
			writeError(w, http.StatusNotFound, "conversation not found")
		case errors.Is(err, service.ErrConversationEnded):
			writeError(w, http.StatusConflict, "conversation has ended")
		default:
			h.logger.Error("failed to handle message", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to handle message")
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}
