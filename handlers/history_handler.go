package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/inboxmarket/datagate/middleware"
	"github.com/inboxmarket/datagate/repositories"
	"github.com/inboxmarket/datagate/services/negotiation"
	"github.com/inboxmarket/datagate/utils"
	"go.uber.org/zap"
)

// HistoryHandler serves negotiation history and demand statistics
type HistoryHandler struct {
	negotiations *negotiation.Service
	archive      repositories.ArchiveRepository
	defaultLimit int
	logger       *zap.Logger
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(negotiations *negotiation.Service, archive repositories.ArchiveRepository, defaultLimit int, logger *zap.Logger) *HistoryHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &HistoryHandler{
		negotiations: negotiations,
		archive:      archive,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// HandleGetHistory handles GET /api/v1/history. Serves the in-memory ledger
// view; pass source=archive for the durable per-owner record.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID := middleware.GetOwnerIDFromContext(ctx)
	if ownerID == uuid.Nil {
		_ = utils.WriteUnauthorized(w, "Missing owner information")
		return
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			_ = utils.WriteBadRequest(w, "Invalid limit", nil)
			return
		}
		limit = parsed
	}

	if r.URL.Query().Get("source") == "archive" {
		entries, err := h.archive.ListByOwner(ctx, ownerID, limit)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, entries)
		return
	}

	_ = utils.WriteOK(w, h.negotiations.History(limit))
}

// HandleGetStats handles GET /api/v1/stats with per-category demand counts
func (h *HistoryHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerIDFromContext(r.Context())
	if ownerID == uuid.Nil {
		_ = utils.WriteUnauthorized(w, "Missing owner information")
		return
	}

	_ = utils.WriteOK(w, h.negotiations.Stats())
}
