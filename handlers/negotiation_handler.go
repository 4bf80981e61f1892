package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/inboxmarket/datagate/middleware"
	"github.com/inboxmarket/datagate/models"
	"github.com/inboxmarket/datagate/services/negotiation"
	"github.com/inboxmarket/datagate/services/policy"
	"github.com/inboxmarket/datagate/utils"
	"go.uber.org/zap"
)

// NegotiateRequest is the payload for negotiation and disclosure calls. The
// owner and requester class come from the token, not the body.
type NegotiateRequest struct {
	Category            string   `json:"category" validate:"required,category"`
	MaxAgeDays          int      `json:"max_age_days" validate:"gte=0"`
	MaxEmails           int      `json:"max_emails" validate:"gte=1,lte=1000"`
	IncludeBodies       bool     `json:"include_bodies"`
	IncludePersonalInfo bool     `json:"include_personal_info"`
	SettlementRequired  bool     `json:"settlement_required"`
	Keywords            []string `json:"keywords,omitempty"`
}

// NegotiationHandler exposes the negotiation engine over HTTP
type NegotiationHandler struct {
	negotiations *negotiation.Service
	policies     *policy.Service
	logger       *zap.Logger
}

// NewNegotiationHandler creates a new NegotiationHandler
func NewNegotiationHandler(negotiations *negotiation.Service, policies *policy.Service, logger *zap.Logger) *NegotiationHandler {
	return &NegotiationHandler{
		negotiations: negotiations,
		policies:     policies,
		logger:       logger,
	}
}

// HandleNegotiate handles POST /api/v1/negotiations. Denials are 200
// responses with accepted=false; only faults produce error statuses.
func (h *NegotiationHandler) HandleNegotiate(w http.ResponseWriter, r *http.Request) {
	req, pol, ok := h.prepare(w, r)
	if !ok {
		return
	}

	result, err := h.negotiations.Negotiate(r.Context(), req, pol)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, result)
}

// HandleDisclose handles POST /api/v1/disclosures: negotiate and, on
// acceptance, return the redacted records in the same response.
func (h *NegotiationHandler) HandleDisclose(w http.ResponseWriter, r *http.Request) {
	req, pol, ok := h.prepare(w, r)
	if !ok {
		return
	}

	result, err := h.negotiations.Disclose(r.Context(), req, pol)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, result)
}

// prepare decodes and validates the payload and loads the owner's policy
// snapshot. Returns ok=false after writing the error response.
func (h *NegotiationHandler) prepare(w http.ResponseWriter, r *http.Request) (*models.NegotiationRequest, *models.Policy, bool) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	ownerID := middleware.GetOwnerIDFromContext(ctx)
	if ownerID == uuid.Nil {
		h.logger.Error("missing owner ID in context",
			zap.String("request_id", requestID))
		_ = utils.WriteUnauthorized(w, "Missing owner information")
		return nil, nil, false
	}

	var payload NegotiateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid JSON payload", nil)
		return nil, nil, false
	}
	if err := utils.ValidateStruct(&payload); err != nil {
		HandleValidationError(w, err, h.logger)
		return nil, nil, false
	}

	pol, err := h.policies.Get(ctx, ownerID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return nil, nil, false
	}

	req := &models.NegotiationRequest{
		ID:                  uuid.New(),
		Category:            models.Category(payload.Category),
		Requester:           middleware.GetRequesterClassFromContext(ctx),
		MaxAgeDays:          payload.MaxAgeDays,
		MaxEmails:           payload.MaxEmails,
		IncludeBodies:       payload.IncludeBodies,
		IncludePersonalInfo: payload.IncludePersonalInfo,
		SettlementRequired:  payload.SettlementRequired,
		Keywords:            payload.Keywords,
		Timestamp:           time.Now(),
	}

	h.logger.Debug("negotiation request received",
		zap.String("request_id", requestID),
		zap.String("owner_id", ownerID.String()),
		zap.String("category", payload.Category))

	return req, pol, true
}
