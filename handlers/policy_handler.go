package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/inboxmarket/datagate/middleware"
	"github.com/inboxmarket/datagate/models"
	"github.com/inboxmarket/datagate/services/policy"
	"github.com/inboxmarket/datagate/utils"
	"go.uber.org/zap"
)

// UpdatePolicyRequest is the whole-object policy replacement payload. Every
// field is required in spirit: the stored policy is replaced, not patched.
type UpdatePolicyRequest struct {
	GlobalDataSharing      bool                 `json:"global_data_sharing"`
	AllowSubscriptionProof bool                 `json:"allow_subscription_proof"`
	AllowDeliveryProof     bool                 `json:"allow_delivery_proof"`
	AllowPurchaseProof     bool                 `json:"allow_purchase_proof"`
	AllowFinancialProof    bool                 `json:"allow_financial_proof"`
	Pricing                models.PricingConfig `json:"pricing"`
	RedactEmailBodies      bool                 `json:"redact_email_bodies"`
	RedactPersonalInfo     bool                 `json:"redact_personal_info"`
	ShowSubjectInfo        bool                 `json:"show_subject_info"`
	ShowSenderInfo         bool                 `json:"show_sender_info"`
	MaxEmailsPerRequest    int                  `json:"max_emails_per_request" validate:"gte=0"`
	MaxEmailAgeDays        int                  `json:"max_email_age_days" validate:"gte=0"`
	WalletAddress          string               `json:"wallet_address"`
}

// PolicyHandler handles owner-facing policy reads and updates
type PolicyHandler struct {
	policies *policy.Service
	logger   *zap.Logger
}

// NewPolicyHandler creates a new PolicyHandler
func NewPolicyHandler(policies *policy.Service, logger *zap.Logger) *PolicyHandler {
	return &PolicyHandler{
		policies: policies,
		logger:   logger,
	}
}

// HandleGetPolicy handles GET /api/v1/policy. Creates the default policy on
// first access so a new owner always has a well-defined configuration.
func (h *PolicyHandler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID := middleware.GetOwnerIDFromContext(ctx)
	if ownerID == uuid.Nil {
		_ = utils.WriteUnauthorized(w, "Missing owner information")
		return
	}

	pol, err := h.policies.Bootstrap(ctx, ownerID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, pol)
}

// HandleUpdatePolicy handles PUT /api/v1/policy as a whole-object replace
func (h *PolicyHandler) HandleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	ownerID := middleware.GetOwnerIDFromContext(ctx)
	if ownerID == uuid.Nil {
		_ = utils.WriteUnauthorized(w, "Missing owner information")
		return
	}

	var payload UpdatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid JSON payload", nil)
		return
	}
	if err := utils.ValidateStruct(&payload); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	pol := &models.Policy{
		OwnerID:                ownerID,
		GlobalDataSharing:      payload.GlobalDataSharing,
		AllowSubscriptionProof: payload.AllowSubscriptionProof,
		AllowDeliveryProof:     payload.AllowDeliveryProof,
		AllowPurchaseProof:     payload.AllowPurchaseProof,
		AllowFinancialProof:    payload.AllowFinancialProof,
		Pricing:                payload.Pricing,
		RedactEmailBodies:      payload.RedactEmailBodies,
		RedactPersonalInfo:     payload.RedactPersonalInfo,
		ShowSubjectInfo:        payload.ShowSubjectInfo,
		ShowSenderInfo:         payload.ShowSenderInfo,
		MaxEmailsPerRequest:    payload.MaxEmailsPerRequest,
		MaxEmailAgeDays:        payload.MaxEmailAgeDays,
		WalletAddress:          payload.WalletAddress,
	}

	updated, err := h.policies.Set(ctx, pol)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("policy updated",
		zap.String("request_id", requestID),
		zap.String("owner_id", ownerID.String()),
		zap.Int("version", updated.Version))

	_ = utils.WriteOK(w, updated)
}
