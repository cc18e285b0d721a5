// Package handler implements the tenant HTTP API: linking-code issuance, OTP send and
// verify, and dev-mode OTP retrieval. Routes are mounted by internal/server.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"tg-otp-relay/backend/internal/delivery"
	"tg-otp-relay/backend/internal/devotp"
	linksvc "tg-otp-relay/backend/internal/link/service"
	otpsvc "tg-otp-relay/backend/internal/otp/service"
	"tg-otp-relay/backend/internal/server/middleware"
	"tg-otp-relay/backend/internal/telemetry"
)

// maxBodyBytes bounds request bodies; every request is a small JSON object.
const maxBodyBytes = 1 << 16

// Error codes written by the tenant API.
const (
	CodeInvalidRequest      = "invalid_request"
	CodeNotLinked           = "not_linked"
	CodeNoActiveOTP         = "no_active_otp"
	CodeOTPExpired          = "otp_expired"
	CodeOTPMismatch         = "otp_mismatch"
	CodeDeliveryUnavailable = "delivery_unavailable"
	CodeNoCapturedOTP       = "no_captured_otp"
)

// LinkIssuer issues linking codes.
type LinkIssuer interface {
	IssueCode(ctx context.Context, tenantID, phone string) (*linksvc.Issued, error)
}

// OTPRegistry issues and verifies OTPs.
type OTPRegistry interface {
	Issue(ctx context.Context, tenantID, phone string) (*otpsvc.Issued, error)
	Verify(ctx context.Context, tenantID, phone, submitted string) error
	TTL() time.Duration
}

// Handler serves the tenant API. Requests reaching it have passed middleware.Auth.
type Handler struct {
	links   LinkIssuer
	otps    OTPRegistry
	gateway delivery.Gateway
	dev     devotp.Store
	emitter telemetry.EventEmitter
}

// Options configures optional collaborators of a Handler.
type Options struct {
	// Gateway delivers OTP messages. Nil means no chat platform is configured: OTP send
	// answers 503 unless DevStore is set.
	Gateway delivery.Gateway
	// DevStore captures issued OTPs for GET /dev/otp. Set only when dev delivery is on.
	DevStore devotp.Store
	// Emitter receives lifecycle events. May be nil.
	Emitter telemetry.EventEmitter
}

// New returns a Handler over the two registries.
func New(links LinkIssuer, otps OTPRegistry, opts Options) *Handler {
	return &Handler{
		links:   links,
		otps:    otps,
		gateway: opts.Gateway,
		dev:     opts.DevStore,
		emitter: opts.Emitter,
	}
}

// DevEnabled reports whether GET /dev/otp should be mounted.
func (h *Handler) DevEnabled() bool {
	return h.dev != nil
}

type phoneRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type verifyRequest struct {
	PhoneNumber string `json:"phone_number"`
	OTPCode     string `json:"otp_code"`
}

type generateCodeResponse struct {
	Status      string    `json:"status"`
	LinkingCode string    `json:"linking_code"`
	ExpiresAt   time.Time `json:"expires_at"`
	Message     string    `json:"message"`
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type devOTPResponse struct {
	Status    string    `json:"status"`
	OTPCode   string    `json:"otp_code"`
	ChatID    int64     `json:"chat_id"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GenerateCode handles POST /api/v1/link/generate_code.
func (h *Handler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, http.StatusUnauthorized, middleware.CodeMissingCredentials, "not authenticated")
		return
	}
	var req phoneRequest
	if !decode(w, r, &req) {
		return
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		middleware.WriteError(w, r, http.StatusBadRequest, CodeInvalidRequest, "phone_number is required")
		return
	}
	issued, err := h.links.IssueCode(r.Context(), tenant.ID, phone)
	if err != nil {
		h.internal(w, r, "issue linking code", err)
		return
	}
	h.emit(telemetry.EventLinkCodeIssued, tenant.ID, phone, "success", nil)
	middleware.WriteJSON(w, http.StatusOK, generateCodeResponse{
		Status:      "success",
		LinkingCode: issued.Code,
		ExpiresAt:   issued.ExpiresAt,
		Message:     "User must send this code to the bot: " + issued.Code,
	})
}

// SendOTP handles POST /api/v1/otp/send. A delivery failure answers 502 but the issued
// code stays valid until it expires.
func (h *Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, http.StatusUnauthorized, middleware.CodeMissingCredentials, "not authenticated")
		return
	}
	if h.gateway == nil && h.dev == nil {
		middleware.WriteError(w, r, http.StatusServiceUnavailable, CodeDeliveryUnavailable, "Telegram Bot Service is unavailable.")
		return
	}
	var req phoneRequest
	if !decode(w, r, &req) {
		return
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		middleware.WriteError(w, r, http.StatusBadRequest, CodeInvalidRequest, "phone_number is required")
		return
	}

	issued, err := h.otps.Issue(r.Context(), tenant.ID, phone)
	switch {
	case errors.Is(err, otpsvc.ErrNotLinked):
		middleware.WriteError(w, r, http.StatusNotFound, CodeNotLinked, "User not linked to Telegram for this service.")
		return
	case err != nil:
		h.internal(w, r, "issue otp", err)
		return
	}
	h.emit(telemetry.EventOTPIssued, tenant.ID, phone, "success", nil)

	text := delivery.OTPMessage(tenant.DisplayName, issued.Code, h.otps.TTL())
	if h.dev != nil {
		h.dev.Put(r.Context(), tenant.ID, phone, devotp.Capture{
			Code:      issued.Code,
			ChatID:    issued.ChatID,
			Message:   text,
			ExpiresAt: issued.ExpiresAt,
		})
		if h.gateway == nil {
			middleware.WriteJSON(w, http.StatusOK, messageResponse{Status: "success", Message: "OTP issued; delivery captured for dev retrieval."})
			return
		}
	}

	if err := h.gateway.Deliver(r.Context(), issued.ChatID, text); err != nil {
		log.Printf("delivery: send otp for tenant %s: %v", tenant.ID, err)
		h.emit(telemetry.EventOTPDeliveryFailed, tenant.ID, phone, "failure", nil)
		middleware.WriteError(w, r, http.StatusBadGateway, CodeDeliveryUnavailable, "Failed to send message via Telegram.")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Status: "success", Message: "OTP sent successfully to Telegram."})
}

// VerifyOTP handles POST /api/v1/otp/verify.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, http.StatusUnauthorized, middleware.CodeMissingCredentials, "not authenticated")
		return
	}
	var req verifyRequest
	if !decode(w, r, &req) {
		return
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	code := strings.TrimSpace(req.OTPCode)
	if phone == "" || code == "" {
		middleware.WriteError(w, r, http.StatusBadRequest, CodeInvalidRequest, "phone_number and otp_code are required")
		return
	}

	err := h.otps.Verify(r.Context(), tenant.ID, phone, code)
	if err == nil {
		if h.dev != nil {
			h.dev.Delete(r.Context(), tenant.ID, phone)
		}
		h.emit(telemetry.EventOTPVerified, tenant.ID, phone, "success", nil)
		middleware.WriteJSON(w, http.StatusOK, messageResponse{Status: "success", Message: "OTP verified successfully."})
		return
	}

	var status int
	var errCode, msg string
	switch {
	case errors.Is(err, otpsvc.ErrNoActiveOTP):
		status, errCode, msg = http.StatusNotFound, CodeNoActiveOTP, "No active OTP found for this user."
	case errors.Is(err, otpsvc.ErrOTPExpired):
		status, errCode, msg = http.StatusGone, CodeOTPExpired, "OTP has expired."
	case errors.Is(err, otpsvc.ErrOTPMismatch):
		status, errCode, msg = http.StatusBadRequest, CodeOTPMismatch, "Invalid OTP."
	default:
		h.internal(w, r, "verify otp", err)
		return
	}
	h.emit(telemetry.EventOTPVerifyFailed, tenant.ID, phone, "failure", map[string]any{"reason": errCode})
	middleware.WriteError(w, r, status, errCode, msg)
}

// DevOTP handles GET /dev/otp?phone_number=. Only mounted when dev delivery is enabled.
func (h *Handler) DevOTP(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, http.StatusUnauthorized, middleware.CodeMissingCredentials, "not authenticated")
		return
	}
	phone := strings.TrimSpace(r.URL.Query().Get("phone_number"))
	if phone == "" {
		middleware.WriteError(w, r, http.StatusBadRequest, CodeInvalidRequest, "phone_number query parameter is required")
		return
	}
	if h.dev == nil {
		middleware.WriteError(w, r, http.StatusNotFound, CodeNoCapturedOTP, "dev delivery is disabled")
		return
	}
	c, found := h.dev.Get(r.Context(), tenant.ID, phone)
	if !found {
		middleware.WriteError(w, r, http.StatusNotFound, CodeNoCapturedOTP, "No captured OTP for this user.")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, devOTPResponse{
		Status:    "success",
		OTPCode:   c.Code,
		ChatID:    c.ChatID,
		Message:   c.Message,
		ExpiresAt: c.ExpiresAt,
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, CodeInvalidRequest, "request body must be a JSON object")
		return false
	}
	return true
}

func (h *Handler) internal(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.Printf("api: %s: %v", op, err)
	middleware.WriteError(w, r, http.StatusInternalServerError, middleware.CodeInternal, "internal error")
}

func (h *Handler) emit(eventType, tenantID, phone, outcome string, meta map[string]any) {
	telemetry.EmitAsync(h.emitter, telemetry.NewEvent(eventType, telemetry.SourceHTTP, tenantID, phone, outcome, meta))
}
