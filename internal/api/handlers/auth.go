package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hamzaiqbal/crmconnect/internal/auth"
	"github.com/hamzaiqbal/crmconnect/internal/errs"
	"github.com/hamzaiqbal/crmconnect/internal/models"
	"github.com/hamzaiqbal/crmconnect/internal/otp"
	"github.com/hamzaiqbal/crmconnect/internal/tenant"
)

type AuthHandler struct {
	tenants   *tenant.Service
	codes     *otp.Service
	jwtSecret string
	jwtTTL    time.Duration
}

func NewAuthHandler(ts *tenant.Service, codes *otp.Service, jwtSecret string, jwtTTL time.Duration) *AuthHandler {
	return &AuthHandler{tenants: ts, codes: codes, jwtSecret: jwtSecret, jwtTTL: jwtTTL}
}

type registerRequest struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Password    string `json:"password"`
	Locale      string `json:"locale"`
	Region      string `json:"region"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.CompanyName == "" || req.Email == "" || req.Phone == "" || len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "company_name, email, phone and a password of 8+ chars required"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	t, u, err := h.tenants.Register(r.Context(), tenant.RegisterRequest{
		CompanyName:  req.CompanyName,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Locale:       req.Locale,
		Region:       req.Region,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Delivery failures surface through the worker logs, not here.
	if _, err := h.codes.Issue(r.Context(), u.ID, models.CodeChannelEmail); err != nil {
		writeDomainError(w, err)
		return
	}
	if _, err := h.codes.Issue(r.Context(), u.ID, models.CodeChannelPhone); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"tenant": t,
		"user":   u,
	})
}

type verifyRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, models.CodeChannelEmail)
}

func (h *AuthHandler) VerifyPhone(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, models.CodeChannelPhone)
}

func (h *AuthHandler) verify(w http.ResponseWriter, r *http.Request, channel models.CodeChannel) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code required"})
		return
	}

	u, err := h.resolveUser(r, req)
	if err != nil {
		// Do not reveal whether the address exists.
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errs.ErrCodeMismatch.Error()})
		return
	}

	if err := h.codes.Verify(r.Context(), u.ID, channel, req.Code); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "verified", "channel": string(channel)})
}

type resendRequest struct {
	Email   string             `json:"email"`
	Phone   string             `json:"phone"`
	Channel models.CodeChannel `json:"channel"`
}

func (h *AuthHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Channel != models.CodeChannelEmail && req.Channel != models.CodeChannelPhone {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "channel must be email or phone"})
		return
	}

	u, err := h.resolveUser(r, verifyRequest{Email: req.Email, Phone: req.Phone})
	if err != nil {
		// Same response whether or not the account exists.
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
		return
	}

	if _, err := h.codes.Issue(r.Context(), u.ID, req.Channel); err != nil {
		if errors.Is(err, errs.ErrTooSoon) {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (h *AuthHandler) resolveUser(r *http.Request, req verifyRequest) (*models.User, error) {
	if req.Email != "" {
		return h.tenants.GetUserByEmail(r.Context(), req.Email)
	}
	if req.Phone != "" {
		return h.tenants.GetUserByPhone(r.Context(), req.Phone)
	}
	return nil, errs.ErrInvalidInput
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	u, err := h.tenants.GetUserByEmail(r.Context(), req.Email)
	if err != nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": errs.ErrInvalidCredential.Error()})
		return
	}

	token, err := auth.IssueToken(u, h.jwtSecret, h.jwtTTL)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"token_type":   "bearer",
		"user":         u,
	})
}
