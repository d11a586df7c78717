package main

import (
	"encoding/json"
	"errors"
	"net/http"

	authcore "github.com/fintrackr/authcore"
	authmw "github.com/fintrackr/authcore/middleware"
)

type handlers struct {
	engine *authcore.Engine
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Kind        string `json:"kind"`
	CompanyName string `json:"company_name,omitempty"`
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Code       string `json:"code,omitempty"`
	RememberMe bool   `json:"remember_me"`
}

type confirmLoginRequest struct {
	Challenge string `json:"challenge"`
	Code      string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

type verifyEmailCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type loginResponse struct {
	AccessToken     string                `json:"access_token,omitempty"`
	AccessExpiresAt int64                 `json:"access_expires_at,omitempty"`
	RefreshToken    string                `json:"refresh_token,omitempty"`
	StepUpRequired  bool                  `json:"step_up_required,omitempty"`
	Challenge       string                `json:"challenge,omitempty"`
	User            *authcore.UserProfile `json:"user,omitempty"`
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	kind := authcore.KindPersonal
	if req.Kind == "business" {
		kind = authcore.KindBusiness
	}

	result, err := h.engine.Register(r.Context(), authcore.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Kind:        kind,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user_id": result.UserID,
		"status":  "pending_verification",
	})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.engine.Login(r.Context(), authcore.LoginRequest{
		Email:      req.Email,
		Password:   req.Password,
		Code:       req.Code,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoginResult(w, result)
}

func (h *handlers) confirmLogin(w http.ResponseWriter, r *http.Request) {
	var req confirmLoginRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.engine.ConfirmLogin(r.Context(), req.Challenge, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoginResult(w, result)
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}

	pair, err := h.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:     pair.AccessToken,
		AccessExpiresAt: pair.AccessExpiresAt.Unix(),
		RefreshToken:    pair.RefreshToken,
	})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := authmw.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.engine.Logout(r.Context(), claims.UID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.engine.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoginResult(w, result)
}

func (h *handlers) verifyEmailCode(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailCodeRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.engine.VerifyEmailCode(r.Context(), req.Email, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoginResult(w, result)
}

func (h *handlers) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.engine.ResendVerification(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "verification email sent if the account requires it",
	})
}

func (h *handlers) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.engine.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "instructions sent if the account exists",
	})
}

func (h *handlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.engine.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) changePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := authmw.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.engine.ChangePassword(r.Context(), claims.UID, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := authmw.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	profile, err := h.engine.GetProfile(r.Context(), claims.UID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func writeLoginResult(w http.ResponseWriter, result *authcore.LoginResult) {
	if result.StepUpRequired {
		writeJSON(w, http.StatusAccepted, loginResponse{
			StepUpRequired: true,
			Challenge:      result.Challenge,
		})
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:     result.AccessToken,
		AccessExpiresAt: result.AccessExpiresAt.Unix(),
		RefreshToken:    result.RefreshToken,
		User:            &result.User,
	})
}

func decode(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps the engine's error taxonomy onto HTTP statuses. Business
// errors surface verbatim; only store unavailability is a 5xx.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, authcore.ErrAccountExists):
		status = http.StatusConflict
	case errors.Is(err, authcore.ErrInvalidCredentials),
		errors.Is(err, authcore.ErrTokenInvalid):
		status = http.StatusUnauthorized
	case errors.Is(err, authcore.ErrAccountLocked),
		errors.Is(err, authcore.ErrEmailVerificationRequired),
		errors.Is(err, authcore.ErrAccountNotActive):
		status = http.StatusForbidden
	case errors.Is(err, authcore.ErrInvalidVerificationCode):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, authcore.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, authcore.ErrPasswordPolicy),
		errors.Is(err, authcore.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, authcore.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
