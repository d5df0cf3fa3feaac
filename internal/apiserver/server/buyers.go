package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"freshly-market/internal/apiserver/auth"
	"freshly-market/internal/model"
)

// ============================================================================
// 买家：注册 / 登录 / 资料 / 密码重置
// ============================================================================

type registerBuyerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	District string `json:"district"`
}

type buyerResponse struct {
	*model.Buyer
	Token string `json:"token,omitempty"`
}

// RegisterBuyer POST /api/v1/buyers/register
func (h *Handler) RegisterBuyer(w http.ResponseWriter, r *http.Request) {
	var req registerBuyerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "name, email, password and phone are required")
		return
	}
	if !isValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	buyer := &model.Buyer{
		ID:           generateID("buyer"),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		Address:      req.Address,
		District:     req.District,
		CreatedAt:    time.Now(),
	}
	if err := h.store.CreateBuyer(r.Context(), buyer); err != nil {
		writeStoreError(w, err, "email already registered")
		return
	}
	h.metrics.RegistrationsTotal.WithLabelValues(string(model.PrincipalBuyer)).Inc()

	token, ok := h.issueToken(w, model.PrincipalBuyer, buyer.ID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, buyerResponse{Buyer: buyer, Token: token})
}

// LoginBuyer POST /api/v1/buyers/login
func (h *Handler) LoginBuyer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if h.loginBlocked(r.Context(), w, model.PrincipalBuyer, req.Email) {
		return
	}

	buyer, err := h.store.GetBuyerByEmail(r.Context(), req.Email)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if buyer == nil {
		h.noteLoginFailure(r.Context(), model.PrincipalBuyer, req.Email)
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if !auth.CheckPassword(req.Password, buyer.PasswordHash) {
		h.noteLoginFailure(r.Context(), model.PrincipalBuyer, req.Email)
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}
	h.noteLoginSuccess(r.Context(), model.PrincipalBuyer, req.Email)
	h.metrics.LoginsTotal.WithLabelValues(string(model.PrincipalBuyer)).Inc()

	token, ok := h.issueToken(w, model.PrincipalBuyer, buyer.ID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, buyerResponse{Buyer: buyer, Token: token})
}

// LogoutBuyer POST /api/v1/buyers/logout
func (h *Handler) LogoutBuyer(w http.ResponseWriter, r *http.Request) {
	auth.ClearTokenCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// GetBuyerProfile GET /api/v1/buyers/profile
func (h *Handler) GetBuyerProfile(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalBuyer)
	writeJSON(w, http.StatusOK, p.Doc)
}

// UpdateBuyerProfile PUT /api/v1/buyers/profile
func (h *Handler) UpdateBuyerProfile(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalBuyer)
	buyer := p.Doc.(*model.Buyer)

	var req struct {
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Address  string `json:"address"`
		District string `json:"district"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != "" {
		buyer.Name = req.Name
	}
	if req.Phone != "" {
		buyer.Phone = req.Phone
	}
	if req.Address != "" {
		buyer.Address = req.Address
	}
	if req.District != "" {
		buyer.District = req.District
	}
	if err := h.store.UpdateBuyerProfile(r.Context(), buyer); err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, buyer)
}

// DeleteBuyer DELETE /api/v1/buyers/{id}
func (h *Handler) DeleteBuyer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	target, err := h.store.GetBuyerByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "buyer not found")
		return
	}
	p := auth.GetPrincipal(r.Context(), model.PrincipalBuyer)
	if !auth.SameID(target.ID, p.ID) {
		writeError(w, http.StatusForbidden, "cannot delete another buyer's account")
		return
	}
	if err := h.store.DeleteBuyer(r.Context(), id); err != nil {
		writeStoreError(w, err, "")
		return
	}
	auth.ClearTokenCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

// ForgotPasswordBuyer POST /api/v1/buyers/forgot-password
func (h *Handler) ForgotPasswordBuyer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !isValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	buyer, err := h.store.GetBuyerByEmail(r.Context(), req.Email)
	if err == nil && buyer != nil {
		h.sendResetToken(r.Context(), req.Email, func(ctx context.Context, hash string, expiry time.Time) error {
			return h.store.SetBuyerResetToken(ctx, buyer.ID, hash, expiry)
		})
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "if the email is registered, a reset token has been sent"})
}

// ResetPasswordBuyer POST /api/v1/buyers/reset-password
func (h *Handler) ResetPasswordBuyer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" || len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "token and a password of at least 8 characters are required")
		return
	}
	buyer, err := h.store.GetBuyerByResetToken(r.Context(), auth.HashResetToken(req.Token), time.Now())
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if buyer == nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired reset token")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.store.UpdateBuyerPassword(r.Context(), buyer.ID, hash); err != nil {
		writeStoreError(w, err, "")
		return
	}
	if err := h.store.ClearBuyerResetToken(r.Context(), buyer.ID); err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
