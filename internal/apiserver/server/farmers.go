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
// 农户：注册 / 登录 / 资料 / 密码重置
// ============================================================================

type registerFarmerRequest struct {
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Password    string            `json:"password"`
	Phone       string            `json:"phone"`
	NIC         string            `json:"nic"`
	FarmAddress model.FarmAddress `json:"farmAddress"`
}

type farmerResponse struct {
	*model.Farmer
	Token string `json:"token,omitempty"`
}

// RegisterFarmer POST /api/v1/farmers/register
func (h *Handler) RegisterFarmer(w http.ResponseWriter, r *http.Request) {
	var req registerFarmerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" || req.Phone == "" || req.NIC == "" {
		writeError(w, http.StatusBadRequest, "name, email, password, phone and nic are required")
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
	if req.FarmAddress.City == "" || req.FarmAddress.District == "" {
		writeError(w, http.StatusBadRequest, "farm address city and district are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	farmer := &model.Farmer{
		ID:           generateID("farmer"),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		NIC:          req.NIC,
		FarmAddress:  req.FarmAddress,
		CreatedAt:    time.Now(),
	}
	if err := h.store.CreateFarmer(r.Context(), farmer); err != nil {
		writeStoreError(w, err, "email already registered")
		return
	}
	h.metrics.RegistrationsTotal.WithLabelValues(string(model.PrincipalFarmer)).Inc()

	token, ok := h.issueToken(w, model.PrincipalFarmer, farmer.ID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, farmerResponse{Farmer: farmer, Token: token})
}

// LoginFarmer POST /api/v1/farmers/login
func (h *Handler) LoginFarmer(w http.ResponseWriter, r *http.Request) {
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
	if h.loginBlocked(r.Context(), w, model.PrincipalFarmer, req.Email) {
		return
	}

	farmer, err := h.store.GetFarmerByEmail(r.Context(), req.Email)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if farmer == nil {
		h.noteLoginFailure(r.Context(), model.PrincipalFarmer, req.Email)
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if !auth.CheckPassword(req.Password, farmer.PasswordHash) {
		h.noteLoginFailure(r.Context(), model.PrincipalFarmer, req.Email)
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}
	h.noteLoginSuccess(r.Context(), model.PrincipalFarmer, req.Email)
	h.metrics.LoginsTotal.WithLabelValues(string(model.PrincipalFarmer)).Inc()

	token, ok := h.issueToken(w, model.PrincipalFarmer, farmer.ID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, farmerResponse{Farmer: farmer, Token: token})
}

// LogoutFarmer POST /api/v1/farmers/logout
func (h *Handler) LogoutFarmer(w http.ResponseWriter, r *http.Request) {
	auth.ClearTokenCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// GetFarmerProfile GET /api/v1/farmers/profile
func (h *Handler) GetFarmerProfile(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalFarmer)
	writeJSON(w, http.StatusOK, p.Doc)
}

// UpdateFarmerProfile PUT /api/v1/farmers/profile
func (h *Handler) UpdateFarmerProfile(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalFarmer)
	farmer := p.Doc.(*model.Farmer)

	var req struct {
		Name        string             `json:"name"`
		Phone       string             `json:"phone"`
		FarmAddress *model.FarmAddress `json:"farmAddress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != "" {
		farmer.Name = req.Name
	}
	if req.Phone != "" {
		farmer.Phone = req.Phone
	}
	if req.FarmAddress != nil {
		farmer.FarmAddress = *req.FarmAddress
	}
	if err := h.store.UpdateFarmerProfile(r.Context(), farmer); err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, farmer)
}

// DeleteFarmer DELETE /api/v1/farmers/{id}
//
// 只能删除自己的账号：目标不存在返回 404，目标非本人返回 403。
func (h *Handler) DeleteFarmer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	target, err := h.store.GetFarmerByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "farmer not found")
		return
	}
	p := auth.GetPrincipal(r.Context(), model.PrincipalFarmer)
	if !auth.SameID(target.ID, p.ID) {
		writeError(w, http.StatusForbidden, "cannot delete another farmer's account")
		return
	}
	if err := h.store.DeleteFarmer(r.Context(), id); err != nil {
		writeStoreError(w, err, "")
		return
	}
	auth.ClearTokenCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

// ForgotPasswordFarmer POST /api/v1/farmers/forgot-password
//
// 响应与邮箱是否注册无关，避免账号枚举。
func (h *Handler) ForgotPasswordFarmer(w http.ResponseWriter, r *http.Request) {
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
	farmer, err := h.store.GetFarmerByEmail(r.Context(), req.Email)
	if err == nil && farmer != nil {
		h.sendResetToken(r.Context(), req.Email, func(ctx context.Context, hash string, expiry time.Time) error {
			return h.store.SetFarmerResetToken(ctx, farmer.ID, hash, expiry)
		})
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "if the email is registered, a reset token has been sent"})
}

// ResetPasswordFarmer POST /api/v1/farmers/reset-password
func (h *Handler) ResetPasswordFarmer(w http.ResponseWriter, r *http.Request) {
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
	farmer, err := h.store.GetFarmerByResetToken(r.Context(), auth.HashResetToken(req.Token), time.Now())
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if farmer == nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired reset token")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.store.UpdateFarmerPassword(r.Context(), farmer.ID, hash); err != nil {
		writeStoreError(w, err, "")
		return
	}
	if err := h.store.ClearFarmerResetToken(r.Context(), farmer.ID); err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
