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
// 司机：注册 / 登录 / 资料 / 密码重置
//
// 司机端令牌不写 cookie，只在响应体返回，由客户端放入 Authorization 头。
// ============================================================================

type registerDriverRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Phone         string `json:"phone"`
	NIC           string `json:"nic"`
	District      string `json:"district"`
	LicenseNo     string `json:"licenseNo"`
	VehicleType   string `json:"vehicleType"`
	VehicleNumber string `json:"vehicleNumber"`
}

type driverResponse struct {
	*model.Driver
	Token string `json:"token,omitempty"`
}

// RegisterDriver POST /api/v1/drivers/register
func (h *Handler) RegisterDriver(w http.ResponseWriter, r *http.Request) {
	var req registerDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" || req.Phone == "" || req.LicenseNo == "" {
		writeError(w, http.StatusBadRequest, "name, email, password, phone and licenseNo are required")
		return
	}
	if req.VehicleType == "" || req.VehicleNumber == "" {
		writeError(w, http.StatusBadRequest, "vehicleType and vehicleNumber are required")
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
	driver := &model.Driver{
		ID:            generateID("driver"),
		Name:          req.Name,
		Email:         req.Email,
		PasswordHash:  hash,
		Phone:         req.Phone,
		NIC:           req.NIC,
		District:      req.District,
		LicenseNo:     req.LicenseNo,
		VehicleType:   req.VehicleType,
		VehicleNumber: req.VehicleNumber,
		CreatedAt:     time.Now(),
	}
	if err := h.store.CreateDriver(r.Context(), driver); err != nil {
		writeStoreError(w, err, "email already registered")
		return
	}
	h.metrics.RegistrationsTotal.WithLabelValues(string(model.PrincipalDriver)).Inc()

	token, ok := h.issueToken(w, model.PrincipalDriver, driver.ID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, driverResponse{Driver: driver, Token: token})
}

// LoginDriver POST /api/v1/drivers/login
func (h *Handler) LoginDriver(w http.ResponseWriter, r *http.Request) {
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
	if h.loginBlocked(r.Context(), w, model.PrincipalDriver, req.Email) {
		return
	}

	driver, err := h.store.GetDriverByEmail(r.Context(), req.Email)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if driver == nil {
		h.noteLoginFailure(r.Context(), model.PrincipalDriver, req.Email)
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if !auth.CheckPassword(req.Password, driver.PasswordHash) {
		h.noteLoginFailure(r.Context(), model.PrincipalDriver, req.Email)
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}
	h.noteLoginSuccess(r.Context(), model.PrincipalDriver, req.Email)
	h.metrics.LoginsTotal.WithLabelValues(string(model.PrincipalDriver)).Inc()

	token, ok := h.issueToken(w, model.PrincipalDriver, driver.ID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, driverResponse{Driver: driver, Token: token})
}

// GetDriverProfile GET /api/v1/drivers/profile
func (h *Handler) GetDriverProfile(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalDriver)
	writeJSON(w, http.StatusOK, p.Doc)
}

// UpdateDriverProfile PUT /api/v1/drivers/profile
func (h *Handler) UpdateDriverProfile(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalDriver)
	driver := p.Doc.(*model.Driver)

	var req struct {
		Name          string `json:"name"`
		Phone         string `json:"phone"`
		VehicleType   string `json:"vehicleType"`
		VehicleNumber string `json:"vehicleNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != "" {
		driver.Name = req.Name
	}
	if req.Phone != "" {
		driver.Phone = req.Phone
	}
	if req.VehicleType != "" {
		driver.VehicleType = req.VehicleType
	}
	if req.VehicleNumber != "" {
		driver.VehicleNumber = req.VehicleNumber
	}
	if err := h.store.UpdateDriverProfile(r.Context(), driver); err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, driver)
}

// DeleteDriverProfile DELETE /api/v1/drivers/profile
func (h *Handler) DeleteDriverProfile(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalDriver)
	if err := h.store.DeleteDriver(r.Context(), p.ID); err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

// ForgotPasswordDriver POST /api/v1/drivers/forgot-password
func (h *Handler) ForgotPasswordDriver(w http.ResponseWriter, r *http.Request) {
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
	driver, err := h.store.GetDriverByEmail(r.Context(), req.Email)
	if err == nil && driver != nil {
		h.sendResetToken(r.Context(), req.Email, func(ctx context.Context, hash string, expiry time.Time) error {
			return h.store.SetDriverResetToken(ctx, driver.ID, hash, expiry)
		})
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "if the email is registered, a reset token has been sent"})
}

// ResetPasswordDriver POST /api/v1/drivers/reset-password
func (h *Handler) ResetPasswordDriver(w http.ResponseWriter, r *http.Request) {
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
	driver, err := h.store.GetDriverByResetToken(r.Context(), auth.HashResetToken(req.Token), time.Now())
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if driver == nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired reset token")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.store.UpdateDriverPassword(r.Context(), driver.ID, hash); err != nil {
		writeStoreError(w, err, "")
		return
	}
	if err := h.store.ClearDriverResetToken(r.Context(), driver.ID); err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
