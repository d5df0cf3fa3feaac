package server

import (
	"context"
	"net/http"
	"testing"

	"freshly-market/internal/model"
)

func registerDriverBody(email string) map[string]string {
	return map[string]string{
		"name":          "Sunil Fernando",
		"email":         email,
		"password":      "secret-password",
		"phone":         "0712223334",
		"nic":           "923456789V",
		"district":      "Galle",
		"licenseNo":     "B1234567",
		"vehicleType":   "three-wheeler",
		"vehicleNumber": "SP-1234",
	}
}

// TestRegisterDriver 测试司机注册：令牌只在响应体，不写 cookie
func TestRegisterDriver(t *testing.T) {
	e := newTestEnv(t)

	w := e.doJSON(t, http.MethodPost, "/api/v1/drivers/register", "", registerDriverBody("sunil@example.com"))
	wantStatus(t, w, http.StatusCreated)

	body := decode[map[string]any](t, w)
	if body["driverId"] == "" || body["driverId"] == nil {
		t.Error("response must carry driverId")
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("response must carry token")
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("driver flow must not set cookies")
	}

	// 返回的令牌可直接用于 Bearer 认证
	r := e.doJSON(t, http.MethodGet, "/api/v1/drivers/profile", token, nil)
	wantStatus(t, r, http.StatusOK)
}

// TestRegisterDriver_Validation 测试司机注册校验
func TestRegisterDriver_Validation(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name string
		drop string
		want string
	}{
		{"缺驾照号", "licenseNo", "name, email, password, phone and licenseNo are required"},
		{"缺车辆信息", "vehicleNumber", "vehicleType and vehicleNumber are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := registerDriverBody("valid@example.com")
			delete(body, tt.drop)
			w := e.doJSON(t, http.MethodPost, "/api/v1/drivers/register", "", body)
			wantError(t, w, http.StatusBadRequest, tt.want)
		})
	}
}

// TestLoginDriver 测试司机登录
func TestLoginDriver(t *testing.T) {
	e := newTestEnv(t)
	e.seedDriver(t, "sunil@example.com")

	w := e.doJSON(t, http.MethodPost, "/api/v1/drivers/login", "", map[string]string{
		"email": "sunil@example.com", "password": testPassword,
	})
	wantStatus(t, w, http.StatusOK)
	body := decode[map[string]any](t, w)
	if body["token"] == "" || body["token"] == nil {
		t.Error("login response must carry token")
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("driver login must not set cookies")
	}

	w = e.doJSON(t, http.MethodPost, "/api/v1/drivers/login", "", map[string]string{
		"email": "sunil@example.com", "password": "wrong-password",
	})
	wantError(t, w, http.StatusUnauthorized, "invalid password")
}

// TestDriverProfile 测试司机资料更新与注销
func TestDriverProfile(t *testing.T) {
	e := newTestEnv(t)
	d := e.seedDriver(t, "sunil@example.com")
	token := e.tokenFor(t, model.PrincipalDriver, d.ID)

	w := e.doJSON(t, http.MethodPut, "/api/v1/drivers/profile", token, map[string]string{
		"vehicleType":   "lorry",
		"vehicleNumber": "WP-9876",
	})
	wantStatus(t, w, http.StatusOK)

	updated, err := e.store.GetDriverByID(context.Background(), d.ID)
	if err != nil || updated == nil {
		t.Fatalf("reload driver: %v", err)
	}
	if updated.VehicleType != "lorry" || updated.VehicleNumber != "WP-9876" {
		t.Errorf("vehicle = %s %s", updated.VehicleType, updated.VehicleNumber)
	}

	// 注销即删除本人账号
	w = e.doJSON(t, http.MethodDelete, "/api/v1/drivers/profile", token, nil)
	wantStatus(t, w, http.StatusOK)

	gone, err := e.store.GetDriverByID(context.Background(), d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gone != nil {
		t.Error("driver must be deleted")
	}

	// 账号已删，令牌随之失效
	w = e.doJSON(t, http.MethodGet, "/api/v1/drivers/profile", token, nil)
	wantError(t, w, http.StatusUnauthorized, "principal not found")
}

// TestDriverPasswordReset 测试司机密码重置流程
func TestDriverPasswordReset(t *testing.T) {
	e := newTestEnv(t)
	e.seedDriver(t, "sunil@example.com")

	w := e.doJSON(t, http.MethodPost, "/api/v1/drivers/forgot-password", "", map[string]string{
		"email": "sunil@example.com",
	})
	wantStatus(t, w, http.StatusOK)

	token := e.mail.lastToken()
	if token == "" {
		t.Fatal("reset token was not mailed")
	}
	w = e.doJSON(t, http.MethodPost, "/api/v1/drivers/reset-password", "", map[string]string{
		"token": token, "password": "new-password-456",
	})
	wantStatus(t, w, http.StatusOK)

	w = e.doJSON(t, http.MethodPost, "/api/v1/drivers/login", "", map[string]string{
		"email": "sunil@example.com", "password": "new-password-456",
	})
	wantStatus(t, w, http.StatusOK)
}
