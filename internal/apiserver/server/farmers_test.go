package server

import (
	"context"
	"net/http"
	"testing"

	"freshly-market/internal/apiserver/auth"
	"freshly-market/internal/model"
)

func registerFarmerBody(email string) map[string]any {
	return map[string]any{
		"name":     "Nimal Perera",
		"email":    email,
		"password": "secret-password",
		"phone":    "0771234567",
		"nic":      "912345678V",
		"farmAddress": map[string]string{
			"streetNo": "12",
			"city":     "Kandy",
			"district": "Kandy",
		},
	}
}

// TestRegisterFarmer 测试农户注册
func TestRegisterFarmer(t *testing.T) {
	e := newTestEnv(t)

	w := e.doJSON(t, http.MethodPost, "/api/v1/farmers/register", "", registerFarmerBody("nimal@example.com"))
	wantStatus(t, w, http.StatusCreated)

	body := decode[map[string]any](t, w)
	if body["farmerId"] == "" || body["farmerId"] == nil {
		t.Error("response must carry farmerId")
	}
	if body["email"] != "nimal@example.com" {
		t.Errorf("email = %v", body["email"])
	}
	if body["token"] == "" || body["token"] == nil {
		t.Error("response must carry token")
	}
	if _, ok := body["password_hash"]; ok {
		t.Error("password hash must never appear in JSON")
	}

	// cookie 策略：农户注册即登录
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != auth.CookieName {
		t.Fatalf("expected %s cookie, got %v", auth.CookieName, cookies)
	}

	// 落库校验
	f, err := e.store.GetFarmerByEmail(context.Background(), "nimal@example.com")
	if err != nil || f == nil {
		t.Fatalf("farmer not persisted: %v", err)
	}
	if !auth.CheckPassword("secret-password", f.PasswordHash) {
		t.Error("stored hash must verify against the registration password")
	}
}

// TestRegisterFarmer_Validation 测试注册参数校验
func TestRegisterFarmer_Validation(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(m map[string]any)
		want   string
	}{
		{
			name:   "缺姓名",
			mutate: func(m map[string]any) { m["name"] = "" },
			want:   "name, email, password, phone and nic are required",
		},
		{
			name:   "邮箱格式错误",
			mutate: func(m map[string]any) { m["email"] = "not-an-email" },
			want:   "invalid email format",
		},
		{
			name:   "密码过短",
			mutate: func(m map[string]any) { m["password"] = "short" },
			want:   "password must be at least 8 characters",
		},
		{
			name: "农场地址缺区",
			mutate: func(m map[string]any) {
				m["farmAddress"] = map[string]string{"city": "Kandy"}
			},
			want: "farm address city and district are required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := registerFarmerBody("valid@example.com")
			tt.mutate(body)
			w := e.doJSON(t, http.MethodPost, "/api/v1/farmers/register", "", body)
			wantError(t, w, http.StatusBadRequest, tt.want)
		})
	}
}

// TestRegisterFarmer_DuplicateEmail 测试邮箱唯一性
func TestRegisterFarmer_DuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	e.seedFarmer(t, "taken@example.com")

	w := e.doJSON(t, http.MethodPost, "/api/v1/farmers/register", "", registerFarmerBody("taken@example.com"))
	wantError(t, w, http.StatusConflict, "email already registered")
}

// TestLoginFarmer 测试农户登录
func TestLoginFarmer(t *testing.T) {
	e := newTestEnv(t)
	e.seedFarmer(t, "nimal@example.com")

	tests := []struct {
		name       string
		email      string
		password   string
		wantStatus int
		wantError  string
	}{
		{"登录成功", "nimal@example.com", testPassword, http.StatusOK, ""},
		{"邮箱大小写不敏感", "NIMAL@Example.com", testPassword, http.StatusOK, ""},
		{"密码错误", "nimal@example.com", "wrong-password", http.StatusUnauthorized, "invalid password"},
		{"邮箱未注册", "ghost@example.com", testPassword, http.StatusUnauthorized, "invalid email or password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.doJSON(t, http.MethodPost, "/api/v1/farmers/login", "", map[string]string{
				"email":    tt.email,
				"password": tt.password,
			})
			if tt.wantError != "" {
				wantError(t, w, tt.wantStatus, tt.wantError)
				return
			}
			wantStatus(t, w, tt.wantStatus)
			if len(w.Result().Cookies()) == 0 {
				t.Error("login must set token cookie")
			}
		})
	}
}

// TestLoginFarmer_RateLimit 测试登录限流
func TestLoginFarmer_RateLimit(t *testing.T) {
	e := newTestEnv(t)
	e.seedFarmer(t, "nimal@example.com")

	body := map[string]string{"email": "nimal@example.com", "password": "wrong-password"}
	for i := 0; i < 10; i++ {
		w := e.doJSON(t, http.MethodPost, "/api/v1/farmers/login", "", body)
		wantStatus(t, w, http.StatusUnauthorized)
	}

	// 达到上限后连正确密码都被拒绝
	w := e.doJSON(t, http.MethodPost, "/api/v1/farmers/login", "", map[string]string{
		"email":    "nimal@example.com",
		"password": testPassword,
	})
	wantError(t, w, http.StatusTooManyRequests, "too many login attempts, try again later")
}

// TestLoginFarmer_SuccessClearsFailures 测试成功登录清零失败计数
func TestLoginFarmer_SuccessClearsFailures(t *testing.T) {
	e := newTestEnv(t)
	e.seedFarmer(t, "nimal@example.com")

	for i := 0; i < 5; i++ {
		e.doJSON(t, http.MethodPost, "/api/v1/farmers/login", "", map[string]string{
			"email": "nimal@example.com", "password": "wrong-password",
		})
	}
	w := e.doJSON(t, http.MethodPost, "/api/v1/farmers/login", "", map[string]string{
		"email": "nimal@example.com", "password": testPassword,
	})
	wantStatus(t, w, http.StatusOK)

	n, err := e.cache.LoginAttempts(context.Background(), model.PrincipalFarmer, "nimal@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("failure count after success = %d, want 0", n)
	}
}

// TestLogoutFarmer 测试登出清 cookie
func TestLogoutFarmer(t *testing.T) {
	e := newTestEnv(t)
	w := e.doJSON(t, http.MethodPost, "/api/v1/farmers/logout", "", nil)
	wantStatus(t, w, http.StatusOK)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Error("logout must expire the token cookie")
	}
}

// TestFarmerProfile 测试资料查询与更新
func TestFarmerProfile(t *testing.T) {
	e := newTestEnv(t)
	f := e.seedFarmer(t, "nimal@example.com")
	token := e.tokenFor(t, model.PrincipalFarmer, f.ID)

	w := e.doJSON(t, http.MethodGet, "/api/v1/farmers/profile", token, nil)
	wantStatus(t, w, http.StatusOK)
	profile := decode[map[string]any](t, w)
	if profile["farmerId"] != f.ID {
		t.Errorf("farmerId = %v, want %s", profile["farmerId"], f.ID)
	}

	// 部分更新：只改电话，姓名保留
	w = e.doJSON(t, http.MethodPut, "/api/v1/farmers/profile", token, map[string]string{
		"phone": "0719998887",
	})
	wantStatus(t, w, http.StatusOK)

	updated, err := e.store.GetFarmerByID(context.Background(), f.ID)
	if err != nil || updated == nil {
		t.Fatalf("reload farmer: %v", err)
	}
	if updated.Phone != "0719998887" {
		t.Errorf("phone = %q", updated.Phone)
	}
	if updated.Name != f.Name {
		t.Errorf("name changed unexpectedly: %q", updated.Name)
	}
}

// TestFarmerProfile_Unauthenticated 测试未认证访问
func TestFarmerProfile_Unauthenticated(t *testing.T) {
	e := newTestEnv(t)
	w := e.doJSON(t, http.MethodGet, "/api/v1/farmers/profile", "", nil)
	wantError(t, w, http.StatusUnauthorized, "token missing")
}

// TestDeleteFarmer 测试账号注销
func TestDeleteFarmer(t *testing.T) {
	e := newTestEnv(t)
	f := e.seedFarmer(t, "nimal@example.com")
	other := e.seedFarmer(t, "other@example.com")
	token := e.tokenFor(t, model.PrincipalFarmer, f.ID)

	t.Run("目标不存在404", func(t *testing.T) {
		w := e.doJSON(t, http.MethodDelete, "/api/v1/farmers/farmer-000000000000", token, nil)
		wantError(t, w, http.StatusNotFound, "farmer not found")
	})
	t.Run("非本人403", func(t *testing.T) {
		w := e.doJSON(t, http.MethodDelete, "/api/v1/farmers/"+other.ID, token, nil)
		wantError(t, w, http.StatusForbidden, "cannot delete another farmer's account")
	})
	t.Run("本人删除成功", func(t *testing.T) {
		w := e.doJSON(t, http.MethodDelete, "/api/v1/farmers/"+f.ID, token, nil)
		wantStatus(t, w, http.StatusOK)

		gone, err := e.store.GetFarmerByID(context.Background(), f.ID)
		if err != nil {
			t.Fatal(err)
		}
		if gone != nil {
			t.Error("farmer must be deleted")
		}
	})
}

// TestFarmerPasswordReset 测试 forgot → reset → login 全流程
func TestFarmerPasswordReset(t *testing.T) {
	e := newTestEnv(t)
	e.seedFarmer(t, "nimal@example.com")

	w := e.doJSON(t, http.MethodPost, "/api/v1/farmers/forgot-password", "", map[string]string{
		"email": "nimal@example.com",
	})
	wantStatus(t, w, http.StatusOK)

	token := e.mail.lastToken()
	if token == "" {
		t.Fatal("reset token was not mailed")
	}

	w = e.doJSON(t, http.MethodPost, "/api/v1/farmers/reset-password", "", map[string]string{
		"token":    token,
		"password": "new-password-456",
	})
	wantStatus(t, w, http.StatusOK)

	// 旧密码失效，新密码可登录
	w = e.doJSON(t, http.MethodPost, "/api/v1/farmers/login", "", map[string]string{
		"email": "nimal@example.com", "password": testPassword,
	})
	wantStatus(t, w, http.StatusUnauthorized)

	w = e.doJSON(t, http.MethodPost, "/api/v1/farmers/login", "", map[string]string{
		"email": "nimal@example.com", "password": "new-password-456",
	})
	wantStatus(t, w, http.StatusOK)

	// token 一次性：重置后立即作废
	w = e.doJSON(t, http.MethodPost, "/api/v1/farmers/reset-password", "", map[string]string{
		"token":    token,
		"password": "another-password",
	})
	wantError(t, w, http.StatusUnauthorized, "invalid or expired reset token")
}

// TestForgotPassword_NoEnumeration 测试未注册邮箱得到同样的响应
func TestForgotPassword_NoEnumeration(t *testing.T) {
	e := newTestEnv(t)

	w := e.doJSON(t, http.MethodPost, "/api/v1/farmers/forgot-password", "", map[string]string{
		"email": "ghost@example.com",
	})
	wantStatus(t, w, http.StatusOK)
	if e.mail.lastToken() != "" {
		t.Error("no mail must be sent for unregistered email")
	}
}
