package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"freshly-market/internal/apiserver/auth"
	"freshly-market/internal/cache"
	"freshly-market/internal/model"
	"freshly-market/internal/objstore"
	"freshly-market/internal/storage"
)

// testMetrics 全局共享的 Metrics 实例（避免 Prometheus 重复注册 panic）
var testMetrics = NewMetrics("server_test")

// captureMailer 捕获最近一封重置邮件，供 forgot/reset 流程测试取明文 token
type captureMailer struct {
	mu    sync.Mutex
	to    string
	token string
}

func (m *captureMailer) SendResetToken(ctx context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = to
	m.token = token
	return nil
}

func (m *captureMailer) lastToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// testEnv 一套完整的内存协作方
type testEnv struct {
	handler *Handler
	router  http.Handler
	store   *storage.MemoryStore
	cache   *cache.MemoryCache
	objects *objstore.MemoryObjects
	mail    *captureMailer
}

// newTestEnv 创建用于测试的 Handler 及其协作方
//
// 注意：不使用 NewHandler 以避免 Prometheus 全局指标重复注册，
// 直接构造 Handler 并复用包级 testMetrics。
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := storage.NewMemoryStore()
	memCache := cache.NewMemoryCache()
	objects := objstore.NewMemoryObjects()
	mail := &captureMailer{}

	cfg := auth.DefaultConfig()
	cfg.JWTSecret = "test-secret"

	h := &Handler{
		store:   store,
		cache:   memCache,
		objects: objects,
		mail:    mail,
		authCfg: cfg,
		metrics: testMetrics,
	}
	return &testEnv{
		handler: h,
		router:  h.Router(),
		store:   store,
		cache:   memCache,
		objects: objects,
		mail:    mail,
	}
}

// testPasswordHash 所有种子账号共用一个 bcrypt 哈希，避免每个用例重复计算
var (
	testPassword     = "password-123"
	testPasswordOnce sync.Once
	testPasswordHash string
)

func passwordHash(t *testing.T) string {
	t.Helper()
	testPasswordOnce.Do(func() {
		h, err := auth.HashPassword(testPassword)
		if err != nil {
			panic(err)
		}
		testPasswordHash = h
	})
	return testPasswordHash
}

// ============================================================================
// 种子数据
// ============================================================================

func (e *testEnv) seedFarmer(t *testing.T, email string) *model.Farmer {
	t.Helper()
	f := &model.Farmer{
		ID:           generateID("farmer"),
		Name:         "Test Farmer",
		Email:        email,
		PasswordHash: passwordHash(t),
		Phone:        "0771234567",
		NIC:          "912345678V",
		FarmAddress:  model.FarmAddress{StreetNo: "12", City: "Kandy", District: "Kandy"},
		CreatedAt:    time.Now(),
	}
	if err := e.store.CreateFarmer(context.Background(), f); err != nil {
		t.Fatalf("seed farmer: %v", err)
	}
	return f
}

func (e *testEnv) seedBuyer(t *testing.T, email string) *model.Buyer {
	t.Helper()
	b := &model.Buyer{
		ID:           generateID("buyer"),
		Name:         "Test Buyer",
		Email:        email,
		PasswordHash: passwordHash(t),
		Phone:        "0777654321",
		Address:      "45 Galle Road, Colombo 03",
		District:     "Colombo",
		CreatedAt:    time.Now(),
	}
	if err := e.store.CreateBuyer(context.Background(), b); err != nil {
		t.Fatalf("seed buyer: %v", err)
	}
	return b
}

func (e *testEnv) seedDriver(t *testing.T, email string) *model.Driver {
	t.Helper()
	d := &model.Driver{
		ID:            generateID("driver"),
		Name:          "Test Driver",
		Email:         email,
		PasswordHash:  passwordHash(t),
		Phone:         "0712223334",
		NIC:           "923456789V",
		District:      "Galle",
		VehicleType:   "three-wheeler",
		VehicleNumber: "SP-1234",
		LicenseNo:     "B1234567",
		CreatedAt:     time.Now(),
	}
	if err := e.store.CreateDriver(context.Background(), d); err != nil {
		t.Fatalf("seed driver: %v", err)
	}
	return d
}

func (e *testEnv) seedProduct(t *testing.T, farmerID string, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		ID:        generateID("product"),
		FarmerID:  farmerID,
		Name:      "Red Onions",
		Category:  model.CategoryVegetables,
		Price:     350,
		Unit:      "kg",
		Stock:     stock,
		CreatedAt: time.Now(),
	}
	if err := e.store.CreateProduct(context.Background(), p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func (e *testEnv) seedOrder(t *testing.T, buyerID string, items ...model.OrderItem) *model.Order {
	t.Helper()
	if len(items) == 0 {
		items = []model.OrderItem{{ProductID: generateID("product"), Name: "Red Onions", Quantity: 2, Price: 350}}
	}
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	o := &model.Order{
		ID:              generateID("order"),
		BuyerID:         buyerID,
		Items:           items,
		Total:           total,
		Status:          model.OrderStatusPending,
		DeliveryAddress: "45 Galle Road, Colombo 03",
		District:        "Colombo",
		CreatedAt:       time.Now(),
	}
	if err := e.store.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

func (e *testEnv) seedDelivery(t *testing.T, orderID, driverID string, status model.DeliveryStatus) *model.Delivery {
	t.Helper()
	d := &model.Delivery{
		ID:        generateID("delivery"),
		OrderID:   orderID,
		DriverID:  driverID,
		Status:    status,
		CreatedAt: time.Now(),
	}
	if err := e.store.CreateDelivery(context.Background(), d); err != nil {
		t.Fatalf("seed delivery: %v", err)
	}
	return d
}

// ============================================================================
// 请求辅助
// ============================================================================

// tokenFor 为种子主体直接签发令牌
func (e *testEnv) tokenFor(t *testing.T, typ model.PrincipalType, id string) string {
	t.Helper()
	token, err := auth.GenerateToken(e.handler.authCfg, typ, id)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

// doJSON 通过路由发起 JSON 请求；token 非空时同时带 cookie 与 Bearer 头
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	r := httptest.NewRequest(method, path, reader)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	return w
}

// newWSTestServer 启动承载完整路由的真实 HTTP 服务（WebSocket 测试用）
func newWSTestServer(e *testEnv) *httptest.Server {
	return httptest.NewServer(e.router)
}

// decode 解析 JSON 响应体
func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, w.Body.String())
	}
	return v
}

// wantStatus 断言状态码，失败时附带响应体便于定位
func wantStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, want, w.Body.String())
	}
}

// wantError 断言错误响应的文案
func wantError(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	wantStatus(t, w, status)
	body := decode[map[string]string](t, w)
	if body["error"] != message {
		t.Errorf("error = %q, want %q", body["error"], message)
	}
}

// ============================================================================
// 基础接口
// ============================================================================

// TestHealth 测试健康检查
func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	w := e.doJSON(t, http.MethodGet, "/health", "", nil)
	wantStatus(t, w, http.StatusOK)
	body := decode[map[string]string](t, w)
	if body["status"] != "ok" {
		t.Errorf("status = %q", body["status"])
	}
}

// TestCORS 测试跨域预检
func TestCORS(t *testing.T) {
	e := newTestEnv(t)
	r := httptest.NewRequest(http.MethodOptions, "/api/v1/products", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

// TestGenerateID 测试 ID 格式与唯一性
func TestGenerateID(t *testing.T) {
	id := generateID("order")
	if len(id) != len("order")+1+12 {
		t.Errorf("id length = %d: %s", len(id), id)
	}
	if id[:6] != "order-" {
		t.Errorf("id prefix: %s", id)
	}
	if generateID("order") == id {
		t.Error("consecutive ids must differ")
	}
}
