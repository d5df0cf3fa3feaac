package server

import (
	"context"
	"net/http"

	"freshly-market/internal/apiserver/auth"
	"freshly-market/internal/model"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 健康检查:
//   - GET /health - 服务健康检查
//
// 农户 (Farmer):
//   - POST   /api/v1/farmers/register        - 注册
//   - POST   /api/v1/farmers/login           - 登录
//   - POST   /api/v1/farmers/logout          - 登出（清 cookie）
//   - POST   /api/v1/farmers/forgot-password - 发送密码重置 token
//   - POST   /api/v1/farmers/reset-password  - 用 token 重置密码
//   - GET    /api/v1/farmers/profile         - 本人资料
//   - PUT    /api/v1/farmers/profile         - 更新资料
//   - GET    /api/v1/farmers/products        - 本人商品列表
//   - DELETE /api/v1/farmers/{id}            - 注销账号（仅本人）
//
// 买家 (Buyer): 与农户对称，外加
//   - DELETE /api/v1/buyers/{id}             - 注销账号（仅本人）
//
// 司机 (Driver): register/login/forgot-password/reset-password，
// profile 的 GET/PUT/DELETE；令牌走 Authorization 头。
//
// 商品 (Product):
//   - GET    /api/v1/products                - 公开列表（?category= / ?farmerId=）
//   - GET    /api/v1/products/{id}           - 公开详情
//   - GET    /api/v1/products/{id}/reviews   - 公开评价列表
//   - POST   /api/v1/products                - 创建（农户）
//   - PUT    /api/v1/products/{id}           - 更新（归属农户）
//   - DELETE /api/v1/products/{id}           - 删除（归属农户）
//   - POST   /api/v1/products/{id}/image     - 上传主图（归属农户）
//
// 订单 (Order, 买家):
//   - POST   /api/v1/orders                  - 下单
//   - GET    /api/v1/orders                  - 本人订单列表
//   - GET    /api/v1/orders/{id}             - 订单详情（归属买家）
//   - POST   /api/v1/orders/{id}/cancel      - 取消
//   - GET    /api/v1/orders/{id}/tracking    - 配送追踪快照
//
// 评价 (Review, 买家) / 投诉 (Complaint, 买家): CRUD，
// 评价另有 POST /api/v1/reviews/{id}/pictures 上传配图。
//
// 配送 (Delivery, 司机):
//   - GET    /api/v1/deliveries/open         - 待接订单
//   - POST   /api/v1/deliveries/accept       - 接单
//   - GET    /api/v1/deliveries              - 本人配送列表
//   - GET    /api/v1/deliveries/{id}         - 配送详情
//   - PUT    /api/v1/deliveries/{id}/status  - 状态流转
//   - PUT    /api/v1/deliveries/{id}/location - 位置上报（进 Redis）
//
// 图片回源:
//   - GET    /api/v1/images/{key...}         - 从对象存储读图
//
// WebSocket:
//   - GET    /ws/deliveries/{id}/track       - 买家实时追踪（绕过指标中间件）
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", MetricsHandler())

	// 三类主体各自的认证中间件，文档加载走各自的集合
	requireFarmer := auth.Require(h.authCfg, model.PrincipalFarmer, func(ctx context.Context, id string) (any, error) {
		f, err := h.store.GetFarmerByID(ctx, id)
		if f == nil || err != nil {
			return nil, err
		}
		return f, nil
	})
	requireBuyer := auth.Require(h.authCfg, model.PrincipalBuyer, func(ctx context.Context, id string) (any, error) {
		b, err := h.store.GetBuyerByID(ctx, id)
		if b == nil || err != nil {
			return nil, err
		}
		return b, nil
	})
	requireDriver := auth.Require(h.authCfg, model.PrincipalDriver, func(ctx context.Context, id string) (any, error) {
		d, err := h.store.GetDriverByID(ctx, id)
		if d == nil || err != nil {
			return nil, err
		}
		return d, nil
	})

	// 农户
	mux.HandleFunc("POST /api/v1/farmers/register", h.RegisterFarmer)
	mux.HandleFunc("POST /api/v1/farmers/login", h.LoginFarmer)
	mux.HandleFunc("POST /api/v1/farmers/logout", h.LogoutFarmer)
	mux.HandleFunc("POST /api/v1/farmers/forgot-password", h.ForgotPasswordFarmer)
	mux.HandleFunc("POST /api/v1/farmers/reset-password", h.ResetPasswordFarmer)
	mux.HandleFunc("GET /api/v1/farmers/profile", requireFarmer(h.GetFarmerProfile))
	mux.HandleFunc("PUT /api/v1/farmers/profile", requireFarmer(h.UpdateFarmerProfile))
	mux.HandleFunc("GET /api/v1/farmers/products", requireFarmer(h.ListMyProducts))
	mux.HandleFunc("DELETE /api/v1/farmers/{id}", requireFarmer(h.DeleteFarmer))

	// 买家
	mux.HandleFunc("POST /api/v1/buyers/register", h.RegisterBuyer)
	mux.HandleFunc("POST /api/v1/buyers/login", h.LoginBuyer)
	mux.HandleFunc("POST /api/v1/buyers/logout", h.LogoutBuyer)
	mux.HandleFunc("POST /api/v1/buyers/forgot-password", h.ForgotPasswordBuyer)
	mux.HandleFunc("POST /api/v1/buyers/reset-password", h.ResetPasswordBuyer)
	mux.HandleFunc("GET /api/v1/buyers/profile", requireBuyer(h.GetBuyerProfile))
	mux.HandleFunc("PUT /api/v1/buyers/profile", requireBuyer(h.UpdateBuyerProfile))
	mux.HandleFunc("DELETE /api/v1/buyers/{id}", requireBuyer(h.DeleteBuyer))

	// 司机
	mux.HandleFunc("POST /api/v1/drivers/register", h.RegisterDriver)
	mux.HandleFunc("POST /api/v1/drivers/login", h.LoginDriver)
	mux.HandleFunc("POST /api/v1/drivers/forgot-password", h.ForgotPasswordDriver)
	mux.HandleFunc("POST /api/v1/drivers/reset-password", h.ResetPasswordDriver)
	mux.HandleFunc("GET /api/v1/drivers/profile", requireDriver(h.GetDriverProfile))
	mux.HandleFunc("PUT /api/v1/drivers/profile", requireDriver(h.UpdateDriverProfile))
	mux.HandleFunc("DELETE /api/v1/drivers/profile", requireDriver(h.DeleteDriverProfile))

	// 商品（读公开，写农户）
	mux.HandleFunc("GET /api/v1/products", h.ListProducts)
	mux.HandleFunc("GET /api/v1/products/{id}", h.GetProduct)
	mux.HandleFunc("GET /api/v1/products/{id}/reviews", h.ListProductReviews)
	mux.HandleFunc("POST /api/v1/products", requireFarmer(h.CreateProduct))
	mux.HandleFunc("PUT /api/v1/products/{id}", requireFarmer(h.UpdateProduct))
	mux.HandleFunc("DELETE /api/v1/products/{id}", requireFarmer(h.DeleteProduct))
	mux.HandleFunc("POST /api/v1/products/{id}/image", requireFarmer(h.UploadProductImage))

	// 订单（买家）
	mux.HandleFunc("POST /api/v1/orders", requireBuyer(h.CreateOrder))
	mux.HandleFunc("GET /api/v1/orders", requireBuyer(h.ListMyOrders))
	mux.HandleFunc("GET /api/v1/orders/{id}", requireBuyer(h.GetOrder))
	mux.HandleFunc("POST /api/v1/orders/{id}/cancel", requireBuyer(h.CancelOrder))
	mux.HandleFunc("GET /api/v1/orders/{id}/tracking", requireBuyer(h.TrackOrder))

	// 评价（买家）
	mux.HandleFunc("POST /api/v1/reviews", requireBuyer(h.CreateReview))
	mux.HandleFunc("GET /api/v1/reviews", requireBuyer(h.ListMyReviews))
	mux.HandleFunc("PUT /api/v1/reviews/{id}", requireBuyer(h.UpdateReview))
	mux.HandleFunc("DELETE /api/v1/reviews/{id}", requireBuyer(h.DeleteReview))
	mux.HandleFunc("POST /api/v1/reviews/{id}/pictures", requireBuyer(h.UploadReviewPicture))

	// 投诉（买家）
	mux.HandleFunc("POST /api/v1/complaints", requireBuyer(h.CreateComplaint))
	mux.HandleFunc("GET /api/v1/complaints", requireBuyer(h.ListMyComplaints))
	mux.HandleFunc("GET /api/v1/complaints/{id}", requireBuyer(h.GetComplaint))
	mux.HandleFunc("PUT /api/v1/complaints/{id}", requireBuyer(h.UpdateComplaint))
	mux.HandleFunc("DELETE /api/v1/complaints/{id}", requireBuyer(h.DeleteComplaint))

	// 配送（司机）
	mux.HandleFunc("GET /api/v1/deliveries/open", requireDriver(h.ListOpenOrders))
	mux.HandleFunc("POST /api/v1/deliveries/accept", requireDriver(h.AcceptOrder))
	mux.HandleFunc("GET /api/v1/deliveries", requireDriver(h.ListMyDeliveries))
	mux.HandleFunc("GET /api/v1/deliveries/{id}", requireDriver(h.GetDelivery))
	mux.HandleFunc("PUT /api/v1/deliveries/{id}/status", requireDriver(h.UpdateDeliveryStatus))
	mux.HandleFunc("PUT /api/v1/deliveries/{id}/location", requireDriver(h.UpdateDriverLocation))

	// 图片回源
	mux.HandleFunc("GET /api/v1/images/{key...}", h.GetImage)

	// 应用指标中间件到 REST API
	apiHandler := h.metrics.MetricsMiddleware(mux)

	// 应用 CORS 中间件
	corsHandler := corsMiddleware(apiHandler)

	// 顶层路由，WebSocket 绕过 metrics 中间件（避免 http.Hijacker 问题）
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /ws/deliveries/{id}/track", requireBuyer(h.TrackDeliveryWS))
	topMux.Handle("/", corsHandler)

	return topMux
}

// corsMiddleware 添加 CORS 头支持跨域请求
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
