package server

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"freshly-market/internal/model"
)

// reviewScenario 布置一个可评价的场景：买家 + 含该商品的订单
func reviewScenario(t *testing.T, e *testEnv) (*model.Buyer, *model.Order, *model.Product) {
	t.Helper()
	f := e.seedFarmer(t, "nimal@example.com")
	b := e.seedBuyer(t, "kamala@example.com")
	p := e.seedProduct(t, f.ID, 100)
	o := e.seedOrder(t, b.ID, model.OrderItem{
		ProductID: p.ID, Name: p.Name, Quantity: 2, Price: p.Price,
	})
	return b, o, p
}

// TestCreateReview 测试发表评价
func TestCreateReview(t *testing.T) {
	e := newTestEnv(t)
	b, o, p := reviewScenario(t, e)
	token := e.tokenFor(t, model.PrincipalBuyer, b.ID)

	w := e.doJSON(t, http.MethodPost, "/api/v1/reviews", token, map[string]any{
		"orderId":   o.ID,
		"productId": p.ID,
		"rating":    5,
		"comment":   "Very fresh onions",
	})
	wantStatus(t, w, http.StatusCreated)

	review := decode[model.Review](t, w)
	if review.BuyerID != b.ID || review.OrderID != o.ID || review.ProductID != p.ID {
		t.Errorf("review = %+v", review)
	}

	// 同一订单行只能评一次
	w = e.doJSON(t, http.MethodPost, "/api/v1/reviews", token, map[string]any{
		"orderId": o.ID, "productId": p.ID, "rating": 1,
	})
	wantError(t, w, http.StatusConflict, "review already exists for this order item")
}

// TestCreateReview_Failures 测试评价失败路径
func TestCreateReview_Failures(t *testing.T) {
	e := newTestEnv(t)
	b, o, p := reviewScenario(t, e)
	stranger := e.seedBuyer(t, "stranger@example.com")
	token := e.tokenFor(t, model.PrincipalBuyer, b.ID)

	tests := []struct {
		name       string
		token      string
		body       map[string]any
		wantStatus int
		wantError  string
	}{
		{
			name:       "评分越界",
			token:      token,
			body:       map[string]any{"orderId": o.ID, "productId": p.ID, "rating": 6},
			wantStatus: http.StatusBadRequest,
			wantError:  "rating must be between 1 and 5",
		},
		{
			name:       "缺订单号",
			token:      token,
			body:       map[string]any{"productId": p.ID, "rating": 4},
			wantStatus: http.StatusBadRequest,
			wantError:  "orderId and productId are required",
		},
		{
			name:       "订单不存在",
			token:      token,
			body:       map[string]any{"orderId": "order-000000000000", "productId": p.ID, "rating": 4},
			wantStatus: http.StatusNotFound,
			wantError:  "order not found",
		},
		{
			name:       "他人订单",
			token:      e.tokenFor(t, model.PrincipalBuyer, stranger.ID),
			body:       map[string]any{"orderId": o.ID, "productId": p.ID, "rating": 4},
			wantStatus: http.StatusForbidden,
			wantError:  "order belongs to another buyer",
		},
		{
			name:       "商品不在订单内",
			token:      token,
			body:       map[string]any{"orderId": o.ID, "productId": "product-000000000000", "rating": 4},
			wantStatus: http.StatusBadRequest,
			wantError:  "product is not part of the order",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.doJSON(t, http.MethodPost, "/api/v1/reviews", tt.token, tt.body)
			wantError(t, w, tt.wantStatus, tt.wantError)
		})
	}
}

// TestListProductReviews 测试商品评价公开可读
func TestListProductReviews(t *testing.T) {
	e := newTestEnv(t)
	b, o, p := reviewScenario(t, e)
	token := e.tokenFor(t, model.PrincipalBuyer, b.ID)

	w := e.doJSON(t, http.MethodPost, "/api/v1/reviews", token, map[string]any{
		"orderId": o.ID, "productId": p.ID, "rating": 4, "comment": "Good",
	})
	wantStatus(t, w, http.StatusCreated)

	// 无令牌也能读
	w = e.doJSON(t, http.MethodGet, "/api/v1/products/"+p.ID+"/reviews", "", nil)
	wantStatus(t, w, http.StatusOK)
	if got := decode[[]model.Review](t, w); len(got) != 1 {
		t.Errorf("got %d reviews, want 1", len(got))
	}
}

// TestUpdateReview 测试修改评价
func TestUpdateReview(t *testing.T) {
	e := newTestEnv(t)
	b, o, p := reviewScenario(t, e)
	stranger := e.seedBuyer(t, "stranger@example.com")
	token := e.tokenFor(t, model.PrincipalBuyer, b.ID)

	w := e.doJSON(t, http.MethodPost, "/api/v1/reviews", token, map[string]any{
		"orderId": o.ID, "productId": p.ID, "rating": 4, "comment": "Good",
	})
	review := decode[model.Review](t, w)

	t.Run("他人403", func(t *testing.T) {
		strangerToken := e.tokenFor(t, model.PrincipalBuyer, stranger.ID)
		w := e.doJSON(t, http.MethodPut, "/api/v1/reviews/"+review.ID, strangerToken, map[string]any{
			"rating": 1, "comment": "hijacked",
		})
		wantError(t, w, http.StatusForbidden, "review belongs to another buyer")
	})
	t.Run("本人修改成功", func(t *testing.T) {
		w := e.doJSON(t, http.MethodPut, "/api/v1/reviews/"+review.ID, token, map[string]any{
			"rating": 2, "comment": "Wilted after two days",
		})
		wantStatus(t, w, http.StatusOK)
		reloaded, _ := e.store.GetReview(context.Background(), review.ID)
		if reloaded.Rating != 2 || reloaded.Comment != "Wilted after two days" {
			t.Errorf("review = %+v", reloaded)
		}
	})
}

// TestDeleteReview 测试删除评价及配图清理
func TestDeleteReview(t *testing.T) {
	e := newTestEnv(t)
	b, o, p := reviewScenario(t, e)
	token := e.tokenFor(t, model.PrincipalBuyer, b.ID)

	w := e.doJSON(t, http.MethodPost, "/api/v1/reviews", token, map[string]any{
		"orderId": o.ID, "productId": p.ID, "rating": 4,
	})
	review := decode[model.Review](t, w)

	// 预置一张配图
	key := "reviews/" + review.ID + "/pic.png"
	if err := e.objects.Upload(context.Background(), key, strings.NewReader("png-bytes"), 9, "image/png"); err != nil {
		t.Fatal(err)
	}
	review.PictureKeys = []string{key}
	if err := e.store.UpdateReview(context.Background(), &review); err != nil {
		t.Fatal(err)
	}

	w = e.doJSON(t, http.MethodDelete, "/api/v1/reviews/"+review.ID, token, nil)
	wantStatus(t, w, http.StatusOK)

	gone, _ := e.store.GetReview(context.Background(), review.ID)
	if gone != nil {
		t.Error("review must be deleted")
	}
	if e.objects.Has(key) {
		t.Error("review pictures must be cleaned up")
	}
}
