package server

import (
	"context"
	"net/http"
	"testing"

	"freshly-market/internal/model"
)

// TestAcceptOrder 测试司机接单
func TestAcceptOrder(t *testing.T) {
	e := newTestEnv(t)
	b := e.seedBuyer(t, "kamala@example.com")
	d := e.seedDriver(t, "sunil@example.com")
	o := e.seedOrder(t, b.ID)
	token := e.tokenFor(t, model.PrincipalDriver, d.ID)

	w := e.doJSON(t, http.MethodPost, "/api/v1/deliveries/accept", token, map[string]string{
		"orderId": o.ID,
	})
	wantStatus(t, w, http.StatusCreated)

	delivery := decode[model.Delivery](t, w)
	if delivery.OrderID != o.ID || delivery.DriverID != d.ID {
		t.Errorf("delivery = %+v", delivery)
	}
	if delivery.Status != model.DeliveryStatusAssigned {
		t.Errorf("status = %s", delivery.Status)
	}

	// 订单同步进入 accepted
	reloaded, _ := e.store.GetOrder(context.Background(), o.ID)
	if reloaded.Status != model.OrderStatusAccepted {
		t.Errorf("order status = %s, want accepted", reloaded.Status)
	}
}

// TestAcceptOrder_Failures 测试接单失败路径
func TestAcceptOrder_Failures(t *testing.T) {
	e := newTestEnv(t)
	b := e.seedBuyer(t, "kamala@example.com")
	d1 := e.seedDriver(t, "sunil@example.com")
	d2 := e.seedDriver(t, "ravi@example.com")
	token1 := e.tokenFor(t, model.PrincipalDriver, d1.ID)
	token2 := e.tokenFor(t, model.PrincipalDriver, d2.ID)

	t.Run("订单不存在", func(t *testing.T) {
		w := e.doJSON(t, http.MethodPost, "/api/v1/deliveries/accept", token1, map[string]string{
			"orderId": "order-000000000000",
		})
		wantError(t, w, http.StatusNotFound, "order not found")
	})
	t.Run("已取消的订单", func(t *testing.T) {
		o := e.seedOrder(t, b.ID)
		setOrderStatus(t, e, o.ID, model.OrderStatusCancelled)
		w := e.doJSON(t, http.MethodPost, "/api/v1/deliveries/accept", token1, map[string]string{
			"orderId": o.ID,
		})
		wantError(t, w, http.StatusConflict, "order is not open for delivery")
	})
	t.Run("两个司机抢同一单", func(t *testing.T) {
		o := e.seedOrder(t, b.ID)
		w := e.doJSON(t, http.MethodPost, "/api/v1/deliveries/accept", token1, map[string]string{
			"orderId": o.ID,
		})
		wantStatus(t, w, http.StatusCreated)

		// 第二个司机在订单状态同步前竞争：配送记录唯一索引兜底
		setOrderStatus(t, e, o.ID, model.OrderStatusPending)
		w = e.doJSON(t, http.MethodPost, "/api/v1/deliveries/accept", token2, map[string]string{
			"orderId": o.ID,
		})
		wantError(t, w, http.StatusConflict, "order already has a driver")
	})
}

// TestListMyDeliveries 测试司机配送列表
func TestListMyDeliveries(t *testing.T) {
	e := newTestEnv(t)
	b := e.seedBuyer(t, "kamala@example.com")
	d := e.seedDriver(t, "sunil@example.com")
	other := e.seedDriver(t, "ravi@example.com")
	o1 := e.seedOrder(t, b.ID)
	o2 := e.seedOrder(t, b.ID)
	e.seedDelivery(t, o1.ID, d.ID, model.DeliveryStatusAssigned)
	e.seedDelivery(t, o2.ID, other.ID, model.DeliveryStatusAssigned)

	token := e.tokenFor(t, model.PrincipalDriver, d.ID)
	w := e.doJSON(t, http.MethodGet, "/api/v1/deliveries", token, nil)
	wantStatus(t, w, http.StatusOK)
	if got := decode[[]model.Delivery](t, w); len(got) != 1 {
		t.Errorf("got %d deliveries, want 1", len(got))
	}
}

// TestUpdateDeliveryStatus 测试配送状态流转及订单同步
func TestUpdateDeliveryStatus(t *testing.T) {
	e := newTestEnv(t)
	b := e.seedBuyer(t, "kamala@example.com")
	d := e.seedDriver(t, "sunil@example.com")
	o := e.seedOrder(t, b.ID)
	setOrderStatus(t, e, o.ID, model.OrderStatusAccepted)
	dl := e.seedDelivery(t, o.ID, d.ID, model.DeliveryStatusAssigned)
	token := e.tokenFor(t, model.PrincipalDriver, d.ID)

	setStatus := func(status model.DeliveryStatus) *model.Delivery {
		w := e.doJSON(t, http.MethodPut, "/api/v1/deliveries/"+dl.ID+"/status", token, map[string]string{
			"status": string(status),
		})
		wantStatus(t, w, http.StatusOK)
		got := decode[model.Delivery](t, w)
		return &got
	}

	// assigned → picked_up
	got := setStatus(model.DeliveryStatusPickedUp)
	if got.PickedUpAt.IsZero() {
		t.Error("picked_up_at must be stamped")
	}

	// picked_up → in_transit 同步订单
	setStatus(model.DeliveryStatusInTransit)
	order, _ := e.store.GetOrder(context.Background(), o.ID)
	if order.Status != model.OrderStatusInTransit {
		t.Errorf("order status = %s, want in_transit", order.Status)
	}

	// in_transit → delivered 同步订单并盖章
	got = setStatus(model.DeliveryStatusDelivered)
	if got.DeliveredAt.IsZero() {
		t.Error("delivered_at must be stamped")
	}
	order, _ = e.store.GetOrder(context.Background(), o.ID)
	if order.Status != model.OrderStatusDelivered {
		t.Errorf("order status = %s, want delivered", order.Status)
	}
}

// TestUpdateDeliveryStatus_Invalid 测试非法状态流转
func TestUpdateDeliveryStatus_Invalid(t *testing.T) {
	e := newTestEnv(t)
	b := e.seedBuyer(t, "kamala@example.com")
	d := e.seedDriver(t, "sunil@example.com")
	o := e.seedOrder(t, b.ID)
	dl := e.seedDelivery(t, o.ID, d.ID, model.DeliveryStatusAssigned)
	token := e.tokenFor(t, model.PrincipalDriver, d.ID)

	tests := []struct {
		name       string
		status     string
		wantStatus int
		wantError  string
	}{
		{"未知状态", "teleported", http.StatusBadRequest, "unknown delivery status"},
		{"跳级流转", "delivered", http.StatusConflict, "invalid status transition"},
		{"原地不动", "assigned", http.StatusConflict, "invalid status transition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.doJSON(t, http.MethodPut, "/api/v1/deliveries/"+dl.ID+"/status", token, map[string]string{
				"status": tt.status,
			})
			wantError(t, w, tt.wantStatus, tt.wantError)
		})
	}
}

// TestUpdateDeliveryStatus_CancelledOrder 测试已取消订单的配送不再推进
//
// 取消通常已释放配送记录；这里直接布置残留记录，覆盖释放与推进的竞态窗口。
func TestUpdateDeliveryStatus_CancelledOrder(t *testing.T) {
	e := newTestEnv(t)
	b := e.seedBuyer(t, "kamala@example.com")
	d := e.seedDriver(t, "sunil@example.com")
	o := e.seedOrder(t, b.ID)
	dl := e.seedDelivery(t, o.ID, d.ID, model.DeliveryStatusAssigned)
	setOrderStatus(t, e, o.ID, model.OrderStatusCancelled)
	token := e.tokenFor(t, model.PrincipalDriver, d.ID)

	w := e.doJSON(t, http.MethodPut, "/api/v1/deliveries/"+dl.ID+"/status", token, map[string]string{
		"status": "picked_up",
	})
	wantError(t, w, http.StatusConflict, "order has been cancelled")

	// 订单停留在取消终态
	reloaded, _ := e.store.GetOrder(context.Background(), o.ID)
	if reloaded.Status != model.OrderStatusCancelled {
		t.Errorf("order status = %s, want cancelled", reloaded.Status)
	}
}

// TestUpdateDeliveryStatus_Ownership 测试配送归属校验
func TestUpdateDeliveryStatus_Ownership(t *testing.T) {
	e := newTestEnv(t)
	b := e.seedBuyer(t, "kamala@example.com")
	d := e.seedDriver(t, "sunil@example.com")
	other := e.seedDriver(t, "ravi@example.com")
	o := e.seedOrder(t, b.ID)
	dl := e.seedDelivery(t, o.ID, d.ID, model.DeliveryStatusAssigned)

	otherToken := e.tokenFor(t, model.PrincipalDriver, other.ID)
	w := e.doJSON(t, http.MethodPut, "/api/v1/deliveries/"+dl.ID+"/status", otherToken, map[string]string{
		"status": "picked_up",
	})
	wantError(t, w, http.StatusForbidden, "delivery belongs to another driver")

	w = e.doJSON(t, http.MethodGet, "/api/v1/deliveries/delivery-000000000000", otherToken, nil)
	wantError(t, w, http.StatusNotFound, "delivery not found")
}

// TestUpdateDriverLocation 测试位置上报
func TestUpdateDriverLocation(t *testing.T) {
	e := newTestEnv(t)
	b := e.seedBuyer(t, "kamala@example.com")
	d := e.seedDriver(t, "sunil@example.com")
	o := e.seedOrder(t, b.ID)
	dl := e.seedDelivery(t, o.ID, d.ID, model.DeliveryStatusInTransit)
	token := e.tokenFor(t, model.PrincipalDriver, d.ID)

	w := e.doJSON(t, http.MethodPut, "/api/v1/deliveries/"+dl.ID+"/location", token, map[string]float64{
		"lat": 6.9271, "lng": 79.8612,
	})
	wantStatus(t, w, http.StatusOK)

	loc, err := e.cache.GetDriverLocation(context.Background(), dl.ID)
	if err != nil || loc == nil {
		t.Fatalf("location not cached: %v", err)
	}
	if loc.Latitude != 6.9271 || loc.Longitude != 79.8612 {
		t.Errorf("location = %+v", loc)
	}

	t.Run("坐标越界", func(t *testing.T) {
		w := e.doJSON(t, http.MethodPut, "/api/v1/deliveries/"+dl.ID+"/location", token, map[string]float64{
			"lat": 91, "lng": 79.8612,
		})
		wantError(t, w, http.StatusBadRequest, "invalid coordinates")
	})
	t.Run("已完成的配送", func(t *testing.T) {
		o2 := e.seedOrder(t, b.ID)
		done := e.seedDelivery(t, o2.ID, d.ID, model.DeliveryStatusDelivered)
		w := e.doJSON(t, http.MethodPut, "/api/v1/deliveries/"+done.ID+"/location", token, map[string]float64{
			"lat": 6.9, "lng": 79.8,
		})
		wantError(t, w, http.StatusConflict, "delivery already completed")
	})
}

// TestTrackOrder 测试买家侧订单追踪快照
func TestTrackOrder(t *testing.T) {
	e := newTestEnv(t)
	b := e.seedBuyer(t, "kamala@example.com")
	d := e.seedDriver(t, "sunil@example.com")
	o := e.seedOrder(t, b.ID)
	buyerToken := e.tokenFor(t, model.PrincipalBuyer, b.ID)

	t.Run("未接单只有订单", func(t *testing.T) {
		w := e.doJSON(t, http.MethodGet, "/api/v1/orders/"+o.ID+"/tracking", buyerToken, nil)
		wantStatus(t, w, http.StatusOK)
		resp := decode[trackingResponse](t, w)
		if resp.Order == nil || resp.Order.ID != o.ID {
			t.Fatalf("order missing: %+v", resp)
		}
		if resp.Delivery != nil {
			t.Error("delivery must be absent before a driver accepts")
		}
	})

	dl := e.seedDelivery(t, o.ID, d.ID, model.DeliveryStatusInTransit)
	driverToken := e.tokenFor(t, model.PrincipalDriver, d.ID)
	w := e.doJSON(t, http.MethodPut, "/api/v1/deliveries/"+dl.ID+"/location", driverToken, map[string]float64{
		"lat": 6.0535, "lng": 80.2210,
	})
	wantStatus(t, w, http.StatusOK)

	t.Run("配送中含位置", func(t *testing.T) {
		w := e.doJSON(t, http.MethodGet, "/api/v1/orders/"+o.ID+"/tracking", buyerToken, nil)
		wantStatus(t, w, http.StatusOK)
		resp := decode[trackingResponse](t, w)
		if resp.Delivery == nil || resp.Delivery.ID != dl.ID {
			t.Fatalf("delivery missing: %+v", resp)
		}
		if resp.Location == nil || resp.Location.Latitude != 6.0535 {
			t.Errorf("location = %+v", resp.Location)
		}
	})
}
