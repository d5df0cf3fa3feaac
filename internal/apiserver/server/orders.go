package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"freshly-market/internal/apiserver/auth"
	"freshly-market/internal/model"
	"freshly-market/internal/storage"
)

// ============================================================================
// 订单：买家下单 / 查询 / 取消
//
// 总价由服务端按商品存储单价计算，请求中的价格字段一律忽略。
// ============================================================================

type createOrderRequest struct {
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	DeliveryAddress string `json:"deliveryAddress"`
	District        string `json:"district"`
}

// CreateOrder POST /api/v1/orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalBuyer)
	buyer := p.Doc.(*model.Buyer)

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "order must contain at least one item")
		return
	}
	// 地址缺省回落到买家档案
	if req.DeliveryAddress == "" {
		req.DeliveryAddress = buyer.Address
	}
	if req.District == "" {
		req.District = buyer.District
	}
	if req.DeliveryAddress == "" {
		writeError(w, http.StatusBadRequest, "delivery address is required")
		return
	}

	var (
		items []model.OrderItem
		total float64
	)
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, "item quantity must be positive")
			return
		}
		product, err := h.store.GetProduct(r.Context(), item.ProductID)
		if err != nil {
			writeStoreError(w, err, "")
			return
		}
		if product == nil {
			writeError(w, http.StatusNotFound, "product not found: "+item.ProductID)
			return
		}
		if product.Stock < item.Quantity {
			writeError(w, http.StatusConflict, "insufficient stock for "+product.Name)
			return
		}
		items = append(items, model.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			Price:     product.Price,
		})
		total += product.Price * float64(item.Quantity)
	}

	// 逐项原子扣减库存，任一失败则回补已扣项后整单拒绝
	var adjusted []model.OrderItem
	restock := func() {
		for _, done := range adjusted {
			if err := h.store.AdjustProductStock(r.Context(), done.ProductID, done.Quantity); err != nil {
				log.Printf("[orders] restock %s x%d: %v", done.ProductID, done.Quantity, err)
			}
		}
	}
	for _, item := range items {
		if err := h.store.AdjustProductStock(r.Context(), item.ProductID, -item.Quantity); err != nil {
			restock()
			if errors.Is(err, storage.ErrConflict) {
				writeError(w, http.StatusConflict, "insufficient stock for "+item.Name)
			} else {
				writeStoreError(w, err, "")
			}
			return
		}
		adjusted = append(adjusted, item)
	}

	order := &model.Order{
		ID:              generateID("order"),
		BuyerID:         p.ID,
		Items:           items,
		Total:           total,
		Status:          model.OrderStatusPending,
		DeliveryAddress: req.DeliveryAddress,
		District:        req.District,
		CreatedAt:       time.Now(),
	}
	if err := h.store.CreateOrder(r.Context(), order); err != nil {
		restock()
		writeStoreError(w, err, "")
		return
	}
	h.metrics.OrdersTotal.WithLabelValues(string(order.Status)).Inc()
	writeJSON(w, http.StatusCreated, order)
}

// ListMyOrders GET /api/v1/orders
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalBuyer)
	orders, err := h.store.ListOrdersByBuyer(r.Context(), p.ID)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// ownedOrder 取订单并校验归属：不存在返回 404，归属他人返回 403
func (h *Handler) ownedOrder(w http.ResponseWriter, r *http.Request) *model.Order {
	order, err := h.store.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "")
		return nil
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return nil
	}
	p := auth.GetPrincipal(r.Context(), model.PrincipalBuyer)
	if !auth.SameID(order.BuyerID, p.ID) {
		writeError(w, http.StatusForbidden, "order belongs to another buyer")
		return nil
	}
	return order
}

// GetOrder GET /api/v1/orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order := h.ownedOrder(w, r)
	if order == nil {
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// CancelOrder POST /api/v1/orders/{id}/cancel
//
// 只有未进入配送的订单可以取消。已接单的订单取消时同时释放配送记录，
// 司机一旦取货则不可再取消。
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order := h.ownedOrder(w, r)
	if order == nil {
		return
	}
	if !order.Status.CanTransitionTo(model.OrderStatusCancelled) {
		writeError(w, http.StatusConflict, "order can no longer be cancelled")
		return
	}
	delivery, err := h.store.GetDeliveryByOrder(r.Context(), order.ID)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if delivery != nil {
		if delivery.Status != model.DeliveryStatusAssigned {
			writeError(w, http.StatusConflict, "order can no longer be cancelled")
			return
		}
		if err := h.store.DeleteDelivery(r.Context(), delivery.ID); err != nil {
			writeStoreError(w, err, "")
			return
		}
	}
	if err := h.store.UpdateOrderStatus(r.Context(), order.ID, model.OrderStatusCancelled); err != nil {
		writeStoreError(w, err, "")
		return
	}
	// 回补库存，失败只记日志（商品可能已下架）
	for _, item := range order.Items {
		if err := h.store.AdjustProductStock(r.Context(), item.ProductID, item.Quantity); err != nil {
			log.Printf("[orders] restock %s x%d after cancel: %v", item.ProductID, item.Quantity, err)
		}
	}
	order.Status = model.OrderStatusCancelled
	h.metrics.OrdersTotal.WithLabelValues(string(order.Status)).Inc()
	writeJSON(w, http.StatusOK, order)
}

// ListOpenOrders GET /api/v1/deliveries/open
//
// 司机视角：列出待接单的订单。
func (h *Handler) ListOpenOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListOrdersByStatus(r.Context(), model.OrderStatusPending)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}
