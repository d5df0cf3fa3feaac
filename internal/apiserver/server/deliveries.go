package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"freshly-market/internal/apiserver/auth"
	"freshly-market/internal/model"
)

// ============================================================================
// 配送：司机接单 / 状态流转 / 实时位置，买家侧订单追踪
//
// 实时位置只进 Redis（带 TTL），不落 MongoDB。
// ============================================================================

// AcceptOrder POST /api/v1/deliveries/accept
//
// 司机认领一个待配送订单。订单状态与配送记录的写入不在同一事务，
// 以订单状态迁移为准：非 pending 订单直接拒绝。
func (h *Handler) AcceptOrder(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalDriver)

	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "orderId is required")
		return
	}
	order, err := h.store.GetOrder(r.Context(), req.OrderID)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if !order.Status.CanTransitionTo(model.OrderStatusAccepted) {
		writeError(w, http.StatusConflict, "order is not open for delivery")
		return
	}

	delivery := &model.Delivery{
		ID:        generateID("delivery"),
		OrderID:   order.ID,
		DriverID:  p.ID,
		Status:    model.DeliveryStatusAssigned,
		CreatedAt: time.Now(),
	}
	// deliveries 集合对 order_id 有唯一索引，两个司机抢同一单只有一个成功
	if err := h.store.CreateDelivery(r.Context(), delivery); err != nil {
		writeStoreError(w, err, "order already has a driver")
		return
	}
	if err := h.store.UpdateOrderStatus(r.Context(), order.ID, model.OrderStatusAccepted); err != nil {
		writeStoreError(w, err, "")
		return
	}
	h.metrics.OrdersTotal.WithLabelValues(string(model.OrderStatusAccepted)).Inc()
	h.metrics.DeliveriesTotal.WithLabelValues(string(delivery.Status)).Inc()
	writeJSON(w, http.StatusCreated, delivery)
}

// ListMyDeliveries GET /api/v1/deliveries
func (h *Handler) ListMyDeliveries(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalDriver)
	deliveries, err := h.store.ListDeliveriesByDriver(r.Context(), p.ID)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if deliveries == nil {
		deliveries = []*model.Delivery{}
	}
	writeJSON(w, http.StatusOK, deliveries)
}

// ownedDelivery 取配送记录并校验归属：不存在返回 404，归属他人返回 403
func (h *Handler) ownedDelivery(w http.ResponseWriter, r *http.Request) *model.Delivery {
	delivery, err := h.store.GetDelivery(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "")
		return nil
	}
	if delivery == nil {
		writeError(w, http.StatusNotFound, "delivery not found")
		return nil
	}
	p := auth.GetPrincipal(r.Context(), model.PrincipalDriver)
	if !auth.SameID(delivery.DriverID, p.ID) {
		writeError(w, http.StatusForbidden, "delivery belongs to another driver")
		return nil
	}
	return delivery
}

// GetDelivery GET /api/v1/deliveries/{id}
func (h *Handler) GetDelivery(w http.ResponseWriter, r *http.Request) {
	delivery := h.ownedDelivery(w, r)
	if delivery == nil {
		return
	}
	writeJSON(w, http.StatusOK, delivery)
}

// UpdateDeliveryStatus PUT /api/v1/deliveries/{id}/status
//
// 配送状态单向推进，同步驱动订单状态迁移。
func (h *Handler) UpdateDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	delivery := h.ownedDelivery(w, r)
	if delivery == nil {
		return
	}
	var req struct {
		Status model.DeliveryStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown delivery status")
		return
	}
	if !delivery.Status.CanTransitionTo(req.Status) {
		writeError(w, http.StatusConflict, "invalid status transition")
		return
	}
	// 订单取消时配送记录随之释放；此处兜底释放与推进之间的竞态窗口
	order, err := h.store.GetOrder(r.Context(), delivery.OrderID)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if order == nil || order.Status == model.OrderStatusCancelled {
		writeError(w, http.StatusConflict, "order has been cancelled")
		return
	}

	now := time.Now()
	delivery.Status = req.Status
	switch req.Status {
	case model.DeliveryStatusPickedUp:
		delivery.PickedUpAt = now
	case model.DeliveryStatusDelivered:
		delivery.DeliveredAt = now
	}
	if err := h.store.UpdateDeliveryStatus(r.Context(), delivery); err != nil {
		writeStoreError(w, err, "")
		return
	}
	h.metrics.DeliveriesTotal.WithLabelValues(string(delivery.Status)).Inc()

	// 同步订单状态：配送上路 → 订单 in_transit，送达 → 订单 delivered。
	// 订单状态机不允许的迁移不写入（cancelled 为终态）。
	if next, ok := orderStatusFor(req.Status); ok && order.Status.CanTransitionTo(next) {
		if err := h.store.UpdateOrderStatus(r.Context(), delivery.OrderID, next); err != nil {
			log.Printf("[delivery] sync order %s to %s: %v", delivery.OrderID, next, err)
		} else {
			h.metrics.OrdersTotal.WithLabelValues(string(next)).Inc()
		}
	}
	writeJSON(w, http.StatusOK, delivery)
}

// orderStatusFor 配送状态对应的订单状态
func orderStatusFor(s model.DeliveryStatus) (model.OrderStatus, bool) {
	switch s {
	case model.DeliveryStatusInTransit:
		return model.OrderStatusInTransit, true
	case model.DeliveryStatusDelivered:
		return model.OrderStatusDelivered, true
	}
	return "", false
}

// UpdateDriverLocation PUT /api/v1/deliveries/{id}/location
//
// 位置只写 Redis，TTL 过期后自动消失。已完成的配送不再接受位置上报。
func (h *Handler) UpdateDriverLocation(w http.ResponseWriter, r *http.Request) {
	delivery := h.ownedDelivery(w, r)
	if delivery == nil {
		return
	}
	if delivery.Status == model.DeliveryStatusDelivered {
		writeError(w, http.StatusConflict, "delivery already completed")
		return
	}
	var req struct {
		Latitude  float64 `json:"lat"`
		Longitude float64 `json:"lng"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		writeError(w, http.StatusBadRequest, "invalid coordinates")
		return
	}
	loc := &model.DriverLocation{
		DriverID:  delivery.DriverID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		UpdatedAt: time.Now(),
	}
	if err := h.cache.SetDriverLocation(r.Context(), delivery.ID, loc); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store location")
		return
	}
	h.metrics.LocationUpdates.Inc()
	writeJSON(w, http.StatusOK, loc)
}

// trackingResponse 买家侧订单追踪视图
type trackingResponse struct {
	Order    *model.Order          `json:"order"`
	Delivery *model.Delivery       `json:"delivery,omitempty"`
	Location *model.DriverLocation `json:"location,omitempty"`
}

// TrackOrder GET /api/v1/orders/{id}/tracking
//
// 买家查看自己订单的配送进度与司机最新位置（位置可能因 TTL 缺失）。
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	order := h.ownedOrder(w, r)
	if order == nil {
		return
	}
	resp := trackingResponse{Order: order}

	delivery, err := h.store.GetDeliveryByOrder(r.Context(), order.ID)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if delivery != nil {
		resp.Delivery = delivery
		loc, err := h.cache.GetDriverLocation(r.Context(), delivery.ID)
		if err != nil {
			log.Printf("[tracking] location lookup for delivery %s: %v", delivery.ID, err)
		} else {
			resp.Location = loc
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
