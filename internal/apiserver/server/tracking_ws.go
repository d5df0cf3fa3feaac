// 配送实时追踪 WebSocket
//
// 买家连上后按固定间隔推送司机位置与配送状态，
// 配送完成或客户端断开时结束。位置来自 Redis，可能因 TTL 缺失。
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"freshly-market/internal/apiserver/auth"
	"freshly-market/internal/model"
)

var trackingUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域（开发环境）
	},
}

// trackingPushInterval 位置推送间隔
const trackingPushInterval = 2 * time.Second

// TrackingMessage WebSocket 推送消息
type TrackingMessage struct {
	Type      string                `json:"type"` // location, status, done
	Status    model.DeliveryStatus  `json:"status,omitempty"`
	Location  *model.DriverLocation `json:"location,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// TrackDeliveryWS GET /ws/deliveries/{id}/track
//
// 买家订阅自己订单的配送位置流。归属校验同 REST 侧：
// 配送不存在 404，配送对应订单归属他人 403。
func (h *Handler) TrackDeliveryWS(w http.ResponseWriter, r *http.Request) {
	delivery, err := h.store.GetDelivery(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if delivery == nil {
		writeError(w, http.StatusNotFound, "delivery not found")
		return
	}
	order, err := h.store.GetOrder(r.Context(), delivery.OrderID)
	if err != nil || order == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	p := auth.GetPrincipal(r.Context(), model.PrincipalBuyer)
	if !auth.SameID(order.BuyerID, p.ID) {
		writeError(w, http.StatusForbidden, "order belongs to another buyer")
		return
	}

	conn, err := trackingUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[TrackingWS] Upgrade error: %v", err)
		return
	}
	h.metrics.TrackingWSActive.Inc()
	defer func() {
		h.metrics.TrackingWSActive.Dec()
		conn.Close()
	}()

	// 读协程只用于感知断开
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[TrackingWS] Read error: %v", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(trackingPushInterval)
	defer ticker.Stop()

	deliveryID := delivery.ID
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			fresh, err := h.store.GetDelivery(r.Context(), deliveryID)
			if err != nil || fresh == nil {
				h.sendTracking(conn, TrackingMessage{Type: "done", Timestamp: time.Now()})
				return
			}
			loc, err := h.cache.GetDriverLocation(r.Context(), deliveryID)
			if err != nil {
				log.Printf("[TrackingWS] location lookup: %v", err)
			}
			if !h.sendTracking(conn, TrackingMessage{
				Type:      "location",
				Status:    fresh.Status,
				Location:  loc,
				Timestamp: time.Now(),
			}) {
				return
			}
			if fresh.Status == model.DeliveryStatusDelivered {
				h.sendTracking(conn, TrackingMessage{Type: "done", Status: fresh.Status, Timestamp: time.Now()})
				return
			}
		}
	}
}

func (h *Handler) sendTracking(conn *websocket.Conn, msg TrackingMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[TrackingWS] Marshal error: %v", err)
		return false
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return false
	}
	h.metrics.TrackingWSMsgSent.Inc()
	return true
}
