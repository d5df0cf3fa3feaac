package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"freshly-market/internal/apiserver/auth"
	"freshly-market/internal/model"
)

// wsScenario 布置配送中的订单：买家、司机、配送记录与一条缓存位置
func wsScenario(t *testing.T, e *testEnv) (*model.Buyer, *model.Delivery) {
	t.Helper()
	b := e.seedBuyer(t, "kamala@example.com")
	d := e.seedDriver(t, "sunil@example.com")
	o := e.seedOrder(t, b.ID)
	dl := e.seedDelivery(t, o.ID, d.ID, model.DeliveryStatusInTransit)
	err := e.cache.SetDriverLocation(context.Background(), dl.ID, &model.DriverLocation{
		DriverID: d.ID, Latitude: 6.9271, Longitude: 79.8612, UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return b, dl
}

// dialTracking 以买家身份建立追踪 WebSocket 连接
func dialTracking(t *testing.T, e *testEnv, serverURL, deliveryID, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws/deliveries/" + deliveryID + "/track"
	header := http.Header{}
	header.Set("Cookie", auth.CookieName+"="+token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	return conn
}

// TestTrackDeliveryWS 测试位置推送流
func TestTrackDeliveryWS(t *testing.T) {
	e := newTestEnv(t)
	b, dl := wsScenario(t, e)
	token := e.tokenFor(t, model.PrincipalBuyer, b.ID)

	server := newWSTestServer(e)
	defer server.Close()

	conn := dialTracking(t, e, server.URL, dl.ID, token)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * trackingPushInterval))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error: %v", err)
	}

	var msg TrackingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "location" {
		t.Errorf("type = %q, want location", msg.Type)
	}
	if msg.Status != model.DeliveryStatusInTransit {
		t.Errorf("status = %s", msg.Status)
	}
	if msg.Location == nil || msg.Location.Latitude != 6.9271 {
		t.Errorf("location = %+v", msg.Location)
	}
}

// TestTrackDeliveryWS_DeliveredEndsStream 测试送达后推送 done 并关闭
func TestTrackDeliveryWS_DeliveredEndsStream(t *testing.T) {
	e := newTestEnv(t)
	b, dl := wsScenario(t, e)
	token := e.tokenFor(t, model.PrincipalBuyer, b.ID)

	// 配送已送达
	dl.Status = model.DeliveryStatusDelivered
	dl.DeliveredAt = time.Now()
	if err := e.store.UpdateDeliveryStatus(context.Background(), dl); err != nil {
		t.Fatal(err)
	}

	server := newWSTestServer(e)
	defer server.Close()

	conn := dialTracking(t, e, server.URL, dl.ID, token)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * trackingPushInterval))
	var sawDone bool
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break // 服务端推完 done 后关闭
		}
		var msg TrackingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type == "done" {
			sawDone = true
			break
		}
	}
	if !sawDone {
		t.Error("stream must end with a done message for delivered deliveries")
	}
}

// TestTrackDeliveryWS_Rejections 测试握手前的 404/403
func TestTrackDeliveryWS_Rejections(t *testing.T) {
	e := newTestEnv(t)
	b, dl := wsScenario(t, e)
	stranger := e.seedBuyer(t, "stranger@example.com")

	server := newWSTestServer(e)
	defer server.Close()

	tests := []struct {
		name       string
		deliveryID string
		token      string
		wantStatus int
	}{
		{"配送不存在", "delivery-000000000000", e.tokenFor(t, model.PrincipalBuyer, b.ID), http.StatusNotFound},
		{"他人订单", dl.ID, e.tokenFor(t, model.PrincipalBuyer, stranger.ID), http.StatusForbidden},
		{"未认证", dl.ID, "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/deliveries/" + tt.deliveryID + "/track"
			header := http.Header{}
			if tt.token != "" {
				header.Set("Cookie", auth.CookieName+"="+tt.token)
			}
			_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
			if err == nil {
				t.Fatal("handshake must fail")
			}
			if resp == nil || resp.StatusCode != tt.wantStatus {
				code := 0
				if resp != nil {
					code = resp.StatusCode
				}
				t.Errorf("status = %d, want %d", code, tt.wantStatus)
			}
		})
	}
}
