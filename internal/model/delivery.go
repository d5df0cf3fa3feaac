package model

import "time"

// DeliveryStatus 配送状态
type DeliveryStatus string

const (
	DeliveryStatusAssigned  DeliveryStatus = "assigned"
	DeliveryStatusPickedUp  DeliveryStatus = "picked_up"
	DeliveryStatusInTransit DeliveryStatus = "in_transit"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
)

// Valid 是否为已知配送状态
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusAssigned, DeliveryStatusPickedUp, DeliveryStatusInTransit, DeliveryStatusDelivered:
		return true
	}
	return false
}

// CanTransitionTo 配送状态迁移规则：assigned → picked_up → in_transit → delivered
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	switch s {
	case DeliveryStatusAssigned:
		return next == DeliveryStatusPickedUp
	case DeliveryStatusPickedUp:
		return next == DeliveryStatusInTransit
	case DeliveryStatusInTransit:
		return next == DeliveryStatusDelivered
	}
	return false
}

// Delivery 配送记录（司机拥有）
//
// 司机接单时创建，归属司机 ID 创建后不可变。
// 实时位置不落库，走 Redis 缓存（带 TTL），此处只保留状态流转。
type Delivery struct {
	ID       string         `json:"deliveryId" bson:"_id"`
	OrderID  string         `json:"orderId" bson:"order_id"`
	DriverID string         `json:"driverId" bson:"driver_id"`
	Status   DeliveryStatus `json:"status" bson:"status"`

	PickedUpAt  time.Time `json:"picked_up_at,omitzero" bson:"picked_up_at,omitempty"`
	DeliveredAt time.Time `json:"delivered_at,omitzero" bson:"delivered_at,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// DriverLocation 司机实时位置（仅存 Redis，带 TTL）
type DriverLocation struct {
	DriverID  string    `json:"driverId"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}
