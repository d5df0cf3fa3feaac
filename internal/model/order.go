package model

import "time"

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"    // 买家已下单，待司机接单
	OrderStatusAccepted  OrderStatus = "accepted"   // 司机已接单
	OrderStatusInTransit OrderStatus = "in_transit" // 配送中
	OrderStatusDelivered OrderStatus = "delivered"  // 已送达
	OrderStatusCancelled OrderStatus = "cancelled"  // 已取消
)

// Valid 是否为已知订单状态
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusInTransit, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo 订单状态迁移规则
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusAccepted || next == OrderStatusCancelled
	case OrderStatusAccepted:
		return next == OrderStatusInTransit || next == OrderStatusCancelled
	case OrderStatusInTransit:
		return next == OrderStatusDelivered
	}
	return false
}

// OrderItem 订单行
//
// Price 为下单时刻从商品文档取得的快照单价，与后续商品改价无关。
type OrderItem struct {
	ProductID string  `json:"productId" bson:"product_id"`
	Name      string  `json:"name" bson:"name"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	Price     float64 `json:"price" bson:"price"`
}

// Order 订单（买家拥有）
type Order struct {
	ID              string      `json:"orderId" bson:"_id"`
	BuyerID         string      `json:"buyerId" bson:"buyer_id"`
	Items           []OrderItem `json:"items" bson:"items"`
	Total           float64     `json:"total" bson:"total"` // 服务端按存储单价计算
	Status          OrderStatus `json:"status" bson:"status"`
	DeliveryAddress string      `json:"deliveryAddress" bson:"delivery_address"`
	District        string      `json:"district" bson:"district"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
