// Package storage 持久化存储接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：mongostore/
//   - 初始化时通过依赖注入传入实现
package storage

import (
	"context"
	"time"

	"freshly-market/internal/model"
)

// FarmerStore 农户存储
type FarmerStore interface {
	CreateFarmer(ctx context.Context, f *model.Farmer) error
	GetFarmerByEmail(ctx context.Context, email string) (*model.Farmer, error)
	GetFarmerByID(ctx context.Context, id string) (*model.Farmer, error)
	UpdateFarmerProfile(ctx context.Context, f *model.Farmer) error
	UpdateFarmerPassword(ctx context.Context, id, passwordHash string) error
	SetFarmerResetToken(ctx context.Context, id, tokenHash string, expiry time.Time) error
	GetFarmerByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.Farmer, error)
	ClearFarmerResetToken(ctx context.Context, id string) error
	DeleteFarmer(ctx context.Context, id string) error
}

// BuyerStore 买家存储
type BuyerStore interface {
	CreateBuyer(ctx context.Context, b *model.Buyer) error
	GetBuyerByEmail(ctx context.Context, email string) (*model.Buyer, error)
	GetBuyerByID(ctx context.Context, id string) (*model.Buyer, error)
	UpdateBuyerProfile(ctx context.Context, b *model.Buyer) error
	UpdateBuyerPassword(ctx context.Context, id, passwordHash string) error
	SetBuyerResetToken(ctx context.Context, id, tokenHash string, expiry time.Time) error
	GetBuyerByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.Buyer, error)
	ClearBuyerResetToken(ctx context.Context, id string) error
	DeleteBuyer(ctx context.Context, id string) error
}

// DriverStore 司机存储
type DriverStore interface {
	CreateDriver(ctx context.Context, d *model.Driver) error
	GetDriverByEmail(ctx context.Context, email string) (*model.Driver, error)
	GetDriverByID(ctx context.Context, id string) (*model.Driver, error)
	UpdateDriverProfile(ctx context.Context, d *model.Driver) error
	UpdateDriverPassword(ctx context.Context, id, passwordHash string) error
	SetDriverResetToken(ctx context.Context, id, tokenHash string, expiry time.Time) error
	GetDriverByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.Driver, error)
	ClearDriverResetToken(ctx context.Context, id string) error
	DeleteDriver(ctx context.Context, id string) error
}

// ProductStore 商品存储
type ProductStore interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context) ([]*model.Product, error)
	ListProductsByCategory(ctx context.Context, category model.ProductCategory) ([]*model.Product, error)
	ListProductsByFarmer(ctx context.Context, farmerID string) ([]*model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) error
	// AdjustProductStock 按 delta 原子调整库存；调整后库存为负时
	// 不写入并返回 ErrConflict。
	AdjustProductStock(ctx context.Context, id string, delta int) error
	DeleteProduct(ctx context.Context, id string) error
}

// OrderStore 订单存储
type OrderStore interface {
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrdersByBuyer(ctx context.Context, buyerID string) ([]*model.Order, error)
	ListOrdersByStatus(ctx context.Context, status model.OrderStatus) ([]*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error
}

// ReviewStore 评价存储
type ReviewStore interface {
	CreateReview(ctx context.Context, r *model.Review) error
	GetReview(ctx context.Context, id string) (*model.Review, error)
	ListReviewsByProduct(ctx context.Context, productID string) ([]*model.Review, error)
	ListReviewsByBuyer(ctx context.Context, buyerID string) ([]*model.Review, error)
	UpdateReview(ctx context.Context, r *model.Review) error
	DeleteReview(ctx context.Context, id string) error
}

// ComplaintStore 投诉存储
type ComplaintStore interface {
	CreateComplaint(ctx context.Context, c *model.Complaint) error
	GetComplaint(ctx context.Context, id string) (*model.Complaint, error)
	ListComplaintsByBuyer(ctx context.Context, buyerID string) ([]*model.Complaint, error)
	UpdateComplaint(ctx context.Context, c *model.Complaint) error
	DeleteComplaint(ctx context.Context, id string) error
}

// DeliveryStore 配送存储
type DeliveryStore interface {
	CreateDelivery(ctx context.Context, d *model.Delivery) error
	GetDelivery(ctx context.Context, id string) (*model.Delivery, error)
	GetDeliveryByOrder(ctx context.Context, orderID string) (*model.Delivery, error)
	ListDeliveriesByDriver(ctx context.Context, driverID string) ([]*model.Delivery, error)
	UpdateDeliveryStatus(ctx context.Context, d *model.Delivery) error
	// DeleteDelivery 释放配送记录（订单取消时回收，order_id 唯一索引
	// 保证此后可被重新认领）。
	DeleteDelivery(ctx context.Context, id string) error
}

// PersistentStore 持久化存储的完整接口
type PersistentStore interface {
	FarmerStore
	BuyerStore
	DriverStore
	ProductStore
	OrderStore
	ReviewStore
	ComplaintStore
	DeliveryStore

	Close() error
}
