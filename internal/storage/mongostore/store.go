// Package mongostore 实现基于 MongoDB 的 PersistentStore
//
// 使用 mongo-go-driver v2，通过 bson tag 实现 model 结构体的序列化/反序列化。
// 所有 Collection 名称和索引在 ensureIndexes 中统一管理。
package mongostore

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection 名称常量
const (
	ColFarmers    = "farmers"
	ColBuyers     = "buyers"
	ColDrivers    = "drivers"
	ColProducts   = "products"
	ColOrders     = "orders"
	ColReviews    = "reviews"
	ColComplaints = "complaints"
	ColDeliveries = "deliveries"
)

// Store 实现 storage.PersistentStore 接口的 MongoDB 驱动
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore 创建 MongoDB 存储实例
//
// uri: MongoDB 连接 URI，如 "mongodb://localhost:27017"
// dbName: 数据库名称，如 "freshly_market"
func NewStore(uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect failed: %w", err)
	}

	// 验证连接
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongostore: ping failed: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{client: client, db: db}

	// 创建索引
	if err := s.ensureIndexes(ctx); err != nil {
		log.Printf("WARNING: mongostore: ensure indexes failed: %v", err)
	}

	return s, nil
}

// Close 关闭 MongoDB 连接
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// col 获取指定 Collection
func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// ensureIndexes 创建所有必要的索引
//
// 邮箱唯一索引按主体集合各自建立（邮箱在集合内唯一，非全局唯一），
// 注册时的重复邮箱最终由该索引兜底，避免先查后插的竞态。
func (s *Store) ensureIndexes(ctx context.Context) error {
	type idx struct {
		col    string
		keys   bson.D
		unique bool
	}

	indexes := []idx{
		// farmers
		{ColFarmers, bson.D{{Key: "email", Value: 1}}, true},
		{ColFarmers, bson.D{{Key: "reset_token_hash", Value: 1}}, false},

		// buyers
		{ColBuyers, bson.D{{Key: "email", Value: 1}}, true},
		{ColBuyers, bson.D{{Key: "reset_token_hash", Value: 1}}, false},

		// drivers
		{ColDrivers, bson.D{{Key: "email", Value: 1}}, true},

		// products
		{ColProducts, bson.D{{Key: "farmer_id", Value: 1}}, false},
		{ColProducts, bson.D{{Key: "category", Value: 1}}, false},
		{ColProducts, bson.D{{Key: "created_at", Value: -1}}, false},

		// orders
		{ColOrders, bson.D{{Key: "buyer_id", Value: 1}}, false},
		{ColOrders, bson.D{{Key: "status", Value: 1}}, false},
		{ColOrders, bson.D{{Key: "created_at", Value: -1}}, false},

		// reviews：同一买家对同一订单内的同一商品只能评价一次
		{ColReviews, bson.D{{Key: "buyer_id", Value: 1}, {Key: "order_id", Value: 1}, {Key: "product_id", Value: 1}}, true},
		{ColReviews, bson.D{{Key: "product_id", Value: 1}}, false},

		// complaints
		{ColComplaints, bson.D{{Key: "buyer_id", Value: 1}}, false},

		// deliveries
		{ColDeliveries, bson.D{{Key: "driver_id", Value: 1}}, false},
		{ColDeliveries, bson.D{{Key: "order_id", Value: 1}}, true},
	}

	for _, i := range indexes {
		model := mongo.IndexModel{Keys: i.keys}
		if i.unique {
			model.Options = options.Index().SetUnique(true)
		}
		if _, err := s.col(i.col).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", i.col, err)
		}
	}

	return nil
}
