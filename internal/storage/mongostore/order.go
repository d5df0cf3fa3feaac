package mongostore

import (
	"context"
	"time"

	"freshly-market/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// OrderStore
// ============================================================================

func (s *Store) CreateOrder(ctx context.Context, o *model.Order) error {
	return insertOne(ctx, s.col(ColOrders), o)
}

func (s *Store) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return findOne[model.Order](ctx, s.col(ColOrders), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListOrdersByBuyer(ctx context.Context, buyerID string) ([]*model.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Order](ctx, s.col(ColOrders), bson.D{{Key: "buyer_id", Value: buyerID}}, opts)
}

func (s *Store) ListOrdersByStatus(ctx context.Context, status model.OrderStatus) ([]*model.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return findMany[model.Order](ctx, s.col(ColOrders), bson.D{{Key: "status", Value: status}}, opts)
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	return updateFields(ctx, s.col(ColOrders), id, bson.D{
		{Key: "status", Value: status},
		{Key: "updated_at", Value: time.Now()},
	})
}
