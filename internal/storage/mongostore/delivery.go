package mongostore

import (
	"context"
	"time"

	"freshly-market/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// DeliveryStore
// ============================================================================

func (s *Store) CreateDelivery(ctx context.Context, d *model.Delivery) error {
	return insertOne(ctx, s.col(ColDeliveries), d)
}

func (s *Store) GetDelivery(ctx context.Context, id string) (*model.Delivery, error) {
	return findOne[model.Delivery](ctx, s.col(ColDeliveries), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetDeliveryByOrder(ctx context.Context, orderID string) (*model.Delivery, error) {
	return findOne[model.Delivery](ctx, s.col(ColDeliveries), bson.D{{Key: "order_id", Value: orderID}})
}

func (s *Store) ListDeliveriesByDriver(ctx context.Context, driverID string) ([]*model.Delivery, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Delivery](ctx, s.col(ColDeliveries), bson.D{{Key: "driver_id", Value: driverID}}, opts)
}

// UpdateDeliveryStatus 更新配送状态及时间戳
func (s *Store) UpdateDeliveryStatus(ctx context.Context, d *model.Delivery) error {
	update := bson.D{
		{Key: "status", Value: d.Status},
		{Key: "updated_at", Value: time.Now()},
	}
	if !d.PickedUpAt.IsZero() {
		update = append(update, bson.E{Key: "picked_up_at", Value: d.PickedUpAt})
	}
	if !d.DeliveredAt.IsZero() {
		update = append(update, bson.E{Key: "delivered_at", Value: d.DeliveredAt})
	}
	return updateFields(ctx, s.col(ColDeliveries), d.ID, update)
}

func (s *Store) DeleteDelivery(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColDeliveries), id)
}
