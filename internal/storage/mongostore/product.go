package mongostore

import (
	"context"
	"time"

	"freshly-market/internal/model"
	"freshly-market/internal/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// ProductStore
// ============================================================================

func (s *Store) CreateProduct(ctx context.Context, p *model.Product) error {
	return insertOne(ctx, s.col(ColProducts), p)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return findOne[model.Product](ctx, s.col(ColProducts), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListProducts(ctx context.Context) ([]*model.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Product](ctx, s.col(ColProducts), bson.D{}, opts)
}

func (s *Store) ListProductsByCategory(ctx context.Context, category model.ProductCategory) ([]*model.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Product](ctx, s.col(ColProducts), bson.D{{Key: "category", Value: category}}, opts)
}

func (s *Store) ListProductsByFarmer(ctx context.Context, farmerID string) ([]*model.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Product](ctx, s.col(ColProducts), bson.D{{Key: "farmer_id", Value: farmerID}}, opts)
}

// UpdateProduct 更新商品可变字段（farmer_id 创建后不可变，不参与更新）
func (s *Store) UpdateProduct(ctx context.Context, p *model.Product) error {
	return updateFields(ctx, s.col(ColProducts), p.ID, bson.D{
		{Key: "name", Value: p.Name},
		{Key: "description", Value: p.Description},
		{Key: "category", Value: p.Category},
		{Key: "price", Value: p.Price},
		{Key: "unit", Value: p.Unit},
		{Key: "stock", Value: p.Stock},
		{Key: "image_key", Value: p.ImageKey},
		{Key: "updated_at", Value: time.Now()},
	})
}

// AdjustProductStock 以 $inc 原子调整库存
//
// 扣减时过滤条件要求剩余库存足够，扣到负数直接落空，
// 由唯一一次条件更新替代读-改-写竞态。
func (s *Store) AdjustProductStock(ctx context.Context, id string, delta int) error {
	filter := bson.D{{Key: "_id", Value: id}}
	if delta < 0 {
		filter = append(filter, bson.E{Key: "stock", Value: bson.D{{Key: "$gte", Value: -delta}}})
	}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "stock", Value: delta}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now()}}},
	}
	res, err := s.col(ColProducts).UpdateOne(ctx, filter, update)
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount == 0 {
		// 区分商品不存在与库存不足
		p, err := s.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return storage.ErrNotFound
		}
		return storage.ErrConflict
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColProducts), id)
}
