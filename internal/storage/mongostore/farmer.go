package mongostore

import (
	"context"
	"time"

	"freshly-market/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ============================================================================
// FarmerStore
// ============================================================================

func (s *Store) CreateFarmer(ctx context.Context, f *model.Farmer) error {
	return insertOne(ctx, s.col(ColFarmers), f)
}

func (s *Store) GetFarmerByEmail(ctx context.Context, email string) (*model.Farmer, error) {
	return findOne[model.Farmer](ctx, s.col(ColFarmers), bson.D{{Key: "email", Value: email}})
}

func (s *Store) GetFarmerByID(ctx context.Context, id string) (*model.Farmer, error) {
	return findOne[model.Farmer](ctx, s.col(ColFarmers), bson.D{{Key: "_id", Value: id}})
}

// UpdateFarmerProfile 更新农户资料字段（不触碰密码与重置字段）
func (s *Store) UpdateFarmerProfile(ctx context.Context, f *model.Farmer) error {
	return updateFields(ctx, s.col(ColFarmers), f.ID, bson.D{
		{Key: "name", Value: f.Name},
		{Key: "phone", Value: f.Phone},
		{Key: "nic", Value: f.NIC},
		{Key: "farm_address", Value: f.FarmAddress},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) UpdateFarmerPassword(ctx context.Context, id, passwordHash string) error {
	return updateFields(ctx, s.col(ColFarmers), id, bson.D{
		{Key: "password_hash", Value: passwordHash},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) SetFarmerResetToken(ctx context.Context, id, tokenHash string, expiry time.Time) error {
	return updateFields(ctx, s.col(ColFarmers), id, bson.D{
		{Key: "reset_token_hash", Value: tokenHash},
		{Key: "reset_token_expiry", Value: expiry},
		{Key: "updated_at", Value: time.Now()},
	})
}

// GetFarmerByResetToken 按重置 token 哈希查找农户，过期的记录视为不存在
func (s *Store) GetFarmerByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.Farmer, error) {
	return findOne[model.Farmer](ctx, s.col(ColFarmers), bson.D{
		{Key: "reset_token_hash", Value: tokenHash},
		{Key: "reset_token_expiry", Value: bson.D{{Key: "$gt", Value: now}}},
	})
}

func (s *Store) ClearFarmerResetToken(ctx context.Context, id string) error {
	return unsetFields(ctx, s.col(ColFarmers), id, bson.D{
		{Key: "reset_token_hash", Value: ""},
		{Key: "reset_token_expiry", Value: ""},
	})
}

func (s *Store) DeleteFarmer(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColFarmers), id)
}
