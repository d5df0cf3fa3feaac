package mongostore

import (
	"context"
	"time"

	"freshly-market/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ============================================================================
// BuyerStore
// ============================================================================

func (s *Store) CreateBuyer(ctx context.Context, b *model.Buyer) error {
	return insertOne(ctx, s.col(ColBuyers), b)
}

func (s *Store) GetBuyerByEmail(ctx context.Context, email string) (*model.Buyer, error) {
	return findOne[model.Buyer](ctx, s.col(ColBuyers), bson.D{{Key: "email", Value: email}})
}

func (s *Store) GetBuyerByID(ctx context.Context, id string) (*model.Buyer, error) {
	return findOne[model.Buyer](ctx, s.col(ColBuyers), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) UpdateBuyerProfile(ctx context.Context, b *model.Buyer) error {
	return updateFields(ctx, s.col(ColBuyers), b.ID, bson.D{
		{Key: "name", Value: b.Name},
		{Key: "phone", Value: b.Phone},
		{Key: "address", Value: b.Address},
		{Key: "district", Value: b.District},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) UpdateBuyerPassword(ctx context.Context, id, passwordHash string) error {
	return updateFields(ctx, s.col(ColBuyers), id, bson.D{
		{Key: "password_hash", Value: passwordHash},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) SetBuyerResetToken(ctx context.Context, id, tokenHash string, expiry time.Time) error {
	return updateFields(ctx, s.col(ColBuyers), id, bson.D{
		{Key: "reset_token_hash", Value: tokenHash},
		{Key: "reset_token_expiry", Value: expiry},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) GetBuyerByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.Buyer, error) {
	return findOne[model.Buyer](ctx, s.col(ColBuyers), bson.D{
		{Key: "reset_token_hash", Value: tokenHash},
		{Key: "reset_token_expiry", Value: bson.D{{Key: "$gt", Value: now}}},
	})
}

func (s *Store) ClearBuyerResetToken(ctx context.Context, id string) error {
	return unsetFields(ctx, s.col(ColBuyers), id, bson.D{
		{Key: "reset_token_hash", Value: ""},
		{Key: "reset_token_expiry", Value: ""},
	})
}

func (s *Store) DeleteBuyer(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColBuyers), id)
}
