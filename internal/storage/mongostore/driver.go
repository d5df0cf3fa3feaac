package mongostore

import (
	"context"
	"time"

	"freshly-market/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ============================================================================
// DriverStore
// ============================================================================

func (s *Store) CreateDriver(ctx context.Context, d *model.Driver) error {
	return insertOne(ctx, s.col(ColDrivers), d)
}

func (s *Store) GetDriverByEmail(ctx context.Context, email string) (*model.Driver, error) {
	return findOne[model.Driver](ctx, s.col(ColDrivers), bson.D{{Key: "email", Value: email}})
}

func (s *Store) GetDriverByID(ctx context.Context, id string) (*model.Driver, error) {
	return findOne[model.Driver](ctx, s.col(ColDrivers), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) UpdateDriverProfile(ctx context.Context, d *model.Driver) error {
	return updateFields(ctx, s.col(ColDrivers), d.ID, bson.D{
		{Key: "name", Value: d.Name},
		{Key: "phone", Value: d.Phone},
		{Key: "nic", Value: d.NIC},
		{Key: "district", Value: d.District},
		{Key: "vehicle_type", Value: d.VehicleType},
		{Key: "vehicle_number", Value: d.VehicleNumber},
		{Key: "license_no", Value: d.LicenseNo},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) UpdateDriverPassword(ctx context.Context, id, passwordHash string) error {
	return updateFields(ctx, s.col(ColDrivers), id, bson.D{
		{Key: "password_hash", Value: passwordHash},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) SetDriverResetToken(ctx context.Context, id, tokenHash string, expiry time.Time) error {
	return updateFields(ctx, s.col(ColDrivers), id, bson.D{
		{Key: "reset_token_hash", Value: tokenHash},
		{Key: "reset_token_expiry", Value: expiry},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) GetDriverByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.Driver, error) {
	return findOne[model.Driver](ctx, s.col(ColDrivers), bson.D{
		{Key: "reset_token_hash", Value: tokenHash},
		{Key: "reset_token_expiry", Value: bson.D{{Key: "$gt", Value: now}}},
	})
}

func (s *Store) ClearDriverResetToken(ctx context.Context, id string) error {
	return unsetFields(ctx, s.col(ColDrivers), id, bson.D{
		{Key: "reset_token_hash", Value: ""},
		{Key: "reset_token_expiry", Value: ""},
	})
}

func (s *Store) DeleteDriver(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColDrivers), id)
}
