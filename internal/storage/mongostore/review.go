package mongostore

import (
	"context"
	"time"

	"freshly-market/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// ReviewStore
// ============================================================================

func (s *Store) CreateReview(ctx context.Context, r *model.Review) error {
	return insertOne(ctx, s.col(ColReviews), r)
}

func (s *Store) GetReview(ctx context.Context, id string) (*model.Review, error) {
	return findOne[model.Review](ctx, s.col(ColReviews), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListReviewsByProduct(ctx context.Context, productID string) ([]*model.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Review](ctx, s.col(ColReviews), bson.D{{Key: "product_id", Value: productID}}, opts)
}

func (s *Store) ListReviewsByBuyer(ctx context.Context, buyerID string) ([]*model.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Review](ctx, s.col(ColReviews), bson.D{{Key: "buyer_id", Value: buyerID}}, opts)
}

// UpdateReview 更新评分、评论与图片键（归属字段创建后不可变，不参与更新）
func (s *Store) UpdateReview(ctx context.Context, r *model.Review) error {
	return updateFields(ctx, s.col(ColReviews), r.ID, bson.D{
		{Key: "rating", Value: r.Rating},
		{Key: "comment", Value: r.Comment},
		{Key: "picture_keys", Value: r.PictureKeys},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColReviews), id)
}

// ============================================================================
// ComplaintStore
// ============================================================================

func (s *Store) CreateComplaint(ctx context.Context, c *model.Complaint) error {
	return insertOne(ctx, s.col(ColComplaints), c)
}

func (s *Store) GetComplaint(ctx context.Context, id string) (*model.Complaint, error) {
	return findOne[model.Complaint](ctx, s.col(ColComplaints), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListComplaintsByBuyer(ctx context.Context, buyerID string) ([]*model.Complaint, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Complaint](ctx, s.col(ColComplaints), bson.D{{Key: "buyer_id", Value: buyerID}}, opts)
}

func (s *Store) UpdateComplaint(ctx context.Context, c *model.Complaint) error {
	return updateFields(ctx, s.col(ColComplaints), c.ID, bson.D{
		{Key: "subject", Value: c.Subject},
		{Key: "description", Value: c.Description},
		{Key: "status", Value: c.Status},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) DeleteComplaint(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColComplaints), id)
}
