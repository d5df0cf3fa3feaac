package model

import "time"

// MaxReviewPictures 单条评价最多上传的图片数
const MaxReviewPictures = 3

// Review 商品评价（买家拥有）
//
// 按买家维度建模（buyer_id + order_id + product_id），带认证与图片上传。
// PictureKeys 为对象存储键列表，评价删除时触发尽力而为的清理。
type Review struct {
	ID          string   `json:"reviewId" bson:"_id"`
	BuyerID     string   `json:"buyerId" bson:"buyer_id"`
	OrderID     string   `json:"orderId" bson:"order_id"`
	ProductID   string   `json:"productId" bson:"product_id"`
	Rating      int      `json:"rating" bson:"rating"` // 1-5
	Comment     string   `json:"comment" bson:"comment"`
	PictureKeys []string `json:"pictureKeys,omitempty" bson:"picture_keys,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// ComplaintStatus 投诉状态
type ComplaintStatus string

const (
	ComplaintStatusOpen     ComplaintStatus = "open"
	ComplaintStatusResolved ComplaintStatus = "resolved"
)

// Complaint 投诉（买家拥有）
type Complaint struct {
	ID          string          `json:"complaintId" bson:"_id"`
	BuyerID     string          `json:"buyerId" bson:"buyer_id"`
	OrderID     string          `json:"orderId,omitempty" bson:"order_id,omitempty"`
	Subject     string          `json:"subject" bson:"subject"`
	Description string          `json:"description" bson:"description"`
	Status      ComplaintStatus `json:"status" bson:"status"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
