package model

import "time"

// ProductCategory 商品类目
type ProductCategory string

const (
	CategoryVegetables ProductCategory = "vegetables"
	CategoryFruits     ProductCategory = "fruits"
	CategoryGrains     ProductCategory = "grains"
	CategorySpices     ProductCategory = "spices"
	CategoryDairy      ProductCategory = "dairy"
	CategoryOther      ProductCategory = "other"
)

// Valid 是否为已知类目
func (c ProductCategory) Valid() bool {
	switch c {
	case CategoryVegetables, CategoryFruits, CategoryGrains, CategorySpices, CategoryDairy, CategoryOther:
		return true
	}
	return false
}

// Product 农产品
//
// FarmerID 为归属农户 ID，创建后不可变；
// ImageKey 为对象存储中的图片键，商品删除时触发尽力而为的清理。
type Product struct {
	ID          string          `json:"productId" bson:"_id"`
	FarmerID    string          `json:"farmerId" bson:"farmer_id"`
	Name        string          `json:"name" bson:"name"`
	Description string          `json:"description" bson:"description"`
	Category    ProductCategory `json:"category" bson:"category"`
	Price       float64         `json:"price" bson:"price"` // 单价（LKR）
	Unit        string          `json:"unit" bson:"unit"`   // 例如 "kg"、"bundle"
	Stock       int             `json:"stock" bson:"stock"` // 库存数量
	ImageKey    string          `json:"imageKey,omitempty" bson:"image_key,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
