// Package model 定义 Freshly.lk 市场的领域模型
//
// 三类主体（Principal）：农户（Farmer）、买家（Buyer）、司机（Driver），
// 各自独立的集合，邮箱在集合内唯一（非全局唯一）。
// 资源（Product/Order/Review/Complaint/Delivery）在创建时记录归属主体 ID，
// 归属关系创建后不可变。
package model

import "time"

// PrincipalType 主体类型
type PrincipalType string

const (
	PrincipalFarmer PrincipalType = "farmer"
	PrincipalBuyer  PrincipalType = "buyer"
	PrincipalDriver PrincipalType = "driver"
)

// Valid 是否为已知主体类型
func (t PrincipalType) Valid() bool {
	switch t {
	case PrincipalFarmer, PrincipalBuyer, PrincipalDriver:
		return true
	}
	return false
}

// FarmAddress 农场地址
type FarmAddress struct {
	StreetNo string `json:"streetNo" bson:"street_no"`
	City     string `json:"city" bson:"city"`
	District string `json:"district" bson:"district"`
}

// Farmer 农户主体
type Farmer struct {
	ID           string      `json:"farmerId" bson:"_id"`
	Name         string      `json:"name" bson:"name"`
	Email        string      `json:"email" bson:"email"`
	PasswordHash string      `json:"-" bson:"password_hash"` // never expose in JSON
	Phone        string      `json:"phone" bson:"phone"`
	NIC          string      `json:"nic" bson:"nic"`
	FarmAddress  FarmAddress `json:"farmAddress" bson:"farm_address"`

	// 密码重置字段：仅存 token 哈希，重置成功后清空
	ResetTokenHash   string    `json:"-" bson:"reset_token_hash,omitempty"`
	ResetTokenExpiry time.Time `json:"-" bson:"reset_token_expiry,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Buyer 买家主体
type Buyer struct {
	ID           string `json:"buyerId" bson:"_id"`
	Name         string `json:"name" bson:"name"`
	Email        string `json:"email" bson:"email"`
	PasswordHash string `json:"-" bson:"password_hash"`
	Phone        string `json:"phone" bson:"phone"`
	Address      string `json:"address" bson:"address"`
	District     string `json:"district" bson:"district"`

	ResetTokenHash   string    `json:"-" bson:"reset_token_hash,omitempty"`
	ResetTokenExpiry time.Time `json:"-" bson:"reset_token_expiry,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Driver 司机主体
type Driver struct {
	ID           string `json:"driverId" bson:"_id"`
	Name         string `json:"name" bson:"name"`
	Email        string `json:"email" bson:"email"`
	PasswordHash string `json:"-" bson:"password_hash"`
	Phone        string `json:"phone" bson:"phone"`
	NIC          string `json:"nic" bson:"nic"`
	District     string `json:"district" bson:"district"`

	// 车辆信息
	VehicleType   string `json:"vehicleType" bson:"vehicle_type"`
	VehicleNumber string `json:"vehicleNumber" bson:"vehicle_number"`
	LicenseNo     string `json:"licenseNo" bson:"license_no"`

	ResetTokenHash   string    `json:"-" bson:"reset_token_hash,omitempty"`
	ResetTokenExpiry time.Time `json:"-" bson:"reset_token_expiry,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
