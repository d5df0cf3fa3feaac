// mock.go 提供用于测试的内存实现
package storage

import (
	"context"
	"sync"
	"time"

	"freshly-market/internal/model"
)

// MemoryStore 内存版 PersistentStore（用于测试）
//
// 语义对齐 mongostore：查不到返回 (nil, nil)，
// 邮箱/order_id 唯一冲突返回 ErrDuplicate。
type MemoryStore struct {
	mu sync.RWMutex

	farmers    map[string]*model.Farmer
	buyers     map[string]*model.Buyer
	drivers    map[string]*model.Driver
	products   map[string]*model.Product
	orders     map[string]*model.Order
	reviews    map[string]*model.Review
	complaints map[string]*model.Complaint
	deliveries map[string]*model.Delivery
}

// NewMemoryStore 创建内存存储实例
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		farmers:    make(map[string]*model.Farmer),
		buyers:     make(map[string]*model.Buyer),
		drivers:    make(map[string]*model.Driver),
		products:   make(map[string]*model.Product),
		orders:     make(map[string]*model.Order),
		reviews:    make(map[string]*model.Review),
		complaints: make(map[string]*model.Complaint),
		deliveries: make(map[string]*model.Delivery),
	}
}

var _ PersistentStore = (*MemoryStore)(nil)

func (s *MemoryStore) Close() error { return nil }

// ============================================================================
// FarmerStore
// ============================================================================

func (s *MemoryStore) CreateFarmer(ctx context.Context, f *model.Farmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.farmers {
		if existing.Email == f.Email {
			return ErrDuplicate
		}
	}
	cp := *f
	s.farmers[f.ID] = &cp
	return nil
}

func (s *MemoryStore) GetFarmerByEmail(ctx context.Context, email string) (*model.Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.farmers {
		if f.Email == email {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetFarmerByID(ctx context.Context, id string) (*model.Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.farmers[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) UpdateFarmerProfile(ctx context.Context, f *model.Farmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.farmers[f.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = f.Name
	existing.Phone = f.Phone
	existing.NIC = f.NIC
	existing.FarmAddress = f.FarmAddress
	existing.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) UpdateFarmerPassword(ctx context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.farmers[id]
	if !ok {
		return ErrNotFound
	}
	f.PasswordHash = passwordHash
	return nil
}

func (s *MemoryStore) SetFarmerResetToken(ctx context.Context, id, tokenHash string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.farmers[id]
	if !ok {
		return ErrNotFound
	}
	f.ResetTokenHash = tokenHash
	f.ResetTokenExpiry = expiry
	return nil
}

func (s *MemoryStore) GetFarmerByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.farmers {
		if f.ResetTokenHash == tokenHash && f.ResetTokenExpiry.After(now) {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ClearFarmerResetToken(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.farmers[id]; ok {
		f.ResetTokenHash = ""
		f.ResetTokenExpiry = time.Time{}
	}
	return nil
}

func (s *MemoryStore) DeleteFarmer(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.farmers[id]; !ok {
		return ErrNotFound
	}
	delete(s.farmers, id)
	return nil
}

// ============================================================================
// BuyerStore
// ============================================================================

func (s *MemoryStore) CreateBuyer(ctx context.Context, b *model.Buyer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.buyers {
		if existing.Email == b.Email {
			return ErrDuplicate
		}
	}
	cp := *b
	s.buyers[b.ID] = &cp
	return nil
}

func (s *MemoryStore) GetBuyerByEmail(ctx context.Context, email string) (*model.Buyer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.buyers {
		if b.Email == email {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetBuyerByID(ctx context.Context, id string) (*model.Buyer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.buyers[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) UpdateBuyerProfile(ctx context.Context, b *model.Buyer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.buyers[b.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = b.Name
	existing.Phone = b.Phone
	existing.Address = b.Address
	existing.District = b.District
	existing.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) UpdateBuyerPassword(ctx context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buyers[id]
	if !ok {
		return ErrNotFound
	}
	b.PasswordHash = passwordHash
	return nil
}

func (s *MemoryStore) SetBuyerResetToken(ctx context.Context, id, tokenHash string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buyers[id]
	if !ok {
		return ErrNotFound
	}
	b.ResetTokenHash = tokenHash
	b.ResetTokenExpiry = expiry
	return nil
}

func (s *MemoryStore) GetBuyerByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.Buyer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.buyers {
		if b.ResetTokenHash == tokenHash && b.ResetTokenExpiry.After(now) {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ClearBuyerResetToken(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buyers[id]; ok {
		b.ResetTokenHash = ""
		b.ResetTokenExpiry = time.Time{}
	}
	return nil
}

func (s *MemoryStore) DeleteBuyer(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buyers[id]; !ok {
		return ErrNotFound
	}
	delete(s.buyers, id)
	return nil
}

// ============================================================================
// DriverStore
// ============================================================================

func (s *MemoryStore) CreateDriver(ctx context.Context, d *model.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.drivers {
		if existing.Email == d.Email {
			return ErrDuplicate
		}
	}
	cp := *d
	s.drivers[d.ID] = &cp
	return nil
}

func (s *MemoryStore) GetDriverByEmail(ctx context.Context, email string) (*model.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.drivers {
		if d.Email == email {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetDriverByID(ctx context.Context, id string) (*model.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.drivers[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) UpdateDriverProfile(ctx context.Context, d *model.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.drivers[d.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = d.Name
	existing.Phone = d.Phone
	existing.NIC = d.NIC
	existing.District = d.District
	existing.VehicleType = d.VehicleType
	existing.VehicleNumber = d.VehicleNumber
	existing.LicenseNo = d.LicenseNo
	existing.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) UpdateDriverPassword(ctx context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return ErrNotFound
	}
	d.PasswordHash = passwordHash
	return nil
}

func (s *MemoryStore) SetDriverResetToken(ctx context.Context, id, tokenHash string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return ErrNotFound
	}
	d.ResetTokenHash = tokenHash
	d.ResetTokenExpiry = expiry
	return nil
}

func (s *MemoryStore) GetDriverByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.drivers {
		if d.ResetTokenHash == tokenHash && d.ResetTokenExpiry.After(now) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ClearDriverResetToken(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.drivers[id]; ok {
		d.ResetTokenHash = ""
		d.ResetTokenExpiry = time.Time{}
	}
	return nil
}

func (s *MemoryStore) DeleteDriver(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drivers[id]; !ok {
		return ErrNotFound
	}
	delete(s.drivers, id)
	return nil
}

// ============================================================================
// ProductStore
// ============================================================================

func (s *MemoryStore) CreateProduct(ctx context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) ListProducts(ctx context.Context) ([]*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Product
	for _, p := range s.products {
		cp := *p
		result = append(result, &cp)
	}
	return result, nil
}

func (s *MemoryStore) ListProductsByCategory(ctx context.Context, category model.ProductCategory) ([]*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Product
	for _, p := range s.products {
		if p.Category == category {
			cp := *p
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *MemoryStore) ListProductsByFarmer(ctx context.Context, farmerID string) ([]*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Product
	for _, p := range s.products {
		if p.FarmerID == farmerID {
			cp := *p
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *MemoryStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	cp.UpdatedAt = time.Now()
	s.products[p.ID] = &cp
	return nil
}

func (s *MemoryStore) AdjustProductStock(ctx context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return ErrNotFound
	}
	if p.Stock+delta < 0 {
		return ErrConflict
	}
	p.Stock += delta
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

// ============================================================================
// OrderStore
// ============================================================================

func (s *MemoryStore) CreateOrder(ctx context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) ListOrdersByBuyer(ctx context.Context, buyerID string) ([]*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Order
	for _, o := range s.orders {
		if o.BuyerID == buyerID {
			cp := *o
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *MemoryStore) ListOrdersByStatus(ctx context.Context, status model.OrderStatus) ([]*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Order
	for _, o := range s.orders {
		if o.Status == status {
			cp := *o
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}

// ============================================================================
// ReviewStore
// ============================================================================

func (s *MemoryStore) CreateReview(ctx context.Context, r *model.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reviews {
		if existing.OrderID == r.OrderID && existing.ProductID == r.ProductID && existing.BuyerID == r.BuyerID {
			return ErrDuplicate
		}
	}
	cp := *r
	s.reviews[r.ID] = &cp
	return nil
}

func (s *MemoryStore) GetReview(ctx context.Context, id string) (*model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.reviews[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) ListReviewsByProduct(ctx context.Context, productID string) ([]*model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Review
	for _, r := range s.reviews {
		if r.ProductID == productID {
			cp := *r
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *MemoryStore) ListReviewsByBuyer(ctx context.Context, buyerID string) ([]*model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Review
	for _, r := range s.reviews {
		if r.BuyerID == buyerID {
			cp := *r
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *MemoryStore) UpdateReview(ctx context.Context, r *model.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[r.ID]; !ok {
		return ErrNotFound
	}
	cp := *r
	cp.UpdatedAt = time.Now()
	s.reviews[r.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteReview(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[id]; !ok {
		return ErrNotFound
	}
	delete(s.reviews, id)
	return nil
}

// ============================================================================
// ComplaintStore
// ============================================================================

func (s *MemoryStore) CreateComplaint(ctx context.Context, c *model.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.complaints[c.ID] = &cp
	return nil
}

func (s *MemoryStore) GetComplaint(ctx context.Context, id string) (*model.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.complaints[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) ListComplaintsByBuyer(ctx context.Context, buyerID string) ([]*model.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Complaint
	for _, c := range s.complaints {
		if c.BuyerID == buyerID {
			cp := *c
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *MemoryStore) UpdateComplaint(ctx context.Context, c *model.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.complaints[c.ID]; !ok {
		return ErrNotFound
	}
	cp := *c
	cp.UpdatedAt = time.Now()
	s.complaints[c.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteComplaint(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.complaints[id]; !ok {
		return ErrNotFound
	}
	delete(s.complaints, id)
	return nil
}

// ============================================================================
// DeliveryStore
// ============================================================================

func (s *MemoryStore) CreateDelivery(ctx context.Context, d *model.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.deliveries {
		if existing.OrderID == d.OrderID {
			return ErrDuplicate
		}
	}
	cp := *d
	s.deliveries[d.ID] = &cp
	return nil
}

func (s *MemoryStore) GetDelivery(ctx context.Context, id string) (*model.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.deliveries[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) GetDeliveryByOrder(ctx context.Context, orderID string) (*model.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.deliveries {
		if d.OrderID == orderID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListDeliveriesByDriver(ctx context.Context, driverID string) ([]*model.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Delivery
	for _, d := range s.deliveries {
		if d.DriverID == driverID {
			cp := *d
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *MemoryStore) UpdateDeliveryStatus(ctx context.Context, d *model.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.deliveries[d.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Status = d.Status
	existing.PickedUpAt = d.PickedUpAt
	existing.DeliveredAt = d.DeliveredAt
	existing.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DeleteDelivery(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliveries[id]; !ok {
		return ErrNotFound
	}
	delete(s.deliveries, id)
	return nil
}
