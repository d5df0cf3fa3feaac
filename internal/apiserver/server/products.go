package server

import (
	"encoding/json"
	"net/http"
	"time"

	"freshly-market/internal/apiserver/auth"
	"freshly-market/internal/model"
)

// ============================================================================
// 商品：公开浏览 + 农户侧 CRUD
//
// 读接口公开；写接口要求农户令牌，且只能操作归属自己的商品。
// ============================================================================

type productRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Category    model.ProductCategory `json:"category"`
	Price       float64               `json:"price"`
	Unit        string                `json:"unit"`
	Stock       int                   `json:"stock"`
}

func (req *productRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if !req.Category.Valid() {
		return "unknown category"
	}
	if req.Price <= 0 {
		return "price must be positive"
	}
	if req.Stock < 0 {
		return "stock cannot be negative"
	}
	return ""
}

// CreateProduct POST /api/v1/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalFarmer)

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	product := &model.Product{
		ID:          generateID("product"),
		FarmerID:    p.ID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Unit:        req.Unit,
		Stock:       req.Stock,
		CreatedAt:   time.Now(),
	}
	if err := h.store.CreateProduct(r.Context(), product); err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// ListProducts GET /api/v1/products[?category=...|farmerId=...]
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []*model.Product
		err      error
	)
	switch {
	case r.URL.Query().Get("category") != "":
		category := model.ProductCategory(r.URL.Query().Get("category"))
		if !category.Valid() {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		products, err = h.store.ListProductsByCategory(r.Context(), category)
	case r.URL.Query().Get("farmerId") != "":
		products, err = h.store.ListProductsByFarmer(r.Context(), r.URL.Query().Get("farmerId"))
	default:
		products, err = h.store.ListProducts(r.Context())
	}
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if products == nil {
		products = []*model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProduct GET /api/v1/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.store.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// ListMyProducts GET /api/v1/farmers/products
func (h *Handler) ListMyProducts(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalFarmer)
	products, err := h.store.ListProductsByFarmer(r.Context(), p.ID)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if products == nil {
		products = []*model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// ownedProduct 取商品并校验归属：不存在返回 404，归属他人返回 403
func (h *Handler) ownedProduct(w http.ResponseWriter, r *http.Request) *model.Product {
	product, err := h.store.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "")
		return nil
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return nil
	}
	p := auth.GetPrincipal(r.Context(), model.PrincipalFarmer)
	if !auth.SameID(product.FarmerID, p.ID) {
		writeError(w, http.StatusForbidden, "product belongs to another farmer")
		return nil
	}
	return product
}

// UpdateProduct PUT /api/v1/products/{id}
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	product := h.ownedProduct(w, r)
	if product == nil {
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	product.Name = req.Name
	product.Description = req.Description
	product.Category = req.Category
	product.Price = req.Price
	product.Unit = req.Unit
	product.Stock = req.Stock
	if err := h.store.UpdateProduct(r.Context(), product); err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct DELETE /api/v1/products/{id}
//
// 删除成功后异步清理对象存储中的图片，失败只记日志。
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	product := h.ownedProduct(w, r)
	if product == nil {
		return
	}
	if err := h.store.DeleteProduct(r.Context(), product.ID); err != nil {
		writeStoreError(w, err, "")
		return
	}
	if product.ImageKey != "" {
		h.objects.CleanupAsync([]string{product.ImageKey})
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}
