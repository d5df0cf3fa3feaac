package server

import (
	"encoding/json"
	"net/http"
	"time"

	"freshly-market/internal/apiserver/auth"
	"freshly-market/internal/model"
)

// ============================================================================
// 评价：买家发表 / 修改 / 删除，商品维度公开查询
// ============================================================================

type reviewRequest struct {
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// CreateReview POST /api/v1/reviews
//
// 只能评价自己订单中的商品。
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalBuyer)

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}
	if req.OrderID == "" || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "orderId and productId are required")
		return
	}

	order, err := h.store.GetOrder(r.Context(), req.OrderID)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if !auth.SameID(order.BuyerID, p.ID) {
		writeError(w, http.StatusForbidden, "order belongs to another buyer")
		return
	}
	found := false
	for _, item := range order.Items {
		if item.ProductID == req.ProductID {
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusBadRequest, "product is not part of the order")
		return
	}

	review := &model.Review{
		ID:        generateID("review"),
		BuyerID:   p.ID,
		OrderID:   req.OrderID,
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: time.Now(),
	}
	if err := h.store.CreateReview(r.Context(), review); err != nil {
		writeStoreError(w, err, "review already exists for this order item")
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// ListProductReviews GET /api/v1/products/{id}/reviews
func (h *Handler) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.store.ListReviewsByProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if reviews == nil {
		reviews = []*model.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

// ListMyReviews GET /api/v1/reviews
func (h *Handler) ListMyReviews(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalBuyer)
	reviews, err := h.store.ListReviewsByBuyer(r.Context(), p.ID)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if reviews == nil {
		reviews = []*model.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

// ownedReview 取评价并校验归属：不存在返回 404，归属他人返回 403
func (h *Handler) ownedReview(w http.ResponseWriter, r *http.Request) *model.Review {
	review, err := h.store.GetReview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "")
		return nil
	}
	if review == nil {
		writeError(w, http.StatusNotFound, "review not found")
		return nil
	}
	p := auth.GetPrincipal(r.Context(), model.PrincipalBuyer)
	if !auth.SameID(review.BuyerID, p.ID) {
		writeError(w, http.StatusForbidden, "review belongs to another buyer")
		return nil
	}
	return review
}

// UpdateReview PUT /api/v1/reviews/{id}
func (h *Handler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	review := h.ownedReview(w, r)
	if review == nil {
		return
	}
	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}
	review.Rating = req.Rating
	review.Comment = req.Comment
	if err := h.store.UpdateReview(r.Context(), review); err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// DeleteReview DELETE /api/v1/reviews/{id}
//
// 删除成功后异步清理评价图片。
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	review := h.ownedReview(w, r)
	if review == nil {
		return
	}
	if err := h.store.DeleteReview(r.Context(), review.ID); err != nil {
		writeStoreError(w, err, "")
		return
	}
	if len(review.PictureKeys) > 0 {
		h.objects.CleanupAsync(review.PictureKeys)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "review deleted"})
}
