package server

import (
	"encoding/json"
	"net/http"
	"time"

	"freshly-market/internal/apiserver/auth"
	"freshly-market/internal/model"
)

// ============================================================================
// 投诉：买家提交 / 查询 / 修改 / 删除
// ============================================================================

// CreateComplaint POST /api/v1/complaints
func (h *Handler) CreateComplaint(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalBuyer)

	var req struct {
		OrderID     string `json:"orderId"`
		Subject     string `json:"subject"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Subject == "" || req.Description == "" {
		writeError(w, http.StatusBadRequest, "subject and description are required")
		return
	}
	// 关联订单可选，给了就必须是本人的
	if req.OrderID != "" {
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
	}

	complaint := &model.Complaint{
		ID:          generateID("complaint"),
		BuyerID:     p.ID,
		OrderID:     req.OrderID,
		Subject:     req.Subject,
		Description: req.Description,
		Status:      model.ComplaintStatusOpen,
		CreatedAt:   time.Now(),
	}
	if err := h.store.CreateComplaint(r.Context(), complaint); err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, complaint)
}

// ListMyComplaints GET /api/v1/complaints
func (h *Handler) ListMyComplaints(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context(), model.PrincipalBuyer)
	complaints, err := h.store.ListComplaintsByBuyer(r.Context(), p.ID)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	if complaints == nil {
		complaints = []*model.Complaint{}
	}
	writeJSON(w, http.StatusOK, complaints)
}

// ownedComplaint 取投诉并校验归属：不存在返回 404，归属他人返回 403
func (h *Handler) ownedComplaint(w http.ResponseWriter, r *http.Request) *model.Complaint {
	complaint, err := h.store.GetComplaint(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err, "")
		return nil
	}
	if complaint == nil {
		writeError(w, http.StatusNotFound, "complaint not found")
		return nil
	}
	p := auth.GetPrincipal(r.Context(), model.PrincipalBuyer)
	if !auth.SameID(complaint.BuyerID, p.ID) {
		writeError(w, http.StatusForbidden, "complaint belongs to another buyer")
		return nil
	}
	return complaint
}

// GetComplaint GET /api/v1/complaints/{id}
func (h *Handler) GetComplaint(w http.ResponseWriter, r *http.Request) {
	complaint := h.ownedComplaint(w, r)
	if complaint == nil {
		return
	}
	writeJSON(w, http.StatusOK, complaint)
}

// UpdateComplaint PUT /api/v1/complaints/{id}
//
// 已解决的投诉不可再修改。
func (h *Handler) UpdateComplaint(w http.ResponseWriter, r *http.Request) {
	complaint := h.ownedComplaint(w, r)
	if complaint == nil {
		return
	}
	if complaint.Status == model.ComplaintStatusResolved {
		writeError(w, http.StatusConflict, "complaint already resolved")
		return
	}
	var req struct {
		Subject     string `json:"subject"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Subject != "" {
		complaint.Subject = req.Subject
	}
	if req.Description != "" {
		complaint.Description = req.Description
	}
	if err := h.store.UpdateComplaint(r.Context(), complaint); err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, complaint)
}

// DeleteComplaint DELETE /api/v1/complaints/{id}
func (h *Handler) DeleteComplaint(w http.ResponseWriter, r *http.Request) {
	complaint := h.ownedComplaint(w, r)
	if complaint == nil {
		return
	}
	if err := h.store.DeleteComplaint(r.Context(), complaint.ID); err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "complaint deleted"})
}
