package server

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"freshly-market/internal/model"
)

// ============================================================================
// 图片上传：商品主图 / 评价配图
//
// 商品主图表单字段为 "image"（单文件），评价配图为 "pictures"（可多文件，
// 累计不超过 3 张）。只收 image/* 且单文件不超过 5 MiB。
// 对象键格式：products/{productId}/{ts}-{rand}.{ext}、reviews/{reviewId}/{ts}-{rand}.{ext}
// ============================================================================

// maxUploadBytes 单个图片上限
const maxUploadBytes = 5 << 20

type imageUpload struct {
	data        []byte
	contentType string
	ext         string
}

// readImageUploads 解析 multipart 表单中指定字段的全部图片文件
//
// 返回 ok=false 时已写出错误响应。
func (h *Handler) readImageUploads(w http.ResponseWriter, r *http.Request, field string, maxFiles int) ([]imageUpload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxFiles)*maxUploadBytes+4096)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "image exceeds 5 MiB or request is not multipart")
		return nil, false
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "form field '"+field+"' is required")
		return nil, false
	}

	var uploads []imageUpload
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to read upload")
			return nil, false
		}
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		file.Close()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to read upload")
			return nil, false
		}
		if len(data) > maxUploadBytes {
			writeError(w, http.StatusBadRequest, "image exceeds 5 MiB")
			return nil, false
		}

		// MIME 以内容嗅探为准，不信任客户端声明
		contentType := http.DetectContentType(data)
		if !strings.HasPrefix(contentType, "image/") {
			writeError(w, http.StatusBadRequest, "only image uploads are accepted")
			return nil, false
		}
		ext := strings.ToLower(path.Ext(header.Filename))
		if ext == "" {
			ext = "." + strings.TrimPrefix(contentType, "image/")
		}
		uploads = append(uploads, imageUpload{data: data, contentType: contentType, ext: ext})
	}
	return uploads, true
}

// readImageUpload 解析单文件字段 "image"
func (h *Handler) readImageUpload(w http.ResponseWriter, r *http.Request) (imageUpload, bool) {
	uploads, ok := h.readImageUploads(w, r, "image", 1)
	if !ok {
		return imageUpload{}, false
	}
	return uploads[0], true
}

// uploadKey 随机后缀避免同一秒内多文件键冲突
func uploadKey(kind, ownerID, ext string) string {
	b := make([]byte, 2)
	rand.Read(b)
	return kind + "/" + ownerID + "/" + time.Now().UTC().Format("20060102T150405") + "-" + hex.EncodeToString(b) + ext
}

// UploadProductImage POST /api/v1/products/{id}/image
//
// 覆盖旧图：新图写入成功后异步清理旧对象。
func (h *Handler) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	product := h.ownedProduct(w, r)
	if product == nil {
		return
	}
	img, ok := h.readImageUpload(w, r)
	if !ok {
		return
	}

	key := uploadKey("products", product.ID, img.ext)
	if err := h.objects.Upload(r.Context(), key, bytes.NewReader(img.data), int64(len(img.data)), img.contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store image")
		return
	}
	oldKey := product.ImageKey
	product.ImageKey = key
	if err := h.store.UpdateProduct(r.Context(), product); err != nil {
		h.objects.CleanupAsync([]string{key})
		writeStoreError(w, err, "")
		return
	}
	if oldKey != "" {
		h.objects.CleanupAsync([]string{oldKey})
	}
	h.metrics.UploadsTotal.WithLabelValues("product").Inc()
	h.metrics.UploadBytes.Add(float64(len(img.data)))
	writeJSON(w, http.StatusOK, product)
}

// UploadReviewPicture POST /api/v1/reviews/{id}/pictures
//
// 表单字段 "pictures" 一次可带多个文件，连同已有配图累计不超过 3 张。
func (h *Handler) UploadReviewPicture(w http.ResponseWriter, r *http.Request) {
	review := h.ownedReview(w, r)
	if review == nil {
		return
	}
	remaining := model.MaxReviewPictures - len(review.PictureKeys)
	if remaining <= 0 {
		writeError(w, http.StatusConflict, "review already has the maximum number of pictures")
		return
	}
	uploads, ok := h.readImageUploads(w, r, "pictures", model.MaxReviewPictures)
	if !ok {
		return
	}
	if len(uploads) > remaining {
		writeError(w, http.StatusConflict, "review already has the maximum number of pictures")
		return
	}

	var (
		keys       []string
		totalBytes int
	)
	for _, img := range uploads {
		key := uploadKey("reviews", review.ID, img.ext)
		if err := h.objects.Upload(r.Context(), key, bytes.NewReader(img.data), int64(len(img.data)), img.contentType); err != nil {
			h.objects.CleanupAsync(keys)
			writeError(w, http.StatusInternalServerError, "failed to store image")
			return
		}
		keys = append(keys, key)
		totalBytes += len(img.data)
	}
	review.PictureKeys = append(review.PictureKeys, keys...)
	if err := h.store.UpdateReview(r.Context(), review); err != nil {
		h.objects.CleanupAsync(keys)
		writeStoreError(w, err, "")
		return
	}
	h.metrics.UploadsTotal.WithLabelValues("review").Add(float64(len(keys)))
	h.metrics.UploadBytes.Add(float64(totalBytes))
	writeJSON(w, http.StatusOK, review)
}

// GetImage GET /api/v1/images/{key...}
//
// 从对象存储回源图片，键即路径余部。
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" || strings.Contains(key, "..") {
		writeError(w, http.StatusBadRequest, "invalid image key")
		return
	}
	reader, contentType, err := h.objects.Download(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, reader); err != nil {
		// 响应已开始写，只能记日志
		log.Printf("[objstore] stream image %s: %v", key, err)
	}
}
