// Package objstore 封装 MinIO 对象存储客户端
//
// 商品图片与评价图片存放于此（替代本地磁盘 uploads 目录），
// 文档中只记录对象键。删除资源时的图片清理是尽力而为的：
// 失败只记日志，不重试，不回滚关联的数据库变更。
package objstore

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"freshly-market/internal/config"
)

// Store 对象存储抽象；具体实现为 MinIO 的 Client，测试使用 mock.go
type Store interface {
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Download 返回对象内容与 Content-Type，调用方负责关闭 ReadCloser
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	// CleanupAsync 后台尽力清理一组对象键，不阻塞调用方
	CleanupAsync(keys []string)
}

// Client MinIO 客户端封装
type Client struct {
	mc     *minio.Client
	bucket string
}

var _ Store = (*Client)(nil)

// NewClient 创建 MinIO 客户端
func NewClient(cfg config.MinIOConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio access_key and secret_key are required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "freshly-market"
	}

	return &Client{mc: mc, bucket: bucket}, nil
}

// EnsureBucket 确保 bucket 存在
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		log.Printf("[minio] Created bucket: %s", c.bucket)
	}
	return nil
}

// Upload 上传对象
func (c *Client) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.mc.PutObject(ctx, c.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Download 下载对象，调用方负责关闭返回的 ReadCloser
func (c *Client) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", key, err)
	}
	// 验证对象存在（GetObject 不会立即返回错误）
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, "", fmt.Errorf("stat %s: %w", key, err)
	}
	return obj, info.ContentType, nil
}

// Delete 删除对象
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
}

// CleanupAsync 后台尽力清理一组对象键
//
// 资源删除后的图片清理不阻塞响应、不重试；失败只留日志，
// 允许出现孤儿对象（与数据库变更无事务关联）。
func (c *Client) CleanupAsync(keys []string) {
	if len(keys) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, key := range keys {
			if key == "" {
				continue
			}
			if err := c.Delete(ctx, key); err != nil {
				log.Printf("[minio] cleanup %s failed: %v", key, err)
			}
		}
	}()
}
