// mock.go 提供用于测试的内存实现
package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryObjects 内存版对象存储（用于测试）
type MemoryObjects struct {
	mu           sync.RWMutex
	data         map[string][]byte
	contentTypes map[string]string
}

// NewMemoryObjects 创建内存对象存储实例
func NewMemoryObjects() *MemoryObjects {
	return &MemoryObjects{
		data:         make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

var _ Store = (*MemoryObjects)(nil)

func (m *MemoryObjects) EnsureBucket(ctx context.Context) error { return nil }

func (m *MemoryObjects) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	m.contentTypes[key] = contentType
	return nil
}

func (m *MemoryObjects) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key]
	if !ok {
		return nil, "", fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), m.contentTypes[key], nil
}

func (m *MemoryObjects) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	delete(m.contentTypes, key)
	return nil
}

// CleanupAsync 同步删除，测试里无需真正异步
func (m *MemoryObjects) CleanupAsync(keys []string) {
	for _, key := range keys {
		m.Delete(context.Background(), key)
	}
}

// Has 测试辅助：对象是否存在
func (m *MemoryObjects) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}
