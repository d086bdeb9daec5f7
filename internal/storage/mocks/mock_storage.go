package mocks

import (
	"context"
	"io"
	"time"

	"docprocessor/internal/storage"

	"github.com/stretchr/testify/mock"
)

// putFunc lets a test derive the stored ObjectInfo from the generated key.
type putFunc = func(context.Context, string, io.Reader, storage.PutObjectOptions) storage.ObjectInfo

// MockStorage is a testify mock of storage.Storage. Unset return values
// come back as zero values instead of panicking.
type MockStorage struct {
	mock.Mock
}

var _ storage.Storage = (*MockStorage)(nil)

func (m *MockStorage) Put(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	args := m.Called(ctx, key, r, opt)
	switch v := args.Get(0).(type) {
	case putFunc:
		return v(ctx, key, r, opt), args.Error(1)
	case storage.ObjectInfo:
		return v, args.Error(1)
	default:
		return storage.ObjectInfo{}, args.Error(1)
	}
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	url, _ := args.Get(0).(string)
	return url, args.Error(1)
}
