package mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockStorage_PresignGetNilSafe(t *testing.T) {
	m := new(MockStorage)
	m.On("PresignGet", context.Background(), "documents/x.pdf", time.Minute).
		Return(nil, errors.New("signing failed"))

	url, err := m.PresignGet(context.Background(), "documents/x.pdf", time.Minute)

	assert.Empty(t, url)
	assert.EqualError(t, err, "signing failed")
}
