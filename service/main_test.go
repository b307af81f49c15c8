package service

import (
	"testing"

	"go.uber.org/goleak"

	"kilnbazaar/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServices(stg *fakeStore, n Notifier) IServiceManager {
	return New(stg, logger.Nop(), Options{
		Auth:     AuthConfig{Secret: "test-secret"},
		Notifier: n,
	})
}

func ptr[T any](v T) *T { return &v }
