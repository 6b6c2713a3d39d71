// Package mocks provides testify mocks for the domain ports.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Samratsinh-git/YandexDownloader/internal/domain"
)

// MockResolver is a mock implementation of domain.Resolver
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, link string) (*domain.Resource, error) {
	args := m.Called(ctx, link)

	var resource *domain.Resource
	if args.Get(0) != nil {
		resource = args.Get(0).(*domain.Resource)
	}
	return resource, args.Error(1)
}
