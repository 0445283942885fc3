package mocks

import (
	"context"
	"github.com/shimmeringbee/powermeter/attribute"
	"github.com/shimmeringbee/zigbee"
	"github.com/stretchr/testify/mock"
)

type MockRequester struct {
	mock.Mock
}

func (m *MockRequester) Read(ctx context.Context, node zigbee.IEEEAddress, targets []attribute.Target) error {
	args := m.Called(ctx, node, targets)
	return args.Error(0)
}

func (m *MockRequester) Subscribe(ctx context.Context, node zigbee.IEEEAddress, subs []attribute.Subscription) error {
	args := m.Called(ctx, node, subs)
	return args.Error(0)
}

type MockMetadataUpdater struct {
	mock.Mock
}

func (m *MockMetadataUpdater) UpdateProfile(ctx context.Context, node zigbee.IEEEAddress, profile string) error {
	args := m.Called(ctx, node, profile)
	return args.Error(0)
}

func (m *MockMetadataUpdater) CreateChild(ctx context.Context, node zigbee.IEEEAddress, key string, ep zigbee.Endpoint, profile string) error {
	args := m.Called(ctx, node, key, ep, profile)
	return args.Error(0)
}
