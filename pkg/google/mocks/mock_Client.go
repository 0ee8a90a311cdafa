// Package mocks provides test doubles for the google client.
package mocks

import (
	"context"

	google "github.com/sells-group/event-planner/pkg/google"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of google.Client.
type MockClient struct {
	mock.Mock
}

// FindPlaces records the call and returns the configured places.
func (_m *MockClient) FindPlaces(ctx context.Context, q google.Query) ([]google.Place, error) {
	ret := _m.Called(ctx, q)

	var places []google.Place
	if v := ret.Get(0); v != nil {
		places = v.([]google.Place)
	}
	return places, ret.Error(1)
}

// NewMockClient creates a MockClient whose expectations are asserted on
// test cleanup.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
