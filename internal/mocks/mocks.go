// Package mocks contains testify mocks for the ports.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jsamuelsen/authorclock/internal/domain"
	"github.com/jsamuelsen/authorclock/internal/ports"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockDatasetLoader mocks ports.DatasetLoader.
type MockDatasetLoader struct {
	mock.Mock
}

// NewMockDatasetLoader creates a mock that asserts its expectations on cleanup.
func NewMockDatasetLoader(t testingT) *MockDatasetLoader {
	m := &MockDatasetLoader{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// Load implements ports.DatasetLoader.
func (m *MockDatasetLoader) Load(ctx context.Context) ([]domain.Quote, error) {
	args := m.Called(ctx)

	quotes, _ := args.Get(0).([]domain.Quote)

	return quotes, args.Error(1)
}

// MockNetworkTimeSource mocks ports.NetworkTimeSource.
type MockNetworkTimeSource struct {
	mock.Mock
}

// NewMockNetworkTimeSource creates a mock that asserts its expectations on cleanup.
func NewMockNetworkTimeSource(t testingT) *MockNetworkTimeSource {
	m := &MockNetworkTimeSource{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// Now implements ports.NetworkTimeSource.
func (m *MockNetworkTimeSource) Now(ctx context.Context) (time.Time, error) {
	args := m.Called(ctx)

	now, _ := args.Get(0).(time.Time)

	return now, args.Error(1)
}

// MockWeatherProvider mocks ports.WeatherProvider.
type MockWeatherProvider struct {
	mock.Mock
}

// NewMockWeatherProvider creates a mock that asserts its expectations on cleanup.
func NewMockWeatherProvider(t testingT) *MockWeatherProvider {
	m := &MockWeatherProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// Current implements ports.WeatherProvider.
func (m *MockWeatherProvider) Current(ctx context.Context) (domain.Weather, error) {
	args := m.Called(ctx)

	w, _ := args.Get(0).(domain.Weather)

	return w, args.Error(1)
}

// MockHealthRegistry mocks ports.HealthRegistry.
type MockHealthRegistry struct {
	mock.Mock
}

// NewMockHealthRegistry creates a mock that asserts its expectations on cleanup.
func NewMockHealthRegistry(t testingT) *MockHealthRegistry {
	m := &MockHealthRegistry{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// Register implements ports.HealthRegistry.
func (m *MockHealthRegistry) Register(checker ports.HealthChecker) error {
	return m.Called(checker).Error(0)
}

// RegisterOptional implements ports.HealthRegistry.
func (m *MockHealthRegistry) RegisterOptional(checker ports.HealthChecker) error {
	return m.Called(checker).Error(0)
}

// CheckAll implements ports.HealthRegistry.
func (m *MockHealthRegistry) CheckAll(ctx context.Context) *ports.HealthResult {
	args := m.Called(ctx)

	result, _ := args.Get(0).(*ports.HealthResult)

	return result
}
