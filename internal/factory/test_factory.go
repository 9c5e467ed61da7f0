package factory

import (
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/fourinarow/internal/config"
	"github.com/mcoot/fourinarow/internal/dependencies/mocks"
	"github.com/mcoot/fourinarow/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock     *mocks.MockClock
	MockRandom    *mocks.MockRandom
	MockPublisher *mocks.MockPublisher
}

// NewTestApp creates an in-memory App with mocked clock, randomness and event bus
func NewTestApp() *TestApp {
	return NewTestAppWithConfig(config.Default())
}

// NewTestAppWithConfig is NewTestApp with custom settings. Storage is always in memory.
func NewTestAppWithConfig(cfg config.Config) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockPublisher := mocks.NewMockPublisher()
	logger := slog.New(slog.DiscardHandler)

	app, err := newWithDependencies(cfg, memory.New(), mockPublisher, mockClock, mockRandom, logger, bcryptCost(bcrypt.MinCost))
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:           app,
		MockClock:     mockClock,
		MockRandom:    mockRandom,
		MockPublisher: mockPublisher,
	}
}

// Settle waits for background archive and publish calls to finish
func (t *TestApp) Settle() {
	t.Gateway.Wait()
	t.Sessions.Wait()
}
