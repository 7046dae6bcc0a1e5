package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/blockbattle/internal/dependencies/mocks"
	"github.com/mcoot/blockbattle/internal/messaging"
	"github.com/mcoot/blockbattle/internal/services/auth"
	"github.com/mcoot/blockbattle/internal/services/room"
	"github.com/mcoot/blockbattle/internal/storage/memory"
	"github.com/mcoot/blockbattle/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked
// dependencies and the cheapest bcrypt cost
func NewTestApp() *TestApp {
	return NewTestAppWithPublisher(messaging.NopPublisher{})
}

// NewTestAppWithPublisher is NewTestApp with a custom result publisher
func NewTestAppWithPublisher(publisher messaging.Publisher) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	cfg := Config{
		AuthConfig: auth.Config{PasswordCost: bcrypt.MinCost},
		RoomConfig: room.Config{PasswordCost: bcrypt.MinCost},
	}
	app := newWithDependencies(store, mockClock, mockRandom, publisher, cfg, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
