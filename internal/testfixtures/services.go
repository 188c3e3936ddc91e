package testfixtures

import (
	"io"
	"log/slog"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/lock"
	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/persistence/sqlite"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Locker      lock.Locker
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults: the reference
// clock, "id" prefixed identifiers, an in-process locker and a silent logger.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Locker:      lock.NewLocal(),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLocker overrides the advisory locker. A nil locker disables locking.
func WithLocker(locker lock.Locker) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Locker = locker
	}
}

// Services bundles the application services sharing one store.
type Services struct {
	Availability *application.AvailabilityService
	Meetings     *application.MeetingService
	Calendar     *application.CalendarService
}

// NewServices builds every application service on top of store.
func (f *ServiceFactory) NewServices(store persistence.Store) Services {
	idGen := f.IDGenerator.NextFunc()
	now := f.Clock.NowFunc()
	return Services{
		Availability: application.NewAvailabilityService(store, sqlite.NewRetryHelper(sqlite.DefaultRetryConfig()), time.UTC, f.Logger),
		Meetings:     application.NewMeetingService(store, f.Locker, idGen, now, time.UTC, f.Logger),
		Calendar:     application.NewCalendarService(store, f.Locker, idGen, now, f.Logger),
	}
}
