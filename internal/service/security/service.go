package security

import (
	"context"
	"fmt"
	"slices"
	"sync"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// DefaultConfidenceThreshold is the classifier confidence, in percent,
// above which an image is considered to contain a cat.
const DefaultConfidenceThreshold float32 = 50

// Repository stores the arming status, the alarm status and the sensors.
type Repository interface {
	AlarmStatus(ctx context.Context) (domain.AlarmStatus, error)
	SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error
	ArmingStatus(ctx context.Context) (domain.ArmingStatus, error)
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error
	Sensors(ctx context.Context) ([]domain.Sensor, error)
	// UpdateSensor stores the sensor, adding it when the key is unknown.
	UpdateSensor(ctx context.Context, sensor domain.Sensor) error
}

// ImageClassifier decides whether an image shows a cat.
type ImageClassifier interface {
	ImageContainsCat(ctx context.Context, image []byte, confidenceThreshold float32) (bool, error)
}

// StatusListener is notified of state changes in the order they were made.
// Notifications are delivered after the state lock is released, so a slow
// listener delays only the call that delivers them, never other operations.
type StatusListener interface {
	AlarmStatusChanged(ctx context.Context, status domain.AlarmStatus)
	CatDetected(ctx context.Context, detected bool)
	SensorStatusChanged(ctx context.Context, sensor domain.Sensor)
}

// Service is the alarm state machine.
type Service struct {
	// repo holds all persistent state.
	repo Repository
	// classifier answers cat detection questions.
	classifier ImageClassifier
	// threshold is passed to the classifier on every call.
	threshold float32
	// listeners receive change notifications.
	listeners []StatusListener
	// catDetected caches the result of the latest ProcessImage call.
	catDetected bool
	// mu serialises every operation; each one is a read-modify-write on the repository.
	mu sync.Mutex

	// outbox holds notifications queued under mu and not yet delivered.
	outbox []delivery
	// delivering is set while a caller drains the outbox.
	delivering bool
	// notifyMu guards outbox and delivering.
	notifyMu sync.Mutex
}

// delivery is one notification for the listeners registered when it was queued.
type delivery struct {
	// listeners is the listener set at queue time.
	listeners []StatusListener
	// call invokes the notification on one listener.
	call func(l StatusListener)
}

// Option configures a Service.
type Option func(*Service)

// WithConfidenceThreshold overrides DefaultConfidenceThreshold.
func WithConfidenceThreshold(threshold float32) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

// WithListeners registers status listeners at construction time.
func WithListeners(listeners ...StatusListener) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, listeners...)
	}
}

// New creates a Service backed by the provided collaborators.
func New(repo Repository, classifier ImageClassifier, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		classifier: classifier,
		threshold:  DefaultConfidenceThreshold,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// AddStatusListener registers a listener for subsequent changes.
func (s *Service) AddStatusListener(listener StatusListener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(slices.Clone(s.listeners), listener)
}

// RemoveStatusListener unregisters a previously added listener.
func (s *Service) RemoveStatusListener(listener StatusListener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Queued deliveries keep the old slice.
	s.listeners = slices.DeleteFunc(slices.Clone(s.listeners), func(l StatusListener) bool { return l == listener })
}

// ChangeSensorActivationStatus records a sensor transition and updates the alarm status.
// Sensors unknown to the repository are stored as new records.
func (s *Service) ChangeSensorActivationStatus(ctx context.Context, sensor domain.Sensor, active bool) error {
	if err := sensor.Validate(); err != nil {
		return err
	}

	defer s.notify()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.AlarmStatus(ctx)
	if err != nil {
		return fmt.Errorf("get alarm status: %w", err)
	}

	arming, err := s.repo.ArmingStatus(ctx)
	if err != nil {
		return fmt.Errorf("get arming status: %w", err)
	}

	sensors, err := s.repo.Sensors(ctx)
	if err != nil {
		return fmt.Errorf("get sensors: %w", err)
	}

	wasActive := sensor.Active
	if stored, ok := findSensor(sensors, sensor.Key()); ok {
		wasActive = stored.Active
	}

	sensor.Active = active
	if err = s.updateSensor(ctx, sensor); err != nil {
		return err
	}

	f := facts{
		arming:          arming,
		sensorWasActive: wasActive,
		catDetected:     s.catDetected,
	}

	e := eventSensorActivated
	if !active {
		e = eventSensorDeactivated

		if f.anySensorActive, err = s.anySensorActive(ctx); err != nil {
			return err
		}
	}

	return s.apply(ctx, e, current, f)
}

// SetArmingStatus stores the new arming status.
// Disarming clears the alarm; arming resets every sensor to inactive.
func (s *Service) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownArmingStatus, status)
	}

	defer s.notify()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SetArmingStatus(ctx, status); err != nil {
		return fmt.Errorf("set arming status: %w", err)
	}

	logger.InfoKV(ctx, "Arming status updated", "arming_status", status)

	e := eventDisarmed

	if status.IsArmed() {
		e = eventArmed

		if err := s.resetSensors(ctx); err != nil {
			return err
		}
	}

	current, err := s.repo.AlarmStatus(ctx)
	if err != nil {
		return fmt.Errorf("get alarm status: %w", err)
	}

	f := facts{
		arming:      status,
		catDetected: s.catDetected,
	}

	return s.apply(ctx, e, current, f)
}

// ProcessImage classifies a camera image and updates the alarm status.
// It reports whether the image contained a cat.
func (s *Service) ProcessImage(ctx context.Context, image []byte) (bool, error) {
	defer s.notify()

	s.mu.Lock()
	defer s.mu.Unlock()

	containsCat, err := s.classifier.ImageContainsCat(ctx, image, s.threshold)
	if err != nil {
		return false, fmt.Errorf("classify image: %w", err)
	}

	s.catDetected = containsCat

	logger.InfoKV(ctx, "Image processed", "cat_detected", containsCat, "size", len(image))

	s.queue(ctx, func(ctx context.Context, l StatusListener) {
		l.CatDetected(ctx, containsCat)
	})

	current, err := s.repo.AlarmStatus(ctx)
	if err != nil {
		return false, fmt.Errorf("get alarm status: %w", err)
	}

	arming, err := s.repo.ArmingStatus(ctx)
	if err != nil {
		return false, fmt.Errorf("get arming status: %w", err)
	}

	f := facts{
		arming:      arming,
		catDetected: containsCat,
	}

	e := eventCatDetected
	if !containsCat {
		e = eventNoCatDetected

		if f.anySensorActive, err = s.anySensorActive(ctx); err != nil {
			return false, err
		}
	}

	if err = s.apply(ctx, e, current, f); err != nil {
		return false, err
	}

	return containsCat, nil
}

// AlarmStatus returns the stored alarm status.
func (s *Service) AlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.AlarmStatus(ctx)
}

// ArmingStatus returns the stored arming status.
func (s *Service) ArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.ArmingStatus(ctx)
}

// Snapshot returns the whole stored state with sensors sorted by name.
func (s *Service) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	arming, err := s.repo.ArmingStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("get arming status: %w", err)
	}

	alarm, err := s.repo.AlarmStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("get alarm status: %w", err)
	}

	sensors, err := s.repo.Sensors(ctx)
	if err != nil {
		return nil, fmt.Errorf("get sensors: %w", err)
	}

	sensors = slices.Clone(sensors)
	domain.SortSensors(sensors)

	return &domain.Snapshot{
		ArmingStatus: arming,
		AlarmStatus:  alarm,
		Sensors:      sensors,
	}, nil
}

// CatDetected returns the cached result of the latest processed image.
func (s *Service) CatDetected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.catDetected
}

// apply writes the status chosen by the transition table, if any.
func (s *Service) apply(ctx context.Context, e event, current domain.AlarmStatus, f facts) error {
	next, ok := nextAlarmStatus(e, current, f)
	if !ok {
		logger.DebugKV(ctx, "Alarm status unchanged", "event", e.String(), "alarm_status", current)

		return nil
	}

	if err := s.repo.SetAlarmStatus(ctx, next); err != nil {
		return fmt.Errorf("set alarm status: %w", err)
	}

	logger.InfoKV(ctx, "Alarm status updated", "event", e.String(), "from", current, "to", next)

	s.queue(ctx, func(ctx context.Context, l StatusListener) {
		l.AlarmStatusChanged(ctx, next)
	})

	return nil
}

// resetSensors stores every known sensor as inactive.
func (s *Service) resetSensors(ctx context.Context) error {
	sensors, err := s.repo.Sensors(ctx)
	if err != nil {
		return fmt.Errorf("get sensors: %w", err)
	}

	for _, sensor := range sensors {
		sensor.Active = false
		if err = s.updateSensor(ctx, sensor); err != nil {
			return err
		}
	}

	return nil
}

// updateSensor persists the sensor and notifies listeners.
func (s *Service) updateSensor(ctx context.Context, sensor domain.Sensor) error {
	if err := s.repo.UpdateSensor(ctx, sensor); err != nil {
		return fmt.Errorf("update sensor %s: %w", sensor.Key(), err)
	}

	logger.DebugKV(ctx, "Sensor updated", "sensor", sensor.Key().String(), "active", sensor.Active)

	s.queue(ctx, func(ctx context.Context, l StatusListener) {
		l.SensorStatusChanged(ctx, sensor)
	})

	return nil
}

// queue records a notification for the current listeners. It must be called with mu held
// so that deliveries keep the order of the state changes.
func (s *Service) queue(ctx context.Context, call func(ctx context.Context, l StatusListener)) {
	if len(s.listeners) == 0 {
		return
	}

	// The caller may return before the notification is delivered.
	ctx = context.WithoutCancel(ctx)

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.outbox = append(s.outbox, delivery{
		listeners: s.listeners,
		call: func(l StatusListener) {
			call(ctx, l)
		},
	})
}

// notify delivers queued notifications. It must be called without mu held.
// When another caller is already delivering, that caller picks up the new
// notifications and notify returns at once.
func (s *Service) notify() {
	s.notifyMu.Lock()

	if s.delivering {
		s.notifyMu.Unlock()

		return
	}

	s.delivering = true

	for len(s.outbox) > 0 {
		d := s.outbox[0]
		s.outbox[0] = delivery{}
		s.outbox = s.outbox[1:]

		s.notifyMu.Unlock()

		for _, l := range d.listeners {
			d.call(l)
		}

		s.notifyMu.Lock()
	}

	s.delivering = false
	s.notifyMu.Unlock()
}

// anySensorActive reads the sensors back from the repository.
func (s *Service) anySensorActive(ctx context.Context) (bool, error) {
	sensors, err := s.repo.Sensors(ctx)
	if err != nil {
		return false, fmt.Errorf("get sensors: %w", err)
	}

	return domain.AnyActive(sensors), nil
}

// findSensor looks a sensor up by key.
func findSensor(sensors []domain.Sensor, key domain.SensorKey) (domain.Sensor, bool) {
	idx := slices.IndexFunc(sensors, func(s domain.Sensor) bool { return s.Key() == key })
	if idx < 0 {
		return domain.Sensor{}, false
	}

	return sensors[idx], true
}
