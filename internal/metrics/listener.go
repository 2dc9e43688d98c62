package metrics

import (
	"context"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

const namespace = "catpoint"

// Image classification outcomes used as label values.
const (
	resultCat   = "cat"
	resultNoCat = "no_cat"
)

// Listener records state machine notifications as metrics.
// It satisfies the security service StatusListener interface.
type Listener struct {
	// alarmStatus is 1 for the current alarm status and 0 for the others.
	alarmStatus *prometheus.GaugeVec
	// alarmWrites counts alarm status writes by target status.
	alarmWrites *prometheus.CounterVec
	// imagesProcessed counts classified images by result.
	imagesProcessed *prometheus.CounterVec
	// sensorUpdates counts stored sensor changes by type and state.
	sensorUpdates *prometheus.CounterVec
	// sensorsActive tracks the number of sensors known to be active.
	sensorsActive prometheus.Gauge

	// active is the set of sensors last reported active.
	active map[domain.SensorKey]struct{}
	// mu protects active.
	mu sync.Mutex
}

// NewListener registers the collectors on reg.
func NewListener(reg prometheus.Registerer) *Listener {
	factory := promauto.With(reg)

	return &Listener{
		alarmStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alarm_status",
			Help:      "Current alarm status (1 for the active status, 0 otherwise).",
		}, []string{"status"}),
		alarmWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarm_status_writes_total",
			Help:      "Total number of alarm status writes, by target status.",
		}, []string{"status"}),
		imagesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_processed_total",
			Help:      "Total number of classified camera images, by result.",
		}, []string{"result"}),
		sensorUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_updates_total",
			Help:      "Total number of stored sensor updates, by sensor type and state.",
		}, []string{"type", "active"}),
		sensorsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensors_active",
			Help:      "Current number of active sensors.",
		}),
		active: make(map[domain.SensorKey]struct{}),
	}
}

// SetAlarmStatus initialises the status gauge, typically from the stored state at startup.
func (l *Listener) SetAlarmStatus(status domain.AlarmStatus) {
	for _, s := range domain.AlarmStatuses() {
		value := 0.0
		if s == status {
			value = 1
		}

		l.alarmStatus.WithLabelValues(string(s)).Set(value)
	}
}

// AlarmStatusChanged records an alarm status write.
func (l *Listener) AlarmStatusChanged(_ context.Context, status domain.AlarmStatus) {
	l.alarmWrites.WithLabelValues(string(status)).Inc()
	l.SetAlarmStatus(status)
}

// CatDetected records an image classification result.
func (l *Listener) CatDetected(_ context.Context, detected bool) {
	result := resultNoCat
	if detected {
		result = resultCat
	}

	l.imagesProcessed.WithLabelValues(result).Inc()
}

// SensorStatusChanged records a stored sensor change.
func (l *Listener) SensorStatusChanged(_ context.Context, sensor domain.Sensor) {
	l.sensorUpdates.WithLabelValues(string(sensor.Type), strconv.FormatBool(sensor.Active)).Inc()

	l.mu.Lock()
	defer l.mu.Unlock()

	if sensor.Active {
		l.active[sensor.Key()] = struct{}{}
	} else {
		delete(l.active, sensor.Key())
	}

	l.sensorsActive.Set(float64(len(l.active)))
}
