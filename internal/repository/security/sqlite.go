package security

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver.

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

const (
	// sqliteBusyTimeout avoids "database is locked" errors under concurrent access.
	sqliteBusyTimeout = 5 * time.Second

	settingAlarmStatus  = "alarm_status"
	settingArmingStatus = "arming_status"
)

// schema is applied on every open; statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sensors (
	name       TEXT NOT NULL,
	type       TEXT NOT NULL CHECK(type IN ('DOOR', 'WINDOW', 'MOTION')),
	active     INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (name, type)
);
`

// SQLiteRepository persists the state in a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLiteRepository opens (or creates) the database at path and migrates it.
func OpenSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, sqliteBusyTimeout.Milliseconds(),
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single writer keeps read-modify-write sequences simple.
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// AlarmStatus returns the stored alarm status, NO_ALARM when never set.
func (r *SQLiteRepository) AlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	value, err := r.setting(ctx, settingAlarmStatus)
	if err != nil {
		return "", err
	}

	if value == "" {
		return domain.AlarmStatusNoAlarm, nil
	}

	return domain.ParseAlarmStatus(value)
}

// SetAlarmStatus stores the alarm status.
func (r *SQLiteRepository) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	return r.setSetting(ctx, settingAlarmStatus, string(status))
}

// ArmingStatus returns the stored arming status, DISARMED when never set.
func (r *SQLiteRepository) ArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	value, err := r.setting(ctx, settingArmingStatus)
	if err != nil {
		return "", err
	}

	if value == "" {
		return domain.ArmingStatusDisarmed, nil
	}

	return domain.ParseArmingStatus(value)
}

// SetArmingStatus stores the arming status.
func (r *SQLiteRepository) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	return r.setSetting(ctx, settingArmingStatus, string(status))
}

// Sensors returns the stored sensors in insertion order.
func (r *SQLiteRepository) Sensors(ctx context.Context) ([]domain.Sensor, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, type, active FROM sensors ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query sensors: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var sensors []domain.Sensor

	for rows.Next() {
		var (
			sensor     domain.Sensor
			sensorType string
		)

		if err = rows.Scan(&sensor.Name, &sensorType, &sensor.Active); err != nil {
			return nil, fmt.Errorf("scan sensor: %w", err)
		}

		sensor.Type = domain.SensorType(sensorType)
		sensors = append(sensors, sensor)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sensors: %w", err)
	}

	return sensors, nil
}

// UpdateSensor stores the sensor.
func (r *SQLiteRepository) UpdateSensor(ctx context.Context, sensor domain.Sensor) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sensors (name, type, active, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (name, type) DO UPDATE SET active = excluded.active, updated_at = excluded.updated_at`,
		sensor.Name, string(sensor.Type), sensor.Active, now(),
	)
	if err != nil {
		return fmt.Errorf("upsert sensor: %w", err)
	}

	return nil
}

// AddSensor registers a new sensor.
func (r *SQLiteRepository) AddSensor(ctx context.Context, sensor domain.Sensor) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sensors (name, type, active, updated_at) VALUES (?, ?, ?, ?)`,
		sensor.Name, string(sensor.Type), sensor.Active, now(),
	)
	if err != nil {
		return fmt.Errorf("insert sensor: %w", err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", ErrSensorExists, sensor.Key())
	}

	return nil
}

// RemoveSensor deletes a sensor.
func (r *SQLiteRepository) RemoveSensor(ctx context.Context, key domain.SensorKey) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sensors WHERE name = ? AND type = ?`, key.Name, string(key.Type))
	if err != nil {
		return fmt.Errorf("delete sensor: %w", err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", ErrSensorNotFound, key)
	}

	return nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// setting returns the value for key or an empty string when it is missing.
func (r *SQLiteRepository) setting(ctx context.Context, key string) (string, error) {
	var value string

	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}

		return "", fmt.Errorf("read setting %s: %w", key, err)
	}

	return value, nil
}

// setSetting upserts key.
func (r *SQLiteRepository) setSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}

	return nil
}

// now formats the current time for the updated_at column.
func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
