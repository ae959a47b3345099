package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sensacare/vitals/internal/config"
	"github.com/sensacare/vitals/internal/models"
	"github.com/sensacare/vitals/internal/utils"
)

// Schema is applied by EnsureSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS heart_rate_readings (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	recorded_at        TIMESTAMPTZ NOT NULL,
	value              INTEGER NOT NULL,
	resting_heart_rate INTEGER,
	hrv_value          DOUBLE PRECISION,
	activity_level     TEXT NOT NULL DEFAULT '',
	is_resting         BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS heart_rate_readings_user_time
	ON heart_rate_readings (user_id, recorded_at);
CREATE TABLE IF NOT EXISTS user_profiles (
	user_id            TEXT PRIMARY KEY,
	age                INTEGER,
	resting_heart_rate INTEGER,
	updated_at         TIMESTAMPTZ NOT NULL
);`

const (
	insertReadingSQL = `INSERT INTO heart_rate_readings
	(id, user_id, recorded_at, value, resting_heart_rate, hrv_value, activity_level, is_resting)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO NOTHING`

	selectReadingsSQL = `SELECT id, user_id, recorded_at, value, resting_heart_rate, hrv_value, activity_level, is_resting
	FROM heart_rate_readings
	WHERE user_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
	ORDER BY recorded_at, id`

	deleteReadingsSQL = `DELETE FROM heart_rate_readings
	WHERE user_id = $1 AND recorded_at >= $2 AND recorded_at <= $3`

	selectProfileSQL = `SELECT user_id, age, resting_heart_rate, updated_at
	FROM user_profiles WHERE user_id = $1`

	upsertProfileSQL = `INSERT INTO user_profiles (user_id, age, resting_heart_rate, updated_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id) DO UPDATE SET
		age = EXCLUDED.age,
		resting_heart_rate = EXCLUDED.resting_heart_rate,
		updated_at = EXCLUDED.updated_at`
)

// PostgresStore is backed by database/sql with the lib/pq driver.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens, pings and migrates the database named by cfg.DSN.
func OpenPostgres(cfg config.PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), utils.StorageConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewPostgresStore(db)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveReadings(ctx context.Context, readings []models.VitalReading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertReadingSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	stored := 0
	for _, r := range readings {
		res, err := stmt.ExecContext(ctx,
			r.ID,
			r.UserID,
			r.Timestamp.UTC(),
			r.Value,
			nullInt(r.RestingHeartRate),
			nullFloat(r.HRVValue),
			string(r.ActivityLevel),
			r.IsRestingHeartRate,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert reading %s: %w", r.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		stored += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit readings: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) QueryReadings(ctx context.Context, userID string, start, end time.Time) ([]models.VitalReading, error) {
	rows, err := s.db.QueryContext(ctx, selectReadingsSQL, userID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]models.VitalReading, 0)
	for rows.Next() {
		var (
			r        models.VitalReading
			resting  sql.NullInt64
			hrv      sql.NullFloat64
			activity string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Timestamp, &r.Value, &resting, &hrv, &activity, &r.IsRestingHeartRate); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		if resting.Valid {
			r.RestingHeartRate = models.IntPtr(int(resting.Int64))
		}
		if hrv.Valid {
			r.HRVValue = models.FloatPtr(hrv.Float64)
		}
		r.ActivityLevel = models.ActivityLevel(activity)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read readings: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteReadings(ctx context.Context, userID string, start, end time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, deleteReadingsSQL, userID, start.UTC(), end.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete readings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var (
		p       models.UserProfile
		age     sql.NullInt64
		resting sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, selectProfileSQL, userID).Scan(&p.UserID, &age, &resting, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if age.Valid {
		p.Age = models.IntPtr(int(age.Int64))
	}
	if resting.Valid {
		p.RestingHeartRate = models.IntPtr(int(resting.Int64))
	}
	return &p, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, profile models.UserProfile) error {
	_, err := s.db.ExecContext(ctx, upsertProfileSQL,
		profile.UserID,
		nullInt(profile.Age),
		nullInt(profile.RestingHeartRate),
		profile.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
