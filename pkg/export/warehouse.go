package export

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/common/models"
)

const appointmentsDDL = `
CREATE TABLE IF NOT EXISTS appointments (
	dataset_id     TEXT NOT NULL,
	age            DOUBLE PRECISION,
	age_group      TEXT NOT NULL,
	scheduled_at   TIMESTAMPTZ,
	appointment_at TIMESTAMPTZ,
	sms_received   TEXT NOT NULL,
	no_show        SMALLINT,
	waiting_days   INTEGER,
	week           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS appointments_dataset_week ON appointments (dataset_id, week);
`

var appointmentColumns = []string{
	"dataset_id", "age", "age_group", "scheduled_at", "appointment_at",
	"sms_received", "no_show", "waiting_days", "week",
}

// WarehouseLoader bulk-copies normalized records into Postgres for ad hoc SQL.
type WarehouseLoader struct {
	pool *pgxpool.Pool
}

func NewWarehouseLoader(ctx context.Context, connStr string) (*WarehouseLoader, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection: %w", err)
	}
	poolConfig.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &WarehouseLoader{pool: pool}, nil
}

func (l *WarehouseLoader) EnsureSchema(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, appointmentsDDL)
	return err
}

// Load replaces every row of datasetID in one transaction.
func (l *WarehouseLoader) Load(ctx context.Context, datasetID string, records []models.AppointmentRecord) (int64, error) {
	start := time.Now()
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM appointments WHERE dataset_id = $1`, datasetID); err != nil {
		return 0, fmt.Errorf("clear dataset: %w", err)
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"appointments"},
		appointmentColumns,
		pgx.CopyFromRows(CopyRows(datasetID, records)),
	)
	if err != nil {
		return 0, fmt.Errorf("copy appointments: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"dataset_id": datasetID,
		"rows":       copied,
		"elapsed":    time.Since(start).String(),
	}).Info("Warehouse load complete")
	return copied, nil
}

func (l *WarehouseLoader) Close() {
	l.pool.Close()
}

// CopyRows renders records in appointmentColumns order; nil pointers become NULL.
func CopyRows(datasetID string, records []models.AppointmentRecord) [][]any {
	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = []any{
			datasetID,
			rec.Age,
			rec.AgeGroup,
			rec.ScheduledAt,
			rec.AppointmentAt,
			rec.SMSReceived,
			rec.NoShow,
			rec.WaitingDays,
			rec.Week,
		}
	}
	return rows
}
