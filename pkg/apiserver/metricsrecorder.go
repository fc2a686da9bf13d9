package apiserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/dualtree-sched/dualtreequeue/pkg/dualtree"
)

// MetricsRecorder periodically snapshots queue metrics to Postgres for
// historical dashboards, the way the teacher's pkg/database.DatabaseManager
// opens a pooled *sqlx.DB against PostgreSQL. This is ambient operational
// telemetry alongside the queue, not part of its persisted state.
type MetricsRecorder struct {
	db     *sqlx.DB
	queue  *dualtree.Queue
	logger *slog.Logger
}

const createMetricsTable = `
CREATE TABLE IF NOT EXISTS queue_metrics (
	id SERIAL PRIMARY KEY,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	slots INTEGER NOT NULL,
	remaining_tasks INTEGER NOT NULL,
	empty BOOLEAN NOT NULL
)`

// NewMetricsRecorder connects to dsn and ensures the metrics table exists.
func NewMetricsRecorder(dsn string, queue *dualtree.Queue, logger *slog.Logger) (*MetricsRecorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("metricsrecorder: connect: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(createMetricsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("metricsrecorder: create table: %w", err)
	}
	return &MetricsRecorder{db: db, queue: queue, logger: logger}, nil
}

// Run records a snapshot every interval until ctx is done. Grounded on the
// teacher's metricsLoop cadence in pkg/scheduler/task_queue.go.
func (r *MetricsRecorder) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.recordOnce(ctx); err != nil {
				r.logger.Error("failed to record queue metrics", "error", err)
			}
		}
	}
}

func (r *MetricsRecorder) recordOnce(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO queue_metrics (slots, remaining_tasks, empty) VALUES ($1, $2, $3)`,
		r.queue.Size(), r.queue.RemainingTasks(), r.queue.IsEmpty())
	return err
}

// Close closes the underlying database connection.
func (r *MetricsRecorder) Close() error { return r.db.Close() }
