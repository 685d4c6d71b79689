package postgres

import (
	"context"
	"database/sql"
	"time"
)

// RunStatus is a forecast run's lifecycle state.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// ForecastRun tracks one dispatcher invocation end to end.
type ForecastRun struct {
	ID           int64
	Dataset      string
	Granularity  string
	HorizonDays  int
	Status       RunStatus
	TotalSKUs    int
	SkippedSKUs  int
	StartedAt    time.Time
	CompletedAt  *time.Time
	ErrorMessage string
}

// FileJobStatus is a single ingested file's processing state.
type FileJobStatus string

const (
	FileStatusQueued     FileJobStatus = "queued"
	FileStatusProcessing FileJobStatus = "processing"
	FileStatusCompleted  FileJobStatus = "completed"
	FileStatusFailed     FileJobStatus = "failed"
)

// FileJob tracks ingestion of a single uploaded file into a ForecastRun's
// dataset.
type FileJob struct {
	ID           int64
	ForecastRunID int64
	FilePath     string
	RowsIngested int
	Status       FileJobStatus
	ErrorMessage string
	ProcessedAt  *time.Time
}

// Repository persists ForecastRun and FileJob records.
type Repository struct {
	db *DB
}

// NewRepository builds a Repository over an open pool.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateForecastRun inserts a new run record and fills in its ID.
func (r *Repository) CreateForecastRun(ctx context.Context, run *ForecastRun) error {
	query := `
		INSERT INTO forecast_runs (
			dataset, granularity, horizon_days, status, total_skus, started_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.db.QueryRowxContext(
		ctx, query,
		run.Dataset, run.Granularity, run.HorizonDays, run.Status, run.TotalSKUs, run.StartedAt,
	).Scan(&run.ID)
}

// UpdateForecastRun updates status, skipped-SKU count, and completion
// fields.
func (r *Repository) UpdateForecastRun(ctx context.Context, run *ForecastRun) error {
	query := `
		UPDATE forecast_runs
		SET status = $1, skipped_skus = $2, completed_at = $3, error_message = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(
		ctx, query,
		run.Status, run.SkippedSKUs, run.CompletedAt, run.ErrorMessage, run.ID,
	)
	return err
}

// GetForecastRun retrieves a run by ID.
func (r *Repository) GetForecastRun(ctx context.Context, id int64) (*ForecastRun, error) {
	query := `
		SELECT id, dataset, granularity, horizon_days, status, total_skus,
		       skipped_skus, started_at, completed_at, error_message
		FROM forecast_runs
		WHERE id = $1
	`
	run := &ForecastRun{}
	err := r.db.QueryRowxContext(ctx, query, id).Scan(
		&run.ID, &run.Dataset, &run.Granularity, &run.HorizonDays, &run.Status,
		&run.TotalSKUs, &run.SkippedSKUs, &run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CreateFileJob inserts a new file job record.
func (r *Repository) CreateFileJob(ctx context.Context, job *FileJob) error {
	query := `
		INSERT INTO forecast_run_file_jobs (
			forecast_run_id, file_path, status
		) VALUES ($1, $2, $3)
		RETURNING id
	`
	return r.db.QueryRowxContext(ctx, query, job.ForecastRunID, job.FilePath, job.Status).Scan(&job.ID)
}

// UpdateFileJob updates an existing file job's status and outcome.
func (r *Repository) UpdateFileJob(ctx context.Context, job *FileJob) error {
	query := `
		UPDATE forecast_run_file_jobs
		SET status = $1, rows_ingested = $2, processed_at = $3, error_message = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(
		ctx, query,
		job.Status, job.RowsIngested, job.ProcessedAt, job.ErrorMessage, job.ID,
	)
	return err
}

// GetFileJobsByRunID lists every file job attached to a run, oldest first.
func (r *Repository) GetFileJobsByRunID(ctx context.Context, runID int64) ([]*FileJob, error) {
	query := `
		SELECT id, forecast_run_id, file_path, rows_ingested, status,
		       error_message, processed_at
		FROM forecast_run_file_jobs
		WHERE forecast_run_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryxContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*FileJob
	for rows.Next() {
		job := &FileJob{}
		if err := rows.Scan(
			&job.ID, &job.ForecastRunID, &job.FilePath, &job.RowsIngested,
			&job.Status, &job.ErrorMessage, &job.ProcessedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
