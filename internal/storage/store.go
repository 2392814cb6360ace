// Package storage persists segmentation jobs and their results in
// PostgreSQL under the sceneworker schema.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/sceneforge/sceneworker/internal/models"
)

// Store handles PostgreSQL storage operations.
type Store struct {
	db *sql.DB
}

// New connects to PostgreSQL and ensures the schema exists.
func New(postgresURL string) (*Store, error) {
	db, err := sql.Open("postgres", postgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE SCHEMA IF NOT EXISTS sceneworker;

	-- Segmentation jobs
	CREATE TABLE IF NOT EXISTS sceneworker.jobs (
		job_id VARCHAR(255) PRIMARY KEY,
		video_path TEXT NOT NULL,
		status VARCHAR(50) NOT NULL,
		options JSONB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		completed_at TIMESTAMP,
		error TEXT
	);

	-- Per-job run summary
	CREATE TABLE IF NOT EXISTS sceneworker.results (
		job_id VARCHAR(255) PRIMARY KEY REFERENCES sceneworker.jobs(job_id) ON DELETE CASCADE,
		duration FLOAT NOT NULL,
		method VARCHAR(50) NOT NULL,
		shot_count INT NOT NULL,
		scene_count INT NOT NULL,
		degradations JSONB,
		processing_time FLOAT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Final scenes
	CREATE TABLE IF NOT EXISTS sceneworker.scenes (
		scene_id VARCHAR(255) PRIMARY KEY,
		job_id VARCHAR(255) NOT NULL REFERENCES sceneworker.jobs(job_id) ON DELETE CASCADE,
		scene_index INT NOT NULL,
		label VARCHAR(100),
		start_time FLOAT NOT NULL,
		end_time FLOAT NOT NULL,
		duration FLOAT NOT NULL,
		shot_count INT NOT NULL,
		confidence FLOAT NOT NULL,
		shots JSONB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Caller segments snapped to scene boundaries
	CREATE TABLE IF NOT EXISTS sceneworker.aligned_segments (
		id SERIAL PRIMARY KEY,
		job_id VARCHAR(255) NOT NULL REFERENCES sceneworker.jobs(job_id) ON DELETE CASCADE,
		start_time FLOAT NOT NULL,
		end_time FLOAT NOT NULL,
		aligned_start FLOAT NOT NULL,
		aligned_end FLOAT NOT NULL,
		scene_aligned BOOLEAN NOT NULL,
		payload JSONB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_jobs_status ON sceneworker.jobs(status)",
		"CREATE INDEX IF NOT EXISTS idx_scenes_job_id ON sceneworker.scenes(job_id)",
		"CREATE INDEX IF NOT EXISTS idx_scenes_start ON sceneworker.scenes(job_id, start_time)",
		"CREATE INDEX IF NOT EXISTS idx_aligned_job_id ON sceneworker.aligned_segments(job_id)",
	}
	for _, idx := range indexes {
		if _, err := s.db.Exec(idx); err != nil {
			return err
		}
	}
	return nil
}

// CreateJob inserts a job in pending state; reprocessing an existing job ID
// resets it.
func (s *Store) CreateJob(ctx context.Context, job *models.JobPayload) error {
	optionsJSON, err := json.Marshal(job.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}

	query := `
		INSERT INTO sceneworker.jobs (job_id, video_path, status, options)
		VALUES ($1, $2, 'pending', $3)
		ON CONFLICT (job_id) DO UPDATE SET
			video_path = EXCLUDED.video_path,
			options = EXCLUDED.options,
			status = 'pending',
			completed_at = NULL,
			error = NULL
	`
	_, err = s.db.ExecContext(ctx, query, job.JobID, job.VideoPath, optionsJSON)
	return err
}

// UpdateJobStatus transitions a job. Terminal states get a completion
// timestamp.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID, status, errorMsg string) error {
	query := `
		UPDATE sceneworker.jobs
		SET status = $2, error = NULLIF($3, ''),
		    completed_at = CASE WHEN $2 IN ('completed', 'failed') THEN CURRENT_TIMESTAMP ELSE completed_at END
		WHERE job_id = $1
	`
	_, err := s.db.ExecContext(ctx, query, jobID, status, errorMsg)
	return err
}

// StoreResult writes the run summary and all final scenes in one
// transaction, replacing any earlier scenes for the job.
func (s *Store) StoreResult(ctx context.Context, result *models.SegmentationResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	degradationsJSON, err := json.Marshal(result.Degradations)
	if err != nil {
		return fmt.Errorf("failed to marshal degradations: %w", err)
	}

	resultQuery := `
		INSERT INTO sceneworker.results (job_id, duration, method, shot_count, scene_count, degradations, processing_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (job_id) DO UPDATE SET
			duration = EXCLUDED.duration,
			method = EXCLUDED.method,
			shot_count = EXCLUDED.shot_count,
			scene_count = EXCLUDED.scene_count,
			degradations = EXCLUDED.degradations,
			processing_time = EXCLUDED.processing_time
	`
	if _, err := tx.ExecContext(ctx, resultQuery,
		result.JobID,
		result.Duration,
		string(result.Method),
		result.ShotCount,
		len(result.Scenes),
		degradationsJSON,
		result.ProcessingTime,
	); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM sceneworker.scenes WHERE job_id = $1", result.JobID); err != nil {
		return fmt.Errorf("failed to clear previous scenes: %w", err)
	}

	sceneQuery := `
		INSERT INTO sceneworker.scenes (scene_id, job_id, scene_index, label, start_time, end_time, duration, shot_count, confidence, shots)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, scene := range result.Scenes {
		shotsJSON, err := json.Marshal(scene.Shots)
		if err != nil {
			return fmt.Errorf("failed to marshal shots: %w", err)
		}
		if _, err := tx.ExecContext(ctx, sceneQuery,
			scene.ID,
			result.JobID,
			scene.Index,
			scene.Label,
			scene.StartTime,
			scene.EndTime,
			scene.Duration,
			scene.ShotCount,
			scene.Confidence,
			shotsJSON,
		); err != nil {
			return fmt.Errorf("failed to store scene %d: %w", scene.Index, err)
		}
	}

	return tx.Commit()
}

// StoreAlignedSegments replaces the job's aligned segments.
func (s *Store) StoreAlignedSegments(ctx context.Context, jobID string, segments []models.AlignedSegment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM sceneworker.aligned_segments WHERE job_id = $1", jobID); err != nil {
		return fmt.Errorf("failed to clear previous segments: %w", err)
	}

	query := `
		INSERT INTO sceneworker.aligned_segments (job_id, start_time, end_time, aligned_start, aligned_end, scene_aligned, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, seg := range segments {
		payload := seg.Payload
		if payload == nil {
			payload = json.RawMessage("null")
		}
		if _, err := tx.ExecContext(ctx, query,
			jobID,
			seg.StartTime,
			seg.EndTime,
			seg.AlignedStart,
			seg.AlignedEnd,
			seg.SceneAligned,
			[]byte(payload),
		); err != nil {
			return fmt.Errorf("failed to store aligned segment: %w", err)
		}
	}
	return tx.Commit()
}

// GetScenes loads a job's final scenes in time order.
func (s *Store) GetScenes(ctx context.Context, jobID string) ([]models.Scene, error) {
	query := `
		SELECT scene_id, scene_index, label, start_time, end_time, duration, shot_count, confidence, shots
		FROM sceneworker.scenes
		WHERE job_id = $1
		ORDER BY start_time
	`
	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenes: %w", err)
	}
	defer rows.Close()

	var scenes []models.Scene
	for rows.Next() {
		var scene models.Scene
		var shotsJSON []byte
		if err := rows.Scan(
			&scene.ID,
			&scene.Index,
			&scene.Label,
			&scene.StartTime,
			&scene.EndTime,
			&scene.Duration,
			&scene.ShotCount,
			&scene.Confidence,
			&shotsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scene: %w", err)
		}
		if len(shotsJSON) > 0 {
			if err := json.Unmarshal(shotsJSON, &scene.Shots); err != nil {
				return nil, fmt.Errorf("failed to unmarshal shots: %w", err)
			}
		}
		scenes = append(scenes, scene)
	}
	return scenes, rows.Err()
}

// GetJobStatus returns a job's current status and error message.
func (s *Store) GetJobStatus(ctx context.Context, jobID string) (status, errorMsg string, err error) {
	query := "SELECT status, COALESCE(error, '') FROM sceneworker.jobs WHERE job_id = $1"
	err = s.db.QueryRowContext(ctx, query, jobID).Scan(&status, &errorMsg)
	if err == sql.ErrNoRows {
		return "", "", fmt.Errorf("job %s not found", jobID)
	}
	return status, errorMsg, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
