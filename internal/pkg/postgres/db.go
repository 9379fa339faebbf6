package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/protokolas/protokolas/internal/pkg/persistence"
	"github.com/protokolas/protokolas/internal/pkg/status"
	"github.com/protokolas/protokolas/internal/pkg/utils"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

//NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	res := &DB{pool: pool}
	return res, nil
}

const transcriptFields = `id, meeting_id, title, raw_text, file_name, email,
	processing_status, processing_error, embedding_status, embedding_error, job_id, created, updated`

// maxErrLen limits persisted error messages
const maxErrLen = 1024

// InsertTranscript inserts transcript into DB
func (db *DB) InsertTranscript(ctx context.Context, tr *persistence.Transcript) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO transcripts(id, meeting_id, title, raw_text, file_name, email,
		processing_status, embedding_status, created, updated)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`, tr.ID, tr.MeetingID, tr.Title, tr.RawText, tr.FileName,
		tr.Email, tr.ProcessingStatus, tr.EmbeddingStatus, tr.Created)
	if err != nil {
		return fmt.Errorf("can't insert transcript: %w", err)
	}
	defer rows.Close()
	return nil
}

// LoadTranscript loads transcript from DB, returns nil if not found
func (db *DB) LoadTranscript(ctx context.Context, id string) (*persistence.Transcript, error) {
	res, err := scanTranscript(db.pool.QueryRow(ctx, `SELECT `+transcriptFields+` FROM transcripts
		WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load transcript: %w", err)
	}
	return res, nil
}

// LoadAnalysis loads analysis result from DB, returns nil if not found
func (db *DB) LoadAnalysis(ctx context.Context, id string) (*persistence.Analysis, error) {
	var res persistence.Analysis
	err := db.pool.QueryRow(ctx, `SELECT id, summary, key_points, task, responsible, deadline, created, updated
		FROM analysis_results WHERE id = $1`, id).Scan(&res.ID, &res.Summary, &res.KeyPoints, &res.Task,
		&res.Responsible, &res.Deadline, &res.Created, &res.Updated)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load analysis: %w", err)
	}
	return &res, nil
}

// AcquireProcessing tries to stamp the analysis job as the transcript owner.
// The decision and the stamp happen under a row lock, so two jobs can't both proceed
func (db *DB) AcquireProcessing(ctx context.Context, id, jobID string) (persistence.AcquireResult, *persistence.Transcript, error) {
	var resTr *persistence.Transcript
	res := persistence.AcquireNotFound
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		tr, err := lockTranscript(ctx, tx, id)
		if err != nil {
			return err
		}
		if tr == nil {
			res = persistence.AcquireNotFound
			return nil
		}
		res = decideAcquire(tr.ProcessingStatus, utils.FromSQLStr(tr.JobID), jobID)
		if res != persistence.AcquireOK {
			return nil
		}
		if _, err := tx.Exec(ctx, `UPDATE transcripts SET processing_status = $2, processing_error = NULL,
			job_id = $3, updated = $4 WHERE id = $1`, id, status.Working.String(), jobID, time.Now()); err != nil {
			return fmt.Errorf("can't update transcript: %w", err)
		}
		tr.ProcessingStatus = status.Working.String()
		tr.JobID = utils.ToSQLStr(jobID)
		resTr = tr
		return nil
	})
	if err != nil {
		return res, nil, err
	}
	return res, resTr, nil
}

// CompleteProcessing upserts the analysis result and flips the transcript to
// COMPLETED/embedding PENDING in one transaction.
// Returns false without any write if the job lost ownership meanwhile
func (db *DB) CompleteProcessing(ctx context.Context, id, jobID, title string, an *persistence.Analysis) (bool, error) {
	owned := false
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		tr, err := lockTranscript(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ownsProcessing(tr, jobID) {
			return nil
		}
		owned = true
		now := time.Now()
		if _, err := tx.Exec(ctx, `INSERT INTO analysis_results(id, summary, key_points, task, responsible, deadline, created, updated)
			VALUES($1, $2, $3, $4, $5, $6, $7, $7)
			ON CONFLICT (id) DO UPDATE SET summary = $2, key_points = $3, task = $4, responsible = $5, deadline = $6,
			updated = $7`, id, an.Summary, an.KeyPoints, an.Task, an.Responsible, an.Deadline, now); err != nil {
			return fmt.Errorf("can't upsert analysis: %w", err)
		}
		// title is updated only when the model extracted a non empty one
		if _, err := tx.Exec(ctx, `UPDATE transcripts SET processing_status = $2, processing_error = NULL,
			embedding_status = $3, title = COALESCE(NULLIF($4, ''), title), updated = $5
			WHERE id = $1`, id, status.Completed.String(), status.Pending.String(), title, now); err != nil {
			return fmt.Errorf("can't update transcript: %w", err)
		}
		return nil
	})
	return owned, err
}

// FailProcessing settles the transcript as FAILED if the job still owns it
func (db *DB) FailProcessing(ctx context.Context, id, jobID, errMsg string) (bool, error) {
	owned := false
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		tr, err := lockTranscript(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ownsProcessing(tr, jobID) {
			return nil
		}
		owned = true
		if _, err := tx.Exec(ctx, `UPDATE transcripts SET processing_status = $2, processing_error = $3, updated = $4
			WHERE id = $1`, id, status.Failed.String(), limit(errMsg, maxErrLen), time.Now()); err != nil {
			return fmt.Errorf("can't update transcript: %w", err)
		}
		return nil
	})
	return owned, err
}

// AcquireEmbedding tries to stamp the embedding job as the transcript owner
func (db *DB) AcquireEmbedding(ctx context.Context, id, jobID string) (persistence.AcquireResult, *persistence.Transcript, error) {
	var resTr *persistence.Transcript
	res := persistence.AcquireNotFound
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		tr, err := lockTranscript(ctx, tx, id)
		if err != nil {
			return err
		}
		if tr == nil {
			res = persistence.AcquireNotFound
			return nil
		}
		if tr.ProcessingStatus != status.Completed.String() {
			res = persistence.AcquireNotReady
			return nil
		}
		res = decideAcquire(tr.EmbeddingStatus, utils.FromSQLStr(tr.JobID), jobID)
		if res != persistence.AcquireOK {
			return nil
		}
		if _, err := tx.Exec(ctx, `UPDATE transcripts SET embedding_status = $2, embedding_error = NULL,
			job_id = $3, updated = $4 WHERE id = $1`, id, status.Working.String(), jobID, time.Now()); err != nil {
			return fmt.Errorf("can't update transcript: %w", err)
		}
		tr.EmbeddingStatus = status.Working.String()
		tr.JobID = utils.ToSQLStr(jobID)
		resTr = tr
		return nil
	})
	if err != nil {
		return res, nil, err
	}
	return res, resTr, nil
}

// CompleteEmbedding settles the embedding as COMPLETED if the job still owns it
func (db *DB) CompleteEmbedding(ctx context.Context, id, jobID string) (bool, error) {
	owned := false
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		tr, err := lockTranscript(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ownsEmbedding(tr, jobID) {
			return nil
		}
		owned = true
		if _, err := tx.Exec(ctx, `UPDATE transcripts SET embedding_status = $2, embedding_error = NULL, updated = $3
			WHERE id = $1`, id, status.Completed.String(), time.Now()); err != nil {
			return fmt.Errorf("can't update transcript: %w", err)
		}
		return nil
	})
	return owned, err
}

// FailEmbedding settles the embedding as FAILED if the job still owns it
func (db *DB) FailEmbedding(ctx context.Context, id, jobID, errMsg string) (bool, error) {
	owned := false
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		tr, err := lockTranscript(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ownsEmbedding(tr, jobID) {
			return nil
		}
		owned = true
		if _, err := tx.Exec(ctx, `UPDATE transcripts SET embedding_status = $2, embedding_error = $3, updated = $4
			WHERE id = $1`, id, status.Failed.String(), limit(errMsg, maxErrLen), time.Now()); err != nil {
			return fmt.Errorf("can't update transcript: %w", err)
		}
		return nil
	})
	return owned, err
}

// ResetTranscript puts the record back to the initial state for an explicit operator retry
func (db *DB) ResetTranscript(ctx context.Context, id string) error {
	cmd, err := db.pool.Exec(ctx, `UPDATE transcripts SET processing_status = $2, processing_error = NULL,
		embedding_status = $3, embedding_error = NULL, job_id = NULL, updated = $4
		WHERE id = $1`, id, status.Pending.String(), status.None.String(), time.Now())
	if err != nil {
		return fmt.Errorf("can't reset transcript: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("can't reset transcript, no records found")
	}
	return nil
}

// LockEmailTable marks email sending as in progress
func (db *DB) LockEmailTable(ctx context.Context, id, msgType string) error {
	cmd, err := db.pool.Exec(ctx, `INSERT INTO email_lock(id, msg_type, status) VALUES($1, $2, 1)
		ON CONFLICT (id, msg_type) DO UPDATE SET status = 1 WHERE email_lock.status = 0`, id, msgType)
	if err != nil {
		return fmt.Errorf("can't lock email table: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("already sent or sending")
	}
	return nil
}

// UnLockEmailTable marks email sending as done (2) or failed (0)
func (db *DB) UnLockEmailTable(ctx context.Context, id, msgType string, value *int) error {
	_, err := db.pool.Exec(ctx, `UPDATE email_lock SET status = $3 WHERE id = $1 AND msg_type = $2`,
		id, msgType, *value)
	if err != nil {
		return fmt.Errorf("can't unlock email table: %w", err)
	}
	return nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'gue_jobs')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}

func (db *DB) inTx(ctx context.Context, f func(tx pgx.Tx) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("can't begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := f(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("can't commit: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTranscript(row scanner) (*persistence.Transcript, error) {
	var res persistence.Transcript
	err := row.Scan(&res.ID, &res.MeetingID, &res.Title, &res.RawText, &res.FileName, &res.Email,
		&res.ProcessingStatus, &res.ProcessingError, &res.EmbeddingStatus, &res.EmbeddingError,
		&res.JobID, &res.Created, &res.Updated)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func lockTranscript(ctx context.Context, tx pgx.Tx, id string) (*persistence.Transcript, error) {
	res, err := scanTranscript(tx.QueryRow(ctx, `SELECT `+transcriptFields+` FROM transcripts
		WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't lock transcript: %w", err)
	}
	return res, nil
}

func decideAcquire(st, owner, jobID string) persistence.AcquireResult {
	switch status.From(st) {
	case status.Completed:
		return persistence.AcquireSkipCompleted
	case status.Failed:
		return persistence.AcquireSkipFailed
	case status.Working:
		// a retry of the same job reenters its own work
		if owner != jobID {
			return persistence.AcquireSkipOwned
		}
	}
	return persistence.AcquireOK
}

func ownsProcessing(tr *persistence.Transcript, jobID string) bool {
	return tr != nil && tr.ProcessingStatus == status.Working.String() && utils.FromSQLStr(tr.JobID) == jobID
}

func ownsEmbedding(tr *persistence.Transcript, jobID string) bool {
	return tr != nil && tr.EmbeddingStatus == status.Working.String() && utils.FromSQLStr(tr.JobID) == jobID
}

func limit(s string, l int) string {
	if len(s) > l {
		return s[:l]
	}
	return s
}
