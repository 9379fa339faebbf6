package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/protokolas/protokolas/internal/pkg/persistence"
)

// VectorStore keeps transcript chunk embeddings in a pgvector column
type VectorStore struct {
	pool *pgxpool.Pool
}

//NewVectorStore creates VectorStore instance
func NewVectorStore(pool *pgxpool.Pool) (*VectorStore, error) {
	res := &VectorStore{pool: pool}
	return res, nil
}

// Replace swaps all transcript chunks in one transaction.
// A retried job can't leave duplicates or orphans behind
func (vs *VectorStore) Replace(ctx context.Context, transcriptID string, chunks []*persistence.Chunk) error {
	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("can't begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	cmd, err := tx.Exec(ctx, `DELETE FROM text_chunks WHERE transcript_id = $1`, transcriptID)
	if err != nil {
		return fmt.Errorf("can't delete chunks: %w", err)
	}
	goapp.Log.Debug().Str("ID", transcriptID).Int64("rows", cmd.RowsAffected()).Msg("dropped old chunks")
	b := &pgx.Batch{}
	now := time.Now()
	for _, ch := range chunks {
		b.Queue(`INSERT INTO text_chunks(transcript_id, meeting_id, pos, text, embedding, created)
			VALUES($1, $2, $3, $4, $5, $6)`, ch.TranscriptID, ch.MeetingID, ch.Pos, ch.Text,
			pgvector.NewVector(ch.Embedding), now)
	}
	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("can't insert chunks: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("can't commit: %w", err)
	}
	goapp.Log.Info().Str("ID", transcriptID).Int("chunks", len(chunks)).Msg("saved chunks")
	return nil
}

// Query returns topK chunks of the transcript closest to the vector by cosine distance
func (vs *VectorStore) Query(ctx context.Context, vector []float32, topK int, transcriptID string) ([]*persistence.ScoredChunk, error) {
	rows, err := vs.pool.Query(ctx, `SELECT text, pos, 1 - (embedding <=> $1) FROM text_chunks
		WHERE transcript_id = $2 ORDER BY embedding <=> $1 LIMIT $3`,
		pgvector.NewVector(vector), transcriptID, topK)
	if err != nil {
		return nil, fmt.Errorf("can't query chunks: %w", err)
	}
	defer rows.Close()

	res := []*persistence.ScoredChunk{}
	for rows.Next() {
		var ch persistence.ScoredChunk
		if err := rows.Scan(&ch.Text, &ch.Pos, &ch.Score); err != nil {
			return nil, fmt.Errorf("can't retrieve chunk: %w", err)
		}
		res = append(res, &ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't retrieve chunks: %w", err)
	}
	return res, nil
}
