package postgres

import (
	"context"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
)

type cleanTable struct {
	name, idColumn string
}

// Cleaner cleans all records related with ID
type Cleaner struct {
	pool   *pgxpool.Pool
	tables []cleanTable
}

// NewCleaner creates Cleaner instance
func NewCleaner(pool *pgxpool.Pool) (*Cleaner, error) {
	res := &Cleaner{pool: pool, tables: []cleanTable{
		{name: "text_chunks", idColumn: "transcript_id"},
		{name: "analysis_results", idColumn: "id"},
		{name: "email_lock", idColumn: "id"},
		{name: "transcripts", idColumn: "id"},
	}}
	return res, nil
}

// Clean deletes all transcript data by ID
func (db *Cleaner) Clean(ctx context.Context, id string) error {
	for _, t := range db.tables {
		cmd, err := db.pool.Exec(ctx, `DELETE FROM `+t.name+` WHERE `+t.idColumn+` = $1`, id)
		if err != nil {
			return fmt.Errorf("can't delete %s(%s): %w", id, t.name, err)
		}
		goapp.Log.Info().Str("ID", id).Str("table", t.name).Int64("rows", cmd.RowsAffected()).Msg("deleted")
	}
	return nil
}
