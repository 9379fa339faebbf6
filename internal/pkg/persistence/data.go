package persistence

import (
	"database/sql"
	"time"
)

type (

	//Transcript table
	Transcript struct {
		ID               string
		MeetingID        string
		Title            sql.NullString
		RawText          sql.NullString
		FileName         sql.NullString
		Email            sql.NullString
		ProcessingStatus string
		ProcessingError  sql.NullString
		EmbeddingStatus  string
		EmbeddingError   sql.NullString
		JobID            sql.NullString
		Created          time.Time
		Updated          time.Time
	}

	//Analysis result table
	Analysis struct {
		ID          string
		Summary     string
		KeyPoints   []string
		Task        string
		Responsible string
		Deadline    sql.NullTime
		Created     time.Time
		Updated     time.Time
	}

	//Chunk is one embedded transcript piece
	Chunk struct {
		TranscriptID string
		MeetingID    string
		Pos          int
		Text         string
		Embedding    []float32
	}

	//ScoredChunk is a similarity query result
	ScoredChunk struct {
		Text  string
		Pos   int
		Score float64
	}
)

// AcquireResult is the outcome of a job trying to take a transcript over
type AcquireResult int

const (
	// AcquireOK - the job owns the record now
	AcquireOK AcquireResult = iota + 1
	// AcquireSkipCompleted - record already in final COMPLETED state
	AcquireSkipCompleted
	// AcquireSkipFailed - record already in final FAILED state
	AcquireSkipFailed
	// AcquireSkipOwned - another live job owns the record
	AcquireSkipOwned
	// AcquireNotFound - no record by ID
	AcquireNotFound
	// AcquireNotReady - analysis is not completed yet
	AcquireNotReady
)

var acquireName = map[AcquireResult]string{AcquireOK: "OK", AcquireSkipCompleted: "SKIP_COMPLETED",
	AcquireSkipFailed: "SKIP_FAILED", AcquireSkipOwned: "SKIP_OWNED", AcquireNotFound: "NOT_FOUND",
	AcquireNotReady: "NOT_READY"}

func (ar AcquireResult) String() string {
	return acquireName[ar]
}
