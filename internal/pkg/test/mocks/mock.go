package mocks

import (
	"context"
	"io"

	"github.com/airenas/async-api/pkg/messages"
	aapi "github.com/protokolas/protokolas/internal/pkg/analyzer/api"
	"github.com/protokolas/protokolas/internal/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// Filer is minio mock
type Filer struct{ mock.Mock }

func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error {
	args := m.Called(ctx, name, r, fileSize)
	return args.Error(0)
}

// LoadFile func mock
func (m *Filer) LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, fileName)
	return to[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

// DB is postgres DB mock
type DB struct{ mock.Mock }

func (m *DB) InsertTranscript(ctx context.Context, tr *persistence.Transcript) error {
	args := m.Called(ctx, tr)
	return args.Error(0)
}

func (m *DB) LoadTranscript(ctx context.Context, id string) (*persistence.Transcript, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Transcript](args.Get(0)), args.Error(1)
}

func (m *DB) LoadAnalysis(ctx context.Context, id string) (*persistence.Analysis, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Analysis](args.Get(0)), args.Error(1)
}

func (m *DB) ResetTranscript(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *DB) AcquireProcessing(ctx context.Context, id, jobID string) (persistence.AcquireResult, *persistence.Transcript, error) {
	args := m.Called(ctx, id, jobID)
	return args.Get(0).(persistence.AcquireResult), to[*persistence.Transcript](args.Get(1)), args.Error(2)
}

func (m *DB) CompleteProcessing(ctx context.Context, id, jobID, title string, an *persistence.Analysis) (bool, error) {
	args := m.Called(ctx, id, jobID, title, an)
	return args.Bool(0), args.Error(1)
}

func (m *DB) FailProcessing(ctx context.Context, id, jobID, errMsg string) (bool, error) {
	args := m.Called(ctx, id, jobID, errMsg)
	return args.Bool(0), args.Error(1)
}

func (m *DB) AcquireEmbedding(ctx context.Context, id, jobID string) (persistence.AcquireResult, *persistence.Transcript, error) {
	args := m.Called(ctx, id, jobID)
	return args.Get(0).(persistence.AcquireResult), to[*persistence.Transcript](args.Get(1)), args.Error(2)
}

func (m *DB) CompleteEmbedding(ctx context.Context, id, jobID string) (bool, error) {
	args := m.Called(ctx, id, jobID)
	return args.Bool(0), args.Error(1)
}

func (m *DB) FailEmbedding(ctx context.Context, id, jobID, errMsg string) (bool, error) {
	args := m.Called(ctx, id, jobID, errMsg)
	return args.Bool(0), args.Error(1)
}

func (m *DB) LockEmailTable(ctx context.Context, id, msgType string) error {
	args := m.Called(ctx, id, msgType)
	return args.Error(0)
}

func (m *DB) UnLockEmailTable(ctx context.Context, id, msgType string, value *int) error {
	args := m.Called(ctx, id, msgType, value)
	return args.Error(0)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg messages.Message, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

// Analyzer is LLM analysis client mock
type Analyzer struct{ mock.Mock }

func (m *Analyzer) Analyze(ctx context.Context, text string) (*aapi.Analysis, error) {
	args := m.Called(ctx, text)
	return to[*aapi.Analysis](args.Get(0)), args.Error(1)
}

// Chat is LLM chat client mock
type Chat struct{ mock.Mock }

func (m *Chat) Chat(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

// Embedder is embedding client mock
type Embedder struct{ mock.Mock }

func (m *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	return to[[][]float32](args.Get(0)), args.Error(1)
}

func (m *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	return to[[]float32](args.Get(0)), args.Error(1)
}

// Splitter is chunker mock
type Splitter struct{ mock.Mock }

func (m *Splitter) Split(text string) []string {
	args := m.Called(text)
	return to[[]string](args.Get(0))
}

// VectorStore is pgvector index mock
type VectorStore struct{ mock.Mock }

func (m *VectorStore) Replace(ctx context.Context, transcriptID string, chunks []*persistence.Chunk) error {
	args := m.Called(ctx, transcriptID, chunks)
	return args.Error(0)
}

func (m *VectorStore) Query(ctx context.Context, vector []float32, topK int, transcriptID string) ([]*persistence.ScoredChunk, error) {
	args := m.Called(ctx, vector, topK, transcriptID)
	return to[[]*persistence.ScoredChunk](args.Get(0)), args.Error(1)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
