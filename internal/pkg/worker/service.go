package worker

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	aapi "github.com/protokolas/protokolas/internal/pkg/analyzer/api"
	"github.com/protokolas/protokolas/internal/pkg/messages"
	"github.com/protokolas/protokolas/internal/pkg/persistence"
	"github.com/protokolas/protokolas/internal/pkg/utils"
	"github.com/protokolas/protokolas/internal/pkg/utils/handler"
	"github.com/vgarvardt/gue/v5"
)

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// DB provides the transcript state machine
type DB interface {
	AcquireProcessing(ctx context.Context, id, jobID string) (persistence.AcquireResult, *persistence.Transcript, error)
	CompleteProcessing(ctx context.Context, id, jobID, title string, an *persistence.Analysis) (bool, error)
	FailProcessing(ctx context.Context, id, jobID, errMsg string) (bool, error)
	AcquireEmbedding(ctx context.Context, id, jobID string) (persistence.AcquireResult, *persistence.Transcript, error)
	CompleteEmbedding(ctx context.Context, id, jobID string) (bool, error)
	FailEmbedding(ctx context.Context, id, jobID, errMsg string) (bool, error)
}

// Filer retrieves uploaded transcript files
type Filer interface {
	LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error)
}

// Analyzer extracts structured insight from transcript text
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*aapi.Analysis, error)
}

// Embedder turns chunk texts into vectors
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Splitter cuts transcript text into chunks
type Splitter interface {
	Split(text string) []string
}

// VectorStore persists chunk embeddings
type VectorStore interface {
	Replace(ctx context.Context, transcriptID string, chunks []*persistence.Chunk) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	MsgSender   MsgSender
	DB          DB
	Filer       Filer
	Analyzer    Analyzer
	Embedder    Embedder
	Splitter    Splitter
	VectorStore VectorStore
	Testing     bool
}

const (
	analysisRetries  = 3
	embeddingRetries = 2
)

// StartWorkerService starts queue listeners for analysis, embedding and failure jobs
// returns channel for tracking if all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("workers", data.WorkerCount).Msg("Starting listen for messages")
	if data.Testing {
		goapp.Log.Warn().Msg("SERVICE IN TEST MODE")
	}

	pools := []struct {
		queue string
		wm    gue.WorkMap
		id    string
	}{
		{queue: messages.Analyze, id: "analyze-worker", wm: gue.WorkMap{
			messages.Analyze: handler.Create(data, handleAnalyze, handler.DefaultOpts[messages.TranscriptMessage]().
				WithFailure(failureSender(data, messages.ScopeAnalysis, analysisRetries)).
				WithTimeout(time.Minute*30).WithBackoff(handler.DefaultBackoffOrTest(data.Testing)))}},
		{queue: messages.Embed, id: "embed-worker", wm: gue.WorkMap{
			messages.Embed: handler.Create(data, handleEmbed, handler.DefaultOpts[messages.TranscriptMessage]().
				WithFailure(failureSender(data, messages.ScopeEmbedding, embeddingRetries)).
				WithTimeout(time.Minute*30).WithBackoff(handler.DefaultBackoffOrTest(data.Testing)))}},
		{queue: messages.Fail, id: "fail-worker", wm: gue.WorkMap{
			messages.Fail: handler.Create(data, handleFail, handler.DefaultOpts[messages.FailMessage]().
				WithBackoff(handler.DefaultBackoffOrTest(data.Testing)))}},
	}

	var wg sync.WaitGroup
	for _, p := range pools {
		pool, err := gue.NewWorkerPool(
			data.GueClient, p.wm, data.WorkerCount,
			gue.WithPoolQueue(p.queue),
			gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
			gue.WithPoolPollInterval(500*time.Millisecond),
			gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
			gue.WithPoolID(p.id),
		)
		if err != nil {
			return nil, fmt.Errorf("could not build gue workers pool: %w", err)
		}
		wg.Add(1)
		go func(queue string) {
			defer wg.Done()
			goapp.Log.Info().Str("queue", queue).Msg("Starting workers")
			if err := pool.Run(ctx); err != nil {
				goapp.Log.Error().Err(err).Msg("pool error")
			}
			goapp.Log.Info().Str("queue", queue).Msg("Pool workers finished")
		}(p.queue)
	}
	res := make(chan struct{}, 1)
	go func() {
		wg.Wait()
		res <- struct{}{}
	}()
	return res, nil
}

func handleAnalyze(ctx context.Context, m *messages.TranscriptMessage, data *ServiceData) error {
	jobID := handler.JobID(ctx)
	goapp.Log.Info().Str("ID", m.ID).Str("jobID", jobID).Msg("handling analysis")
	ar, tr, err := data.DB.AcquireProcessing(ctx, m.ID, jobID)
	if err != nil {
		return fmt.Errorf("can't acquire transcript: %w", err)
	}
	if ar != persistence.AcquireOK {
		goapp.Log.Warn().Str("ID", m.ID).Str("outcome", ar.String()).Msg("skip")
		return nil
	}
	sendInform(ctx, data, m.ID, amessages.InformTypeStarted)

	text, err := resolveText(ctx, tr, data)
	if err == nil && text == "" {
		err = utils.NewErrTerminal(fmt.Errorf("empty transcript content"))
	}
	var an *aapi.Analysis
	if err == nil {
		an, err = data.Analyzer.Analyze(ctx, text)
	}
	if err != nil {
		if utils.IsTerminal(err) {
			return failProcessing(ctx, data, m.ID, jobID, err)
		}
		return err
	}

	ok, err := data.DB.CompleteProcessing(ctx, m.ID, jobID, an.Title, &persistence.Analysis{
		ID: m.ID, Summary: an.Summary, KeyPoints: an.KeyPoints, Task: an.Task,
		Responsible: an.Responsible, Deadline: utils.ToSQLTime(an.Deadline)})
	if err != nil {
		return fmt.Errorf("can't save analysis: %w", err)
	}
	if !ok {
		goapp.Log.Warn().Str("ID", m.ID).Msg("ownership lost - abort")
		return nil
	}
	goapp.Log.Info().Str("ID", m.ID).Msg("Analysis completed")
	// completion is committed, everything below is best effort
	sendMsg(ctx, data, m.ID, messages.Embed)
	sendMsg(ctx, data, m.ID, messages.StatusChange)
	return nil
}

func handleEmbed(ctx context.Context, m *messages.TranscriptMessage, data *ServiceData) error {
	jobID := handler.JobID(ctx)
	goapp.Log.Info().Str("ID", m.ID).Str("jobID", jobID).Msg("handling embedding")
	ar, tr, err := data.DB.AcquireEmbedding(ctx, m.ID, jobID)
	if err != nil {
		return fmt.Errorf("can't acquire transcript: %w", err)
	}
	if ar != persistence.AcquireOK {
		goapp.Log.Warn().Str("ID", m.ID).Str("outcome", ar.String()).Msg("skip")
		return nil
	}

	text, err := resolveText(ctx, tr, data)
	if err != nil {
		if utils.IsTerminal(err) {
			return failEmbedding(ctx, data, m.ID, jobID, err)
		}
		return err
	}
	chunks := data.Splitter.Split(text)
	recs := make([]*persistence.Chunk, 0, len(chunks))
	if len(chunks) > 0 {
		vecs, err := data.Embedder.Embed(ctx, chunks)
		if err != nil {
			if utils.IsTerminal(err) {
				return failEmbedding(ctx, data, m.ID, jobID, err)
			}
			return err
		}
		if len(vecs) != len(chunks) {
			return failEmbedding(ctx, data, m.ID, jobID,
				fmt.Errorf("embedding count mismatch: got %d, expected %d", len(vecs), len(chunks)))
		}
		for i, ch := range chunks {
			recs = append(recs, &persistence.Chunk{TranscriptID: tr.ID, MeetingID: tr.MeetingID,
				Pos: i, Text: ch, Embedding: vecs[i]})
		}
	} else {
		goapp.Log.Info().Str("ID", m.ID).Msg("no chunks - empty index")
	}
	if err := data.VectorStore.Replace(ctx, tr.ID, recs); err != nil {
		return fmt.Errorf("can't save chunks: %w", err)
	}

	ok, err := data.DB.CompleteEmbedding(ctx, m.ID, jobID)
	if err != nil {
		return fmt.Errorf("can't save status: %w", err)
	}
	if !ok {
		goapp.Log.Warn().Str("ID", m.ID).Msg("ownership lost - abort")
		return nil
	}
	goapp.Log.Info().Str("ID", m.ID).Int("chunks", len(recs)).Msg("Embedding completed")
	sendMsg(ctx, data, m.ID, messages.StatusChange)
	sendInform(ctx, data, m.ID, amessages.InformTypeFinished)
	return nil
}

func handleFail(ctx context.Context, m *messages.FailMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Str("scope", m.Scope).Str("jobID", m.JobID).Msg("handling failure")
	var ok bool
	var err error
	if m.Scope == messages.ScopeEmbedding {
		ok, err = data.DB.FailEmbedding(ctx, m.ID, m.JobID, m.Error)
	} else {
		ok, err = data.DB.FailProcessing(ctx, m.ID, m.JobID, m.Error)
	}
	if err != nil {
		return fmt.Errorf("can't save failure: %w", err)
	}
	if !ok {
		goapp.Log.Warn().Str("ID", m.ID).Msg("ownership changed - skip")
		return nil
	}
	sendMsg(ctx, data, m.ID, messages.StatusChange)
	sendInform(ctx, data, m.ID, amessages.InformTypeFailed)
	return nil
}

func failProcessing(ctx context.Context, data *ServiceData, id, jobID string, cause error) error {
	goapp.Log.Warn().Err(cause).Str("ID", id).Msg("analysis failed")
	ok, err := data.DB.FailProcessing(ctx, id, jobID, cause.Error())
	if err != nil {
		return fmt.Errorf("can't save failure: %w", err)
	}
	if !ok {
		goapp.Log.Warn().Str("ID", id).Msg("ownership lost - abort")
		return nil
	}
	sendMsg(ctx, data, id, messages.StatusChange)
	sendInform(ctx, data, id, amessages.InformTypeFailed)
	return nil
}

func failEmbedding(ctx context.Context, data *ServiceData, id, jobID string, cause error) error {
	goapp.Log.Warn().Err(cause).Str("ID", id).Msg("embedding failed")
	ok, err := data.DB.FailEmbedding(ctx, id, jobID, cause.Error())
	if err != nil {
		return fmt.Errorf("can't save failure: %w", err)
	}
	if !ok {
		goapp.Log.Warn().Str("ID", id).Msg("ownership lost - abort")
		return nil
	}
	sendMsg(ctx, data, id, messages.StatusChange)
	sendInform(ctx, data, id, amessages.InformTypeFailed)
	return nil
}

// resolveText returns raw text or the decoded uploaded file content
func resolveText(ctx context.Context, tr *persistence.Transcript, data *ServiceData) (string, error) {
	if txt := strings.TrimSpace(utils.FromSQLStr(tr.RawText)); txt != "" {
		return txt, nil
	}
	fn := utils.FromSQLStr(tr.FileName)
	if fn == "" {
		return "", nil
	}
	goapp.Log.Info().Str("ID", tr.ID).Str("file", fn).Msg("load file")
	file, err := data.Filer.LoadFile(ctx, utils.MakeFileName(tr.ID, fn))
	if err != nil {
		return "", fmt.Errorf("can't load file: %w", err)
	}
	defer file.Close()
	b, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("can't read file: %w", err)
	}
	res, err := utils.DecodeText(b)
	if err != nil {
		return "", utils.NewErrTerminal(fmt.Errorf("can't decode file '%s': %w", fn, err))
	}
	return strings.TrimSpace(res), nil
}

func sendMsg(ctx context.Context, data *ServiceData, id, queue string) {
	if err := data.MsgSender.SendMessage(ctx, messages.NewTranscriptMessage(id), queue); err != nil {
		goapp.Log.Error().Err(err).Str("ID", id).Str("queue", queue).Msg("can't send msg")
	}
}

func sendInform(ctx context.Context, data *ServiceData, id, informType string) {
	err := data.MsgSender.SendMessage(ctx, &amessages.InformMessage{
		QueueMessage: amessages.QueueMessage{ID: id},
		Type:         informType, At: time.Now()}, messages.Inform)
	if err != nil {
		goapp.Log.Error().Err(err).Str("ID", id).Str("type", informType).Msg("can't send inform msg")
	}
}

// failureSender routes the job to the fail queue after the retry ceiling.
// The fail handler settles the record as FAILED under the original job ownership stamp
func failureSender(data *ServiceData, scope string, maxRetries int32) func(context.Context, *messages.TranscriptMessage, error, *gue.Job) (bool, time.Duration, error) {
	return func(ctx context.Context, m *messages.TranscriptMessage, err error, j *gue.Job) (bool, time.Duration, error) {
		if j.ErrorCount < maxRetries {
			return true, 0, nil
		}
		sendErr := data.MsgSender.SendMessage(ctx, &messages.FailMessage{
			QueueMessage: amessages.QueueMessage{ID: m.ID},
			JobID:        j.ID.String(), Scope: scope, Error: err.Error()}, messages.Fail)
		if sendErr != nil {
			// keep the job alive so the fail msg send is retried
			return true, 0, sendErr
		}
		return false, 0, nil
	}
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.Filer == nil {
		return fmt.Errorf("no Filer")
	}
	if data.Analyzer == nil {
		return fmt.Errorf("no Analyzer")
	}
	if data.Embedder == nil {
		return fmt.Errorf("no Embedder")
	}
	if data.Splitter == nil {
		return fmt.Errorf("no Splitter")
	}
	if data.VectorStore == nil {
		return fmt.Errorf("no VectorStore")
	}
	return nil
}
