package qa

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/protokolas/protokolas/internal/pkg/persistence"
	"github.com/protokolas/protokolas/internal/pkg/status"
	"github.com/protokolas/protokolas/internal/pkg/utils"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const answerPrompt = `You are a meeting assistant. Answer the question using only the provided meeting transcript excerpts.
If the excerpts do not contain enough information to answer, say explicitly that the transcript does not contain the answer.
Do not use any outside knowledge.`

// DB loads transcripts
type DB interface {
	LoadTranscript(ctx context.Context, id string) (*persistence.Transcript, error)
}

// Embedder embeds the question text
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chat answers with the provided context
type Chat interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Index retrieves similar transcript chunks
type Index interface {
	Query(ctx context.Context, vector []float32, topK int, transcriptID string) ([]*persistence.ScoredChunk, error)
}

// Data keeps data required for service work
type Data struct {
	Port     int
	DB       DB
	Embedder Embedder
	Chat     Chat
	Index    Index
	TopK     int
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP transcript QA service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = 3 * time.Minute

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.DB == nil {
		return errors.New("no DB")
	}
	if data.Embedder == nil {
		return errors.New("no embedder")
	}
	if data.Chat == nil {
		return errors.New("no chat")
	}
	if data.Index == nil {
		return errors.New("no index")
	}
	if data.TopK < 1 {
		return errors.New("no topK")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("proto_qa", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/ask/:id", ask(data))
	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

type request struct {
	Question string `json:"question"`
}

type response struct {
	Answer string `json:"answer"`
}

func ask(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("ask method")()
		ctx := c.Request().Context()

		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		var req request
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong request")
		}
		if strings.TrimSpace(req.Question) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no question")
		}

		tr, err := data.DB.LoadTranscript(ctx, id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Service error")
		}
		if tr == nil {
			return echo.NewHTTPError(http.StatusNotFound, "no transcript")
		}
		// nothing touches the index before this gate passes
		if tr.EmbeddingStatus != status.Completed.String() {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("transcript is not ready for questions: embedding status is %s", tr.EmbeddingStatus))
		}

		vec, err := data.Embedder.EmbedQuery(ctx, req.Question)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusServiceUnavailable, "Can't embed question")
		}
		chunks, err := data.Index.Query(ctx, vec, data.TopK, id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Can't query index")
		}

		answer, err := data.Chat.Chat(ctx, answerPrompt, makeQuestion(chunks, req.Question))
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			if utils.IsTerminal(err) {
				return echo.NewHTTPError(http.StatusInternalServerError, "Can't answer")
			}
			return echo.NewHTTPError(http.StatusServiceUnavailable, "Can't answer")
		}
		return c.JSON(http.StatusOK, response{Answer: answer})
	}
}

func makeQuestion(chunks []*persistence.ScoredChunk, question string) string {
	sb := &strings.Builder{}
	sb.WriteString("Transcript excerpts:\n")
	for _, ch := range chunks {
		sb.WriteString(ch.Text)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}
