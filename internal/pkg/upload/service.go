package upload

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/protokolas/protokolas/internal/pkg/api"
	"github.com/protokolas/protokolas/internal/pkg/messages"
	"github.com/protokolas/protokolas/internal/pkg/persistence"
	"github.com/protokolas/protokolas/internal/pkg/status"
	"github.com/protokolas/protokolas/internal/pkg/utils"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// FileSaver provides save file functionality
type FileSaver interface {
	SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// DB saves transcripts
type DB interface {
	InsertTranscript(ctx context.Context, tr *persistence.Transcript) error
	ResetTranscript(ctx context.Context, id string) error
}

// Data keeps data required for service work
type Data struct {
	Port        int
	Saver       FileSaver
	DB          DB
	MsgSender   MsgSender
	RetrySecret string
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Msgf("Starting HTTP transcript upload service at %d", data.Port)
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 180 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Saver == nil {
		return errors.New("no file saver")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("proto_upload", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/upload", upload(data))
	if data.RetrySecret != "" {
		e.POST(fmt.Sprintf("/retry/%s/:id", data.RetrySecret), retry(data))
	}
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

type result struct {
	ID string `json:"id"`
}

func upload(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("upload method")()
		ctx := c.Request().Context()

		form, err := c.MultipartForm()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no multipart form data")
		}
		defer cleanFiles(form)
		if err := validateFormParams(form); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		meetingID := strings.TrimSpace(c.FormValue(api.PrmMeeting))
		if meetingID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no meeting")
		}
		text := c.FormValue(api.PrmText)

		file, fHeader, err := takeFile(form, api.PrmFile)
		if err != nil && err != http.ErrMissingFile {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong input form")
		}
		if file != nil {
			defer file.Close()
		}
		if strings.TrimSpace(text) == "" && file == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no text or file")
		}

		tr := persistence.Transcript{}
		tr.ID = uuid.New().String()
		tr.MeetingID = meetingID
		tr.RawText = utils.ToSQLStr(text)
		tr.Email = utils.ToSQLStr(c.FormValue(api.PrmEmail))
		tr.ProcessingStatus = status.Pending.String()
		tr.EmbeddingStatus = status.None.String()
		tr.Created = time.Now()

		if fHeader != nil {
			fn, err := validateExtractFile(fHeader)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			tr.FileName = utils.ToSQLStr(fn)
		}

		err = data.DB.InsertTranscript(ctx, &tr)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if file != nil {
			err = saveFile(ctx, data.Saver, tr.ID, file, fHeader)
			if err != nil {
				goapp.Log.Error().Err(err).Send()
				return echo.NewHTTPError(http.StatusInternalServerError)
			}
		}
		err = data.MsgSender.SendMessage(ctx, messages.NewTranscriptMessage(tr.ID), messages.Analyze)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}

		res := result{ID: tr.ID}
		return c.JSON(http.StatusOK, res)
	}
}

func retry(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("retry method")()
		ctx := c.Request().Context()
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		err := data.DB.ResetTranscript(ctx, id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		err = data.MsgSender.SendMessage(ctx, messages.NewTranscriptMessage(id), messages.Analyze)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}

		res := result{ID: id}
		return c.JSON(http.StatusOK, res)
	}
}

func cleanFiles(f *multipart.Form) {
	if f != nil {
		_ = f.RemoveAll()
	}
}

func validateFormParams(form *multipart.Form) error {
	allowed := map[string]bool{api.PrmMeeting: true, api.PrmText: true, api.PrmEmail: true}
	for k := range form.Value {
		_, f := allowed[k]
		if !f {
			return errors.Errorf("unknown parameter '%s'", k)
		}
	}
	return validateFormFiles(form)
}

func validateFormFiles(form *multipart.Form) error {
	if form == nil {
		return nil
	}
	for k := range form.File {
		if k != api.PrmFile {
			return errors.Errorf("unexpected form file parameter '%s'", k)
		}
	}
	return nil
}

func takeFile(form *multipart.Form, paramName string) (multipart.File, *multipart.FileHeader, error) {
	handler := takeFirst(form.File[paramName], nil)
	if handler == nil {
		return nil, nil, http.ErrMissingFile
	}
	file, err := handler.Open()
	return file, handler, err
}

func takeFirst[K interface{}](a []K, d K) K {
	if len(a) > 0 {
		return a[0]
	}
	return d
}

func validateExtractFile(fHeader *multipart.FileHeader) (string, error) {
	ext := filepath.Ext(fHeader.Filename)
	if !utils.SupportTranscriptExt(strings.ToLower(ext)) {
		return "", fmt.Errorf("wrong file extension: " + ext)
	}
	fn, err := utils.MakeValidateFileName("", fHeader.Filename)
	if err != nil {
		return "", fmt.Errorf("wrong file name: " + fHeader.Filename)
	}
	return fn, nil
}

func saveFile(ctx context.Context, fs FileSaver, id string, file multipart.File, fHeader *multipart.FileHeader) error {
	fn, err := utils.MakeValidateFileName(id, fHeader.Filename)
	if err != nil {
		return fmt.Errorf("can't save '%s': %w", fHeader.Filename, err)
	}
	if err = fs.SaveFile(ctx, fn, file, fHeader.Size); err != nil {
		return fmt.Errorf("can't save '%s': %w", fn, err)
	}
	return nil
}
