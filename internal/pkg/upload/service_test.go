package upload

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/protokolas/protokolas/internal/pkg/api"
	"github.com/protokolas/protokolas/internal/pkg/messages"
	"github.com/protokolas/protokolas/internal/pkg/persistence"
	"github.com/protokolas/protokolas/internal/pkg/status"
	"github.com/protokolas/protokolas/internal/pkg/test"
	"github.com/protokolas/protokolas/internal/pkg/test/mocks"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	saverMock  *mocks.Filer
	dbMock     *mocks.DB
	senderMock *mocks.Sender
	tData      *Data
	tEcho      *echo.Echo
)

func initTest(t *testing.T) {
	saverMock = &mocks.Filer{}
	dbMock = &mocks.DB{}
	senderMock = &mocks.Sender{}
	tData = &Data{Saver: saverMock, DB: dbMock, MsgSender: senderMock, RetrySecret: "olia"}
	tEcho = initRoutes(tData)
	saverMock.On("SaveFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	dbMock.On("InsertTranscript", mock.Anything, mock.Anything).Return(nil)
	dbMock.On("ResetTranscript", mock.Anything, mock.Anything).Return(nil)
	senderMock.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

type formData struct {
	params [][2]string
	filep  string
	file   string
}

func newUploadReq(t *testing.T, data formData) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, p := range data.params {
		require.Nil(t, writer.WriteField(p[0], p[1]))
	}
	if data.filep != "" {
		part, err := writer.CreateFormFile(data.filep, data.file)
		require.Nil(t, err)
		_, err = part.Write([]byte("transcript content"))
		require.Nil(t, err)
	}
	require.Nil(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func TestWrongPath(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/invalid", nil)
	test.Code(t, tEcho, req, 404)
}

func TestWrongMethod(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	test.Code(t, tEcho, req, 405)
}

func Test_Live(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	test.Code(t, tEcho, req, 200)
}

func Test_Upload_Text(t *testing.T) {
	initTest(t)
	req := newUploadReq(t, formData{params: [][2]string{{api.PrmMeeting, "m1"}, {api.PrmText, "some text"}}})
	resp := test.Code(t, tEcho, req, 200)
	res := test.Decode[result](t, resp.Result())
	assert.NotEmpty(t, res.ID)

	require.Equal(t, 1, len(dbMock.Calls))
	tr := dbMock.Calls[0].Arguments[1].(*persistence.Transcript)
	assert.Equal(t, "m1", tr.MeetingID)
	assert.Equal(t, "some text", tr.RawText.String)
	assert.Equal(t, status.Pending.String(), tr.ProcessingStatus)
	assert.Equal(t, status.None.String(), tr.EmbeddingStatus)

	require.Equal(t, 1, len(senderMock.Calls))
	assert.Equal(t, messages.Analyze, senderMock.Calls[0].Arguments[2])
	assert.Equal(t, 0, len(saverMock.Calls))
}

func Test_Upload_File(t *testing.T) {
	initTest(t)
	req := newUploadReq(t, formData{params: [][2]string{{api.PrmMeeting, "m1"},
		{api.PrmEmail, "a@a.com"}}, filep: api.PrmFile, file: "olia.txt"})
	resp := test.Code(t, tEcho, req, 200)
	res := test.Decode[result](t, resp.Result())
	assert.NotEmpty(t, res.ID)

	require.Equal(t, 1, len(saverMock.Calls))
	assert.Equal(t, res.ID+"/olia.txt", saverMock.Calls[0].Arguments[1])
	tr := dbMock.Calls[0].Arguments[1].(*persistence.Transcript)
	assert.Equal(t, "olia.txt", tr.FileName.String)
	assert.Equal(t, "a@a.com", tr.Email.String)
}

func Test_Upload_400(t *testing.T) {
	tests := []struct {
		name     string
		args     formData
		wantCode int
	}{
		{name: "OK", args: formData{params: [][2]string{{api.PrmMeeting, "m1"}, {api.PrmText, "t"}}}, wantCode: 200},
		{name: "No meeting", args: formData{params: [][2]string{{api.PrmText, "t"}}}, wantCode: 400},
		{name: "Empty meeting", args: formData{params: [][2]string{{api.PrmMeeting, "  "}, {api.PrmText, "t"}}}, wantCode: 400},
		{name: "No text no file", args: formData{params: [][2]string{{api.PrmMeeting, "m1"}}}, wantCode: 400},
		{name: "Unknown param", args: formData{params: [][2]string{{api.PrmMeeting, "m1"}, {"olia", "v"}}}, wantCode: 400},
		{name: "File", args: formData{params: [][2]string{{api.PrmMeeting, "m1"}}, filep: api.PrmFile, file: "olia.txt"}, wantCode: 200},
		{name: "Wrong file param", args: formData{params: [][2]string{{api.PrmMeeting, "m1"}}, filep: "file1", file: "olia.txt"}, wantCode: 400},
		{name: "Wrong ext", args: formData{params: [][2]string{{api.PrmMeeting, "m1"}}, filep: api.PrmFile, file: "olia.wav"}, wantCode: 400},
		{name: "No ext", args: formData{params: [][2]string{{api.PrmMeeting, "m1"}}, filep: api.PrmFile, file: "olia"}, wantCode: 400},
		{name: "Md file", args: formData{params: [][2]string{{api.PrmMeeting, "m1"}}, filep: api.PrmFile, file: "olia.md"}, wantCode: 200},
		{name: "Srt file", args: formData{params: [][2]string{{api.PrmMeeting, "m1"}}, filep: api.PrmFile, file: "olia.srt"}, wantCode: 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initTest(t)
			test.Code(t, tEcho, newUploadReq(t, tt.args), tt.wantCode)
		})
	}
}

func Test_Upload_Fails_DB(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("InsertTranscript", mock.Anything, mock.Anything).Return(fmt.Errorf("db err"))
	req := newUploadReq(t, formData{params: [][2]string{{api.PrmMeeting, "m1"}, {api.PrmText, "t"}}})
	test.Code(t, tEcho, req, 500)
	assert.Equal(t, 0, len(senderMock.Calls))
}

func Test_Upload_Fails_Saver(t *testing.T) {
	initTest(t)
	saverMock.ExpectedCalls = nil
	saverMock.On("SaveFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(fmt.Errorf("err"))
	req := newUploadReq(t, formData{params: [][2]string{{api.PrmMeeting, "m1"}}, filep: api.PrmFile, file: "olia.txt"})
	test.Code(t, tEcho, req, 500)
	assert.Equal(t, 0, len(senderMock.Calls))
}

func Test_Upload_Fails_Sender(t *testing.T) {
	initTest(t)
	senderMock.ExpectedCalls = nil
	senderMock.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(fmt.Errorf("err"))
	req := newUploadReq(t, formData{params: [][2]string{{api.PrmMeeting, "m1"}, {api.PrmText, "t"}}})
	test.Code(t, tEcho, req, 500)
}

func Test_Retry(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodPost, "/retry/olia/id1", nil)
	resp := test.Code(t, tEcho, req, 200)
	res := test.Decode[result](t, resp.Result())
	assert.Equal(t, "id1", res.ID)
	require.Equal(t, 1, len(dbMock.Calls))
	assert.Equal(t, "ResetTranscript", dbMock.Calls[0].Method)
	require.Equal(t, 1, len(senderMock.Calls))
	assert.Equal(t, messages.Analyze, senderMock.Calls[0].Arguments[2])
}

func Test_Retry_WrongSecret(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodPost, "/retry/wrong/id1", nil)
	test.Code(t, tEcho, req, 404)
}

func Test_Retry_Fails_DB(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("ResetTranscript", mock.Anything, mock.Anything).Return(fmt.Errorf("db err"))
	req := httptest.NewRequest(http.MethodPost, "/retry/olia/id1", nil)
	test.Code(t, tEcho, req, 500)
	assert.Equal(t, 0, len(senderMock.Calls))
}

func Test_validate(t *testing.T) {
	full := func() *Data {
		return &Data{Saver: &mocks.Filer{}, DB: &mocks.DB{}, MsgSender: &mocks.Sender{}}
	}
	tests := []struct {
		name    string
		prepare func(*Data)
		wantErr bool
	}{
		{name: "OK", prepare: func(d *Data) {}, wantErr: false},
		{name: "No saver", prepare: func(d *Data) { d.Saver = nil }, wantErr: true},
		{name: "No DB", prepare: func(d *Data) { d.DB = nil }, wantErr: true},
		{name: "No sender", prepare: func(d *Data) { d.MsgSender = nil }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := full()
			tt.prepare(d)
			err := validate(d)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}
