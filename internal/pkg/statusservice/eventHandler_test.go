package statusservice

import (
	"fmt"
	"testing"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/protokolas/protokolas/internal/pkg/messages"
	"github.com/protokolas/protokolas/internal/pkg/persistence"
	"github.com/protokolas/protokolas/internal/pkg/status"
	"github.com/protokolas/protokolas/internal/pkg/test"
	"github.com/protokolas/protokolas/internal/pkg/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vgarvardt/gue/v5"
)

type mockWsConn struct{ mock.Mock }

func (m *mockWsConn) ReadMessage() (int, []byte, error) {
	args := m.Called()
	b, _ := args.Get(1).([]byte)
	return args.Int(0), b, args.Error(2)
}

func (m *mockWsConn) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockWsConn) WriteJSON(v interface{}) error {
	args := m.Called(v)
	return args.Error(0)
}

var (
	hWsMock *mockWSConnHandler
	hDBMock *mocks.DB
	hData   *HandlerData
)

func initHandlerTest(t *testing.T) {
	hWsMock = &mockWSConnHandler{}
	hDBMock = &mocks.DB{}
	hData = &HandlerData{DB: hDBMock, WSHandler: hWsMock, WorkerCount: 1, GueClient: &gue.Client{}}
	hDBMock.On("LoadTranscript", mock.Anything, "1").Return(&persistence.Transcript{ID: "1",
		ProcessingStatus: status.Completed.String(), EmbeddingStatus: status.Pending.String()}, nil)
}

func statusMsg(id string) *messages.TranscriptMessage {
	return &messages.TranscriptMessage{QueueMessage: amessages.QueueMessage{ID: id}}
}

func Test_handleStatusChange(t *testing.T) {
	initHandlerTest(t)
	conn := &mockWsConn{}
	conn.On("WriteJSON", mock.Anything).Return(nil)
	hWsMock.On("GetConnections", "1").Return([]WsConn{conn}, true)

	err := handleStatusChange(test.Ctx(t), statusMsg("1"), hData)

	assert.Nil(t, err)
	require.Equal(t, 1, len(conn.Calls))
	res := conn.Calls[0].Arguments[0].(*result)
	assert.Equal(t, "1", res.ID)
	assert.Equal(t, status.Completed.String(), res.Status)
	assert.Equal(t, status.Pending.String(), res.EmbeddingStatus)
}

func Test_handleStatusChange_NoConnections(t *testing.T) {
	initHandlerTest(t)
	hWsMock.On("GetConnections", "1").Return(nil, false)

	err := handleStatusChange(test.Ctx(t), statusMsg("1"), hData)

	assert.Nil(t, err)
	assert.Equal(t, 0, len(hDBMock.Calls))
}

func Test_handleStatusChange_WriteFails(t *testing.T) {
	initHandlerTest(t)
	conn := &mockWsConn{}
	conn.On("WriteJSON", mock.Anything).Return(fmt.Errorf("ws err"))
	hWsMock.On("GetConnections", "1").Return([]WsConn{conn}, true)

	// send errors are logged, not propagated
	err := handleStatusChange(test.Ctx(t), statusMsg("1"), hData)

	assert.Nil(t, err)
}

func Test_handleStatusChange_Fails_DB(t *testing.T) {
	initHandlerTest(t)
	hDBMock.ExpectedCalls = nil
	hDBMock.On("LoadTranscript", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("db err"))
	hWsMock.On("GetConnections", "1").Return([]WsConn{&mockWsConn{}}, true)

	err := handleStatusChange(test.Ctx(t), statusMsg("1"), hData)

	assert.NotNil(t, err)
}

func Test_handleStatusChange_NoTranscript(t *testing.T) {
	initHandlerTest(t)
	hDBMock.ExpectedCalls = nil
	hDBMock.On("LoadTranscript", mock.Anything, mock.Anything).Return(nil, nil)
	hWsMock.On("GetConnections", "1").Return([]WsConn{&mockWsConn{}}, true)

	err := handleStatusChange(test.Ctx(t), statusMsg("1"), hData)

	assert.NotNil(t, err)
}

func Test_validateHandler(t *testing.T) {
	full := func() *HandlerData {
		return &HandlerData{DB: &mocks.DB{}, WSHandler: &mockWSConnHandler{},
			WorkerCount: 1, GueClient: &gue.Client{}}
	}
	tests := []struct {
		name    string
		prepare func(*HandlerData)
		wantErr bool
	}{
		{name: "OK", prepare: func(d *HandlerData) {}, wantErr: false},
		{name: "No gue", prepare: func(d *HandlerData) { d.GueClient = nil }, wantErr: true},
		{name: "No workers", prepare: func(d *HandlerData) { d.WorkerCount = 0 }, wantErr: true},
		{name: "No DB", prepare: func(d *HandlerData) { d.DB = nil }, wantErr: true},
		{name: "No WSHandler", prepare: func(d *HandlerData) { d.WSHandler = nil }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := full()
			tt.prepare(d)
			err := validateHandler(d)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}
