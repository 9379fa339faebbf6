package inform

import (
	"fmt"
	"testing"
	"time"

	ainform "github.com/airenas/async-api/pkg/inform"
	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/jordan-wright/email"
	"github.com/protokolas/protokolas/internal/pkg/persistence"
	"github.com/protokolas/protokolas/internal/pkg/test"
	"github.com/protokolas/protokolas/internal/pkg/test/mocks"
	"github.com/protokolas/protokolas/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vgarvardt/gue/v5"
)

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(e *email.Email) error {
	args := m.Called(e)
	return args.Error(0)
}

type mockEmailMaker struct{ mock.Mock }

func (m *mockEmailMaker) Make(data *ainform.Data) (*email.Email, error) {
	args := m.Called(data)
	res, _ := args.Get(0).(*email.Email)
	return res, args.Error(1)
}

var (
	senderMock *mockSender
	makerMock  *mockEmailMaker
	dbMock     *mocks.DB
	srvData    *ServiceData
)

func initTest(t *testing.T) {
	senderMock = &mockSender{}
	makerMock = &mockEmailMaker{}
	dbMock = &mocks.DB{}
	srvData = &ServiceData{GueClient: &gue.Client{}, WorkerCount: 1, EmailSender: senderMock,
		EmailMaker: makerMock, DB: dbMock}
	dbMock.On("LoadTranscript", mock.Anything, "1").Return(&persistence.Transcript{ID: "1",
		Email: utils.ToSQLStr("olia@olia.com")}, nil)
	dbMock.On("LockEmailTable", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	dbMock.On("UnLockEmailTable", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	makerMock.On("Make", mock.Anything).Return(&email.Email{}, nil)
	senderMock.On("Send", mock.Anything).Return(nil)
}

func testInformMsg() *amessages.InformMessage {
	return &amessages.InformMessage{QueueMessage: amessages.QueueMessage{ID: "1"},
		Type: amessages.InformTypeStarted, At: time.Now()}
}

func Test_handleInform(t *testing.T) {
	initTest(t)
	err := handleInform(test.Ctx(t), testInformMsg(), srvData)
	assert.Nil(t, err)
	require.Equal(t, 1, len(senderMock.Calls))
	require.Equal(t, 1, len(makerMock.Calls))
	md := makerMock.Calls[0].Arguments[0].(*ainform.Data)
	assert.Equal(t, "olia@olia.com", md.Email)
	assert.Equal(t, "1", md.ID)
	// unlock writes the done marker after a successful send
	unlockCall := dbMock.Calls[len(dbMock.Calls)-1]
	assert.Equal(t, "UnLockEmailTable", unlockCall.Method)
	assert.Equal(t, 2, *unlockCall.Arguments[3].(*int))
}

func Test_handleInform_NoTranscript(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadTranscript", mock.Anything, mock.Anything).Return(nil, nil)
	err := handleInform(test.Ctx(t), testInformMsg(), srvData)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(senderMock.Calls))
}

func Test_handleInform_NoEmail(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadTranscript", mock.Anything, mock.Anything).Return(&persistence.Transcript{ID: "1"}, nil)
	err := handleInform(test.Ctx(t), testInformMsg(), srvData)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(senderMock.Calls))
	assert.Equal(t, 0, len(makerMock.Calls))
}

func Test_handleInform_Fails_Lock(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadTranscript", mock.Anything, "1").Return(&persistence.Transcript{ID: "1",
		Email: utils.ToSQLStr("olia@olia.com")}, nil)
	dbMock.On("LockEmailTable", mock.Anything, mock.Anything, mock.Anything).Return(fmt.Errorf("locked"))
	err := handleInform(test.Ctx(t), testInformMsg(), srvData)
	assert.NotNil(t, err)
	assert.Equal(t, 0, len(senderMock.Calls))
}

func Test_handleInform_Fails_Send(t *testing.T) {
	initTest(t)
	senderMock.ExpectedCalls = nil
	senderMock.On("Send", mock.Anything).Return(fmt.Errorf("smtp err"))
	err := handleInform(test.Ctx(t), testInformMsg(), srvData)
	assert.NotNil(t, err)
	unlockCall := dbMock.Calls[len(dbMock.Calls)-1]
	assert.Equal(t, "UnLockEmailTable", unlockCall.Method)
	assert.Equal(t, 0, *unlockCall.Arguments[3].(*int))
}

func Test_validate(t *testing.T) {
	full := func() *ServiceData {
		return &ServiceData{GueClient: &gue.Client{}, WorkerCount: 1,
			EmailSender: &mockSender{}, EmailMaker: &mockEmailMaker{}, DB: &mocks.DB{}}
	}
	tests := []struct {
		name    string
		prepare func(*ServiceData)
		wantErr bool
	}{
		{name: "OK", prepare: func(d *ServiceData) {}, wantErr: false},
		{name: "No gue", prepare: func(d *ServiceData) { d.GueClient = nil }, wantErr: true},
		{name: "No workers", prepare: func(d *ServiceData) { d.WorkerCount = 0 }, wantErr: true},
		{name: "No maker", prepare: func(d *ServiceData) { d.EmailMaker = nil }, wantErr: true},
		{name: "No sender", prepare: func(d *ServiceData) { d.EmailSender = nil }, wantErr: true},
		{name: "No DB", prepare: func(d *ServiceData) { d.DB = nil }, wantErr: true},
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
