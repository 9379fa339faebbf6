package clean

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/protokolas/protokolas/internal/pkg/test"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCleaner struct{ mock.Mock }

func (m *mockCleaner) Clean(ctx context.Context, ID string) error {
	args := m.Called(ctx, ID)
	return args.Error(0)
}

var (
	cleanerMock *mockCleaner
	tData       *Data
	tEcho       *echo.Echo
)

func initTest(t *testing.T) {
	cleanerMock = &mockCleaner{}
	tData = &Data{}
	tData.Cleaner = cleanerMock
	tEcho = initRoutes(tData)
	cleanerMock.On("Clean", mock.Anything, mock.Anything).Return(nil)
}

func TestWrongPath(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/invalid", nil)
	test.Code(t, tEcho, req, 404)
}

func TestWrongMethod(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/delete/1", nil)
	test.Code(t, tEcho, req, 405)
}

func Test_Live(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	test.Code(t, tEcho, req, 200)
}

func Test_Delete(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodDelete, "/delete/id1", nil)
	test.Code(t, tEcho, req, 200)
	require.Equal(t, 1, len(cleanerMock.Calls))
	assert.Equal(t, "id1", cleanerMock.Calls[0].Arguments[1])
}

func Test_Delete_Fails(t *testing.T) {
	initTest(t)
	cleanerMock.ExpectedCalls = nil
	cleanerMock.On("Clean", mock.Anything, mock.Anything).Return(fmt.Errorf("olia err"))
	req := httptest.NewRequest(http.MethodDelete, "/delete/id1", nil)
	test.Code(t, tEcho, req, 500)
}

func Test_validate(t *testing.T) {
	assert.Nil(t, validate(&Data{Cleaner: &mockCleaner{}}))
	assert.NotNil(t, validate(&Data{}))
}
