package statusservice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/protokolas/protokolas/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var tKeeper *WSConnKeeper

func initKeeperTest(t *testing.T) {
	tKeeper = NewWSConnKeeper()
}

func newSubscribedConn(t *testing.T, closeChan <-chan struct{}, ids ...string) *mockWsConn {
	t.Helper()
	conn := &mockWsConn{}
	conn.On("WriteJSON", mock.Anything).Return(nil)
	for _, id := range ids {
		conn.On("ReadMessage").Return(1, []byte(id), nil).Once()
	}
	// block until the test releases the connection, then fail the read
	conn.On("ReadMessage").Return(0, []byte{}, fmt.Errorf("closed")).Run(func(args mock.Arguments) {
		<-closeChan
	})
	conn.On("Close").Return(nil)
	return conn
}

func waitConns(t *testing.T, id string, count int) {
	t.Helper()
	ctx := test.Ctx(t)
	for {
		cn, ok := tKeeper.GetConnections(id)
		if ok == (count > 0) && len(cn) == count {
			return
		}
		select {
		case <-ctx.Done():
			require.Failf(t, "Fail", "no %d connections for %s", count, id)
		case <-time.After(time.Millisecond * 100):
		}
	}
}

func Test_HandleConnection(t *testing.T) {
	initKeeperTest(t)
	closeCtx, cf := context.WithCancel(test.Ctx(t))
	go func() {
		assert.Nil(t, tKeeper.HandleConnection(newSubscribedConn(t, closeCtx.Done(), "1")))
	}()
	waitConns(t, "1", 1)
	cf()
}

func Test_HandleConnection_Resubscribe(t *testing.T) {
	initKeeperTest(t)
	closeCtx, cf := context.WithCancel(test.Ctx(t))
	go func() {
		assert.Nil(t, tKeeper.HandleConnection(newSubscribedConn(t, closeCtx.Done(), "1", "2")))
	}()
	waitConns(t, "2", 1)
	waitConns(t, "1", 0)
	cf()
}

func Test_HandleConnection_Several(t *testing.T) {
	initKeeperTest(t)
	closeCtx, cf := context.WithCancel(test.Ctx(t))
	for i := 0; i < 10; i++ {
		go func() {
			assert.Nil(t, tKeeper.HandleConnection(newSubscribedConn(t, closeCtx.Done(), "1")))
		}()
	}
	waitConns(t, "1", 10)
	cf()
}

func Test_HandleConnection_SeveralDifferent(t *testing.T) {
	initKeeperTest(t)
	closeCtx, cf := context.WithCancel(test.Ctx(t))
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("%d", i)
		go func() {
			assert.Nil(t, tKeeper.HandleConnection(newSubscribedConn(t, closeCtx.Done(), id)))
		}()
	}
	for i := 0; i < 10; i++ {
		waitConns(t, fmt.Sprintf("%d", i), 1)
	}
	cf()
}

func Test_GetConnections_Empty(t *testing.T) {
	initKeeperTest(t)
	cn, ok := tKeeper.GetConnections("olia")
	assert.False(t, ok)
	assert.Nil(t, cn)
}
