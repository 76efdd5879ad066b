package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"mocha-tree/investor-portal/investor-portal-backend/internal/notifications"
)

func newTestManager() *Manager {
	verify := func(token string) (common.Address, error) {
		return common.HexToAddress("0x1111111111111111111111111111111111111111"), nil
	}
	return NewManager(verify, zap.NewNop())
}

func dialManager(t *testing.T, m *Manager) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = m.HandleConnection(w, r)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=x"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func (m *Manager) connectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

func TestSendToInvestorDelivers(t *testing.T) {
	m := newTestManager()
	defer m.Close()
	client := dialManager(t, m)

	assert.Eventually(t, func() bool {
		return m.connectionCount() == 1
	}, time.Second, 10*time.Millisecond)

	m.SendToInvestor("0x1111111111111111111111111111111111111111", notifications.Message{
		Type: notifications.MessageTypeAttemptStatus,
		Data: map[string]interface{}{"status": "CONFIRMED"},
	})

	client.SetReadDeadline(time.Now().Add(time.Second))
	var msg notifications.Message
	assert.NoError(t, client.ReadJSON(&msg))
	assert.Equal(t, notifications.MessageTypeAttemptStatus, msg.Type)
	assert.Equal(t, "CONFIRMED", msg.Data["status"])
}

func TestCloseReleasesOpenConnections(t *testing.T) {
	m := newTestManager()
	dialManager(t, m)

	assert.Eventually(t, func() bool {
		return m.connectionCount() == 1
	}, time.Second, 10*time.Millisecond)

	m.Close()

	// Each pump must wind down and deregister even though the hub has
	// stopped draining.
	assert.Eventually(t, func() bool {
		return m.connectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
