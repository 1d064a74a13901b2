package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHubDefaults(t *testing.T) {
	t.Setenv("HUB_ROOM", "welfare")

	cfg, err := LoadHub()
	require.NoError(t, err)
	assert.Equal(t, "welfare", cfg.Room)
	assert.Equal(t, 5, cfg.RateBurst)
	assert.Equal(t, 500*time.Millisecond, cfg.RateInterval)
	assert.False(t, cfg.RejectMalformed)
}

func TestLoadHubRejectsBadNumbers(t *testing.T) {
	t.Setenv("HUB_RATE_BURST", "lots")

	_, err := LoadHub()
	assert.ErrorContains(t, err, "HUB_RATE_BURST")
}

func TestLoadHubParsesFlags(t *testing.T) {
	t.Setenv("HUB_REJECT_MALFORMED", "true")
	t.Setenv("HUB_RATE_INTERVAL", "2s")

	cfg, err := LoadHub()
	require.NoError(t, err)
	assert.True(t, cfg.RejectMalformed)
	assert.Equal(t, 2*time.Second, cfg.RateInterval)
}

func TestLoadClientNeedsIdentity(t *testing.T) {
	t.Setenv("CHAT_USER_NAME", "")
	t.Setenv("CHAT_MEMBER_ID", "")

	_, err := LoadClient()
	require.Error(t, err)

	t.Setenv("CHAT_USER_NAME", "Amina")
	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "Amina", cfg.UserName)
	assert.Equal(t, "chatMessages", cfg.HistoryKey)
}

func TestMaskDBSource(t *testing.T) {
	assert.Equal(t, "postgres://****:****@db:5432/chat", maskDBSource("postgres://u:p@db:5432/chat"))
	assert.Equal(t, "invalid-dsn-format", maskDBSource("nonsense"))
}

func TestLoadClientHubList(t *testing.T) {
	t.Setenv("CHAT_USER_NAME", "Amina")
	t.Setenv("HUB_URL", " ws://a:8080/ws, ,ws://b:8080/ws ")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, []string{"ws://a:8080/ws", "ws://b:8080/ws"}, cfg.HubURLs)

	t.Setenv("HUB_URL", " , ")
	_, err = LoadClient()
	assert.ErrorContains(t, err, "HUB_URL")
}
