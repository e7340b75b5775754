package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientParsesBotID(t *testing.T) {
	c, err := NewClient("123456:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw")
	require.NoError(t, err)
	assert.Equal(t, int64(123456), c.BotID())
}

func TestNewClientRejectsBadTokens(t *testing.T) {
	for _, token := range []string{"", "no-colon", "notanumber:abc"} {
		_, err := NewClient(token)
		assert.Error(t, err, "token %q", token)
	}
}
