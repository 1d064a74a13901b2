package notify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer

	NewTerminal(&buf, false).Schedule("Juma", "Meeting moved to 5pm")
	assert.Equal(t, "🔔 Juma: Meeting moved to 5pm\n", buf.String())

	buf.Reset()
	NewTerminal(&buf, true).Schedule("Juma", "hi")
	assert.Equal(t, "\a🔔 Juma: hi\n", buf.String())
}
