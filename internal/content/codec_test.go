package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "ascii", text: "# Hello\n\nWorld"},
		{name: "multi-byte", text: "Grüße, 世界 🚀\nÅngström"},
		{name: "large", text: strings.Repeat("line of markdown text\n", 500)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := Decode(Encode(tt.text))
			require.NoError(t, err)
			assert.Equal(t, tt.text, decoded)
		})
	}
}

func TestDecodeIgnoresLineBreaks(t *testing.T) {
	encoded := Encode("Grüße, 世界")
	wrapped := encoded[:4] + "\n" + encoded[4:8] + "\r\n" + encoded[8:] + "\n"

	decoded, err := Decode(wrapped)
	require.NoError(t, err)
	assert.Equal(t, "Grüße, 世界", decoded)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("not*base64!")
	assert.Error(t, err)
}
