package content

import (
	"encoding/base64"
	"strings"
)

// Encode returns the base64 transport form of text. It operates on the raw
// UTF-8 bytes, so any character set survives the round trip.
func Encode(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// Decode reverses Encode. The line breaks GitHub inserts into large
// payloads are ignored.
func Decode(encoded string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' {
			return -1
		}
		return r
	}, encoded)

	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
