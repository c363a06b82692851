package images

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

const defaultExt = "png"

func isDataURI(src string) bool {
	return len(src) >= 5 && strings.EqualFold(src[:5], "data:")
}

// decodeDataURI splits a data: URI into its media type and decoded payload.
func decodeDataURI(src string) (string, []byte, error) {
	if !isDataURI(src) {
		return "", nil, fmt.Errorf("not a data uri")
	}
	header, payload, ok := strings.Cut(src[len("data:"):], ",")
	if !ok {
		return "", nil, fmt.Errorf("data uri without payload")
	}

	params := strings.Split(header, ";")
	mediaType := strings.ToLower(strings.TrimSpace(params[0]))
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}

	if !isBase64 {
		data, err := url.PathUnescape(payload)
		if err != nil {
			return "", nil, fmt.Errorf("unescape data uri: %w", err)
		}
		return mediaType, []byte(data), nil
	}

	payload = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
			return -1
		}
		return r
	}, payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return "", nil, fmt.Errorf("decode data uri: %w", err)
		}
	}
	return mediaType, data, nil
}

// extensionFor maps a declared media type (possibly with parameters) to a
// file extension, defaulting to png.
func extensionFor(mediaType string) string {
	mediaType = strings.ToLower(strings.TrimSpace(strings.Split(mediaType, ";")[0]))
	sub, ok := strings.CutPrefix(mediaType, "image/")
	if !ok || sub == "" {
		return defaultExt
	}
	switch sub {
	case "jpeg", "pjpeg":
		return "jpg"
	case "svg+xml":
		return "svg"
	case "x-icon", "vnd.microsoft.icon":
		return "ico"
	}
	if clean := SanitizeFilename(sub); clean != "" {
		return clean
	}
	return defaultExt
}
