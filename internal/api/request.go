package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Request describes one API call. Path is relative to the client's base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   Body
	Header http.Header
}

// Body is a request payload. The caller picks the variant: JSON for
// structured values, Binary for raw bytes and multipart forms.
type Body interface {
	encode() (io.Reader, string, error)
}

type jsonBody struct {
	value any
}

// JSON returns a body serialized as application/json
func JSON(v any) Body {
	return jsonBody{value: v}
}

func (b jsonBody) encode() (io.Reader, string, error) {
	data, err := json.Marshal(b.value)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

type binaryBody struct {
	r           io.Reader
	contentType string
}

// Binary returns a body whose bytes are sent untouched with contentType.
// For multipart forms contentType must carry the boundary
// (multipart.Writer.FormDataContentType).
func Binary(r io.Reader, contentType string) Body {
	return binaryBody{r: r, contentType: contentType}
}

func (b binaryBody) encode() (io.Reader, string, error) {
	return b.r, b.contentType, nil
}
