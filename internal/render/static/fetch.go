package static

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

const (
	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptCSS  = "text/css,*/*;q=0.1"
)

// response is a fetched resource with its body decoded to UTF-8.
type response struct {
	url         string
	status      int
	contentType string
	body        []byte
}

// fetch retrieves url and decodes the body. HTML bodies are decoded using
// the Content-Type charset, a BOM or a <meta charset>; other bodies only
// honor the Content-Type charset.
func (e *Engine) fetch(ctx context.Context, url, accept string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := decodeBody(raw, contentType, accept == acceptHTML)
	if err != nil {
		return nil, err
	}

	return &response{
		url:         resp.Request.URL.String(),
		status:      resp.StatusCode,
		contentType: contentType,
		body:        body,
	}, nil
}

func decodeBody(raw []byte, contentType string, sniffHTML bool) ([]byte, error) {
	if sniffHTML {
		enc, name, _ := charset.DetermineEncoding(raw, contentType)
		if name == "utf-8" {
			return raw, nil
		}
		decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s body: %w", name, err)
		}
		return decoded, nil
	}

	_, params, err := mime.ParseMediaType(contentType)
	if err != nil || params["charset"] == "" {
		return raw, nil
	}
	enc, name := charset.Lookup(params["charset"])
	if enc == nil || name == "utf-8" {
		return raw, nil
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s body: %w", name, err)
	}
	return decoded, nil
}

// isHTML reports whether a response holds an HTML document. Responses
// without a Content-Type are sniffed.
func isHTML(contentType string, body []byte) bool {
	if strings.TrimSpace(contentType) == "" {
		contentType = http.DetectContentType(body)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
