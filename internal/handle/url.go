// Package handle adapts Lambda function URL invocations to the HTTP router.
package handle

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/dmorgan81/wishcard/internal/log"
	"github.com/samber/do"
	"github.com/samber/lo"
)

type URLHandler struct {
	handler http.Handler
}

func NewURLHandler(i *do.Injector) (*URLHandler, error) {
	return New(do.MustInvoke[http.Handler](i)), nil
}

func New(h http.Handler) *URLHandler {
	return &URLHandler{handler: h}
}

func (h *URLHandler) Handle(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("URLHandler")
	log.Debug("handling lambda invocation", "method", event.RequestContext.HTTP.Method, "path", event.RawPath)

	req, err := toRequest(ctx, event)
	if err != nil {
		return events.LambdaFunctionURLResponse{}, err
	}

	w := newResponseWriter()
	h.handler.ServeHTTP(w, req)
	return w.toResponse(), nil
}

func toRequest(ctx context.Context, event events.LambdaFunctionURLRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		body = decoded
	}

	host := lo.Ternary(event.Headers["host"] != "", event.Headers["host"], event.RequestContext.DomainName)
	u := &url.URL{
		Scheme:   "https",
		Host:     host,
		Path:     lo.Ternary(event.RawPath != "", event.RawPath, "/"),
		RawQuery: event.RawQueryString,
	}

	req, err := http.NewRequestWithContext(ctx, event.RequestContext.HTTP.Method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, v := range event.Headers {
		req.Header.Set(k, v)
	}
	if len(event.Cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(event.Cookies, "; "))
	}
	req.Header.Set("X-Forwarded-Proto", "https")
	req.RemoteAddr = event.RequestContext.HTTP.SourceIP
	req.Host = host
	return req, nil
}

type responseWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newResponseWriter() *responseWriter {
	return &responseWriter{header: http.Header{}}
}

func (w *responseWriter) Header() http.Header {
	return w.header
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(p)
}

func (w *responseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *responseWriter) toResponse() events.LambdaFunctionURLResponse {
	resp := events.LambdaFunctionURLResponse{
		StatusCode: lo.Ternary(w.status != 0, w.status, http.StatusOK),
		Headers:    map[string]string{},
		Cookies:    w.header.Values("Set-Cookie"),
	}
	for k, v := range w.header {
		if k == "Set-Cookie" {
			continue
		}
		resp.Headers[k] = strings.Join(v, ", ")
	}

	if textual(w.header.Get("Content-Type")) {
		resp.Body = w.body.String()
	} else {
		resp.Body = base64.StdEncoding.EncodeToString(w.body.Bytes())
		resp.IsBase64Encoded = true
	}
	return resp
}

func textual(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") ||
		mediaType == "application/json" ||
		strings.HasSuffix(mediaType, "+xml") ||
		mediaType == "application/xml"
}
