package handle

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

func event(method, path, query, body string, b64 bool) events.LambdaFunctionURLRequest {
	e := events.LambdaFunctionURLRequest{
		RawPath:         path,
		RawQueryString:  query,
		Headers:         map[string]string{"host": "abc.lambda-url.us-east-1.on.aws", "content-type": "text/plain"},
		Body:            body,
		IsBase64Encoded: b64,
	}
	e.RequestContext.HTTP.Method = method
	e.RequestContext.HTTP.SourceIP = "203.0.113.7"
	return e
}

func TestHandleRequest(t *testing.T) {
	var got *http.Request
	var gotBody string
	h := New(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Add("Set-Cookie", "a=1")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))

	payload := base64.StdEncoding.EncodeToString([]byte("hello"))
	resp, err := h.Handle(context.Background(), event(http.MethodPost, "/process-image", "x=1", payload, true))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if got.Method != http.MethodPost || got.URL.Path != "/process-image" || got.URL.Query().Get("x") != "1" {
		t.Errorf("request = %s %s", got.Method, got.URL)
	}
	if got.Host != "abc.lambda-url.us-east-1.on.aws" || got.Header.Get("X-Forwarded-Proto") != "https" {
		t.Errorf("host = %q", got.Host)
	}
	if gotBody != "hello" {
		t.Errorf("body = %q", gotBody)
	}
	if got.RemoteAddr != "203.0.113.7" {
		t.Errorf("remote addr = %q", got.RemoteAddr)
	}

	if resp.StatusCode != http.StatusCreated || resp.IsBase64Encoded || resp.Body != `{"ok":true}` {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Cookies) != 1 || resp.Cookies[0] != "a=1" {
		t.Errorf("cookies = %v", resp.Cookies)
	}
	if _, ok := resp.Headers["Set-Cookie"]; ok {
		t.Error("Set-Cookie should only appear in Cookies")
	}
}

func TestHandleBinaryResponse(t *testing.T) {
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}
	h := New(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(jpeg)
	}))

	resp, err := h.Handle(context.Background(), event(http.MethodGet, "", "", "", false))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || !resp.IsBase64Encoded {
		t.Fatalf("response = %+v", resp)
	}
	data, err := base64.StdEncoding.DecodeString(resp.Body)
	if err != nil || string(data) != string(jpeg) {
		t.Errorf("body round trip failed: %v", err)
	}
}

func TestHandleBadBase64(t *testing.T) {
	h := New(http.NotFoundHandler())
	if _, err := h.Handle(context.Background(), event(http.MethodPost, "/", "", "!!!", true)); err == nil {
		t.Fatal("expected error")
	}
}

func TestTextual(t *testing.T) {
	tests := map[string]bool{
		"":                                   true,
		"text/html; charset=utf-8":           true,
		"application/json":                   true,
		"application/rss+xml; charset=utf-8": true,
		"image/jpeg":                         false,
		"application/octet-stream":           false,
	}
	for ct, want := range tests {
		if got := textual(ct); got != want {
			t.Errorf("textual(%q) = %v", ct, got)
		}
	}
}
