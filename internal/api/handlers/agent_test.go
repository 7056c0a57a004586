package handlers

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang/snappy"
)

func newBodyContext(t *testing.T, body []byte, encoding string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/api/v1/metrics", bytes.NewReader(body))
	if encoding != "" {
		c.Request.Header.Set("Content-Encoding", encoding)
	}
	return c
}

func TestReadBodyPlain(t *testing.T) {
	payload := []byte(`{"metrics":[]}`)
	c := newBodyContext(t, payload, "")

	got, err := readBody(c)
	if err != nil {
		t.Fatalf("readBody: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("body = %q, want %q", got, payload)
	}
}

func TestReadBodySnappy(t *testing.T) {
	payload := []byte(`{"metrics":[{"timestamp":"2026-01-01T00:00:00Z","cpu_user":12.5}]}`)
	compressed := snappy.Encode(nil, payload)
	c := newBodyContext(t, compressed, "snappy")

	got, err := readBody(c)
	if err != nil {
		t.Fatalf("readBody: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("decoded body = %q, want %q", got, payload)
	}
}

func TestReadBodySnappyCaseInsensitiveHeader(t *testing.T) {
	payload := []byte(`{"metrics":[]}`)
	c := newBodyContext(t, snappy.Encode(nil, payload), "Snappy")

	got, err := readBody(c)
	if err != nil {
		t.Fatalf("readBody: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("decoded body = %q, want %q", got, payload)
	}
}

func TestReadBodyRejectsCorruptSnappy(t *testing.T) {
	c := newBodyContext(t, []byte("definitely not snappy"), "snappy")

	if _, err := readBody(c); err == nil {
		t.Error("corrupt snappy payload accepted")
	}
}
