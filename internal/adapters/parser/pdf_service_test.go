package parser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFServiceParser_Parse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/parse", r.URL.Path)
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"text":  "Hello from PDF",
			"pages": 1,
		})
	}))
	defer server.Close()

	parser := NewPDFServiceParser(server.URL, nil)
	text, err := parser.Parse(context.Background(), []byte("fake pdf"), "test.pdf")

	require.NoError(t, err)
	assert.Equal(t, "Hello from PDF", text)
}

func TestPDFServiceParser_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": "parsing failed",
			"text":  "",
		})
	}))
	defer server.Close()

	parser := NewPDFServiceParser(server.URL, nil)
	_, err := parser.Parse(context.Background(), []byte("bad"), "test.pdf")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing failed")
}

func TestPDFServiceParser_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"text":""}`))
	}))
	defer server.Close()

	_, err := NewPDFServiceParser(server.URL, nil).Parse(context.Background(), []byte("x"), "x.pdf")
	assert.Error(t, err)
}

func TestPDFServiceParser_Defaults(t *testing.T) {
	parser := NewPDFServiceParser("", nil)
	assert.Equal(t, "http://localhost:8081", parser.serviceURL)
	assert.Equal(t, []string{"pdf"}, parser.SupportedFormats())
}

func TestPDFServiceParser_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	assert.True(t, NewPDFServiceParser(server.URL, nil).IsServiceHealthy(context.Background()))
	assert.False(t, NewPDFServiceParser("http://127.0.0.1:1", nil).IsServiceHealthy(context.Background()))
}
