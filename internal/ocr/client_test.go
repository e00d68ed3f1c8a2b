package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_EmptyEndpointIsNil(t *testing.T) {
	assert.Nil(t, NewClient("", "key"))
	assert.NotNil(t, NewClient("http://ocr.internal", ""))
}

func TestExtract_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "passport", r.FormValue("type"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "scan.jpg", header.Filename)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"fields": map[string]string{
				"document_number": "P1234567",
				"expiry_date":     "2030-06-15",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	fields, err := client.Extract(context.Background(),
		strings.NewReader("jpeg-bytes"), "scan.jpg", "passport")
	require.NoError(t, err)

	assert.Equal(t, "P1234567", fields["document_number"])
	assert.Equal(t, "2030-06-15", fields["expiry_date"])
}

func TestExtract_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "unreadable scan"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.Extract(context.Background(), strings.NewReader("x"), "scan.jpg", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreadable scan")
}

func TestExtract_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.Extract(context.Background(), strings.NewReader("x"), "scan.jpg", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestExtract_EmptyFieldsNotNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	fields, err := client.Extract(context.Background(), strings.NewReader("x"), "scan.jpg", "")
	require.NoError(t, err)
	assert.NotNil(t, fields)
	assert.Empty(t, fields)
}
