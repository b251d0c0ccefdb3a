package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfqworks/rfqd/internal/config"
)

func newOCRConfig(baseURL string) config.OracleConfig {
	return config.OracleConfig{
		BaseURL: baseURL,
		APIKey:  config.Secret("test-key"),
		Timeout: config.Duration(5 * time.Second),
	}
}

func TestMistralOCRRecognize(t *testing.T) {
	var deleted atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "ocr", r.FormValue("purpose"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "anfrage.jpg", header.Filename)

		json.NewEncoder(w).Encode(map[string]string{"id": "file-123"})
	})
	mux.HandleFunc("/files/file-123/url", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1", r.URL.Query().Get("expiry"))
		json.NewEncoder(w).Encode(map[string]string{"url": "https://signed.example/doc"})
	})
	mux.HandleFunc("/files/file-123", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		deleted.Store(true)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/ocr", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral-ocr-latest", req["model"])
		doc := req["document"].(map[string]any)
		assert.Equal(t, "document_url", doc["type"])
		assert.Equal(t, "https://signed.example/doc", doc["document_url"])
		assert.Equal(t, false, req["include_image_base64"])

		json.NewEncoder(w).Encode(map[string]any{
			"pages": []map[string]any{
				{"index": 0, "markdown": "Anfrage Nr. 12345678"},
				{"index": 1, "markdown": "Pos 1 Sechskantschraube"},
			},
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	ocr, err := NewMistralOCR(newOCRConfig(srv.URL), nil)
	require.NoError(t, err)

	text, err := ocr.Recognize(context.Background(), "anfrage.jpg", []byte("fake image bytes"))
	require.NoError(t, err)

	assert.Contains(t, text, "--- Page 1 ---\nAnfrage Nr. 12345678")
	assert.Contains(t, text, "--- Page 2 ---\nPos 1 Sechskantschraube")
	assert.True(t, deleted.Load(), "uploaded file should be deleted after OCR")
}

func TestMistralOCRUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid file"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	ocr, err := NewMistralOCR(newOCRConfig(srv.URL), nil)
	require.NoError(t, err)

	_, err = ocr.Recognize(context.Background(), "bad.png", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload file")
	assert.Contains(t, err.Error(), "422")
}

func TestMistralOCRDeleteFailureIgnored(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "file-9"})
	})
	mux.HandleFunc("/files/file-9/url", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"url": "https://signed.example/doc"})
	})
	mux.HandleFunc("/files/file-9", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	})
	mux.HandleFunc("/ocr", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"pages": []map[string]any{{"index": 0, "markdown": "text"}},
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	ocr, err := NewMistralOCR(newOCRConfig(srv.URL), nil)
	require.NoError(t, err)

	text, err := ocr.Recognize(context.Background(), "scan.pdf", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "--- Page 1 ---\ntext", text)
}

func TestMistralOCRRequiresAPIKey(t *testing.T) {
	_, err := NewMistralOCR(config.OracleConfig{BaseURL: "http://localhost"}, nil)
	require.Error(t, err)
}
