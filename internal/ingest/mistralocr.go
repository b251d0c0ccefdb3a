package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rfqworks/rfqd/internal/config"
	"github.com/rfqworks/rfqd/internal/logging"
)

const ocrModel = "mistral-ocr-latest"

// MistralOCR recognizes document text via the hosted OCR API. Each call is a
// three-step flow: upload the file, fetch a signed URL for it, then run OCR
// against that URL. The uploaded file is deleted best-effort afterwards.
type MistralOCR struct {
	baseURL    string
	apiKey     config.Secret
	timeout    time.Duration
	httpClient *http.Client
	logger     *logging.Logger
}

// NewMistralOCR creates an OCR client from the oracle config (same API host
// and credentials).
func NewMistralOCR(cfg config.OracleConfig, logger *logging.Logger) (*MistralOCR, error) {
	if !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("OCR API key required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &MistralOCR{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout.Duration(),
		httpClient: &http.Client{},
		logger:     logger.Named("ocr"),
	}, nil
}

type fileUploadResponse struct {
	ID string `json:"id"`
}

type signedURLResponse struct {
	URL string `json:"url"`
}

type ocrRequest struct {
	Model    string      `json:"model"`
	Document ocrDocument `json:"document"`
	Include  bool        `json:"include_image_base64"`
}

type ocrDocument struct {
	Type string `json:"type"`
	URL  string `json:"document_url"`
}

type ocrResponse struct {
	Pages []struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

// Recognize uploads the document and returns the OCR text with page markers.
func (o *MistralOCR) Recognize(ctx context.Context, fileName string, data []byte) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	fileID, err := o.uploadFile(callCtx, fileName, data)
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	defer o.deleteFile(fileID)

	signedURL, err := o.signedURL(callCtx, fileID)
	if err != nil {
		return "", fmt.Errorf("get signed url: %w", err)
	}

	text, err := o.runOCR(callCtx, signedURL)
	if err != nil {
		return "", fmt.Errorf("run ocr: %w", err)
	}
	return text, nil
}

func (o *MistralOCR) uploadFile(ctx context.Context, fileName string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.WriteField("purpose", "ocr"); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/files", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+o.apiKey.Value())

	respBody, err := o.send(req)
	if err != nil {
		return "", err
	}

	var upload fileUploadResponse
	if err := json.Unmarshal(respBody, &upload); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if upload.ID == "" {
		return "", fmt.Errorf("upload response missing file id")
	}
	return upload.ID, nil
}

func (o *MistralOCR) signedURL(ctx context.Context, fileID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/files/"+fileID+"/url?expiry=1", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey.Value())

	respBody, err := o.send(req)
	if err != nil {
		return "", err
	}

	var signed signedURLResponse
	if err := json.Unmarshal(respBody, &signed); err != nil {
		return "", fmt.Errorf("decode url response: %w", err)
	}
	if signed.URL == "" {
		return "", fmt.Errorf("url response missing signed url")
	}
	return signed.URL, nil
}

func (o *MistralOCR) runOCR(ctx context.Context, documentURL string) (string, error) {
	jsonData, err := json.Marshal(ocrRequest{
		Model:    ocrModel,
		Document: ocrDocument{Type: "document_url", URL: documentURL},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/ocr", bytes.NewReader(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey.Value())

	respBody, err := o.send(req)
	if err != nil {
		return "", err
	}

	var result ocrResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}

	var b strings.Builder
	for _, page := range result.Pages {
		fmt.Fprintf(&b, "--- Page %d ---\n%s\n\n", page.Index+1, page.Markdown)
	}
	return strings.TrimSpace(b.String()), nil
}

// deleteFile removes the uploaded file. Failures are logged and ignored so a
// cleanup hiccup never fails a completed recognition.
func (o *MistralOCR) deleteFile(fileID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, o.baseURL+"/files/"+fileID, nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey.Value())

	if _, err := o.send(req); err != nil {
		o.logger.Warn("failed to delete uploaded OCR file",
			zap.String("file_id", fileID),
			zap.Error(err))
	}
}

func (o *MistralOCR) send(req *http.Request) ([]byte, error) {
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("OCR API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

var _ OCRClient = (*MistralOCR)(nil)
