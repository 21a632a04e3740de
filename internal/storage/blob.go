package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// BlobStore transfers a binary payload to an external store and returns a
// publicly addressable URL.
type BlobStore interface {
	Upload(ctx context.Context, path, contentType string, r io.Reader) (string, error)
}

// HTTPBlobStore uploads to an HTTP media store endpoint that accepts a
// multipart form and answers {"url": "..."}.
type HTTPBlobStore struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewHTTPBlobStore(endpoint, token string) *HTTPBlobStore {
	return &HTTPBlobStore{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *HTTPBlobStore) Upload(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	if err := form.WriteField("path", path); err != nil {
		return "", err
	}
	part, err := form.CreateFormFile("file", path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read payload: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if contentType != "" {
		req.Header.Set("X-Blob-Content-Type", contentType)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("blob store returned %d", resp.StatusCode)
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode blob store response: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("blob store returned no url")
	}
	return result.URL, nil
}
