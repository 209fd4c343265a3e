package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// UploadError is a non-2xx answer from the server.
type UploadError struct {
	StatusCode int
	Message    string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Result is the outcome of one upload.
type Result struct {
	Path       string
	Title      string
	MaterialID string
	Status     string
	Err        error
}

// Uploader sends payloads to an OLH server with a bearer token.
type Uploader struct {
	client      *http.Client
	server      string
	token       string
	concurrency int
}

func NewUploader(server, token string, concurrency int) *Uploader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Uploader{
		client:      &http.Client{Timeout: 10 * time.Minute},
		server:      server,
		token:       token,
		concurrency: concurrency,
	}
}

type uploadResponse struct {
	ID                 string `json:"id"`
	VerificationStatus string `json:"verificationStatus"`
	Error              string `json:"error"`
}

// Upload sends one payload and returns the created material's id and status.
func (u *Uploader) Upload(ctx context.Context, p *Payload) Result {
	res := Result{Path: p.Path(), Title: p.Title()}

	body, contentType, err := p.Encode()
	if err != nil {
		res.Err = err
		return res
	}
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.server+"/api/materials/upload", body)
	if err != nil {
		res.Err = err
		return res
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+u.token)

	resp, err := u.client.Do(req)
	if err != nil {
		res.Err = fmt.Errorf("upload failed: %w", err)
		return res
	}
	defer resp.Body.Close()

	var out uploadResponse
	data, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusCreated {
		// A truncated error body still yields the status text.
		msg := http.StatusText(resp.StatusCode)
		if readErr == nil && json.Unmarshal(data, &out) == nil && out.Error != "" {
			msg = out.Error
		}
		res.Err = &UploadError{StatusCode: resp.StatusCode, Message: msg}
		return res
	}

	if readErr != nil {
		res.Err = fmt.Errorf("read server response: %w", readErr)
		return res
	}
	if err := json.Unmarshal(data, &out); err != nil {
		res.Err = fmt.Errorf("invalid server response: %w", err)
		return res
	}

	res.MaterialID = out.ID
	res.Status = out.VerificationStatus
	return res
}

// UploadAll uploads every payload with bounded parallelism. One failed file
// does not stop the others; results are returned in payload order.
func (u *Uploader) UploadAll(ctx context.Context, payloads []*Payload) []Result {
	results := make([]Result, len(payloads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for i, p := range payloads {
		g.Go(func() error {
			results[i] = u.Upload(gctx, p)
			return nil
		})
	}
	g.Wait()

	return results
}
