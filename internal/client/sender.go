package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/zstd"

	"github.com/zulfikawr/freight/internal/protocol"
)

// Sender is the wire adapter the pump talks through. It hides transport
// details (encoding, retries, timeouts) from the upload state machine.
type Sender interface {
	SendChunk(ctx context.Context, sessionID string, chunk Chunk, data []byte, totalChunks int, fileName string) error
	Finalize(ctx context.Context, sessionID string) (string, error)
	Cancel(ctx context.Context, sessionID string) error
	Resume(ctx context.Context, sessionID string, totalChunks int, fileName string, fileSize, chunkSize int64) (protocol.ResumeResponse, error)
	Status(ctx context.Context, sessionID string) (protocol.StatusResponse, error)
	ListResumable(ctx context.Context) ([]protocol.ResumeResponse, error)
	ListAll(ctx context.Context) ([]protocol.StatusResponse, error)
}

// SendMode selects the chunk encoding on the wire.
type SendMode int

const (
	// SendBinary posts raw bytes to /upload/binary with addressing headers.
	SendBinary SendMode = iota
	// SendMultipart posts a multipart form to /upload.
	SendMultipart
)

// HTTPSender talks to a freight server over HTTP with automatic retries.
type HTTPSender struct {
	BaseURL string
	Mode    SendMode
	// Compress applies zstd to chunk bodies. Binary mode only; the server
	// does not accept compressed multipart parts.
	Compress bool

	client  *retryablehttp.Client
	encoder *zstd.Encoder
}

// NewHTTPSender builds a sender for the given server base URL.
func NewHTTPSender(baseURL string, policy Policy, mode SendMode, compress bool) (*HTTPSender, error) {
	c := retryablehttp.NewClient()
	c.RetryMax = policy.MaxAttempts
	c.CheckRetry = policy.CheckRetry
	c.Backoff = policy.BackoffHook
	c.Logger = nil

	var enc *zstd.Encoder
	if compress && mode == SendBinary {
		var err error
		enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize zstd encoder: %w", err)
		}
	}

	return &HTTPSender{
		BaseURL:  baseURL,
		Mode:     mode,
		Compress: compress && mode == SendBinary,
		client:   c,
		encoder:  enc,
	}, nil
}

// SendChunk dispatches one chunk, retrying per policy. Each attempt is
// bounded by the chunk request timeout.
func (s *HTTPSender) SendChunk(ctx context.Context, sessionID string, chunk Chunk, data []byte, totalChunks int, fileName string) error {
	ctx, cancel := context.WithTimeout(ctx, protocol.ChunkRequestTimeout)
	defer cancel()

	var req *retryablehttp.Request
	var err error
	if s.Mode == SendMultipart {
		req, err = s.multipartRequest(ctx, sessionID, chunk, data, totalChunks, fileName)
	} else {
		req, err = s.binaryRequest(ctx, sessionID, chunk, data, totalChunks, fileName)
	}
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("chunk %d: %w", chunk.Index, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return serverError(resp, fmt.Sprintf("chunk %d rejected", chunk.Index))
	}
	return nil
}

func (s *HTTPSender) binaryRequest(ctx context.Context, sessionID string, chunk Chunk, data []byte, totalChunks int, fileName string) (*retryablehttp.Request, error) {
	body := data
	compressed := false
	if s.Compress {
		body = s.encoder.EncodeAll(data, nil)
		compressed = true
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+protocol.BinaryPath, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(protocol.HeaderFileID, sessionID)
	req.Header.Set(protocol.HeaderChunkNumber, strconv.Itoa(chunk.Index))
	req.Header.Set(protocol.HeaderTotalChunks, strconv.Itoa(totalChunks))
	if fileName != "" {
		req.Header.Set(protocol.HeaderFileName, fileName)
	}
	if compressed {
		req.Header.Set(protocol.HeaderChunkEncoding, "zstd")
	}
	return req, nil
}

func (s *HTTPSender) multipartRequest(ctx context.Context, sessionID string, chunk Chunk, data []byte, totalChunks int, fileName string) (*retryablehttp.Request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := map[string]string{
		protocol.FieldSessionID:   sessionID,
		protocol.FieldChunkIndex:  strconv.Itoa(chunk.Index),
		protocol.FieldTotalChunks: strconv.Itoa(totalChunks),
	}
	if fileName != "" {
		fields[protocol.FieldFileName] = fileName
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}

	part, err := mw.CreateFormFile(protocol.FieldFile, fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+protocol.UploadPath, buf.Bytes())
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

// Finalize asks the server to assemble the file. Deliberately unbounded:
// assembling a large file can outlast any reasonable request timeout.
func (s *HTTPSender) Finalize(ctx context.Context, sessionID string) (string, error) {
	u := fmt.Sprintf("%s/upload/%s/complete", s.BaseURL, url.PathEscape(sessionID))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("finalize: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return "", serverError(resp, "finalize rejected")
	}

	var out struct {
		FileName string `json:"fileName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("finalize: decode response: %w", err)
	}
	return out.FileName, nil
}

// Cancel aborts the session server-side.
func (s *HTTPSender) Cancel(ctx context.Context, sessionID string) error {
	u := fmt.Sprintf("%s/upload/%s", s.BaseURL, url.PathEscape(sessionID))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return serverError(resp, "cancel rejected")
	}
	return nil
}

// Resume performs the resume handshake and returns the server's session
// record, including the missing chunk set.
func (s *HTTPSender) Resume(ctx context.Context, sessionID string, totalChunks int, fileName string, fileSize, chunkSize int64) (protocol.ResumeResponse, error) {
	q := url.Values{}
	q.Set("totalChunks", strconv.Itoa(totalChunks))
	if fileName != "" {
		q.Set("fileName", fileName)
	}
	if fileSize > 0 {
		q.Set("fileSize", strconv.FormatInt(fileSize, 10))
	}
	if chunkSize > 0 {
		q.Set("chunkSize", strconv.FormatInt(chunkSize, 10))
	}
	u := fmt.Sprintf("%s/upload/%s/resume?%s", s.BaseURL, url.PathEscape(sessionID), q.Encode())

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return protocol.ResumeResponse{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return protocol.ResumeResponse{}, fmt.Errorf("resume: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return protocol.ResumeResponse{}, serverError(resp, "resume rejected")
	}

	var out protocol.ResumeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return protocol.ResumeResponse{}, fmt.Errorf("resume: decode response: %w", err)
	}
	return out, nil
}

// Status fetches the snapshot of one session.
func (s *HTTPSender) Status(ctx context.Context, sessionID string) (protocol.StatusResponse, error) {
	u := fmt.Sprintf("%s/upload/%s", s.BaseURL, url.PathEscape(sessionID))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return protocol.StatusResponse{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return protocol.StatusResponse{}, fmt.Errorf("status: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return protocol.StatusResponse{}, serverError(resp, "status rejected")
	}

	var out protocol.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return protocol.StatusResponse{}, fmt.Errorf("status: decode response: %w", err)
	}
	return out, nil
}

// ListResumable fetches all sessions the server still accepts chunks for.
func (s *HTTPSender) ListResumable(ctx context.Context) ([]protocol.ResumeResponse, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+protocol.ResumablePath, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list resumable: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp, "list resumable rejected")
	}

	var out []protocol.ResumeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("list resumable: decode response: %w", err)
	}
	return out, nil
}

// ListAll fetches every session snapshot the server holds.
func (s *HTTPSender) ListAll(ctx context.Context) ([]protocol.StatusResponse, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+protocol.UploadPath, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp, "list rejected")
	}

	var out struct {
		Sessions []protocol.StatusResponse `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("list: decode response: %w", err)
	}
	return out.Sessions, nil
}

// serverError turns a non-200 response into an error carrying the server's
// envelope message when one is present.
func serverError(resp *http.Response, prefix string) error {
	var env protocol.ErrorResponse
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return fmt.Errorf("%s: server returned %d (%s): %s", prefix, resp.StatusCode, env.ErrorCode, env.Message)
	}
	return fmt.Errorf("%s: server returned %d", prefix, resp.StatusCode)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()
}
