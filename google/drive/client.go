package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/lexfirm/google-services/google"
)

const (
	DefaultBaseURL   = "https://www.googleapis.com/drive/v3"
	DefaultUploadURL = "https://www.googleapis.com/upload/drive/v3"

	fileFields = "id,name,mimeType,size,webViewLink,parents"
)

// File is Drive file metadata. Size arrives as a quoted string on the wire.
type File struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	MimeType    string   `json:"mimeType"`
	Size        int64    `json:"-"`
	RawSize     string   `json:"size,omitempty"`
	WebViewLink string   `json:"webViewLink,omitempty"`
	Parents     []string `json:"parents,omitempty"`
}

type UploadRequest struct {
	Name     string
	MimeType string
	Parents  []string
	Content  []byte
}

type ClientConfig struct {
	BaseURL    string
	UploadURL  string
	HTTPClient google.HTTPDoer
}

type Client struct {
	baseURL    string
	uploadURL  string
	httpClient google.HTTPDoer
}

func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	uploadURL := strings.TrimRight(strings.TrimSpace(cfg.UploadURL), "/")
	if uploadURL == "" {
		uploadURL = DefaultUploadURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = google.DefaultHTTPClient()
	}
	return &Client{baseURL: baseURL, uploadURL: uploadURL, httpClient: httpClient}
}

// Upload performs a multipart/related upload: JSON metadata part first, file
// content second, per Drive's simple multipart protocol.
func (c *Client) Upload(ctx context.Context, accessToken string, req UploadRequest) (File, error) {
	if c == nil {
		return File{}, fmt.Errorf("drive: client is nil")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return File{}, fmt.Errorf("drive: file name is required")
	}
	mimeType := strings.TrimSpace(req.MimeType)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	metadata := map[string]any{"name": name, "mimeType": mimeType}
	if len(req.Parents) > 0 {
		metadata["parents"] = req.Parents
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return File{}, fmt.Errorf("drive: encode metadata: %w", err)
	}

	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)

	metadataHeader := textproto.MIMEHeader{}
	metadataHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metadataPart, err := writer.CreatePart(metadataHeader)
	if err != nil {
		return File{}, fmt.Errorf("drive: build metadata part: %w", err)
	}
	if _, err := metadataPart.Write(metadataJSON); err != nil {
		return File{}, fmt.Errorf("drive: write metadata part: %w", err)
	}

	contentHeader := textproto.MIMEHeader{}
	contentHeader.Set("Content-Type", mimeType)
	contentPart, err := writer.CreatePart(contentHeader)
	if err != nil {
		return File{}, fmt.Errorf("drive: build content part: %w", err)
	}
	if _, err := contentPart.Write(req.Content); err != nil {
		return File{}, fmt.Errorf("drive: write content part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return File{}, fmt.Errorf("drive: finalize multipart body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/files?uploadType=multipart&fields=%s", c.uploadURL, url.QueryEscape(fileFields))
	contentType := "multipart/related; boundary=" + writer.Boundary()
	statusCode, body, err := google.DoJSON(ctx, c.httpClient, http.MethodPost, endpoint, accessToken, contentType, buffer.Bytes())
	if err != nil {
		return File{}, err
	}
	if statusCode != http.StatusOK {
		return File{}, google.NewAPIError("drive", statusCode, body)
	}
	return decodeFile(body)
}

func (c *Client) GetMetadata(ctx context.Context, accessToken string, fileID string) (File, error) {
	if c == nil {
		return File{}, fmt.Errorf("drive: client is nil")
	}
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return File{}, fmt.Errorf("drive: file id is required")
	}

	endpoint := fmt.Sprintf("%s/files/%s?fields=%s", c.baseURL, url.PathEscape(fileID), url.QueryEscape(fileFields))
	statusCode, body, err := google.DoJSON(ctx, c.httpClient, http.MethodGet, endpoint, accessToken, "", nil)
	if err != nil {
		return File{}, err
	}
	if statusCode != http.StatusOK {
		return File{}, google.NewAPIError("drive", statusCode, body)
	}
	return decodeFile(body)
}

func (c *Client) Delete(ctx context.Context, accessToken string, fileID string) error {
	if c == nil {
		return fmt.Errorf("drive: client is nil")
	}
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return fmt.Errorf("drive: file id is required")
	}

	endpoint := fmt.Sprintf("%s/files/%s", c.baseURL, url.PathEscape(fileID))
	statusCode, body, err := google.DoJSON(ctx, c.httpClient, http.MethodDelete, endpoint, accessToken, "", nil)
	if err != nil {
		return err
	}
	if statusCode != http.StatusNoContent && statusCode != http.StatusOK {
		return google.NewAPIError("drive", statusCode, body)
	}
	return nil
}

func decodeFile(body []byte) (File, error) {
	var file File
	if err := json.Unmarshal(body, &file); err != nil {
		return File{}, fmt.Errorf("drive: decode file metadata: %w", err)
	}
	if trimmed := strings.TrimSpace(file.RawSize); trimmed != "" {
		if parsed, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			file.Size = parsed
		}
	}
	return file, nil
}
