package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"

	"tubepilot/pkg/httputil"
)

const (
	defaultUploadURL    = "https://www.googleapis.com/upload/youtube/v3/videos"
	defaultThumbnailURL = "https://www.googleapis.com/upload/youtube/v3/thumbnails/set"
)

var _ Client = (*YouTube)(nil)

// YouTube uploads videos through the YouTube Data API v3 multipart
// endpoint, authorized per call with a bearer access token.
type YouTube struct {
	http         *httputil.RetryClient
	uploadURL    string
	thumbnailURL string
}

type uploadResponse struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

type videoSnippet struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Tags            []string `json:"tags,omitempty"`
	CategoryID      string   `json:"categoryId,omitempty"`
	DefaultLanguage string   `json:"defaultLanguage,omitempty"`
}

type videoStatus struct {
	PrivacyStatus           string `json:"privacyStatus"`
	SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
}

type videoMetadata struct {
	Snippet videoSnippet `json:"snippet"`
	Status  videoStatus  `json:"status"`
}

// apiError is the error envelope the API returns on failure.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// YouTubeOption configures the client.
type YouTubeOption func(*YouTube)

// WithEndpoints overrides the API endpoints. Used by tests.
func WithEndpoints(uploadURL, thumbnailURL string) YouTubeOption {
	return func(y *YouTube) {
		y.uploadURL = uploadURL
		y.thumbnailURL = thumbnailURL
	}
}

// WithRetryClient sets the retrying HTTP client.
func WithRetryClient(c *httputil.RetryClient) YouTubeOption {
	return func(y *YouTube) { y.http = c }
}

// NewYouTube creates an uploader client.
func NewYouTube(opts ...YouTubeOption) *YouTube {
	y := &YouTube{
		http:         httputil.NewRetryClient(nil, httputil.DefaultRetryConfig()),
		uploadURL:    defaultUploadURL,
		thumbnailURL: defaultThumbnailURL,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// Upload publishes the source with the given metadata and returns the new
// video id. Failures carry a retryable/permanent classification.
func (y *YouTube) Upload(ctx context.Context, accessToken string, payload Payload, src Source) (*Result, error) {
	metadata := videoMetadata{
		Snippet: videoSnippet{
			Title:           payload.Title,
			Description:     payload.Description,
			Tags:            payload.Tags,
			CategoryID:      payload.CategoryID,
			DefaultLanguage: payload.Language,
		},
		Status: videoStatus{
			PrivacyStatus:           payload.Privacy,
			SelfDeclaredMadeForKids: payload.MadeForKids,
		},
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	media, err := src.Open(ctx)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer func() { _ = media.Close() }()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	metadataPart, err := writer.CreateFormField("snippet")
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata part: %w", err)
	}
	if _, err := metadataPart.Write(metadataJSON); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}

	videoPart, err := writer.CreateFormFile("file", src.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to create video part: %w", err)
	}
	if _, err := io.Copy(videoPart, media); err != nil {
		return nil, classifyTransport(err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	url := fmt.Sprintf("%s?uploadType=multipart&part=snippet,status", y.uploadURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := y.http.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse(resp.StatusCode, respBody)
	}

	var uploadResp uploadResponse
	if err := json.Unmarshal(respBody, &uploadResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &Result{
		VideoID: uploadResp.ID,
		URL:     fmt.Sprintf("https://youtube.com/watch?v=%s", uploadResp.ID),
	}, nil
}

// SetThumbnail fetches the thumbnail image and attaches it to the video.
func (y *YouTube) SetThumbnail(ctx context.Context, accessToken, videoID, thumbnailURL string) error {
	imgReq, err := http.NewRequestWithContext(ctx, http.MethodGet, thumbnailURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create thumbnail request: %w", err)
	}

	imgResp, err := y.http.Do(imgReq)
	if err != nil {
		return fmt.Errorf("failed to fetch thumbnail: %w", err)
	}
	defer func() { _ = imgResp.Body.Close() }()

	if imgResp.StatusCode != http.StatusOK {
		return fmt.Errorf("thumbnail fetch returned status %d", imgResp.StatusCode)
	}

	img, err := io.ReadAll(imgResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read thumbnail: %w", err)
	}

	url := fmt.Sprintf("%s?videoId=%s", y.thumbnailURL, videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(img))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	contentType := imgResp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := y.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to set thumbnail: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("thumbnail set failed: %s", string(respBody))
	}
	return nil
}

// retryableReasons are API rejection reasons worth retrying on a later run.
var retryableReasons = map[string]bool{
	"quotaExceeded":           true,
	"rateLimitExceeded":       true,
	"userRateLimitExceeded":   true,
	"uploadRateLimitExceeded": true,
	"backendError":            true,
	"internalError":           true,
}

func classifyResponse(statusCode int, body []byte) *Error {
	uploadErr := &Error{
		StatusCode: statusCode,
		Message:    string(body),
		Retryable:  statusCode == http.StatusTooManyRequests || statusCode >= 500,
	}

	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		uploadErr.Message = envelope.Error.Message
		if len(envelope.Error.Errors) > 0 {
			uploadErr.Reason = envelope.Error.Errors[0].Reason
			if retryableReasons[uploadErr.Reason] {
				uploadErr.Retryable = true
			}
		}
	}
	return uploadErr
}

func classifyTransport(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Message: err.Error(), Reason: "timeout", Retryable: true}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Message: err.Error(), Reason: "timeout", Retryable: true}
	}
	return &Error{Message: err.Error(), Reason: "network", Retryable: true}
}
