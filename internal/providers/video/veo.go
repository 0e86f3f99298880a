package video

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"veostudio/internal/domain"
	"veostudio/internal/providers/vertex"
)

const (
	defaultSubmitTimeout = 120 * time.Second
	defaultPollTimeout   = 15 * time.Second
	maxErrorBody         = 4 << 10
)

// Reference is one piece of reference media sent with a submission.
type Reference struct {
	MimeType string
	Data     []byte
}

// SubmitRequest carries the generation parameters understood by Veo.
type SubmitRequest struct {
	Prompt          string
	References      []Reference
	DurationSeconds int
	GenerateAudio   bool
	Resolution      string
	AspectRatio     string
}

// Operation is the long-running operation state returned by a poll.
type Operation struct {
	Name     string          `json:"name,omitempty"`
	Done     bool            `json:"done"`
	Error    *OperationError `json:"error,omitempty"`
	Response *Response       `json:"response,omitempty"`
	// Videos is populated by some model versions instead of response.videos.
	Videos []Video `json:"videos,omitempty"`
}

type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Response struct {
	Videos                []Video `json:"videos,omitempty"`
	RAIMediaFilteredCount int     `json:"raiMediaFilteredCount,omitempty"`
}

type Video struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded,omitempty"`
	GcsURI             string `json:"gcsUri,omitempty"`
	MimeType           string `json:"mimeType,omitempty"`
}

// FirstVideo returns the first generated video, nil when there is none.
func (o *Operation) FirstVideo() *Video {
	if o == nil {
		return nil
	}
	if o.Response != nil {
		if len(o.Response.Videos) > 0 {
			return &o.Response.Videos[0]
		}
		return nil
	}
	if len(o.Videos) > 0 {
		return &o.Videos[0]
	}
	return nil
}

type Options struct {
	Endpoints     vertex.Endpoints
	HTTPClient    *http.Client
	SubmitTimeout time.Duration
	PollTimeout   time.Duration
	Logger        zerolog.Logger
}

// Client talks to the Veo predictLongRunning and fetchPredictOperation
// methods. Every call takes the bearer token explicitly.
type Client struct {
	endpoints     vertex.Endpoints
	httpClient    *http.Client
	submitTimeout time.Duration
	pollTimeout   time.Duration
	logger        zerolog.Logger
}

func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	submitTimeout := opts.SubmitTimeout
	if submitTimeout <= 0 {
		submitTimeout = defaultSubmitTimeout
	}
	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	return &Client{
		endpoints:     opts.Endpoints,
		httpClient:    client,
		submitTimeout: submitTimeout,
		pollTimeout:   pollTimeout,
		logger:        opts.Logger,
	}
}

type submitInstance struct {
	Prompt          string         `json:"prompt"`
	Image           *encodedMedia  `json:"image,omitempty"`
	ReferenceImages []encodedMedia `json:"reference_images,omitempty"`
}

type encodedMedia struct {
	MimeType           string `json:"mimeType"`
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
}

type submitParameters struct {
	SampleCount      int    `json:"sampleCount"`
	DurationSeconds  int    `json:"durationSeconds"`
	GenerateAudio    bool   `json:"generateAudio"`
	Resolution       string `json:"resolution"`
	AspectRatio      string `json:"aspectRatio"`
	PersonGeneration string `json:"personGeneration"`
	IncludeRaiReason bool   `json:"includeRaiReason"`
	AddWatermark     bool   `json:"addWatermark"`
}

type submitPayload struct {
	Instances  []submitInstance `json:"instances"`
	Parameters submitParameters `json:"parameters"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// BuildSubmitPayload encodes req into the predictLongRunning body. A single
// reference goes into the image field, several into reference_images.
func BuildSubmitPayload(req SubmitRequest) any {
	instance := submitInstance{Prompt: req.Prompt}
	switch len(req.References) {
	case 0:
	case 1:
		m := encodeMedia(req.References[0])
		instance.Image = &m
	default:
		for _, ref := range req.References {
			instance.ReferenceImages = append(instance.ReferenceImages, encodeMedia(ref))
		}
	}
	return submitPayload{
		Instances: []submitInstance{instance},
		Parameters: submitParameters{
			SampleCount:      1,
			DurationSeconds:  req.DurationSeconds,
			GenerateAudio:    req.GenerateAudio,
			Resolution:       req.Resolution,
			AspectRatio:      req.AspectRatio,
			PersonGeneration: "allow_all",
			IncludeRaiReason: true,
			AddWatermark:     true,
		},
	}
}

func encodeMedia(ref Reference) encodedMedia {
	mimeType := strings.TrimSpace(ref.MimeType)
	if mimeType == "" {
		mimeType = "image/png"
	}
	return encodedMedia{
		MimeType:           mimeType,
		BytesBase64Encoded: base64.StdEncoding.EncodeToString(ref.Data),
	}
}

// Submit starts a generation and returns the operation handle. Non-success
// responses are reported as *domain.UpstreamError.
func (c *Client) Submit(ctx context.Context, token, model string, req SubmitRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	endpoint := c.endpoints.ModelURL(model, "predictLongRunning")
	resp, err := c.post(ctx, endpoint, token, BuildSubmitPayload(req))
	if err != nil {
		return "", fmt.Errorf("submit video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", upstreamError(resp)
	}
	var out struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode submit response: %v", domain.ErrMalformedResponse, err)
	}
	if strings.TrimSpace(out.Name) == "" {
		return "", fmt.Errorf("%w: submit response has no operation name", domain.ErrMalformedResponse)
	}
	c.logger.Debug().Str("model", model).Str("operation", out.Name).Msg("veo: submitted")
	return out.Name, nil
}

// Poll fetches the current state of handle. A body that is not JSON yields
// domain.ErrMalformedResponse; a non-success status yields *domain.UpstreamError.
func (c *Client) Poll(ctx context.Context, token, model, handle string) (*Operation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	endpoint := c.endpoints.ModelURL(model, "fetchPredictOperation")
	resp, err := c.post(ctx, endpoint, token, map[string]string{"operationName": handle})
	if err != nil {
		return nil, fmt.Errorf("poll video: %w", err)
	}
	defer resp.Body.Close()

	if !isJSON(resp.Header.Get("Content-Type")) {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn().
			Str("operation", handle).
			Int("status", resp.StatusCode).
			Str("content_type", resp.Header.Get("Content-Type")).
			Str("body", string(snippet)).
			Msg("veo: non-json poll response")
		return nil, fmt.Errorf("%w: content type %q", domain.ErrMalformedResponse, resp.Header.Get("Content-Type"))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, upstreamError(resp)
	}
	var op Operation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("%w: decode poll response: %v", domain.ErrMalformedResponse, err)
	}
	return &op, nil
}

func (c *Client) post(ctx context.Context, endpoint, token string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return c.httpClient.Do(req)
}

func upstreamError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var apiErr apiErrorResponse
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &domain.UpstreamError{StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &domain.UpstreamError{StatusCode: resp.StatusCode, Message: msg}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mediaType == "application/json"
}
