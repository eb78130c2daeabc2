package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"fashion-studio/internal/asset"
	"fashion-studio/internal/prompt"
)

const (
	defaultImageModel        = "gemini-2.5-flash-image"
	defaultTextModel         = "gemini-2.5-flash"
	defaultVideoPreviewModel = "veo-3.0-fast-generate-001"
	defaultVideoFinalModel   = "veo-3.0-generate-001"
)

// ErrNoImage is returned when the model answered without an inline image.
var ErrNoImage = errors.New("gemini returned no image")

type Options struct {
	APIKey            string
	BaseURL           string
	APIVersion        string
	ImageModel        string
	TextModel         string
	VideoPreviewModel string
	VideoFinalModel   string
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

type Client struct {
	apiKey       string
	baseURL      string
	apiVersion   string
	imageModel   string
	textModel    string
	videoPreview string
	videoFinal   string
	httpClient   *http.Client
	logger       *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:       opts.APIKey,
		baseURL:      baseURL,
		apiVersion:   apiVersion,
		imageModel:   orDefault(opts.ImageModel, defaultImageModel),
		textModel:    orDefault(opts.TextModel, defaultTextModel),
		videoPreview: orDefault(opts.VideoPreviewModel, defaultVideoPreviewModel),
		videoFinal:   orDefault(opts.VideoFinalModel, defaultVideoFinalModel),
		httpClient:   opts.HTTPClient,
		logger:       logger,
	}
}

// ComposeImage renders one camera angle from the labeled references.
func (c *Client) ComposeImage(ctx context.Context, req ComposeRequest) (asset.Asset, error) {
	parts := []part{{Text: strings.TrimSpace(req.Prompt)}}
	for _, img := range req.Images {
		if img.Image.IsZero() {
			continue
		}
		if img.Label != "" {
			parts = append(parts, part{Text: img.Label})
		}
		parts = append(parts, inlinePart(img.Image))
	}

	c.logger.Debug("compose image", "angle", req.Angle, "references", len(req.Images))
	return c.generateImage(ctx, parts, req.AspectRatio)
}

// Cutout returns the image with its background removed.
func (c *Client) Cutout(ctx context.Context, img asset.Asset) (asset.Asset, error) {
	return c.generateImage(ctx, []part{{Text: prompt.CutoutInstruction}, inlinePart(img)}, "")
}

// IsolateSubject re-renders an uploaded model photo on a neutral background.
func (c *Client) IsolateSubject(ctx context.Context, img asset.Asset) (asset.Asset, error) {
	return c.generateImage(ctx, []part{{Text: prompt.IsolateInstruction}, inlinePart(img)}, "")
}

// GenerateImage creates a standalone image from text, used for new catalog items.
func (c *Client) GenerateImage(ctx context.Context, text string, aspectRatio string) (asset.Asset, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return asset.Asset{}, errors.New("prompt is empty")
	}
	return c.generateImage(ctx, []part{{Text: fmt.Sprintf("Generate a high quality image: %s", text)}}, aspectRatio)
}

// DescribeForVideo asks the text model for a motion description of the shoot.
func (c *Client) DescribeForVideo(ctx context.Context, req DescribeRequest) (string, error) {
	parts := []part{{Text: strings.TrimSpace(req.Prompt)}}
	for _, img := range req.Images {
		parts = append(parts, inlinePart(img))
	}

	resp, err := c.generateContent(ctx, c.textModel, generateContentRequest{
		Contents:         []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{Temperature: 0.7},
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", errors.New("gemini returned an empty description")
	}
	return text, nil
}

func (c *Client) generateImage(ctx context.Context, parts []part, aspectRatio string) (asset.Asset, error) {
	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}
	if aspectRatio != "" {
		req.GenerationConfig.ImageConfig = &imageConfig{AspectRatio: aspectRatio}
	}

	resp, err := c.generateContent(ctx, c.imageModel, req)
	if err != nil && req.GenerationConfig.ImageConfig != nil && isUnknownFieldError(err, "imageConfig") {
		req.GenerationConfig.ImageConfig = nil
		resp, err = c.generateContent(ctx, c.imageModel, req)
	}
	if err != nil {
		return asset.Asset{}, err
	}

	if len(resp.Images) == 0 {
		if text := strings.TrimSpace(resp.Text); text != "" {
			return asset.Asset{}, fmt.Errorf("%w: %s", ErrNoImage, truncate(text, 200))
		}
		return asset.Asset{}, ErrNoImage
	}
	return resp.Images[0], nil
}

type generated struct {
	Text   string
	Images []asset.Asset
}

func (c *Client) generateContent(ctx context.Context, model string, payload generateContentRequest) (generated, error) {
	var decoded generateContentResponse
	endpoint := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model)
	if err := c.do(ctx, http.MethodPost, endpoint, payload, &decoded); err != nil {
		return generated{}, err
	}

	out := generated{}
	if len(decoded.Candidates) == 0 {
		return out, nil
	}

	var textBuilder strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		if p.Text != "" {
			textBuilder.WriteString(p.Text)
		}
		if p.InlineData != nil && p.InlineData.Data != "" {
			img, err := asset.FromBase64(p.InlineData.Data, p.InlineData.MimeType)
			if err != nil {
				c.logger.Warn("gemini inline image rejected", "model", model, "err", err)
				continue
			}
			out.Images = append(out.Images, img)
		}
	}
	out.Text = textBuilder.String()
	return out, nil
}

// StartVideo submits a Veo job and returns its operation name.
func (c *Client) StartVideo(ctx context.Context, req VideoRequest) (string, error) {
	model := c.videoPreview
	if req.Tier == TierFinal {
		model = c.videoFinal
	}

	inst := videoInstance{Prompt: strings.TrimSpace(req.Prompt)}
	if !req.Seed.IsZero() {
		inst.Image = &videoImage{BytesBase64Encoded: req.Seed.Base64(), MimeType: req.Seed.MimeType}
	}
	payload := predictLongRunningRequest{Instances: []videoInstance{inst}}
	if req.AspectRatio != "" {
		payload.Parameters = &videoParameters{AspectRatio: req.AspectRatio}
	}

	var op operationResponse
	endpoint := fmt.Sprintf("%s/%s/models/%s:predictLongRunning", c.baseURL, c.apiVersion, model)
	if err := c.do(ctx, http.MethodPost, endpoint, payload, &op); err != nil {
		return "", err
	}
	if strings.TrimSpace(op.Name) == "" {
		return "", errors.New("veo returned no operation name")
	}

	c.logger.Debug("veo job submitted", "model", model, "operation", op.Name)
	return op.Name, nil
}

// PollVideo fetches the current state of a video operation. A returned error
// means the poll itself failed; a failed job is reported through Operation.Error.
func (c *Client) PollVideo(ctx context.Context, name string) (Operation, error) {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return Operation{}, errors.New("operation name is empty")
	}

	var op operationResponse
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, name)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &op); err != nil {
		return Operation{}, err
	}
	return op.decode(), nil
}

// VideoURL turns a backend file URI into a fetchable URL by appending the key.
func (c *Client) VideoURL(uri string) string {
	uri = strings.TrimSpace(uri)
	if uri == "" || c.apiKey == "" {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	q := u.Query()
	if q.Get("key") != "" {
		return uri
	}
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchVideo downloads a resolved video URL.
func (c *Client) FetchVideo(ctx context.Context, videoURL string) ([]byte, string, error) {
	if c.httpClient == nil {
		return nil, "", errors.New("http client is nil")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("video download %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read video: %w", err)
	}

	mimeType := strings.TrimSpace(resp.Header.Get("content-type"))
	if strings.Contains(mimeType, ";") {
		mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "video/mp4"
	}
	return data, mimeType, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any, out any) error {
	if c.httpClient == nil {
		return errors.New("http client is nil")
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		httpReq.Header.Set("content-type", "application/json")
	}
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return fmt.Errorf("gemini API %s: %s", httpResp.Status, strings.TrimSpace(string(rawBody)))
	}

	if err := json.Unmarshal(rawBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func inlinePart(img asset.Asset) part {
	return part{InlineData: &blob{Data: img.Base64(), MimeType: img.MimeType}}
}

func isUnknownFieldError(err error, field string) bool {
	message := err.Error()
	return strings.Contains(message, "Unknown name") && strings.Contains(message, field)
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
