// Package gemini talks to the Gemini REST API to produce the game image,
// the quiz questions and the roast meme.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"roastblur/internal/types"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	DefaultTextModel  = "gemini-2.5-pro"
	DefaultImageModel = "imagen-4.0-generate-001"

	roastTemperature = 0.9
	maxErrorBody     = 512
)

// Client is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	textModel  string
	imageModel string
	httpClient *http.Client
	tracer     trace.Tracer
	log        *zap.SugaredLogger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(baseURL, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithTextModel(model string) Option {
	return func(c *Client) { c.textModel = model }
}

func WithImageModel(model string) Option {
	return func(c *Client) { c.imageModel = model }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient builds a client for apiKey. An empty key is accepted so the
// server can start; every call then fails with ErrMissingCredential.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		textModel:  DefaultTextModel,
		imageModel: DefaultImageModel,
		httpClient: &http.Client{},
		tracer:     otel.Tracer("roastblur/internal/gemini"),
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type schema struct {
	Type        string  `json:"type"`
	Items       *schema `json:"items,omitempty"`
	Description string  `json:"description,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
	ResponseSchema   *schema  `json:"responseSchema,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type candidate struct {
	Content content `json:"content"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type outputOptions struct {
	MimeType string `json:"mimeType"`
}

type predictParameters struct {
	SampleCount   int           `json:"sampleCount"`
	AspectRatio   string        `json:"aspectRatio"`
	OutputOptions outputOptions `json:"outputOptions"`
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type prediction struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type predictResponse struct {
	Predictions []prediction `json:"predictions"`
}

// GenerateGameData produces the source image and the quiz questions for
// prompt. Both requests run concurrently and both must succeed.
func (c *Client) GenerateGameData(ctx context.Context, prompt string) (types.GameData, error) {
	if strings.TrimSpace(prompt) == "" {
		return types.GameData{}, ErrEmptyPrompt
	}
	if c.apiKey == "" {
		return types.GameData{}, ErrMissingCredential
	}

	ctx, span := c.tracer.Start(ctx, "gemini.GenerateGameData",
		trace.WithAttributes(attribute.Int("prompt.length", len(prompt))))
	defer span.End()

	var data types.GameData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		imageURL, err := c.generateImage(gctx, sourceImagePrompt(prompt), "1:1")
		if err != nil {
			return err
		}
		data.ImageURL = imageURL
		return nil
	})
	g.Go(func() error {
		questions, err := c.generateQuestions(gctx, prompt)
		if err != nil {
			return err
		}
		data.Questions = questions
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Errorw("Game data generation failed", "error", err)
		return types.GameData{}, fmt.Errorf("failed to generate game data: %w", err)
	}

	c.log.Infow("Game data generated", "questions", len(data.Questions))
	return data, nil
}

// GenerateRoastMeme writes a roast from the questions and answers and
// renders it as a meme image.
func (c *Client) GenerateRoastMeme(ctx context.Context, questions, answers []string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingCredential
	}

	ctx, span := c.tracer.Start(ctx, "gemini.GenerateRoastMeme",
		trace.WithAttributes(attribute.Int("answers.count", len(answers))))
	defer span.End()

	memeURL, err := c.roastMeme(ctx, questions, answers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Errorw("Roast meme generation failed", "error", err)
		return "", fmt.Errorf("failed to generate roast meme: %w", err)
	}
	return memeURL, nil
}

func (c *Client) roastMeme(ctx context.Context, questions, answers []string) (string, error) {
	temperature := roastTemperature
	roast, err := c.generateText(ctx, roastPrompt(questions, answers), &generationConfig{Temperature: &temperature})
	if err != nil {
		return "", err
	}
	roast = strings.TrimSpace(roast)
	if roast == "" {
		return "", ErrNoRoast
	}
	c.log.Debugw("Roast text generated", "roast", roast)
	return c.generateImage(ctx, memePrompt(roast), "16:9")
}

func (c *Client) generateQuestions(ctx context.Context, prompt string) ([]string, error) {
	text, err := c.generateText(ctx, questionsPrompt(prompt), &generationConfig{
		ResponseMimeType: "application/json",
		ResponseSchema: &schema{
			Type:  "ARRAY",
			Items: &schema{Type: "STRING", Description: "A single creative question."},
		},
	})
	if err != nil {
		return nil, err
	}
	return parseQuestions(text)
}

// parseQuestions accepts a JSON array of strings, optionally wrapped in a
// markdown code fence.
func parseQuestions(text string) ([]string, error) {
	raw := strings.TrimSpace(text)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoQuestions
	}

	var questions []string
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoQuestions, err)
	}
	questions = lo.FilterMap(questions, func(q string, _ int) (string, bool) {
		q = strings.TrimSpace(q)
		return q, q != ""
	})
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return questions, nil
}

func (c *Client) generateText(ctx context.Context, prompt string, cfg *generationConfig) (string, error) {
	ctx, span := c.tracer.Start(ctx, "gemini.generateContent",
		trace.WithAttributes(attribute.String("model", c.textModel)))
	defer span.End()

	payload := generateContentRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: cfg,
	}
	var res generateContentResponse
	if err := c.post(ctx, c.textModel, "generateContent", payload, &res); err != nil {
		span.RecordError(err)
		return "", err
	}
	if len(res.Candidates) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, p := range res.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

func (c *Client) generateImage(ctx context.Context, prompt, aspectRatio string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "gemini.predict",
		trace.WithAttributes(
			attribute.String("model", c.imageModel),
			attribute.String("aspect_ratio", aspectRatio),
		))
	defer span.End()

	payload := predictRequest{
		Instances: []predictInstance{{Prompt: prompt}},
		Parameters: predictParameters{
			SampleCount:   1,
			AspectRatio:   aspectRatio,
			OutputOptions: outputOptions{MimeType: "image/jpeg"},
		},
	}
	var res predictResponse
	if err := c.post(ctx, c.imageModel, "predict", payload, &res); err != nil {
		span.RecordError(err)
		return "", err
	}
	if len(res.Predictions) == 0 || res.Predictions[0].BytesBase64Encoded == "" {
		return "", ErrNoImage
	}
	first := res.Predictions[0]
	mimeType := first.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + first.BytesBase64Encoded, nil
}

func (c *Client) post(ctx context.Context, model, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/models/%s:%s", c.baseURL, model, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		if len(resBody) > maxErrorBody {
			resBody = resBody[:maxErrorBody]
		}
		return &StatusError{Code: res.StatusCode, Body: string(resBody)}
	}
	return json.Unmarshal(resBody, out)
}
