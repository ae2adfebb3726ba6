// Package vision scores a face photo with the Face++ detect API.
package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/owentar/zeta-hackathon/internal/apperr"
	"github.com/owentar/zeta-hackathon/internal/httpclient"
	"github.com/owentar/zeta-hackathon/internal/metrics"
)

const DefaultURL = "https://api-us.faceplusplus.com/facepp/v3/detect"

var (
	ErrNoFace        = errors.New("no face detected")
	ErrMultipleFaces = errors.New("multiple faces detected")
)

type Config struct {
	APIKey    string
	APISecret string
	URL       string
}

type Face struct {
	Token string
	Age   int
}

type detectResponse struct {
	Faces []struct {
		FaceToken  string `json:"face_token"`
		Attributes struct {
			Age struct {
				Value float64 `json:"value"`
			} `json:"age"`
		} `json:"attributes"`
	} `json:"faces"`
	ErrorMessage string `json:"error_message"`
}

type Client struct {
	http   *resty.Client
	cfg    Config
	logger *slog.Logger
}

func New(client *resty.Client, cfg Config, logger *slog.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	logger = logger.With("component", "vision")
	client.SetLogger(httpclient.RestyAdapter(logger))
	return &Client{http: client, cfg: cfg, logger: logger}
}

// Detect returns every face found in the image with its estimated age.
func (c *Client) Detect(ctx context.Context, imageDataURL string) ([]Face, error) {
	payload, err := base64Payload(imageDataURL)
	if err != nil {
		return nil, err
	}

	var out detectResponse
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"api_key":           c.cfg.APIKey,
			"api_secret":        c.cfg.APISecret,
			"image_base64":      payload,
			"return_attributes": "age",
		}).
		SetResult(&out).
		SetError(&out).
		Post(c.cfg.URL)
	metrics.ExternalCallLatency.WithLabelValues("faceplusplus").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExternalCallsTotal.WithLabelValues("faceplusplus", "error").Inc()
		return nil, fmt.Errorf("faceplusplus detect: %w", err)
	}
	metrics.ExternalCallsTotal.WithLabelValues("faceplusplus", strconv.Itoa(resp.StatusCode())).Inc()
	if resp.IsError() {
		c.logger.Warn("face detection rejected",
			"status", resp.StatusCode(),
			"error_message", out.ErrorMessage,
		)
		return nil, fmt.Errorf("faceplusplus detect: status %d: %s", resp.StatusCode(), out.ErrorMessage)
	}

	faces := make([]Face, 0, len(out.Faces))
	for _, f := range out.Faces {
		faces = append(faces, Face{Token: f.FaceToken, Age: int(math.Round(f.Attributes.Age.Value))})
	}
	c.logger.Debug("face detection done", "faces", len(faces))
	return faces, nil
}

// EstimateAge requires exactly one face in the image.
func (c *Client) EstimateAge(ctx context.Context, imageDataURL string) (int, error) {
	faces, err := c.Detect(ctx, imageDataURL)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			return 0, err
		}
		return 0, apperr.ExternalService("face detection failed", err)
	}
	switch len(faces) {
	case 0:
		return 0, &apperr.Error{Kind: apperr.KindValidation, Msg: "No face detected", Err: ErrNoFace}
	case 1:
		return faces[0].Age, nil
	default:
		return 0, &apperr.Error{Kind: apperr.KindValidation, Msg: "Multiple faces detected", Err: ErrMultipleFaces}
	}
}

// base64Payload strips the "data:<mime>;base64," prefix.
func base64Payload(dataURL string) (string, error) {
	_, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(dataURL, "data:") || payload == "" {
		return "", apperr.Validation("Invalid image data URL")
	}
	return payload, nil
}
