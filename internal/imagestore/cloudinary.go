// Package imagestore uploads estimation photos to Cloudinary.
package imagestore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/owentar/zeta-hackathon/internal/apperr"
	"github.com/owentar/zeta-hackathon/internal/httpclient"
	"github.com/owentar/zeta-hackathon/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.cloudinary.com/v1_1"
	DefaultFolder  = "age-lens"
)

type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	BaseURL   string
}

type Upload struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
}

type uploadError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type Client struct {
	http   *resty.Client
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

func New(client *resty.Client, cfg Config, logger *slog.Logger) *Client {
	if cfg.Folder == "" {
		cfg.Folder = DefaultFolder
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	logger = logger.With("component", "imagestore")
	client.SetLogger(httpclient.RestyAdapter(logger))
	return &Client{http: client, cfg: cfg, now: time.Now, logger: logger}
}

// UploadImage stores a data URL and returns the Cloudinary public id.
func (c *Client) UploadImage(ctx context.Context, imageDataURL string) (string, error) {
	up, err := c.upload(ctx, imageDataURL)
	if err != nil {
		return "", apperr.ExternalService("image upload failed", err)
	}
	return up.PublicID, nil
}

func (c *Client) upload(ctx context.Context, file string) (*Upload, error) {
	params := map[string]string{
		"folder":    c.cfg.Folder,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	form := map[string]string{
		"file":      file,
		"api_key":   c.cfg.APIKey,
		"signature": Sign(params, c.cfg.APISecret),
	}
	for k, v := range params {
		form[k] = v
	}

	var (
		out     Upload
		failure uploadError
	)
	url := fmt.Sprintf("%s/%s/image/upload", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.CloudName)
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&out).
		SetError(&failure).
		Post(url)
	metrics.ExternalCallLatency.WithLabelValues("cloudinary").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExternalCallsTotal.WithLabelValues("cloudinary", "error").Inc()
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	metrics.ExternalCallsTotal.WithLabelValues("cloudinary", strconv.Itoa(resp.StatusCode())).Inc()
	if resp.IsError() {
		return nil, fmt.Errorf("cloudinary upload: status %d: %s", resp.StatusCode(), failure.Error.Message)
	}
	if out.PublicID == "" {
		return nil, fmt.Errorf("cloudinary upload: empty public_id")
	}
	c.logger.Info("image uploaded", "public_id", out.PublicID)
	return &out, nil
}

// Sign computes the Cloudinary request signature: the sorted k=v pairs joined
// by '&', followed by the API secret, hashed with SHA-1.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}
