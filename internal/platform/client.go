package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/observability"
)

// Client is the set of advertising platform operations the deployment pipeline uses.
type Client interface {
	CreatePlacement(ctx context.Context, adAccountRef string, payload PlacementPayload) (string, error)
	GetPlacementDetails(ctx context.Context, placementRef string) (*PlacementDetails, error)
	UploadMedia(ctx context.Context, adAccountRef string, kind MediaKind, locator string) (string, error)
	CreateCreative(ctx context.Context, adAccountRef string, payload CreativePayload) (string, error)
	CreateAd(ctx context.Context, adAccountRef string, payload AdPayload) (string, error)
	GetInsights(ctx context.Context, adRef string, dates DateRange) (*Insights, error)
	ListPages(ctx context.Context, ownerRef string) ([]Page, error)
}

// HTTPClient talks to a Graph-style REST API.
type HTTPClient struct {
	baseURL     string
	version     string
	accessToken string
	callTimeout time.Duration
	httpClient  *http.Client
	logger      *zap.Logger
	metrics     observability.MetricsRegistry
}

// NewHTTPClient creates a platform client. Every call is bounded by callTimeout.
func NewHTTPClient(baseURL, version, accessToken string, callTimeout time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) *HTTPClient {
	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		version:     version,
		accessToken: accessToken,
		callTimeout: callTimeout,
		httpClient: &http.Client{
			Timeout:   callTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger:  logger,
		metrics: metrics,
	}
}

type idResponse struct {
	ID string `json:"id"`
}

// CreatePlacement creates an ad set under the ad account.
func (c *HTTPClient) CreatePlacement(ctx context.Context, adAccountRef string, payload PlacementPayload) (string, error) {
	var out idResponse
	if err := c.call(ctx, "create_placement", http.MethodPost, adAccountRef+"/adsets", nil, payload, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("create placement: empty id in response")
	}
	return out.ID, nil
}

// GetPlacementDetails reads an ad set back. A deleted or inaccessible ad set yields an
// error for which IsNotFound reports true.
func (c *HTTPClient) GetPlacementDetails(ctx context.Context, placementRef string) (*PlacementDetails, error) {
	q := url.Values{"fields": {"id,name,status,effective_status,campaign_id"}}
	var out PlacementDetails
	if err := c.call(ctx, "get_placement", http.MethodGet, placementRef, q, nil, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, &Error{StatusCode: http.StatusNotFound, Message: "placement " + placementRef + " not returned"}
	}
	return &out, nil
}

// UploadMedia uploads an image (returning its hash) or a video (returning its id) from a URL.
func (c *HTTPClient) UploadMedia(ctx context.Context, adAccountRef string, kind MediaKind, locator string) (string, error) {
	switch kind {
	case MediaImage:
		var out struct {
			Images map[string]struct {
				Hash string `json:"hash"`
			} `json:"images"`
		}
		body := map[string]string{"url": locator}
		if err := c.call(ctx, "upload_image", http.MethodPost, adAccountRef+"/adimages", nil, body, &out); err != nil {
			return "", err
		}
		for _, img := range out.Images {
			if img.Hash != "" {
				return img.Hash, nil
			}
		}
		return "", errors.New("upload image: no hash in response")
	case MediaVideo:
		var out idResponse
		body := map[string]string{"file_url": locator}
		if err := c.call(ctx, "upload_video", http.MethodPost, adAccountRef+"/advideos", nil, body, &out); err != nil {
			return "", err
		}
		if out.ID == "" {
			return "", errors.New("upload video: empty id in response")
		}
		return out.ID, nil
	default:
		return "", fmt.Errorf("unsupported media kind %q", kind)
	}
}

// CreateCreative creates an ad creative under the ad account.
func (c *HTTPClient) CreateCreative(ctx context.Context, adAccountRef string, payload CreativePayload) (string, error) {
	var out idResponse
	if err := c.call(ctx, "create_creative", http.MethodPost, adAccountRef+"/adcreatives", nil, payload, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("create creative: empty id in response")
	}
	return out.ID, nil
}

// CreateAd creates an ad under the ad account.
func (c *HTTPClient) CreateAd(ctx context.Context, adAccountRef string, payload AdPayload) (string, error) {
	var out idResponse
	if err := c.call(ctx, "create_ad", http.MethodPost, adAccountRef+"/ads", nil, payload, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("create ad: empty id in response")
	}
	return out.ID, nil
}

// GetInsights returns aggregated delivery metrics of an ad. An ad without delivery in the
// range yields zero values.
func (c *HTTPClient) GetInsights(ctx context.Context, adRef string, dates DateRange) (*Insights, error) {
	timeRange, err := json.Marshal(map[string]string{
		"since": dates.Since.Format("2006-01-02"),
		"until": dates.Until.Format("2006-01-02"),
	})
	if err != nil {
		return nil, err
	}
	q := url.Values{
		"fields":     {"impressions,clicks,ctr,spend,frequency"},
		"time_range": {string(timeRange)},
	}
	var out struct {
		Data []struct {
			Impressions string `json:"impressions"`
			Clicks      string `json:"clicks"`
			CTR         string `json:"ctr"`
			Spend       string `json:"spend"`
			Frequency   string `json:"frequency"`
			DateStart   string `json:"date_start"`
			DateStop    string `json:"date_stop"`
		} `json:"data"`
	}
	if err := c.call(ctx, "get_insights", http.MethodGet, adRef+"/insights", q, nil, &out); err != nil {
		return nil, err
	}
	ins := &Insights{
		DateStart: dates.Since.Format("2006-01-02"),
		DateStop:  dates.Until.Format("2006-01-02"),
	}
	if len(out.Data) == 0 {
		return ins, nil
	}
	row := out.Data[0]
	ins.Impressions = parseInt(row.Impressions)
	ins.Clicks = parseInt(row.Clicks)
	ins.CTR = parseFloat(row.CTR)
	ins.Spend = parseFloat(row.Spend)
	ins.Frequency = parseFloat(row.Frequency)
	if row.DateStart != "" {
		ins.DateStart = row.DateStart
	}
	if row.DateStop != "" {
		ins.DateStop = row.DateStop
	}
	return ins, nil
}

// ListPages lists the publisher pages available to ownerRef ("me" when empty).
func (c *HTTPClient) ListPages(ctx context.Context, ownerRef string) ([]Page, error) {
	if ownerRef == "" {
		ownerRef = "me"
	}
	var out struct {
		Data []Page `json:"data"`
	}
	q := url.Values{"fields": {"id,name"}}
	if err := c.call(ctx, "list_pages", http.MethodGet, ownerRef+"/accounts", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// call performs one API request and decodes the response into out.
func (c *HTTPClient) call(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	outcome := "success"
	defer func() {
		c.metrics.RecordPlatformLatency(op, time.Since(start))
		c.metrics.IncrementPlatformCalls(op, outcome)
	}()

	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, c.version, strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			outcome = "failure"
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		outcome = "failure"
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "failure"
		return fmt.Errorf("%s: http request: %w", op, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil && c.logger != nil {
			c.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		outcome = "rejected"
		perr := decodeError(resp)
		c.logger.Debug("platform rejected request",
			zap.String("operation", op),
			zap.Int("status", perr.StatusCode),
			zap.Int("code", perr.Code),
			zap.String("type", perr.Type),
			zap.String("fbtrace_id", perr.TraceID))
		return perr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		outcome = "failure"
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func decodeError(resp *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Error.Message == "" {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{StatusCode: resp.StatusCode, Message: msg}
	}
	return &Error{
		StatusCode: resp.StatusCode,
		Code:       env.Error.Code,
		Subcode:    env.Error.Subcode,
		Type:       env.Error.Type,
		Message:    env.Error.Message,
		TraceID:    env.Error.FBTraceID,
	}
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
