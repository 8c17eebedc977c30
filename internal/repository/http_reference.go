package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/it-Barath/fpms-sub006/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// referenceResponse envelope returned by the reference registry API
type referenceResponse struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

// HTTPReferenceDirectory ReferenceDirectory backed by the national reference
// registry's HTTP API instead of a local copy of gn_divisions.
type HTTPReferenceDirectory struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewHTTPReferenceDirectory(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPReferenceDirectory {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &HTTPReferenceDirectory{httpClient: client, logger: logger}
}

func (c *HTTPReferenceDirectory) ListGnByDivision(ctx context.Context, divisionName string) ([]domain.ReferenceGN, error) {
	out := []domain.ReferenceGN{}
	req := c.httpClient.R().SetContext(ctx).SetQueryParam("division_name", divisionName)
	if err := c.do(req, "GET", "/api/v1/gn-divisions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPReferenceDirectory) ListDivisionsByDistrict(ctx context.Context, districtName string) ([]string, error) {
	out := []string{}
	req := c.httpClient.R().SetContext(ctx).SetQueryParam("district_name", districtName)
	if err := c.do(req, "GET", "/api/v1/divisions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPReferenceDirectory) LookupGn(ctx context.Context, gnIDs []string) ([]domain.ReferenceGN, error) {
	if len(gnIDs) == 0 {
		return []domain.ReferenceGN{}, nil
	}
	out := []domain.ReferenceGN{}
	req := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"gn_ids": gnIDs})
	if err := c.do(req, "POST", "/api/v1/gn-divisions/lookup", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPReferenceDirectory) do(req *resty.Request, method, path string, out any) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Error("reference registry call failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("failed to call reference registry %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("reference registry %s returned http %d", path, resp.StatusCode())
	}

	// registry does not always label its responses as JSON
	var envelope referenceResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return fmt.Errorf("failed to decode reference registry %s: %w", path, err)
	}
	if envelope.Status != 0 {
		return fmt.Errorf("reference registry error: %s (status: %d)", envelope.Msg, envelope.Status)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode reference registry %s: %w", path, err)
	}
	return nil
}
