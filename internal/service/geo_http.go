package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultGeoTimeout = 2 * time.Second

// HTTPGeoResolver queries an ipapi-style endpoint
// (GET {base}/{ip}/json/). Timeouts, non-200 responses and malformed
// payloads all come back as "no data".
type HTTPGeoResolver struct {
	client  *http.Client
	baseURL string
}

func NewHTTPGeoResolver(baseURL string, timeout time.Duration) *HTTPGeoResolver {
	if timeout <= 0 {
		timeout = DefaultGeoTimeout
	}
	return &HTTPGeoResolver{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (r *HTTPGeoResolver) Resolve(ctx context.Context, ip string) *GeoInfo {
	url := fmt.Sprintf("%s/%s/json/", r.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var payload struct {
		CountryName string `json:"country_name"`
		City        string `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil
	}
	if payload.CountryName == "" && payload.City == "" {
		return nil
	}
	return &GeoInfo{Country: payload.CountryName, City: payload.City}
}
