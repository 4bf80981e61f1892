package mailsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/inboxmarket/datagate/models"
	"github.com/inboxmarket/datagate/services"
	"go.uber.org/zap"
)

// HTTPSource fetches records from an upstream mailbox indexer over HTTP.
type HTTPSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPSource(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type recordsResponse struct {
	Records []models.Record `json:"records"`
}

func (s *HTTPSource) FetchRecords(ctx context.Context, ownerID string, category models.Category, maxAgeDays int) ([]models.Record, error) {
	endpoint := fmt.Sprintf("%s/v1/owners/%s/records", s.baseURL, url.PathEscape(ownerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.WrapUpstream("failed to build records request", err)
	}

	q := req.URL.Query()
	q.Set("category", category.String())
	if maxAgeDays > 0 {
		q.Set("max_age_days", strconv.Itoa(maxAgeDays))
	}
	req.URL.RawQuery = q.Encode()

	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("mail source request failed",
			zap.String("category", category.String()),
			zap.Error(err))
		return nil, services.WrapUpstream("mail source unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Warn("mail source returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("category", category.String()))
		return nil, services.WrapUpstream(
			fmt.Sprintf("mail source returned status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var decoded recordsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, services.WrapUpstream("failed to decode records response", err)
	}

	return decoded.Records, nil
}
