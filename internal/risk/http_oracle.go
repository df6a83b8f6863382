package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/scrubbe-dev/incident-service/internal/config"
	"github.com/scrubbe-dev/incident-service/internal/domain"
)

// HTTPOracle calls a remote scoring endpoint with a JSON snapshot.
type HTTPOracle struct {
	url        string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPOracle builds an oracle client from configuration.
func NewHTTPOracle(cfg config.RiskConfig) *HTTPOracle {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &HTTPOracle{
		url:        cfg.OracleURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Score posts the snapshot and decodes the assessment. Unknown actions are dropped.
func (o *HTTPOracle) Score(ctx context.Context, snapshot Snapshot) (Assessment, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return Assessment{}, fmt.Errorf("risk oracle rate limit: %w", err)
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return Assessment{}, fmt.Errorf("marshal snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(payload))
	if err != nil {
		return Assessment{}, fmt.Errorf("build risk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return Assessment{}, fmt.Errorf("call risk oracle: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Assessment{}, fmt.Errorf("read risk response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Assessment{}, fmt.Errorf("risk oracle returned %d", resp.StatusCode)
	}

	var assessment Assessment
	if err := json.Unmarshal(body, &assessment); err != nil {
		return Assessment{}, fmt.Errorf("decode risk response: %w", err)
	}
	assessment.RecommendedActions = knownActions(assessment.RecommendedActions)
	return assessment, nil
}

func knownActions(actions []domain.RecommendedAction) []domain.RecommendedAction {
	seen := make(map[domain.RecommendedAction]struct{}, len(actions))
	out := make([]domain.RecommendedAction, 0, len(actions))
	for _, action := range actions {
		if !action.Valid() {
			continue
		}
		if _, dup := seen[action]; dup {
			continue
		}
		seen[action] = struct{}{}
		out = append(out, action)
	}
	return out
}
