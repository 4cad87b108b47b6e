package control

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/wispworks/wisp/pkg/slogx"
)

// Pool is the warm pool of pre-started runner processes. Dispatch pops
// candidates and hands the job to the first runner that accepts it; an
// accepting runner is consumed, rejecting runners are discarded.
type Pool struct {
	client *http.Client
	log    *slog.Logger

	mu         sync.Mutex
	candidates []string
}

// NewPool builds a pool over the given runner base URLs.
func NewPool(logger *slog.Logger, candidates ...string) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        logger.With(slogx.LoggerName("wisp.pool")),
		candidates: append([]string(nil), candidates...),
	}
}

// Add pushes a runner onto the pool.
func (p *Pool) Add(baseURL string) {
	p.mu.Lock()
	p.candidates = append(p.candidates, baseURL)
	p.mu.Unlock()
}

// Len reports the remaining candidate count.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.candidates)
}

func (p *Pool) pop() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.candidates) == 0 {
		return "", false
	}
	c := p.candidates[0]
	p.candidates = p.candidates[1:]
	return c, true
}

// Dispatch POSTs the job to runners until one accepts with a 2xx. It
// returns false only when the pool has run out of candidates.
func (p *Pool) Dispatch(ctx context.Context, path string, job any) bool {
	body, err := json.Marshal(job)
	if err != nil {
		p.log.Error("job marshal failed", slogx.Error(err))
		return false
	}

	for {
		candidate, ok := p.pop()
		if !ok {
			return false
		}
		if p.post(ctx, candidate+path, body) {
			return true
		}
		p.log.Warn("runner rejected job, trying next candidate",
			slog.String("runner", candidate))
	}
}

func (p *Pool) post(ctx context.Context, url string, body []byte) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
