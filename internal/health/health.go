package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Status values reported per dependency.
const (
	StatusOK            = "ok"
	StatusError         = "error"
	StatusNotConfigured = "not_configured"
)

// DefaultTimeout bounds a full readiness run.
const DefaultTimeout = 5 * time.Second

// Checker is implemented by anything that can report its own health.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

// HealthCheck calls f(ctx).
func (f CheckerFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

// Result is the outcome of a single dependency check.
type Result struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// Run checks every dependency concurrently under a shared timeout.
// A nil Checker is reported as not configured and does not affect health.
// Results are sorted by name.
func Run(ctx context.Context, checks map[string]Checker, timeout time.Duration) ([]Result, bool) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make([]Result, 0, len(checks))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, c := range checks {
		if c == nil {
			mu.Lock()
			results = append(results, Result{Name: name, Status: StatusNotConfigured})
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := c.HealthCheck(ctx)
			res := Result{Name: name, Status: StatusOK, LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				res.Status = StatusError
				res.Error = err.Error()
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	healthy := true
	for _, r := range results {
		if r.Status == StatusError {
			healthy = false
		}
	}
	return results, healthy
}
