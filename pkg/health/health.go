package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const defaultCheckTimeout = 5 * time.Second

// CheckFunc returns nil when the dependency is reachable.
type CheckFunc func(ctx context.Context) error

type Report struct {
	Status    Status            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]Result `json:"checks"`
}

type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency"`
}

type check struct {
	name     string
	fn       CheckFunc
	optional bool
}

// Registry runs every check concurrently. A failing required check makes the
// service unhealthy; a failing optional one only degrades it.
type Registry struct {
	timeout time.Duration
	checks  []check
}

func NewRegistry() *Registry {
	return &Registry{timeout: defaultCheckTimeout}
}

func (r *Registry) Require(name string, fn CheckFunc) {
	r.checks = append(r.checks, check{name: name, fn: fn})
}

func (r *Registry) Optional(name string, fn CheckFunc) {
	r.checks = append(r.checks, check{name: name, fn: fn, optional: true})
}

func (r *Registry) Check(ctx context.Context) Report {
	results := make([]Result, len(r.checks))

	var wg sync.WaitGroup
	for i, c := range r.checks {
		wg.Add(1)
		go func(i int, c check) {
			defer wg.Done()
			results[i] = r.run(ctx, c)
		}(i, c)
	}
	wg.Wait()

	report := Report{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]Result, len(r.checks)),
	}
	for i, c := range r.checks {
		res := results[i]
		report.Checks[c.name] = res
		switch {
		case res.Status == StatusUnhealthy:
			report.Status = StatusUnhealthy
		case res.Status == StatusDegraded && report.Status == StatusHealthy:
			report.Status = StatusDegraded
		}
	}
	return report
}

func (r *Registry) run(ctx context.Context, c check) Result {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	err := c.fn(ctx)
	res := Result{Status: StatusHealthy, Latency: time.Since(start).String()}
	if err != nil {
		res.Message = err.Error()
		res.Status = StatusUnhealthy
		if c.optional {
			res.Status = StatusDegraded
		}
	}
	return res
}

// ServeHTTP answers 503 only when the service is unhealthy.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	report := r.Check(req.Context())
	status := http.StatusOK
	if report.Status == StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}
