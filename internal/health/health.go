package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/guildcare/internal/logging"
	"github.com/guildcare/internal/metrics"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check is one dependency probe. A critical check that fails makes the whole
// service unhealthy; any other failure only degrades it.
type Check interface {
	Name() string
	Critical() bool
	Check(ctx context.Context) Result
}

type Result struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Report is the outcome of one run over every registered check
type Report struct {
	Status    Status            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]Result `json:"checks"`
}

// Checker runs dependency checks, each bounded by its own timeout, and logs
// every change in a dependency's status.
type Checker struct {
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	checks []Check
	last   map[string]Status
}

// NewChecker creates a checker giving each check at most timeout
func NewChecker(timeout time.Duration, logger *zap.Logger) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{
		timeout: timeout,
		logger:  logging.OrNop(logger).Named("health"),
		last:    make(map[string]Status),
	}
}

func (c *Checker) Register(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check)
}

// Run executes every registered check concurrently. A check still running
// when its timeout passes is reported as failed without waiting for it.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.Lock()
	checks := append([]Check(nil), c.checks...)
	c.mu.Unlock()

	results := make(map[string]Result, len(checks))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, ch := range checks {
		wg.Add(1)
		go func(ch Check) {
			defer wg.Done()
			res := c.runOne(ctx, ch)
			mu.Lock()
			results[ch.Name()] = res
			mu.Unlock()
		}(ch)
	}
	wg.Wait()

	c.record(results)
	return Report{
		Status:    Overall(results),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    results,
	}
}

func (c *Checker) runOne(ctx context.Context, ch Check) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan Result, 1)
	go func() { done <- ch.Check(ctx) }()

	var res Result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = failed(ch, ctx.Err())
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.Message = ch.Name() + " timed out"
		}
	}
	res.Name = ch.Name()
	res.Duration = time.Since(start)
	return res
}

// record updates the dependency gauge and logs status changes
func (c *Checker) record(results map[string]Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, res := range results {
		up := 0.0
		if res.Status == StatusHealthy {
			up = 1
		}
		metrics.DependencyUp.WithLabelValues(name).Set(up)

		previous, seen := c.last[name]
		c.last[name] = res.Status
		if seen && previous == res.Status {
			continue
		}
		fields := []zap.Field{
			zap.String("dependency", name),
			zap.String("status", string(res.Status)),
			zap.Duration("duration", res.Duration),
		}
		if res.Error != "" {
			fields = append(fields, zap.String("error", res.Error))
		}
		if res.Status == StatusHealthy {
			if seen {
				c.logger.Info("dependency recovered", fields...)
			}
			continue
		}
		c.logger.Warn("dependency check failing", fields...)
	}
}

// Overall folds check results into one service status
func Overall(results map[string]Result) Status {
	degraded := false
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			degraded = true
		}
	}
	if degraded {
		return StatusDegraded
	}
	return StatusHealthy
}

// HTTPHandler serves the report; unhealthy answers 503
func (c *Checker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())

		w.Header().Set("Content-Type", "application/json")
		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(report); err != nil {
			c.logger.Warn("failed to write health report", zap.Error(err))
		}
	}
}

// Pinger is any dependency that can report its reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports a dependency's reachability
type PingCheck struct {
	name     string
	pinger   Pinger
	slow     time.Duration
	critical bool
}

// NewPingCheck creates a check named name over pinger. Answers slower than
// slow degrade the service.
func NewPingCheck(name string, pinger Pinger, slow time.Duration, critical bool) *PingCheck {
	return &PingCheck{name: name, pinger: pinger, slow: slow, critical: critical}
}

func (p *PingCheck) Name() string { return p.name }

func (p *PingCheck) Critical() bool { return p.critical }

func (p *PingCheck) Check(ctx context.Context) Result {
	start := time.Now()
	if err := p.pinger.Ping(ctx); err != nil {
		return failed(p, err)
	}
	if p.slow > 0 && time.Since(start) > p.slow {
		return Result{Name: p.name, Status: StatusDegraded, Message: p.name + " responding slowly"}
	}
	return Result{Name: p.name, Status: StatusHealthy, Message: p.name + " healthy"}
}

func failed(ch Check, err error) Result {
	status := StatusDegraded
	if ch.Critical() {
		status = StatusUnhealthy
	}
	return Result{Name: ch.Name(), Status: status, Message: ch.Name() + " unreachable", Error: err.Error()}
}
