package ports

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// ErrDuplicateChecker rejects a second checker under a name already taken.
var ErrDuplicateChecker = errors.New("duplicate health checker")

// HealthChecker reports whether one dependency works. The dataset loader,
// the time and weather clients and the Quote/0 device each provide one.
type HealthChecker interface {
	Name() string

	// Check returns nil when healthy. It must honor ctx's deadline.
	Check(ctx context.Context) error
}

// HealthRegistry runs the registered checkers for the readiness endpoint.
type HealthRegistry interface {
	// Register adds a checker whose failure makes the clock unhealthy.
	Register(checker HealthChecker) error

	// RegisterOptional adds a checker whose failure only degrades the clock,
	// which keeps running without weather or network time.
	RegisterOptional(checker HealthChecker) error

	CheckAll(ctx context.Context) *HealthResult
}

// HealthStatus is healthy, degraded or unhealthy.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResult is the outcome of one CheckAll.
type HealthResult struct {
	Status    HealthStatus            `json:"status"`
	Checks    map[string]*CheckResult `json:"checks"`
	Timestamp time.Time               `json:"timestamp"`
}

// CheckResult is the outcome of one checker.
type CheckResult struct {
	Status   HealthStatus  `json:"status"`
	Optional bool          `json:"optional,omitempty"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

type entry struct {
	HealthChecker
	optional bool
}

// DefaultHealthRegistry runs its checkers concurrently. It is safe for
// concurrent use.
type DefaultHealthRegistry struct {
	mu      sync.RWMutex
	entries []entry
}

func NewHealthRegistry() *DefaultHealthRegistry {
	return &DefaultHealthRegistry{}
}

func (r *DefaultHealthRegistry) Register(checker HealthChecker) error {
	return r.add(entry{HealthChecker: checker})
}

func (r *DefaultHealthRegistry) RegisterOptional(checker HealthChecker) error {
	return r.add(entry{HealthChecker: checker, optional: true})
}

func (r *DefaultHealthRegistry) add(e entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := e.Name()
	if slices.ContainsFunc(r.entries, func(x entry) bool { return x.Name() == name }) {
		return fmt.Errorf("%w: %s", ErrDuplicateChecker, name)
	}

	r.entries = append(r.entries, e)

	return nil
}

// CheckAll runs every checker at once and waits for all of them.
func (r *DefaultHealthRegistry) CheckAll(ctx context.Context) *HealthResult {
	r.mu.RLock()
	entries := slices.Clone(r.entries)
	r.mu.RUnlock()

	results := make([]*CheckResult, len(entries))

	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Go(func() { results[i] = run(ctx, e) })
	}
	wg.Wait()

	out := &HealthResult{
		Status:    HealthStatusHealthy,
		Checks:    make(map[string]*CheckResult, len(entries)),
		Timestamp: time.Now(),
	}

	for i, e := range entries {
		out.Checks[e.Name()] = results[i]
		out.Status = fold(out.Status, results[i])
	}

	return out
}

func run(ctx context.Context, e entry) *CheckResult {
	start := time.Now()
	err := e.Check(ctx)

	res := &CheckResult{Status: HealthStatusHealthy, Optional: e.optional, Duration: time.Since(start)}
	if err != nil {
		res.Status, res.Message = HealthStatusUnhealthy, err.Error()
	}

	return res
}

// fold merges one check into the overall status. Unhealthy wins over
// degraded, which wins over healthy.
func fold(overall HealthStatus, check *CheckResult) HealthStatus {
	switch {
	case check.Status == HealthStatusHealthy || overall == HealthStatusUnhealthy:
		return overall
	case check.Optional:
		return HealthStatusDegraded
	default:
		return HealthStatusUnhealthy
	}
}
