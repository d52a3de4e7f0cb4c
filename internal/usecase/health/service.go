package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates at least one component failed its check.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckDisabled marks a component turned off in configuration.
	CheckDisabled CheckResult = "disabled"
)

// Component names in Report.Checks.
const (
	ComponentStore   = "store"
	ComponentManaged = "managed_search"
)

// DefaultTimeout bounds each component check.
const DefaultTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store   Pinger
	managed Pinger
	timeout time.Duration
}

// New creates a Service. managed can be nil when managed search is disabled.
func New(store, managed Pinger) *Service {
	return &Service{store: store, managed: managed, timeout: DefaultTimeout}
}

// Check pings every component concurrently.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{ComponentManaged: CheckDisabled}
	pingers := map[string]Pinger{ComponentStore: s.store}
	if s.managed != nil {
		pingers[ComponentManaged] = s.managed
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, p := range pingers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			res := CheckOK
			if err := p.Ping(cctx); err != nil {
				res = CheckError
			}
			mu.Lock()
			checks[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
