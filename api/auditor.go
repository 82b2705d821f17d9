/*
auditor.go - Periodic due audit

PURPOSE:
  Periodically recomputes every student's due and logs the accounts whose
  final due has gone negative, so staff can correct the data.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - Keeps the last report for GET /api/audit/dues

CONFIGURATION:
  - Interval: How often to check (AUDIT_INTERVAL, default: 6 hours)
  - Enabled:  false when the interval is zero

USAGE:
  auditor := NewDueAuditor(svc, interval)
  auditor.Start()
  // ... later
  auditor.Stop()

SEE ALSO:
  - portal/audit.go: AuditDues
*/
package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/sciencemaster/portal/portal"
)

// DueAuditor runs portal.Service.AuditDues on a ticker.
type DueAuditor struct {
	Service  *portal.Service
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	lastMu sync.RWMutex
	last   *portal.AuditReport
}

// NewDueAuditor creates an auditor. An interval <= 0 disables it.
func NewDueAuditor(svc *portal.Service, interval time.Duration) *DueAuditor {
	return &DueAuditor{
		Service:  svc,
		Interval: interval,
		Enabled:  interval > 0,
	}
}

// Start begins the audit loop.
func (a *DueAuditor) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.Enabled {
		log.Println("[Audit] Disabled, not starting")
		return
	}
	if a.ticker != nil {
		return
	}

	a.ticker = time.NewTicker(a.Interval)
	a.stop = make(chan struct{})
	a.wg.Add(1)

	go a.run(a.ticker.C, a.stop)

	log.Printf("[Audit] Started with check interval: %v", a.Interval)
}

// Stop stops the audit loop and waits for a running check to finish.
func (a *DueAuditor) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ticker != nil {
		a.ticker.Stop()
		close(a.stop)
		a.wg.Wait()
		a.ticker = nil
		log.Println("[Audit] Stopped")
	}
}

func (a *DueAuditor) run(tick <-chan time.Time, stop <-chan struct{}) {
	defer a.wg.Done()

	// Run immediately on start
	a.RunNow(context.Background())

	for {
		select {
		case <-tick:
			a.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow performs one audit and records its report.
func (a *DueAuditor) RunNow(ctx context.Context) (*portal.AuditReport, error) {
	report, err := a.Service.AuditDues(ctx)
	if err != nil {
		log.Printf("[Audit] Error auditing dues: %v", err)
		return nil, err
	}

	for _, acc := range report.Overdrawn {
		log.Printf("[Audit] ⚠️  Student %d (%s) is overpaid: final due %s",
			acc.Student.ID, acc.Student.Name, acc.Due.FinalDue)
	}
	log.Printf("[Audit] Checked %d students, %d overdrawn", report.Checked, len(report.Overdrawn))

	a.lastMu.Lock()
	a.last = report
	a.lastMu.Unlock()
	return report, nil
}

// Last returns the most recent report, or nil before the first run.
func (a *DueAuditor) Last() *portal.AuditReport {
	a.lastMu.RLock()
	defer a.lastMu.RUnlock()
	return a.last
}

// =============================================================================
// AUDIT ENDPOINT
// =============================================================================

// AuditReportDTO is the response of GET /api/audit/dues.
type AuditReportDTO struct {
	At        time.Time    `json:"at"`
	Checked   int          `json:"checked"`
	Overdrawn []StudentDTO `json:"overdrawn"`
}

// AuditDues returns the last audit report; ?fresh=true runs a new audit.
func (h *Handler) AuditDues(w http.ResponseWriter, r *http.Request) {
	report := h.Auditor.Last()
	if report == nil || r.URL.Query().Get("fresh") == "true" {
		var err error
		report, err = h.Auditor.RunNow(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
	}

	dto := AuditReportDTO{
		At:        report.At,
		Checked:   report.Checked,
		Overdrawn: make([]StudentDTO, 0, len(report.Overdrawn)),
	}
	for i := range report.Overdrawn {
		dto.Overdrawn = append(dto.Overdrawn, toStudentDTO(&report.Overdrawn[i]))
	}
	writeJSON(w, http.StatusOK, dto)
}
