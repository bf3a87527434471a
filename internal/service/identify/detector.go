package identify

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zhouzirui/help-center/backend/internal/model/persona"
)

// DefaultWindow is how long a visitor waits for identification.
const DefaultWindow = 3 * time.Second

// Lookuper resolves an IP to a company.
type Lookuper interface {
	Lookup(ctx context.Context, ip string) (Result, error)
}

// Tracker guards the identification phase of each visitor.
type Tracker interface {
	BeginIdentification(ctx context.Context, visitorID string) (bool, error)
	CompleteIdentification(ctx context.Context, visitorID string, company persona.Company) (bool, error)
	AbandonIdentification(visitorID string)
}

// Outcome describes what one detection attempt did.
type Outcome struct {
	Attempted  bool             `json:"attempted"`
	Identified bool             `json:"identified"`
	Company    *persona.Company `json:"company,omitempty"`
	Reason     string           `json:"reason,omitempty"`
}

type lookupResult struct {
	result Result
	err    error
}

// Detector runs the one-shot, time-boxed identification flow.
type Detector struct {
	lookup  Lookuper
	tracker Tracker
	window  time.Duration
	timeout time.Duration
	logger  *slog.Logger
	group   singleflight.Group
}

// NewDetector creates a Detector. window bounds how long Detect waits; timeout
// bounds the upstream call itself, which may outlive the window.
func NewDetector(lookup Lookuper, tracker Tracker, window, timeout time.Duration, logger *slog.Logger) *Detector {
	if window <= 0 {
		window = DefaultWindow
	}
	if timeout < window {
		timeout = window
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		lookup:  lookup,
		tracker: tracker,
		window:  window,
		timeout: timeout,
		logger:  logger,
	}
}

// Detect identifies visitorID from ip unless the visitor already chose a
// persona or used up the session's attempt. Concurrent calls for the same
// visitor share one attempt.
func (d *Detector) Detect(ctx context.Context, visitorID, ip string) (Outcome, error) {
	if ip == "" {
		return Outcome{Reason: ReasonNoIP}, nil
	}

	// The shared attempt must not die with whichever caller started it.
	shared := context.WithoutCancel(ctx)
	ch := d.group.DoChan(visitorID, func() (any, error) {
		return d.detect(shared, visitorID, ip)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Outcome{}, res.Err
		}
		return res.Val.(Outcome), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (d *Detector) detect(ctx context.Context, visitorID, ip string) (Outcome, error) {
	started, err := d.tracker.BeginIdentification(ctx, visitorID)
	if err != nil {
		return Outcome{}, err
	}
	if !started {
		return Outcome{}, nil
	}

	// The lookup keeps its own deadline so an expired window does not cancel
	// it mid-flight. Its late result is simply never read.
	lookupCtx, cancel := context.WithTimeout(ctx, d.timeout)
	results := make(chan lookupResult, 1)
	go func() {
		defer cancel()
		res, err := d.lookup.Lookup(lookupCtx, ip)
		results <- lookupResult{result: res, err: err}
	}()

	timer := time.NewTimer(d.window)
	defer timer.Stop()

	select {
	case res := <-results:
		return d.finish(ctx, visitorID, res)
	case <-timer.C:
		d.tracker.AbandonIdentification(visitorID)
		d.logger.Info("identification window elapsed", "visitor", visitorID, "window", d.window)
		return Outcome{Attempted: true, Reason: ReasonTimeout}, nil
	}
}

func (d *Detector) finish(ctx context.Context, visitorID string, res lookupResult) (Outcome, error) {
	if res.err != nil {
		d.tracker.AbandonIdentification(visitorID)
		d.logger.Warn("identification lookup failed", "visitor", visitorID, "error", res.err)
		return Outcome{Attempted: true, Reason: ReasonFailed}, nil
	}

	company := res.result.Company
	if !res.result.Identified || company == nil || company.Name == "" {
		d.tracker.AbandonIdentification(visitorID)
		reason := res.result.Reason
		if reason == "" {
			reason = ReasonNoCompany
		}
		return Outcome{Attempted: true, Reason: reason}, nil
	}

	applied, err := d.tracker.CompleteIdentification(ctx, visitorID, *company)
	if err != nil {
		return Outcome{}, err
	}
	if !applied {
		// The visitor picked a persona while we waited.
		return Outcome{Attempted: true, Company: company}, nil
	}
	return Outcome{Attempted: true, Identified: true, Company: company}, nil
}
