// Package validate implements the anchor liveness audit: HEAD checks on
// anchor URLs with robots.txt politeness and rate limiting. The audit is a
// standalone artifact and never feeds scoring: whether an anchor still
// resolves today says nothing about what it supported when it was appended.
package validate

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/plumbline/plumbline/internal/model"
	"github.com/plumbline/plumbline/internal/util"
)

const auditMaxRetries = 3

// auditSleepFunc is the sleep between retries (injectable for tests)
var auditSleepFunc = time.Sleep

// Result is the liveness verdict for one anchor
type Result struct {
	AnchorID     string     `json:"anchor_id"`
	URL          string     `json:"url"`
	IsAccessible bool       `json:"is_accessible"`
	StatusCode   int        `json:"status_code,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty"`
	AgeDays      *int       `json:"age_days,omitempty"`
	IsStale      bool       `json:"is_stale"`      // > 1 year old
	IsVeryStale  bool       `json:"is_very_stale"` // > 3 years old
	IsDead       bool       `json:"is_dead"`       // 404, 410, or timeout
	RedirectURL  string     `json:"redirect_url,omitempty"`
	RobotsDenied bool       `json:"robots_denied,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// Report is the audit artifact
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Checked     int       `json:"checked"`
	Accessible  int       `json:"accessible"`
	Dead        int       `json:"dead"`
	Results     []Result  `json:"results"`
	Error       string    `json:"error,omitempty"`

	// NonScoring restates the contract: audit results never feed PIS or CS/ML
	NonScoring bool `json:"non_scoring"`
}

// Auditor checks anchor liveness concurrently
type Auditor struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	robots     *util.RobotsChecker
	cfg        model.AuditConfig
}

// NewAuditor creates an auditor from config
func NewAuditor(cfg model.AuditConfig) *Auditor {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 2
	}

	var robots *util.RobotsChecker
	if cfg.RespectRobots {
		robots = util.NewRobotsChecker(cfg.UserAgent, cfg.Timeout)
	}

	return &Auditor{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.ProxyFunc(cfg),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Workers),
		robots:  robots,
		cfg:     cfg,
	}
}

// Audit checks every anchor with a URL. Anchors without URLs (note-only
// evidence) are skipped; there is nothing to resolve.
func (a *Auditor) Audit(ctx context.Context, anchors []model.Anchor, now time.Time) *Report {
	report := &Report{GeneratedAt: now, NonScoring: true}

	var withURL []model.Anchor
	for _, anc := range anchors {
		if anc.URL != "" {
			withURL = append(withURL, anc)
		}
	}
	if len(withURL) == 0 {
		report.Error = "no anchors with URLs to audit"
		return report
	}

	results := make([]Result, len(withURL))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, a.cfg.Workers)

	for i, anc := range withURL {
		wg.Add(1)
		go func(idx int, anchor model.Anchor) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = Result{AnchorID: anchor.ID, URL: anchor.URL, Error: "context cancelled"}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = a.checkWithRetry(ctx, anchor)
		}(i, anc)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].AnchorID < results[j].AnchorID })
	report.Results = results
	report.Checked = len(results)
	for _, r := range results {
		if r.IsAccessible {
			report.Accessible++
		}
		if r.IsDead {
			report.Dead++
		}
	}
	return report
}

func (a *Auditor) check(ctx context.Context, anchor model.Anchor) Result {
	result := Result{AnchorID: anchor.ID, URL: anchor.URL}

	if a.robots != nil {
		allowed, crawlDelay, err := a.robots.CanFetch(ctx, anchor.URL)
		if err == nil && !allowed {
			result.RobotsDenied = true
			return result
		}
		if crawlDelay > 0 {
			select {
			case <-ctx.Done():
				result.Error = "context cancelled"
				return result
			case <-time.After(crawlDelay):
			}
		}
	}

	if err := a.limiter.Wait(ctx); err != nil {
		result.Error = fmt.Sprintf("rate limit wait: %v", err)
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, anchor.URL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("create request: %v", err)
		result.IsDead = true
		return result
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.IsDead = true
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.IsAccessible = true
	} else if resp.StatusCode == 404 || resp.StatusCode == 410 {
		result.IsDead = true
	}

	if resp.Request.URL.String() != anchor.URL {
		result.RedirectURL = resp.Request.URL.String()
	}

	if lastModified := resp.Header.Get("Last-Modified"); lastModified != "" {
		if t, err := time.Parse(time.RFC1123, lastModified); err == nil {
			result.LastModified = &t
			ageDays := int(time.Since(t).Hours() / 24)
			result.AgeDays = &ageDays
			result.IsStale = ageDays > 365
			result.IsVeryStale = ageDays > 365*3
		}
	}

	return result
}

// checkWithRetry retries transient failures with exponential backoff
func (a *Auditor) checkWithRetry(ctx context.Context, anchor model.Anchor) Result {
	var result Result
	for attempt := 0; attempt < auditMaxRetries; attempt++ {
		result = a.check(ctx, anchor)
		if !isRetryable(result) {
			return result
		}
		if attempt < auditMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			auditSleepFunc(backoff)
		}
	}
	return result
}

func isRetryable(result Result) bool {
	if result.StatusCode >= 500 && result.StatusCode < 600 {
		return true
	}
	if result.StatusCode == 429 {
		return true
	}
	if result.Error != "" {
		s := strings.ToLower(result.Error)
		return strings.Contains(s, "timeout") ||
			strings.Contains(s, "connection refused") ||
			strings.Contains(s, "connection reset")
	}
	return false
}
