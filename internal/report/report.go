// Package report sends best-effort notifications about data the registry
// and classifier could not make sense of, so the reference data can be fixed.
package report

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Reporter receives fire-and-forget data-quality reports. Implementations
// must not block the caller and must never fail.
type Reporter interface {
	UnknownCategory(code string)
	UnresolvedStation(name string)
}

// Nop discards every report.
type Nop struct{}

func (Nop) UnknownCategory(string)   {}
func (Nop) UnresolvedStation(string) {}

// maxInFlight bounds concurrent report requests.
const maxInFlight = 4

// HTTPReporter issues GET requests against a collection endpoint. Each
// distinct value is reported once per reporter; empty values are skipped.
type HTTPReporter struct {
	httpClient *http.Client
	baseURL    string
	logger     logrus.FieldLogger
	wg         sync.WaitGroup
	slots      chan struct{}

	mu   sync.Mutex
	sent map[string]struct{}
}

// NewHTTPReporter creates a reporter posting to baseURL. Reports are sent in
// the background with the given timeout.
func NewHTTPReporter(baseURL string, timeout time.Duration, logger logrus.FieldLogger) *HTTPReporter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPReporter{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
		slots:      make(chan struct{}, maxInFlight),
		sent:       make(map[string]struct{}),
	}
}

func (r *HTTPReporter) UnknownCategory(code string) {
	r.send("/tipi_treno.php", "tipo", code)
}

func (r *HTTPReporter) UnresolvedStation(name string) {
	r.send("/fix_localita.php", "nome", name)
}

// Wait blocks until in-flight reports have finished.
func (r *HTTPReporter) Wait() {
	r.wg.Wait()
}

func (r *HTTPReporter) send(path, param, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	target := r.baseURL + path + "?" + url.Values{param: {value}}.Encode()

	r.mu.Lock()
	if _, dup := r.sent[target]; dup {
		r.mu.Unlock()
		return
	}
	r.sent[target] = struct{}{}
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.slots <- struct{}{}
		defer func() { <-r.slots }()

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, target, nil)
		if err != nil {
			r.logger.WithField("error", err).Debug("creating report request")
			return
		}
		req.Header.Set("User-Agent", "trenopal/1.0")

		resp, err := r.httpClient.Do(req)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"url":   target,
				"error": err,
			}).Debug("report not delivered")
			return
		}
		resp.Body.Close()

		r.logger.WithFields(logrus.Fields{
			"url":    target,
			"status": resp.StatusCode,
		}).Debug("report delivered")
	}()
}

// Recorder keeps every report in memory.
type Recorder struct {
	mu         sync.Mutex
	categories []string
	stations   []string
}

func (r *Recorder) UnknownCategory(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories = append(r.categories, code)
}

func (r *Recorder) UnresolvedStation(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stations = append(r.stations, name)
}

func (r *Recorder) Categories() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.categories...)
}

func (r *Recorder) Stations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.stations...)
}
