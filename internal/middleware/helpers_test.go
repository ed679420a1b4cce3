package middleware_test

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/lexfrei/go-hue/observability"
)

// scriptedTransport fails with errs in order, then answers with status.
type scriptedTransport struct {
	mu     sync.Mutex
	errs   []error
	status int
	calls  int
	bodies []string
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	if req.Body != nil {
		body, _ := io.ReadAll(req.Body)
		s.bodies = append(s.bodies, string(body))
	}

	if len(s.errs) > 0 {
		err := s.errs[0]
		if len(s.errs) > 1 {
			s.errs = s.errs[1:]
		}
		if err != nil {
			return nil, err
		}
	}

	status := s.status
	if status == 0 {
		status = http.StatusOK
	}

	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("[]")),
		Request:    req,
	}, nil
}

func (s *scriptedTransport) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// refused builds the error a dial to a closed port produces.
func refused() error {
	return &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED},
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) log(level, msg string, fields ...observability.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := level + " " + msg
	for _, f := range fields {
		line += fmt.Sprintf(" %s=%v", f.Key, f.Value)
	}
	l.lines = append(l.lines, line)
}

func (l *recordingLogger) Debug(msg string, fields ...observability.Field) { l.log("debug", msg, fields...) }
func (l *recordingLogger) Info(msg string, fields ...observability.Field)  { l.log("info", msg, fields...) }
func (l *recordingLogger) Warn(msg string, fields ...observability.Field)  { l.log("warn", msg, fields...) }
func (l *recordingLogger) Error(msg string, fields ...observability.Field) { l.log("error", msg, fields...) }
func (l *recordingLogger) With(...observability.Field) observability.Logger { return l }

func (l *recordingLogger) dump() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

type recordingMetrics struct {
	mu       sync.Mutex
	requests []string
	errors   []string
	retries  int
	limited  int
}

func (m *recordingMetrics) RecordHTTPRequest(_, path string, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, path)
}

func (m *recordingMetrics) RecordRetry(int, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func (m *recordingMetrics) RecordRateLimit(string, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limited++
}

func (m *recordingMetrics) RecordError(operation, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, operation+"/"+kind)
}

func (m *recordingMetrics) RecordDiscovery(string, int, time.Duration) {}
func (m *recordingMetrics) RecordPairing(string)                       {}

func (m *recordingMetrics) paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

func (m *recordingMetrics) errorKinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errors...)
}

func (m *recordingMetrics) retryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retries
}
