// Package session owns per-user index lifecycles: a Session moves from
// Empty to Building to Ready and keeps its index until closed.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pdfrag/internal/domain"
	"pdfrag/internal/service"
)

type State int

const (
	Empty State = iota
	Building
	Ready
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Building:
		return "building"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Pipeline builds indexes and answers questions against them. Answer
// receives the build that Ingest returned for the same session.
type Pipeline interface {
	Ingest(ctx context.Context, sessionID string) (*service.BuildResult, error)
	Answer(ctx context.Context, build *service.BuildResult, question string) (*domain.Answer, error)
}

// Report summarises the last successful build.
type Report struct {
	Documents int
	Pages     int
	Chunks    int
	Summary   string
	Elapsed   time.Duration
	BuiltAt   time.Time
}

var errClosed = errors.New("session closed")

type Session struct {
	id       string
	pipeline Pipeline
	created  time.Time

	mu     sync.Mutex
	state  State
	build  *service.BuildResult
	report Report
	stale  bool
	closed bool
}

func New(id string, pipeline Pipeline) *Session {
	return &Session{id: id, pipeline: pipeline, created: time.Now()}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Created() time.Time { return s.created }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) IsReady() bool { return s.State() == Ready }

// Report returns the last build report; zero before the first build.
func (s *Session) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// MarkStale flags a ready index as out of date with its source.
func (s *Session) MarkStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Ready {
		s.stale = true
	}
}

func (s *Session) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// Build ingests the source once. A ready session returns its report
// without rebuilding; a failed build leaves the session Empty.
func (s *Session) Build(ctx context.Context) (Report, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return Report{}, errClosed
	case s.state == Ready:
		defer s.mu.Unlock()
		return s.report, nil
	case s.state == Building:
		s.mu.Unlock()
		return Report{}, domain.ErrBuildInProgress
	}
	s.state = Building
	s.mu.Unlock()

	res, err := s.pipeline.Ingest(ctx, s.id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = Empty
		return Report{}, err
	}
	if s.closed {
		s.state = Empty
		_ = res.Index.Close()
		return Report{}, errClosed
	}
	s.build = res
	s.state = Ready
	s.stale = false
	s.report = Report{
		Documents: res.Documents,
		Pages:     res.Pages,
		Chunks:    res.Chunks,
		Summary:   res.Summary,
		Elapsed:   res.Elapsed,
		BuiltAt:   time.Now(),
	}
	return s.report, nil
}

// Ask answers a question. Without a ready index it returns ErrNotBuilt
// and calls nothing.
func (s *Session) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	s.mu.Lock()
	ready, build := s.state == Ready, s.build
	s.mu.Unlock()
	if !ready {
		return nil, domain.ErrNotBuilt
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrValidation)
	}
	return s.pipeline.Answer(ctx, build, question)
}

// Close releases the index. The session cannot be used afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.state != Ready {
		return nil
	}
	s.state = Empty
	build := s.build
	s.build = nil
	return build.Index.Close()
}
