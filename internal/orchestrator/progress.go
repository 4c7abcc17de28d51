package orchestrator

import (
	"sync"
	"time"

	"github.com/dharmasatrya/fareengine/internal/models"
)

// searchState is owned by one search. Only that search's result loop and
// Cancel touch it.
type searchState struct {
	id      string
	started time.Time
	stop    chan struct{}

	mu          sync.Mutex
	progress    models.SearchProgress
	terminal    bool
	cancelQueue func()
}

func newSearchState(id string, total int, started time.Time, timeout time.Duration) *searchState {
	return &searchState{
		id:      id,
		started: started,
		stop:    make(chan struct{}),
		progress: models.SearchProgress{
			SessionID:           id,
			Status:              models.StatusSearching,
			SourcesTotal:        total,
			StartedAt:           started.UTC(),
			EstimatedCompletion: started.Add(timeout).UTC(),
		},
	}
}

func (s *searchState) setCancelQueue(cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelQueue = cancel
	if s.terminal {
		cancel()
	}
}

// finish moves the search to a terminal status. Only the first caller wins,
// which makes completion and cancellation mutually exclusive.
func (s *searchState) finish(status models.SessionStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminal {
		return false
	}
	s.terminal = true
	s.progress.Status = status
	if status == models.StatusCancelled {
		close(s.stop)
		if s.cancelQueue != nil {
			s.cancelQueue()
		}
	}
	return true
}

func (s *searchState) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *searchState) sourceCompleted(now time.Time) models.SearchProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(now)
	return s.copyProgress()
}

func (s *searchState) sourceFailed(e models.SourceError, now time.Time) models.SearchProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Errors = append(s.progress.Errors, e)
	s.advance(now)
	return s.copyProgress()
}

func (s *searchState) advance(now time.Time) {
	p := &s.progress
	p.SourcesCompleted++
	if p.SourcesTotal > 0 {
		p.Completion = float64(p.SourcesCompleted) / float64(p.SourcesTotal)
	}
	elapsed := now.Sub(s.started)
	perSource := elapsed / time.Duration(p.SourcesCompleted)
	p.EstimatedCompletion = s.started.Add(perSource * time.Duration(p.SourcesTotal)).UTC()
}

func (s *searchState) snapshot() models.SearchProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyProgress()
}

func (s *searchState) errors() []models.SourceError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SourceError(nil), s.progress.Errors...)
}

func (s *searchState) copyProgress() models.SearchProgress {
	p := s.progress
	p.Errors = append([]models.SourceError(nil), s.progress.Errors...)
	return p
}
