package voice

import (
	"context"
	"errors"
	"sync"

	"github.com/Sabith-07/WISE/internal/domain"
)

// ErrNoSession is returned when results arrive while nothing is listening.
var ErrNoSession = errors.New("no recognition session is running")

// RemoteRecognizer is driven by a client-side engine (the browser speech
// API) that posts its results over HTTP. Only one session exists at a time.
type RemoteRecognizer struct {
	mu      sync.Mutex
	current *remoteSession
}

func NewRemoteRecognizer() *RemoteRecognizer {
	return &RemoteRecognizer{}
}

func (r *RemoteRecognizer) Start(ctx context.Context) (Session, error) {
	s := &remoteSession{
		results: make(chan domain.RecognitionResult, 32),
		done:    make(chan struct{}),
	}

	r.mu.Lock()
	prev := r.current
	r.current = s
	r.mu.Unlock()
	if prev != nil {
		prev.finish(nil)
	}

	go func() {
		select {
		case <-ctx.Done():
			s.finish(nil)
		case <-s.done:
		}
	}()
	return s, nil
}

// Feed hands one result to the running session.
func (r *RemoteRecognizer) Feed(result domain.RecognitionResult) error {
	s := r.session()
	if s == nil {
		return ErrNoSession
	}
	return s.push(result)
}

// End reports that the client engine ended its session normally.
func (r *RemoteRecognizer) End() error {
	return r.finish(nil)
}

// Fail reports a client engine error; the session ends with err.
func (r *RemoteRecognizer) Fail(err error) error {
	if err == nil {
		err = errors.New("recognition failed")
	}
	return r.finish(err)
}

func (r *RemoteRecognizer) finish(err error) error {
	s := r.session()
	if s == nil {
		return ErrNoSession
	}
	s.finish(err)
	return nil
}

func (r *RemoteRecognizer) session() *remoteSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.ended() {
		return nil
	}
	return r.current
}

type remoteSession struct {
	results chan domain.RecognitionResult
	done    chan struct{}

	mu     sync.Mutex
	closed bool
	err    error
}

func (s *remoteSession) Results() <-chan domain.RecognitionResult { return s.results }

func (s *remoteSession) Wait() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *remoteSession) Close() error {
	s.finish(nil)
	return nil
}

func (s *remoteSession) push(result domain.RecognitionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNoSession
	}
	select {
	case s.results <- result:
		return nil
	default:
		return errors.New("recognition backlog full")
	}
}

func (s *remoteSession) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.results)
	close(s.done)
}

func (s *remoteSession) ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
