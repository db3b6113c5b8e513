package session

import (
	"context"
	"errors"
	"io"
	"strings"
)

// GenerationError wraps an upstream provider failure. The pipeline never
// retries; retry policy belongs to the provider's transport.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "generation provider: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Stream is a lazy, finite, non-restartable fragment sequence. Fragments
// arrive in emission order and their concatenation is the full response.
// Recv is not safe for concurrent use; a stream has one consumer.
type Stream struct {
	ch     chan string
	result chan error
	cancel context.CancelFunc

	done bool
	err  error
}

// newStream runs produce in its own goroutine on a child context. The emit
// callback blocks until the consumer pulls or the stream is abandoned, so
// the producer never outlives its consumer.
func newStream(ctx context.Context, produce func(ctx context.Context, emit func(string) error) error) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		ch:     make(chan string),
		result: make(chan error, 1),
		cancel: cancel,
	}

	go func() {
		defer close(s.ch)
		s.result <- produce(ctx, func(fragment string) error {
			select {
			case s.ch <- fragment:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	return s
}

// Recv returns the next fragment. Exhaustion is signalled with io.EOF;
// a provider failure surfaces once as a GenerationError and the stream is
// terminal afterwards.
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", s.err
	}

	fragment, ok := <-s.ch
	if ok {
		return fragment, nil
	}

	s.done = true
	err := <-s.result
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		s.err = io.EOF
	default:
		s.err = &GenerationError{Err: err}
	}
	return "", s.err
}

// Collect drains the stream into a single string.
func (s *Stream) Collect() (string, error) {
	var b strings.Builder
	for {
		fragment, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		b.WriteString(fragment)
	}
}

// Close abandons the stream. The producer's context is cancelled so any
// underlying provider transport is released promptly; it is safe to call
// Close at any point, including after exhaustion.
func (s *Stream) Close() {
	s.cancel()
	if !s.done {
		// Unblock the producer if it is mid-emit.
		for range s.ch {
		}
		s.done = true
		s.err = io.EOF
		select {
		case <-s.result:
		default:
		}
	}
}
