package stats

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/igusev/siterank/internal/logger"
)

// DefaultBuffer is the number of pending events a Recorder holds
const DefaultBuffer = 256

// writeTimeout bounds a single sink write
const writeTimeout = 5 * time.Second

// Sink stores statistics events
type Sink interface {
	AddOrIncrementQuery(ctx context.Context, term, network string) error
	AddOrIncrementClick(ctx context.Context, domain, url, term string) error
}

type eventKind int

const (
	queryEvent eventKind = iota
	clickEvent
)

type event struct {
	kind    eventKind
	term    string
	network string
	domain  string
	url     string
}

// Recorder writes statistics in the background
// Recording never blocks: when the buffer is full the event is dropped.
// Failures and panics in the sink are logged and swallowed.
type Recorder struct {
	sink    Sink
	events  chan event
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
	written atomic.Uint64
}

// NewRecorder starts a recorder draining into sink
func NewRecorder(sink Sink, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	r := &Recorder{
		sink:   sink,
		events: make(chan event, buffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// RecordQuery queues a search query
func (r *Recorder) RecordQuery(term, network string) {
	r.enqueue(event{kind: queryEvent, term: term, network: network})
}

// RecordClick queues a result click
func (r *Recorder) RecordClick(domain, url, term string) {
	r.enqueue(event{kind: clickEvent, domain: domain, url: url, term: term})
}

func (r *Recorder) enqueue(ev event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		return
	}

	select {
	case r.events <- ev:
	default:
		r.dropped.Add(1)
		logger.Warn("Statistics buffer full, dropping event")
	}
}

// Close stops accepting events and waits until queued ones are written
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.events)
	r.mu.Unlock()

	<-r.done
}

// Dropped returns the number of events that were discarded
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Written returns the number of events stored successfully
func (r *Recorder) Written() uint64 {
	return r.written.Load()
}

func (r *Recorder) run() {
	defer close(r.done)
	for ev := range r.events {
		r.write(ev)
	}
}

func (r *Recorder) write(ev event) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Statistics sink panicked: %v", p)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch ev.kind {
	case queryEvent:
		err = r.sink.AddOrIncrementQuery(ctx, ev.term, ev.network)
	case clickEvent:
		err = r.sink.AddOrIncrementClick(ctx, ev.domain, ev.url, ev.term)
	}
	if err != nil {
		logger.Warn("Failed to record statistics: %v", err)
		return
	}
	r.written.Add(1)
}
