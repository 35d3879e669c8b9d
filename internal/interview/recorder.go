package interview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bayb/pathway/internal/model"
)

// DefaultStoreTimeout bounds a single answer write.
const DefaultStoreTimeout = 10 * time.Second

type recordKind int

const (
	recordAnswer recordKind = iota
	recordCompletion
)

type record struct {
	kind     recordKind
	field    string
	value    string
	snapshot model.Answers
}

// recorder writes a session's answers to the store on a single goroutine, so
// writes land in turn order. Enqueueing never blocks: a slow store only
// lengthens the backlog.
type recorder struct {
	store   AnswerStore
	userID  string
	timeout time.Duration
	log     *slog.Logger

	mu      sync.Mutex
	ready   *sync.Cond
	pending []record
	closed  bool
	done    chan struct{}
}

func newRecorder(store AnswerStore, userID string, timeout time.Duration, log *slog.Logger) *recorder {
	r := &recorder{
		store:   store,
		userID:  userID,
		timeout: timeout,
		log:     log,
		done:    make(chan struct{}),
	}
	r.ready = sync.NewCond(&r.mu)
	go r.run()
	return r
}

func (r *recorder) saveAnswer(field, value string, snapshot model.Answers) {
	r.enqueue(record{kind: recordAnswer, field: field, value: value, snapshot: snapshot})
}

func (r *recorder) complete(snapshot model.Answers) {
	r.enqueue(record{kind: recordCompletion, snapshot: snapshot})
}

func (r *recorder) enqueue(rec record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.log.Warn("dropping answer write after close", "field", rec.field)
		return
	}
	r.pending = append(r.pending, rec)
	r.ready.Signal()
}

// next blocks until a record is queued. It reports false once the recorder
// is closed and drained.
func (r *recorder) next() (record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.pending) == 0 && !r.closed {
		r.ready.Wait()
	}
	if len(r.pending) == 0 {
		return record{}, false
	}
	rec := r.pending[0]
	r.pending[0] = record{}
	r.pending = r.pending[1:]
	return rec, true
}

func (r *recorder) run() {
	defer close(r.done)
	for {
		rec, ok := r.next()
		if !ok {
			return
		}
		if r.store != nil {
			r.write(rec)
		}
	}
}

func (r *recorder) write(rec record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	switch rec.kind {
	case recordAnswer:
		if err := r.store.SaveAnswer(ctx, r.userID, rec.field, rec.value, rec.snapshot); err != nil {
			r.log.Error("failed to save onboarding answer", "field", rec.field, "error", err)
			return
		}
		r.log.Debug("saved onboarding answer", "field", rec.field)
	case recordCompletion:
		if err := r.store.CompleteInterview(ctx, r.userID, rec.snapshot); err != nil {
			r.log.Error("failed to complete onboarding", "error", err)
			return
		}
		r.log.Info("onboarding completed", "answers", len(rec.snapshot))
	}
}

// close stops accepting writes and waits for queued ones to finish.
func (r *recorder) close() {
	r.mu.Lock()
	r.closed = true
	r.ready.Broadcast()
	r.mu.Unlock()
	<-r.done
}
