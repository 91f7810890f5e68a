/*
 * Copyright 2023 The Meadowlark Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package propagation writes the changes of the document store to the search
// index. The id of a changed document is queued once the primary write has
// succeeded. A worker pool then reads the document from the store and writes
// what it finds to the index, with retries, so a slow or failing index never
// fails a write.
//
// The queue keeps at most one pending id per document. Writes of the same
// document are never applied concurrently and every apply reads the store
// after the write that queued it, so the index converges to the last state
// committed to the store whatever order the writers queued in.
package propagation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/panjf2000/ants/v2"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/pkg/errors"
	"github.com/meadowlark-team/meadowlark/server/backend/background"
	"github.com/meadowlark-team/meadowlark/server/backend/database"
	"github.com/meadowlark-team/meadowlark/server/backend/search"
	"github.com/meadowlark-team/meadowlark/server/logging"
	"github.com/meadowlark-team/meadowlark/server/profiling/prometheus"
)

// ErrClosed is returned when a change is queued after Close.
var ErrClosed = errors.New("propagator closed")

// Action is the kind of change applied to the index.
type Action string

// Below are the actions applied to the index.
const (
	ActionUpsert Action = "upsert"
	ActionDelete Action = "delete"

	// ActionRead is a failed read of the store before the index is written.
	ActionRead Action = "read"
)

// Source is the document store the index is fed from.
type Source interface {
	// FindDocInfoByID returns the document of the given MeadowlarkID or
	// database.ErrDocumentNotFound.
	FindDocInfoByID(ctx context.Context, id types.MeadowlarkID) (*database.DocInfo, error)
}

// Propagator queues document changes and applies them to a search index.
type Propagator struct {
	conf    *Config
	source  Source
	index   search.Index
	metrics *prometheus.Metrics

	pool       *ants.Pool
	background *background.Background
	notify     chan struct{}

	mu      sync.Mutex
	queued  map[types.MeadowlarkID]struct{}
	order   []types.MeadowlarkID
	running map[types.MeadowlarkID]struct{}
	waiters []chan struct{}
	closed  bool
}

// New creates a Propagator copying documents of the source to the index and
// starts its dispatcher. The metrics may be nil.
func New(
	conf *Config,
	source Source,
	index search.Index,
	metrics *prometheus.Metrics,
) (*Propagator, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(conf.Workers, ants.WithPanicHandler(func(r any) {
		logging.DefaultLogger().Errorf("propagation worker panicked: %v", r)
	}))
	if err != nil {
		return nil, fmt.Errorf("create propagation pool: %w", err)
	}

	p := &Propagator{
		conf:       conf,
		source:     source,
		index:      index,
		metrics:    metrics,
		pool:       pool,
		background: background.New(metrics),
		notify:     make(chan struct{}, 1),
		queued:     make(map[types.MeadowlarkID]struct{}),
		running:    make(map[types.MeadowlarkID]struct{}),
	}
	p.background.AttachGoroutine(p.dispatch, "propagation")

	return p, nil
}

// Changed queues the document of the given id. The document is read from the
// source when the change is applied: it is written to the index if it exists
// and removed from the index otherwise.
func (p *Propagator) Changed(id types.MeadowlarkID) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("queue %s: %w", id, ErrClosed)
	}

	if _, ok := p.queued[id]; !ok {
		p.queued[id] = struct{}{}
		p.order = append(p.order, id)
	}
	p.setPendingLocked()
	p.mu.Unlock()

	p.signal()
	return nil
}

// Pending returns the number of documents queued or being written.
func (p *Propagator) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pendingLocked()
}

// Flush waits until every queued change has been applied or given up on.
func (p *Propagator) Flush(ctx context.Context) error {
	p.mu.Lock()
	if p.pendingLocked() == 0 {
		p.mu.Unlock()
		return nil
	}
	done := make(chan struct{})
	p.waiters = append(p.waiters, done)
	p.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush propagation: %w", ctx.Err())
	}
}

// Close stops the dispatcher and the workers. Changes not applied yet are
// dropped; call Flush first to apply them.
func (p *Propagator) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	dropped := len(p.queued)
	p.mu.Unlock()

	p.background.Close()
	p.pool.Release()

	if dropped > 0 {
		logging.DefaultLogger().Warnf("propagation closed with %d documents not indexed", dropped)
	}
	return nil
}

func (p *Propagator) signal() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// dispatch hands queued changes to the pool until the context is cancelled.
func (p *Propagator) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.notify:
		}

		for {
			id, ok := p.next()
			if !ok {
				break
			}

			if err := p.pool.Submit(func() {
				p.apply(ctx, id)
				p.finish(id)
			}); err != nil {
				// the change is dropped; a reindex recovers it
				logging.From(ctx).Errorf("submit %s: %v", id, err)
				if p.metrics != nil {
					p.metrics.AddPropagationFailure(p.index.Name(), "submit")
				}
				p.finish(id)
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// next pops the oldest queued id whose document is not being written.
func (p *Propagator) next() (types.MeadowlarkID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, id := range p.order {
		if _, ok := p.running[id]; ok {
			continue
		}

		p.order = append(p.order[:i], p.order[i+1:]...)
		delete(p.queued, id)
		p.running[id] = struct{}{}
		return id, true
	}

	return "", false
}

func (p *Propagator) finish(id types.MeadowlarkID) {
	p.mu.Lock()
	delete(p.running, id)
	p.setPendingLocked()
	if p.pendingLocked() == 0 {
		for _, w := range p.waiters {
			close(w)
		}
		p.waiters = nil
	}
	_, requeued := p.queued[id]
	p.mu.Unlock()

	if requeued {
		p.signal()
	}
}

// apply copies the current state of the document in the source to the
// index, retrying with exponential backoff.
func (p *Propagator) apply(ctx context.Context, id types.MeadowlarkID) {
	logger := logging.From(ctx)
	timeout := p.conf.ParseTimeout()

	action := ActionRead
	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		info, err := p.source.FindDocInfoByID(attemptCtx, id)
		switch {
		case errors.Is(err, database.ErrDocumentNotFound):
			action = ActionDelete
			return p.index.Delete(attemptCtx, id)
		case err != nil:
			action = ActionRead
			return fmt.Errorf("read %s: %w", id, err)
		default:
			action = ActionUpsert
			return p.index.Upsert(attemptCtx, info)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.conf.ParseInitialInterval()
	b.MaxInterval = p.conf.ParseMaxInterval()
	b.MaxElapsedTime = 0

	err := backoff.RetryNotify(
		op,
		backoff.WithContext(backoff.WithMaxRetries(b, p.conf.MaxRetries), ctx),
		func(err error, wait time.Duration) {
			if p.metrics != nil {
				p.metrics.AddPropagationRetry(p.index.Name(), string(action))
			}
			logger.Warnf("%s %s to %s failed, retrying in %s: %v", action, id, p.index.Name(), wait, err)
		},
	)
	if err != nil {
		if p.metrics != nil {
			p.metrics.AddPropagationFailure(p.index.Name(), string(action))
		}
		logger.Errorf("%s %s to %s given up: %v", action, id, p.index.Name(), err)
		return
	}

	if p.metrics != nil {
		p.metrics.AddPropagationSuccess(p.index.Name(), string(action))
	}
}

func (p *Propagator) pendingLocked() int {
	return len(p.queued) + len(p.running)
}

func (p *Propagator) setPendingLocked() {
	if p.metrics != nil {
		p.metrics.SetPropagationPending(p.pendingLocked())
	}
}
