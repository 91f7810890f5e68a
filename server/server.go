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

// Package server provides the Meadowlark server which is the main entry point
// of the document repository. The server owns the backend, that is the
// document store and the search index, and the profiling server.
package server

import (
	"context"
	gosync "sync"
	"time"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/server/backend"
	"github.com/meadowlark-team/meadowlark/server/documents"
	"github.com/meadowlark-team/meadowlark/server/logging"
	"github.com/meadowlark-team/meadowlark/server/profiling"
	"github.com/meadowlark-team/meadowlark/server/profiling/prometheus"
)

// Meadowlark is a server of Meadowlark.
// The server stores the documents in the document store and propagates the
// written documents to the search index.
type Meadowlark struct {
	lock gosync.Mutex

	conf            *Config
	backend         *backend.Backend
	profilingServer *profiling.Server

	shutdown   bool
	shutdownCh chan struct{}
}

// New creates a new instance of Meadowlark.
func New(conf *Config) (*Meadowlark, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	metrics, err := prometheus.NewMetrics()
	if err != nil {
		return nil, err
	}

	be, err := backend.New(
		conf.Backend,
		conf.Mongo,
		conf.Badger,
		conf.Search,
		conf.Propagation,
		metrics,
	)
	if err != nil {
		return nil, err
	}

	var profilingServer *profiling.Server
	if conf.Profiling != nil && !conf.Profiling.Disabled {
		profilingServer = profiling.NewServer(conf.Profiling, metrics)
	}

	return &Meadowlark{
		conf:            conf,
		backend:         be,
		profilingServer: profilingServer,
		shutdownCh:      make(chan struct{}),
	}, nil
}

// Start starts the server by opening the profiling port.
func (r *Meadowlark) Start() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.profilingServer != nil {
		if err := r.profilingServer.Start(); err != nil {
			return err
		}
	}

	logging.DefaultLogger().Infof(
		"meadowlark started: database: %s, index: %s",
		r.conf.Backend.Database,
		r.backend.Index.Name(),
	)
	return nil
}

// Shutdown shuts down this Meadowlark server. A graceful shutdown waits for
// the pending index writes, up to DefaultShutdownTimeout.
func (r *Meadowlark) Shutdown(graceful bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.shutdown {
		return nil
	}

	if r.profilingServer != nil {
		r.profilingServer.Shutdown(graceful)
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if graceful {
		ctx, cancel = context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	} else {
		// pending index writes are dropped
		ctx, cancel = context.WithCancel(context.Background())
		cancel()
	}
	defer cancel()

	// the backend releases its resources even when it reports an error
	err := r.backend.Shutdown(ctx)
	close(r.shutdownCh)
	r.shutdown = true
	return err
}

// ShutdownCh returns the shutdown channel.
func (r *Meadowlark) ShutdownCh() <-chan struct{} {
	return r.shutdownCh
}

// Upsert inserts or updates the document of the given request.
func (r *Meadowlark) Upsert(ctx context.Context, req *types.UpsertRequest) (types.UpsertResult, error) {
	return documents.Upsert(ctx, r.backend, req)
}

// Update updates the document of the given request by its uuid.
func (r *Meadowlark) Update(ctx context.Context, req *types.UpdateRequest) (types.UpdateResult, error) {
	return documents.Update(ctx, r.backend, req)
}

// Get returns the document of the given request.
func (r *Meadowlark) Get(ctx context.Context, req *types.GetRequest) (types.GetResult, error) {
	return documents.Get(ctx, r.backend, req)
}

// Delete deletes the document of the given request.
func (r *Meadowlark) Delete(ctx context.Context, req *types.DeleteRequest) (types.DeleteResult, error) {
	return documents.Delete(ctx, r.backend, req)
}

// Reindex queues the documents of the given resource for the search index and
// waits until they are written or the context is done.
func (r *Meadowlark) Reindex(
	ctx context.Context,
	resourceInfo types.ResourceInfo,
	traceID types.TraceID,
) (int, error) {
	count, err := documents.Reindex(ctx, r.backend, resourceInfo, traceID)
	if err != nil {
		return count, err
	}

	start := time.Now()
	if err := r.backend.Propagator.Flush(ctx); err != nil {
		return count, err
	}
	logging.From(ctx).Infof("reindexed %d documents of %s in %s", count, resourceInfo, time.Since(start))
	return count, nil
}

// Flush waits until the pending index writes are applied. It is used for
// testing.
func (r *Meadowlark) Flush(ctx context.Context) error {
	return r.backend.Propagator.Flush(ctx)
}

// IndexName returns the name of the search index in use.
func (r *Meadowlark) IndexName() string {
	return r.backend.Index.Name()
}
