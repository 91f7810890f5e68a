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

// Package backend provides the backend implementation of Meadowlark.
// This package is responsible for managing the document store, the search
// index and the propagation between them.
package backend

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/meadowlark-team/meadowlark/server/backend/database"
	badgerdb "github.com/meadowlark-team/meadowlark/server/backend/database/badger"
	memdb "github.com/meadowlark-team/meadowlark/server/backend/database/memory"
	"github.com/meadowlark-team/meadowlark/server/backend/database/mongo"
	"github.com/meadowlark-team/meadowlark/server/backend/propagation"
	"github.com/meadowlark-team/meadowlark/server/backend/search"
	"github.com/meadowlark-team/meadowlark/server/backend/search/algolia"
	"github.com/meadowlark-team/meadowlark/server/backend/search/bleve"
	"github.com/meadowlark-team/meadowlark/server/logging"
	"github.com/meadowlark-team/meadowlark/server/profiling/prometheus"
)

// Clock returns the current time. It is replaced in tests.
type Clock func() time.Time

// Backend manages Meadowlark's backend such as the document store and the
// search index.
type Backend struct {
	Config *Config

	// DB is the document store, the source of truth.
	DB database.Database
	// Index is the search index fed from the document store.
	Index search.Index
	// Propagator applies the changes of DB to Index.
	Propagator *propagation.Propagator

	// Metrics is used to expose metrics.
	Metrics *prometheus.Metrics
	// Clock stamps the documents written.
	Clock Clock
}

// New creates a new instance of Backend. mongoConf and badgerConf are only
// read when conf selects their store.
func New(
	conf *Config,
	mongoConf *mongo.Config,
	badgerConf *badgerdb.Config,
	searchConf *search.Config,
	propagationConf *propagation.Config,
	metrics *prometheus.Metrics,
) (*Backend, error) {
	// 01. Build the server info with the given hostname or the hostname of the
	// current machine.
	if conf.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("os.Hostname: %w", err)
		}
		conf.Hostname = hostname
	}

	// 02. Create the document store.
	db, dbInfo, err := openDatabase(conf, mongoConf, badgerConf)
	if err != nil {
		return nil, err
	}

	// 03. Create the search index.
	index, err := openIndex(searchConf)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	be, err := NewFromComponents(conf, db, index, propagationConf, metrics)
	if err != nil {
		_ = index.Close()
		_ = db.Close()
		return nil, err
	}

	logging.DefaultLogger().Infof(
		"backend created: host: %s, db: %s, index: %s",
		conf.Hostname,
		dbInfo,
		index.Name(),
	)

	return be, nil
}

// NewFromComponents creates a Backend on an already opened store and index.
// The Backend owns them from then on and closes them on Shutdown.
func NewFromComponents(
	conf *Config,
	db database.Database,
	index search.Index,
	propagationConf *propagation.Config,
	metrics *prometheus.Metrics,
) (*Backend, error) {
	propagator, err := propagation.New(propagationConf, db, index, metrics)
	if err != nil {
		return nil, err
	}

	return &Backend{
		Config:     conf,
		DB:         db,
		Index:      index,
		Propagator: propagator,
		Metrics:    metrics,
		Clock:      time.Now,
	}, nil
}

func openDatabase(
	conf *Config,
	mongoConf *mongo.Config,
	badgerConf *badgerdb.Config,
) (database.Database, string, error) {
	switch conf.Database {
	case DatabaseMongo:
		if mongoConf == nil {
			return nil, "", fmt.Errorf("mongo config required for %q database", conf.Database)
		}
		db, err := mongo.Dial(mongoConf)
		if err != nil {
			return nil, "", err
		}
		return db, mongoConf.ConnectionURI, nil
	case DatabaseBadger:
		if badgerConf == nil {
			return nil, "", fmt.Errorf("badger config required for %q database", conf.Database)
		}
		db, err := badgerdb.Open(badgerConf)
		if err != nil {
			return nil, "", err
		}
		if badgerConf.InMemory {
			return db, "badger(memory)", nil
		}
		return db, "badger(" + badgerConf.Path + ")", nil
	default:
		db, err := memdb.New()
		if err != nil {
			return nil, "", err
		}
		return db, DatabaseMemory, nil
	}
}

func openIndex(conf *search.Config) (search.Index, error) {
	if conf == nil {
		return search.Noop{}, nil
	}

	switch conf.Provider {
	case search.ProviderBleve:
		index, err := bleve.Open(conf.BleveIndexPath)
		if err != nil {
			return nil, err
		}
		return index, nil
	case search.ProviderAlgolia:
		index, err := algolia.New(&algolia.Config{
			AppID:        conf.AlgoliaAppID,
			APIKey:       conf.AlgoliaAPIKey,
			IndexName:    conf.AlgoliaIndexName,
			WaitForTasks: conf.AlgoliaWaitForTasks,
		})
		if err != nil {
			return nil, err
		}
		return index, nil
	default:
		return search.Noop{}, nil
	}
}

// Shutdown applies the pending index writes and closes all resources of this
// instance. Pending writes still queued when the context is done are dropped.
func (b *Backend) Shutdown(ctx context.Context) error {
	var result *multierror.Error

	if err := b.Propagator.Flush(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := b.Propagator.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := b.Index.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close index: %w", err))
	}
	if err := b.DB.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close database: %w", err))
	}

	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	logging.DefaultLogger().Infof("backend stopped")
	return nil
}
