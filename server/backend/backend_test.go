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

package backend_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meadowlark-team/meadowlark/server/backend"
	badgerdb "github.com/meadowlark-team/meadowlark/server/backend/database/badger"
	"github.com/meadowlark-team/meadowlark/server/backend/propagation"
	"github.com/meadowlark-team/meadowlark/server/backend/search"
	"github.com/meadowlark-team/meadowlark/server/profiling/prometheus"
)

func newPropagationConf() *propagation.Config {
	return &propagation.Config{
		Workers:         1,
		MaxRetries:      1,
		InitialInterval: "1ms",
		MaxInterval:     "1ms",
		Timeout:         "1s",
	}
}

func TestBackend(t *testing.T) {
	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)

	t.Run("memory database with bleve index test", func(t *testing.T) {
		conf := newValidBackendConf()
		be, err := backend.New(
			&conf,
			nil,
			nil,
			&search.Config{Provider: search.ProviderBleve},
			newPropagationConf(),
			metrics,
		)
		require.NoError(t, err)
		assert.Equal(t, "bleve", be.Index.Name())
		assert.NotEmpty(t, conf.Hostname)
		assert.NoError(t, be.Shutdown(context.Background()))
	})

	t.Run("badger database without index test", func(t *testing.T) {
		conf := newValidBackendConf()
		conf.Database = backend.DatabaseBadger
		be, err := backend.New(
			&conf,
			nil,
			&badgerdb.Config{InMemory: true},
			nil,
			newPropagationConf(),
			metrics,
		)
		require.NoError(t, err)
		assert.Equal(t, search.Noop{}.Name(), be.Index.Name())
		assert.NoError(t, be.Shutdown(context.Background()))
	})

	t.Run("missing store config test", func(t *testing.T) {
		conf := newValidBackendConf()
		conf.Database = backend.DatabaseMongo
		_, err := backend.New(&conf, nil, nil, nil, newPropagationConf(), metrics)
		assert.Error(t, err)
	})
}
