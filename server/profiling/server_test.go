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

package profiling

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meadowlark-team/meadowlark/server/profiling/prometheus"
)

func TestServer(t *testing.T) {
	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)

	t.Run("serve metrics test", func(t *testing.T) {
		s := NewServer(&Config{Port: 8081}, metrics)
		metrics.AddRepositoryOperation("get", "GET_SUCCESS", "ed-fi", "School")

		rec := httptest.NewRecorder()
		s.serveMux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "meadowlark_repository_operations_total")
	})

	t.Run("pprof disabled by default test", func(t *testing.T) {
		s := NewServer(&Config{Port: 8081}, metrics)

		rec := httptest.NewRecorder()
		s.serveMux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/heap", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("pprof enabled test", func(t *testing.T) {
		s := NewServer(&Config{Port: 8081, EnablePprof: true}, metrics)

		rec := httptest.NewRecorder()
		s.serveMux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
