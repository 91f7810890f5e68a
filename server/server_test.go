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

package server_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/server"
	"github.com/meadowlark-team/meadowlark/server/backend/search"
)

func newTestServer(t *testing.T) *server.Meadowlark {
	conf := server.NewConfig()
	conf.Profiling.Disabled = true
	conf.Backend.Hostname = "test"
	conf.Search.Provider = search.ProviderBleve

	r, err := server.New(conf)
	require.NoError(t, err)
	require.NoError(t, r.Start())
	t.Cleanup(func() {
		assert.NoError(t, r.Shutdown(true))
	})
	return r
}

func TestMeadowlark(t *testing.T) {
	ctx := context.Background()
	school := types.NewResourceInfo("School")
	identity := types.NewDocumentIdentity(map[string]string{"schoolId": "123"})

	t.Run("document lifecycle test", func(t *testing.T) {
		r := newTestServer(t)
		assert.Equal(t, search.ProviderBleve, r.IndexName())

		upserted, err := r.Upsert(ctx, &types.UpsertRequest{
			ResourceInfo:     school,
			DocumentIdentity: identity,
			EdfiDoc:          map[string]any{"schoolId": 123, "nameOfInstitution": "Grand Bend"},
		})
		require.NoError(t, err)
		assert.Equal(t, types.InsertSuccess, upserted.Result)

		got, err := r.Get(ctx, &types.GetRequest{DocumentUUID: upserted.NewDocumentUUID, ResourceInfo: school})
		require.NoError(t, err)
		assert.Equal(t, types.GetSuccess, got.Response)
		assert.Equal(t, "Grand Bend", got.Document["nameOfInstitution"])
		assert.Equal(t, upserted.NewDocumentUUID.String(), got.Document["id"])

		updated, err := r.Update(ctx, &types.UpdateRequest{
			DocumentUUID:     upserted.NewDocumentUUID,
			ResourceInfo:     school,
			DocumentIdentity: identity,
			EdfiDoc:          map[string]any{"schoolId": 123, "nameOfInstitution": "Grand Bend High"},
		})
		require.NoError(t, err)
		assert.Equal(t, types.UpdateByUUIDSuccess, updated.Result)

		count, err := r.Reindex(ctx, school, "")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		deleted, err := r.Delete(ctx, &types.DeleteRequest{DocumentUUID: upserted.NewDocumentUUID, ResourceInfo: school})
		require.NoError(t, err)
		assert.Equal(t, types.DeleteSuccess, deleted.Result)
		assert.NoError(t, r.Flush(ctx))

		got, err = r.Get(ctx, &types.GetRequest{DocumentUUID: upserted.NewDocumentUUID, ResourceInfo: school})
		require.NoError(t, err)
		assert.Equal(t, types.GetFailureNotExists, got.Response)
	})

	t.Run("shutdown twice test", func(t *testing.T) {
		conf := server.NewConfig()
		conf.Profiling.Disabled = true
		conf.Backend.Hostname = "test"

		r, err := server.New(conf)
		require.NoError(t, err)
		require.NoError(t, r.Start())

		assert.NoError(t, r.Shutdown(false))
		<-r.ShutdownCh()
		assert.NoError(t, r.Shutdown(true))
	})

	t.Run("invalid config test", func(t *testing.T) {
		conf := server.NewConfig()
		conf.Backend.MaxUpsertAttempts = 0
		_, err := server.New(conf)
		assert.Error(t, err)
	})
}
