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

package documents_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/server/backend"
	"github.com/meadowlark-team/meadowlark/server/backend/database"
	memdb "github.com/meadowlark-team/meadowlark/server/backend/database/memory"
	"github.com/meadowlark-team/meadowlark/server/backend/propagation"
	"github.com/meadowlark-team/meadowlark/server/backend/search"
	"github.com/meadowlark-team/meadowlark/server/backend/search/bleve"
	"github.com/meadowlark-team/meadowlark/server/documents"
	"github.com/meadowlark-team/meadowlark/server/profiling/prometheus"
)

const (
	insertedAt = 1683326572053
	updatedAt  = 1683548337342
)

var (
	errStoreDown = errors.New("store down")
	errIndexDown = errors.New("index down")
)

type testBackend struct {
	*backend.Backend
	index *bleve.Index
}

func newTestBackend(t *testing.T, db database.Database) *testBackend {
	index, err := bleve.Open("")
	require.NoError(t, err)

	return &testBackend{Backend: newBackend(t, db, index), index: index}
}

func newBackend(t *testing.T, db database.Database, index search.Index) *backend.Backend {
	if db == nil {
		memory, err := memdb.New()
		require.NoError(t, err)
		db = memory
	}

	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)

	be, err := backend.NewFromComponents(
		&backend.Config{
			Database:                backend.DatabaseMemory,
			MaxUpsertAttempts:       5,
			ReferringDocumentsLimit: 5,
			ReindexPageSize:         2,
		},
		db,
		index,
		&propagation.Config{
			Workers:         2,
			MaxRetries:      2,
			InitialInterval: "1ms",
			MaxInterval:     "1ms",
			Timeout:         "1s",
		},
		metrics,
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, be.Shutdown(context.Background()))
	})

	setClock(be, insertedAt)
	return be
}

func setClock(be *backend.Backend, millis int64) {
	be.Clock = func() time.Time { return time.UnixMilli(millis) }
}

func (tb *testBackend) flush(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tb.Propagator.Flush(ctx))
}

func (tb *testBackend) indexed(t *testing.T, id types.MeadowlarkID) bool {
	tb.flush(t)
	ok, err := tb.index.Contains(id)
	require.NoError(t, err)
	return ok
}

func schoolIdentity(value string) types.DocumentIdentity {
	return types.NewDocumentIdentity(map[string]string{"schoolId": value})
}

func schoolReference(value string) types.DocumentReference {
	return types.DocumentReference{
		ResourceInfo:     types.NewResourceInfo("School"),
		DocumentIdentity: schoolIdentity(value),
	}
}

func upsertSchool(
	t *testing.T,
	be *testBackend,
	value string,
	body map[string]any,
	refs ...types.DocumentReference,
) types.UpsertResult {
	result, err := documents.Upsert(context.Background(), be.Backend, &types.UpsertRequest{
		ResourceInfo:       types.NewResourceInfo("School"),
		DocumentIdentity:   schoolIdentity(value),
		EdfiDoc:            body,
		References:         refs,
		ValidateReferences: true,
		ClientID:           "client",
		TraceID:            types.NewTraceID(),
	})
	require.NoError(t, err)
	return result
}

func get(t *testing.T, be *testBackend, documentUUID types.DocumentUUID) types.GetResult {
	result, err := documents.Get(context.Background(), be.Backend, &types.GetRequest{
		DocumentUUID: documentUUID,
		ResourceInfo: types.NewResourceInfo("School"),
	})
	require.NoError(t, err)
	return result
}

func TestScenarios(t *testing.T) {
	ctx := context.Background()
	be := newTestBackend(t, nil)
	resourceInfo := types.NewResourceInfo("School")
	identity := types.NewDocumentIdentity(map[string]string{"natural": "get1"})

	// insert, then read back the stamped document.
	upserted, err := documents.Upsert(ctx, be.Backend, &types.UpsertRequest{
		ResourceInfo:     resourceInfo,
		DocumentIdentity: identity,
		EdfiDoc:          map[string]any{"inserted": "yes"},
	})
	require.NoError(t, err)
	assert.Equal(t, types.InsertSuccess, upserted.Result)
	assert.True(t, upserted.NewDocumentUUID.IsValid())

	got := get(t, be, upserted.NewDocumentUUID)
	assert.Equal(t, types.GetSuccess, got.Response)
	assert.Equal(t, "yes", got.Document["inserted"])
	assert.Equal(t, upserted.NewDocumentUUID.String(), got.Document["id"])
	assert.Equal(t, "2023-05-05T22:42:52.053Z", got.Document["_lastModifiedDate"])

	// update by uuid at a later time.
	setClock(be.Backend, updatedAt)
	updated, err := documents.Update(ctx, be.Backend, &types.UpdateRequest{
		DocumentUUID:     upserted.NewDocumentUUID,
		ResourceInfo:     resourceInfo,
		DocumentIdentity: identity,
		EdfiDoc:          map[string]any{"natural": "keyUpdated"},
	})
	require.NoError(t, err)
	assert.Equal(t, types.UpdateByUUIDSuccess, updated.Result)

	got = get(t, be, upserted.NewDocumentUUID)
	assert.Equal(t, types.GetSuccess, got.Response)
	assert.Equal(t, "keyUpdated", got.Document["natural"])
	assert.NotContains(t, got.Document, "inserted")
	assert.Equal(t, "2023-05-08T12:18:57.342Z", got.Document["_lastModifiedDate"])

	// a uuid never inserted is not found, not an error.
	got = get(t, be, "123")
	assert.Equal(t, types.GetFailureNotExists, got.Response)
	assert.Nil(t, got.Document)
}

func TestUpsert(t *testing.T) {
	t.Run("insert then update keeps the uuid test", func(t *testing.T) {
		be := newTestBackend(t, nil)

		inserted := upsertSchool(t, be, "123", map[string]any{"nameOfInstitution": "A"})
		require.Equal(t, types.InsertSuccess, inserted.Result)

		setClock(be.Backend, updatedAt)
		updated := upsertSchool(t, be, "123", map[string]any{"nameOfInstitution": "B"})
		assert.Equal(t, types.UpdateSuccess, updated.Result)
		assert.Equal(t, inserted.NewDocumentUUID, updated.NewDocumentUUID)

		stored, err := be.DB.FindDocInfoByDocumentUUID(context.Background(), inserted.NewDocumentUUID)
		require.NoError(t, err)
		assert.Equal(t, "B", stored.EdfiDoc["nameOfInstitution"])
		assert.Equal(t, int64(insertedAt), stored.CreatedAt.UnixMilli())
		assert.Equal(t, int64(updatedAt), stored.LastModifiedAt.UnixMilli())
		assert.Equal(t, "client", stored.CreatedBy)
	})

	t.Run("resource version is not part of the identity test", func(t *testing.T) {
		be := newTestBackend(t, nil)
		ctx := context.Background()

		request := &types.UpsertRequest{
			ResourceInfo:     types.ResourceInfo{ProjectName: "ed-fi", ResourceName: "School", ResourceVersion: "3.3.1-b"},
			DocumentIdentity: schoolIdentity("123"),
			EdfiDoc:          map[string]any{},
		}
		inserted, err := documents.Upsert(ctx, be.Backend, request)
		require.NoError(t, err)
		require.Equal(t, types.InsertSuccess, inserted.Result)

		request.ResourceInfo.ResourceVersion = "4.0.0"
		updated, err := documents.Upsert(ctx, be.Backend, request)
		require.NoError(t, err)
		assert.Equal(t, types.UpdateSuccess, updated.Result)
		assert.Equal(t, inserted.NewDocumentUUID, updated.NewDocumentUUID)
	})

	t.Run("caller body is not shared with the store test", func(t *testing.T) {
		be := newTestBackend(t, nil)

		body := map[string]any{"nameOfInstitution": "A"}
		inserted := upsertSchool(t, be, "123", body)
		body["nameOfInstitution"] = "changed"

		got := get(t, be, inserted.NewDocumentUUID)
		assert.Equal(t, "A", got.Document["nameOfInstitution"])
	})

	t.Run("missing reference on insert test", func(t *testing.T) {
		be := newTestBackend(t, nil)

		result := upsertSchool(t, be, "123", map[string]any{}, schoolReference("404"))
		assert.Equal(t, types.InsertFailureReference, result.Result)
		assert.Contains(t, result.FailureMessage, "School{schoolId=404}")
		assert.Empty(t, result.NewDocumentUUID)

		id := types.MeadowlarkIDFor(types.NewResourceInfo("School"), schoolIdentity("123"))
		got := documents.GetByMeadowlarkID(context.Background(), be.Backend, id, "")
		assert.Equal(t, types.GetFailureNotExists, got.Response)
	})

	t.Run("missing reference on update test", func(t *testing.T) {
		be := newTestBackend(t, nil)

		require.Equal(t, types.InsertSuccess, upsertSchool(t, be, "123", map[string]any{"v": "1"}).Result)

		result := upsertSchool(t, be, "123", map[string]any{"v": "2"}, schoolReference("404"))
		assert.Equal(t, types.UpdateFailureReference, result.Result)

		id := types.MeadowlarkIDFor(types.NewResourceInfo("School"), schoolIdentity("123"))
		got := documents.GetByMeadowlarkID(context.Background(), be.Backend, id, "")
		require.Equal(t, types.GetSuccess, got.Response)
		assert.Equal(t, "1", got.Document["v"])
	})

	t.Run("existing reference test", func(t *testing.T) {
		be := newTestBackend(t, nil)

		require.Equal(t, types.InsertSuccess, upsertSchool(t, be, "parent", map[string]any{}).Result)
		result := upsertSchool(t, be, "child", map[string]any{}, schoolReference("parent"), schoolReference("parent"))
		assert.Equal(t, types.InsertSuccess, result.Result)

		stored, err := be.DB.FindDocInfoByDocumentUUID(context.Background(), result.NewDocumentUUID)
		require.NoError(t, err)
		assert.Equal(t, []types.MeadowlarkID{schoolReference("parent").MeadowlarkID()}, stored.OutboundRefs)
	})

	t.Run("unvalidated references are stored test", func(t *testing.T) {
		be := newTestBackend(t, nil)

		result, err := documents.Upsert(context.Background(), be.Backend, &types.UpsertRequest{
			ResourceInfo:     types.NewResourceInfo("School"),
			DocumentIdentity: schoolIdentity("123"),
			EdfiDoc:          map[string]any{},
			References:       types.References{schoolReference("404")},
		})
		require.NoError(t, err)
		assert.Equal(t, types.InsertSuccess, result.Result)
	})

	t.Run("concurrent upserts insert once test", func(t *testing.T) {
		be := newTestBackend(t, nil)

		const writers = 16
		results := make([]types.UpsertResult, writers)
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				result, err := documents.Upsert(context.Background(), be.Backend, &types.UpsertRequest{
					ResourceInfo:     types.NewResourceInfo("School"),
					DocumentIdentity: schoolIdentity("123"),
					EdfiDoc:          map[string]any{"writer": i},
				})
				assert.NoError(t, err)
				results[i] = result
			}(i)
		}
		wg.Wait()

		inserts := 0
		for _, result := range results {
			if result.Result == types.InsertSuccess {
				inserts++
			} else {
				assert.Equal(t, types.UpdateSuccess, result.Result)
			}
			assert.Equal(t, results[0].NewDocumentUUID, result.NewDocumentUUID)
		}
		assert.Equal(t, 1, inserts)
	})

	t.Run("identity collision is not overwritten test", func(t *testing.T) {
		be := newTestBackend(t, nil)
		ctx := context.Background()

		// a stored document whose id is that of another identity
		id := types.MeadowlarkIDFor(types.NewResourceInfo("School"), schoolIdentity("123"))
		require.NoError(t, be.DB.InsertDocInfo(ctx, &database.DocInfo{
			ID:               id,
			DocumentUUID:     types.NewDocumentUUID(),
			ResourceInfo:     types.NewResourceInfo("School"),
			DocumentIdentity: schoolIdentity("999"),
			EdfiDoc:          map[string]any{"original": true},
		}, database.WriteOptions{}))

		result := upsertSchool(t, be, "123", map[string]any{})
		assert.Equal(t, types.UpsertUnknownFailure, result.Result)
		assert.Contains(t, result.FailureMessage, "identity collision")

		stored, err := be.DB.FindDocInfoByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, true, stored.EdfiDoc["original"])
	})

	t.Run("propagate to index test", func(t *testing.T) {
		be := newTestBackend(t, nil)

		upsertSchool(t, be, "123", map[string]any{})
		id := types.MeadowlarkIDFor(types.NewResourceInfo("School"), schoolIdentity("123"))
		assert.True(t, be.indexed(t, id))
	})

	t.Run("index follows the store commit order test", func(t *testing.T) {
		memory, err := memdb.New()
		require.NoError(t, err)
		db := &pausingDatabase{
			Database: memory,
			version:  "A",
			paused:   make(chan struct{}),
			release:  make(chan struct{}),
		}
		index := newStubIndex()
		be := &testBackend{Backend: newBackend(t, db, index)}
		id := types.MeadowlarkIDFor(types.NewResourceInfo("School"), schoolIdentity("123"))

		require.Equal(t, types.InsertSuccess, upsertSchool(t, be, "123", map[string]any{"v": "0"}).Result)
		be.flush(t)

		// A commits first but is queued for the index after B.
		resultA := make(chan types.UpsertResult, 1)
		go func() {
			result, err := documents.Upsert(context.Background(), be.Backend, &types.UpsertRequest{
				ResourceInfo:     types.NewResourceInfo("School"),
				DocumentIdentity: schoolIdentity("123"),
				EdfiDoc:          map[string]any{"v": "A"},
			})
			assert.NoError(t, err)
			resultA <- result
		}()
		<-db.paused

		assert.Equal(t, types.UpdateSuccess, upsertSchool(t, be, "123", map[string]any{"v": "B"}).Result)
		be.flush(t)

		close(db.release)
		assert.Equal(t, types.UpdateSuccess, (<-resultA).Result)
		be.flush(t)

		stored, err := be.DB.FindDocInfoByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "B", stored.EdfiDoc["v"])
		assert.Equal(t, "B", index.version(id))
	})

	t.Run("failing index does not fail writes test", func(t *testing.T) {
		index := newStubIndex()
		index.failing = true
		be := &testBackend{Backend: newBackend(t, nil, index)}
		ctx := context.Background()

		inserted := upsertSchool(t, be, "123", map[string]any{"v": "1"})
		assert.Equal(t, types.InsertSuccess, inserted.Result)
		assert.Equal(t, types.UpdateSuccess, upsertSchool(t, be, "123", map[string]any{"v": "2"}).Result)

		updated, err := documents.Update(ctx, be.Backend, &types.UpdateRequest{
			DocumentUUID:     inserted.NewDocumentUUID,
			ResourceInfo:     types.NewResourceInfo("School"),
			DocumentIdentity: schoolIdentity("123"),
			EdfiDoc:          map[string]any{"v": "3"},
		})
		require.NoError(t, err)
		assert.Equal(t, types.UpdateByUUIDSuccess, updated.Result)
		assert.Equal(t, "3", get(t, be, inserted.NewDocumentUUID).Document["v"])

		deleted, err := documents.Delete(ctx, be.Backend, &types.DeleteRequest{
			DocumentUUID: inserted.NewDocumentUUID,
			ResourceInfo: types.NewResourceInfo("School"),
		})
		require.NoError(t, err)
		assert.Equal(t, types.DeleteSuccess, deleted.Result)

		be.flush(t)
		assert.Positive(t, index.failedWrites())
		assert.Equal(t, types.GetFailureNotExists, get(t, be, inserted.NewDocumentUUID).Response)
	})

	t.Run("invalid request test", func(t *testing.T) {
		be := newTestBackend(t, nil)

		_, err := documents.Upsert(context.Background(), be.Backend, &types.UpsertRequest{
			ResourceInfo: types.NewResourceInfo("School"),
			EdfiDoc:      map[string]any{},
		})
		assert.ErrorIs(t, err, types.ErrInvalidRequest)
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("not exists test", func(t *testing.T) {
		be := newTestBackend(t, nil)

		result, err := documents.Update(ctx, be.Backend, &types.UpdateRequest{
			DocumentUUID:     types.NewDocumentUUID(),
			ResourceInfo:     types.NewResourceInfo("School"),
			DocumentIdentity: schoolIdentity("123"),
			EdfiDoc:          map[string]any{},
		})
		require.NoError(t, err)
		assert.Equal(t, types.UpdateFailureNotExists, result.Result)
	})

	t.Run("other resource test", func(t *testing.T) {
		be := newTestBackend(t, nil)
		inserted := upsertSchool(t, be, "123", map[string]any{})

		result, err := documents.Update(ctx, be.Backend, &types.UpdateRequest{
			DocumentUUID:     inserted.NewDocumentUUID,
			ResourceInfo:     types.NewResourceInfo("Student"),
			DocumentIdentity: schoolIdentity("123"),
			EdfiDoc:          map[string]any{},
		})
		require.NoError(t, err)
		assert.Equal(t, types.UpdateFailureNotExists, result.Result)
	})

	t.Run("immutable identity test", func(t *testing.T) {
		be := newTestBackend(t, nil)
		inserted := upsertSchool(t, be, "123", map[string]any{"v": "1"})

		result, err := documents.Update(ctx, be.Backend, &types.UpdateRequest{
			DocumentUUID:     inserted.NewDocumentUUID,
			ResourceInfo:     types.NewResourceInfo("School"),
			DocumentIdentity: schoolIdentity("456"),
			EdfiDoc:          map[string]any{"v": "2"},
		})
		require.NoError(t, err)
		assert.Equal(t, types.UpdateFailureImmutableIdentity, result.Result)
		assert.NotEmpty(t, result.FailureMessage)

		got := get(t, be, inserted.NewDocumentUUID)
		assert.Equal(t, "1", got.Document["v"])
	})

	t.Run("identity collision is not overwritten test", func(t *testing.T) {
		be := newTestBackend(t, nil)

		// a stored document whose id is that of another identity
		id := types.MeadowlarkIDFor(types.NewResourceInfo("School"), schoolIdentity("123"))
		documentUUID := types.NewDocumentUUID()
		require.NoError(t, be.DB.InsertDocInfo(ctx, &database.DocInfo{
			ID:               id,
			DocumentUUID:     documentUUID,
			ResourceInfo:     types.NewResourceInfo("School"),
			DocumentIdentity: schoolIdentity("999"),
			EdfiDoc:          map[string]any{"original": true},
		}, database.WriteOptions{}))

		result, err := documents.Update(ctx, be.Backend, &types.UpdateRequest{
			DocumentUUID:     documentUUID,
			ResourceInfo:     types.NewResourceInfo("School"),
			DocumentIdentity: schoolIdentity("123"),
			EdfiDoc:          map[string]any{},
		})
		require.NoError(t, err)
		assert.Equal(t, types.UpdateUnknownFailure, result.Result)
		assert.Contains(t, result.FailureMessage, "identity collision")

		stored, err := be.DB.FindDocInfoByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, true, stored.EdfiDoc["original"])
	})

	t.Run("missing reference test", func(t *testing.T) {
		be := newTestBackend(t, nil)
		inserted := upsertSchool(t, be, "123", map[string]any{"v": "1"})

		result, err := documents.Update(ctx, be.Backend, &types.UpdateRequest{
			DocumentUUID:       inserted.NewDocumentUUID,
			ResourceInfo:       types.NewResourceInfo("School"),
			DocumentIdentity:   schoolIdentity("123"),
			EdfiDoc:            map[string]any{"v": "2"},
			References:         types.References{schoolReference("404")},
			ValidateReferences: true,
		})
		require.NoError(t, err)
		assert.Equal(t, types.UpdateByUUIDFailureReference, result.Result)
		assert.Contains(t, result.FailureMessage, "School{schoolId=404}")

		got := get(t, be, inserted.NewDocumentUUID)
		assert.Equal(t, "1", got.Document["v"])
	})

	t.Run("empty uuid test", func(t *testing.T) {
		be := newTestBackend(t, nil)

		_, err := documents.Update(ctx, be.Backend, &types.UpdateRequest{
			ResourceInfo:     types.NewResourceInfo("School"),
			DocumentIdentity: schoolIdentity("123"),
			EdfiDoc:          map[string]any{},
		})
		assert.ErrorIs(t, err, types.ErrInvalidRequest)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("delete test", func(t *testing.T) {
		be := newTestBackend(t, nil)
		inserted := upsertSchool(t, be, "123", map[string]any{})
		id := types.MeadowlarkIDFor(types.NewResourceInfo("School"), schoolIdentity("123"))
		require.True(t, be.indexed(t, id))

		result, err := documents.Delete(ctx, be.Backend, &types.DeleteRequest{
			DocumentUUID:                   inserted.NewDocumentUUID,
			ResourceInfo:                   types.NewResourceInfo("School"),
			ValidateNoReferencesToDocument: true,
		})
		require.NoError(t, err)
		assert.Equal(t, types.DeleteSuccess, result.Result)
		assert.Equal(t, types.GetFailureNotExists, get(t, be, inserted.NewDocumentUUID).Response)
		assert.False(t, be.indexed(t, id))

		result, err = documents.Delete(ctx, be.Backend, &types.DeleteRequest{
			DocumentUUID: inserted.NewDocumentUUID,
			ResourceInfo: types.NewResourceInfo("School"),
		})
		require.NoError(t, err)
		assert.Equal(t, types.DeleteFailureNotExists, result.Result)
	})

	t.Run("referenced document test", func(t *testing.T) {
		be := newTestBackend(t, nil)
		parent := upsertSchool(t, be, "parent", map[string]any{})
		child := upsertSchool(t, be, "child", map[string]any{}, schoolReference("parent"))
		require.Equal(t, types.InsertSuccess, child.Result)

		result, err := documents.Delete(ctx, be.Backend, &types.DeleteRequest{
			DocumentUUID:                   parent.NewDocumentUUID,
			ResourceInfo:                   types.NewResourceInfo("School"),
			ValidateNoReferencesToDocument: true,
		})
		require.NoError(t, err)
		assert.Equal(t, types.DeleteFailureReference, result.Result)
		assert.Equal(t, []types.DocumentUUID{child.NewDocumentUUID}, result.ReferringDocumentUUIDs)
		assert.Equal(t, types.GetSuccess, get(t, be, parent.NewDocumentUUID).Response)

		// without validation the reference does not block the delete
		result, err = documents.Delete(ctx, be.Backend, &types.DeleteRequest{
			DocumentUUID: parent.NewDocumentUUID,
			ResourceInfo: types.NewResourceInfo("School"),
		})
		require.NoError(t, err)
		assert.Equal(t, types.DeleteSuccess, result.Result)
	})

	t.Run("other resource test", func(t *testing.T) {
		be := newTestBackend(t, nil)
		inserted := upsertSchool(t, be, "123", map[string]any{})

		result, err := documents.Delete(ctx, be.Backend, &types.DeleteRequest{
			DocumentUUID: inserted.NewDocumentUUID,
			ResourceInfo: types.NewResourceInfo("Student"),
		})
		require.NoError(t, err)
		assert.Equal(t, types.DeleteFailureNotExists, result.Result)
	})
}

func TestValidateReferences(t *testing.T) {
	be := newTestBackend(t, nil)
	upsertSchool(t, be, "a", map[string]any{})

	validation, err := documents.ValidateReferences(context.Background(), be.DB, nil)
	require.NoError(t, err)
	assert.True(t, validation.OK())

	validation, err = documents.ValidateReferences(context.Background(), be.DB, types.References{
		schoolReference("a"),
		schoolReference("b"),
		schoolReference("c"),
	})
	require.NoError(t, err)
	assert.Equal(t, documents.ReferencesMissing, validation.Outcome)
	assert.Equal(t, types.References{schoolReference("b"), schoolReference("c")}, validation.Missing)
	assert.Contains(t, validation.FailureMessage(), "School{schoolId=b}, School{schoolId=c}")
}

func TestReindex(t *testing.T) {
	be := newTestBackend(t, nil)
	ctx := context.Background()

	for _, value := range []string{"1", "2", "3"} {
		require.Equal(t, types.InsertSuccess, upsertSchool(t, be, value, map[string]any{}).Result)
	}
	be.flush(t)

	// drop the index entries, as if their writes had been given up on
	for _, value := range []string{"1", "2", "3"} {
		id := types.MeadowlarkIDFor(types.NewResourceInfo("School"), schoolIdentity(value))
		require.NoError(t, be.index.Delete(ctx, id))
	}

	count, err := documents.Reindex(ctx, be.Backend, types.NewResourceInfo("School"), "")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	be.flush(t)
	indexed, err := be.index.CountResource(types.NewResourceInfo("School"))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), indexed)
}

// stubIndex keeps the "v" field of the documents written to it. While
// failing is set every write fails.
type stubIndex struct {
	mu       sync.Mutex
	versions map[types.MeadowlarkID]string
	failing  bool
	failures int
}

func newStubIndex() *stubIndex {
	return &stubIndex{versions: make(map[types.MeadowlarkID]string)}
}

func (i *stubIndex) Name() string { return "stub" }

func (i *stubIndex) Upsert(_ context.Context, info *database.DocInfo) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.failing {
		i.failures++
		return errIndexDown
	}
	i.versions[info.ID] = fmt.Sprint(info.EdfiDoc["v"])
	return nil
}

func (i *stubIndex) Delete(_ context.Context, id types.MeadowlarkID) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.failing {
		i.failures++
		return errIndexDown
	}
	delete(i.versions, id)
	return nil
}

func (i *stubIndex) Close() error { return nil }

func (i *stubIndex) version(id types.MeadowlarkID) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.versions[id]
}

func (i *stubIndex) failedWrites() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.failures
}

// pausingDatabase holds a replace writing the given version, after it is
// committed, until release is closed.
type pausingDatabase struct {
	database.Database
	version string
	paused  chan struct{}
	release chan struct{}
}

func (d *pausingDatabase) ReplaceDocInfo(ctx context.Context, info *database.DocInfo, opts database.WriteOptions) error {
	if err := d.Database.ReplaceDocInfo(ctx, info, opts); err != nil {
		return err
	}
	if info.EdfiDoc["v"] == d.version {
		close(d.paused)
		<-d.release
	}
	return nil
}

// failingDatabase fails every lookup.
type failingDatabase struct {
	database.Database
}

func (failingDatabase) FindDocInfoByID(context.Context, types.MeadowlarkID) (*database.DocInfo, error) {
	return nil, errStoreDown
}

func (failingDatabase) FindDocInfoByDocumentUUID(context.Context, types.DocumentUUID) (*database.DocInfo, error) {
	return nil, errStoreDown
}

func TestStoreFailure(t *testing.T) {
	memory, err := memdb.New()
	require.NoError(t, err)
	be := newTestBackend(t, failingDatabase{Database: memory})
	ctx := context.Background()

	assert.Equal(t, types.GetFailureError, get(t, be, types.NewDocumentUUID()).Response)

	upserted := upsertSchool(t, be, "123", map[string]any{})
	assert.Equal(t, types.UpsertUnknownFailure, upserted.Result)
	assert.Contains(t, upserted.FailureMessage, errStoreDown.Error())

	updated, err := documents.Update(ctx, be.Backend, &types.UpdateRequest{
		DocumentUUID:     types.NewDocumentUUID(),
		ResourceInfo:     types.NewResourceInfo("School"),
		DocumentIdentity: schoolIdentity("123"),
		EdfiDoc:          map[string]any{},
	})
	require.NoError(t, err)
	assert.Equal(t, types.UpdateUnknownFailure, updated.Result)

	deleted, err := documents.Delete(ctx, be.Backend, &types.DeleteRequest{DocumentUUID: types.NewDocumentUUID()})
	require.NoError(t, err)
	assert.Equal(t, types.DeleteUnknownFailure, deleted.Result)
}
