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

// Package testcases contains testcases for database. It is used by database
// implementations to test their own implementations with the same testcases.
package testcases

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/pkg/errors"
	"github.com/meadowlark-team/meadowlark/server/backend/database"
)

// NewDocInfo returns a DocInfo of the given resource and identity value,
// ready to be inserted.
func NewDocInfo(resourceName, idValue string, refs ...types.MeadowlarkID) *database.DocInfo {
	resourceInfo := types.NewResourceInfo(resourceName)
	identity := types.DocumentIdentity{{Name: "id", Value: idValue}}
	now := time.UnixMilli(1683326572053).UTC()

	return &database.DocInfo{
		ID:               types.MeadowlarkIDFor(resourceInfo, identity),
		DocumentUUID:     types.NewDocumentUUID(),
		ResourceInfo:     resourceInfo,
		DocumentIdentity: identity,
		EdfiDoc: map[string]any{
			"id":     idValue,
			"nested": map[string]any{"name": "value-" + idValue},
		},
		OutboundRefs:   refs,
		CreatedBy:      "client",
		CreatedAt:      now,
		LastModifiedAt: now,
	}
}

// resourceName returns a resource name unique to the running test, so that
// testcases sharing a database do not see each other's documents.
func resourceName(t *testing.T) string {
	name := make([]rune, 0, len(t.Name()))
	for _, r := range t.Name() {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			name = append(name, r)
		}
	}
	return "R" + string(name)
}

// RunFindDocInfoTest runs the find tests for the given db.
func RunFindDocInfoTest(t *testing.T, db database.Database) {
	t.Run("find by id and uuid test", func(t *testing.T) {
		ctx := context.Background()
		info := NewDocInfo(resourceName(t), "1")

		_, err := db.FindDocInfoByID(ctx, info.ID)
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)
		_, err = db.FindDocInfoByDocumentUUID(ctx, info.DocumentUUID)
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)

		require.NoError(t, db.InsertDocInfo(ctx, info, database.WriteOptions{}))

		found, err := db.FindDocInfoByID(ctx, info.ID)
		require.NoError(t, err)
		assert.Equal(t, info.DocumentUUID, found.DocumentUUID)
		assert.Equal(t, info.ResourceInfo, found.ResourceInfo)
		assert.Equal(t, info.DocumentIdentity, found.DocumentIdentity)
		assert.Equal(t, "value-1", found.EdfiDoc["nested"].(map[string]any)["name"])
		assert.True(t, info.CreatedAt.Equal(found.CreatedAt))

		found, err = db.FindDocInfoByDocumentUUID(ctx, info.DocumentUUID)
		require.NoError(t, err)
		assert.Equal(t, info.ID, found.ID)

		_, err = db.FindDocInfoByDocumentUUID(ctx, types.DocumentUUID("123"))
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)
	})

	t.Run("returned copy test", func(t *testing.T) {
		ctx := context.Background()
		info := NewDocInfo(resourceName(t), "1")
		require.NoError(t, db.InsertDocInfo(ctx, info, database.WriteOptions{}))

		// mutating the inserted or the returned record must not reach the store.
		info.EdfiDoc["id"] = "changed"
		found, err := db.FindDocInfoByID(ctx, info.ID)
		require.NoError(t, err)
		assert.Equal(t, "1", found.EdfiDoc["id"])

		found.EdfiDoc["nested"].(map[string]any)["name"] = "changed"
		found, err = db.FindDocInfoByID(ctx, info.ID)
		require.NoError(t, err)
		assert.Equal(t, "value-1", found.EdfiDoc["nested"].(map[string]any)["name"])
	})

	t.Run("find existing ids test", func(t *testing.T) {
		ctx := context.Background()
		name := resourceName(t)
		a := NewDocInfo(name, "a")
		b := NewDocInfo(name, "b")
		c := NewDocInfo(name, "c")
		require.NoError(t, db.InsertDocInfo(ctx, a, database.WriteOptions{}))
		require.NoError(t, db.InsertDocInfo(ctx, c, database.WriteOptions{}))

		ids, err := db.FindExistingIDs(ctx, []types.MeadowlarkID{c.ID, b.ID, a.ID})
		require.NoError(t, err)
		assert.Equal(t, []types.MeadowlarkID{c.ID, a.ID}, ids)

		ids, err = db.FindExistingIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

// RunInsertDocInfoTest runs the insert tests for the given db.
func RunInsertDocInfoTest(t *testing.T, db database.Database) {
	t.Run("duplicate insert test", func(t *testing.T) {
		ctx := context.Background()
		info := NewDocInfo(resourceName(t), "1")
		require.NoError(t, db.InsertDocInfo(ctx, info, database.WriteOptions{}))

		again := NewDocInfo(resourceName(t), "1")
		assert.ErrorIs(t, db.InsertDocInfo(ctx, again, database.WriteOptions{}), database.ErrDocumentAlreadyExists)

		sameUUID := NewDocInfo(resourceName(t), "2")
		sameUUID.DocumentUUID = info.DocumentUUID
		assert.ErrorIs(t, db.InsertDocInfo(ctx, sameUUID, database.WriteOptions{}), database.ErrDocumentAlreadyExists)

		_, err := db.FindDocInfoByID(ctx, sameUUID.ID)
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)
	})

	t.Run("required refs test", func(t *testing.T) {
		ctx := context.Background()
		name := resourceName(t)
		school := NewDocInfo(name, "school")
		section := NewDocInfo(name, "section", school.ID)

		err := db.InsertDocInfo(ctx, section, database.WriteOptions{RequiredRefs: section.OutboundRefs})
		assert.ErrorIs(t, err, database.ErrReferencesNotFound)
		_, err = db.FindDocInfoByID(ctx, section.ID)
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)

		require.NoError(t, db.InsertDocInfo(ctx, school, database.WriteOptions{}))
		assert.NoError(t, db.InsertDocInfo(ctx, section, database.WriteOptions{RequiredRefs: section.OutboundRefs}))
	})

	t.Run("refs not required test", func(t *testing.T) {
		ctx := context.Background()
		info := NewDocInfo(resourceName(t), "1", types.MeadowlarkID("missing"))
		assert.NoError(t, db.InsertDocInfo(ctx, info, database.WriteOptions{}))
	})

	t.Run("concurrent insert test", func(t *testing.T) {
		ctx := context.Background()
		name := resourceName(t)
		const workers = 10

		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = db.InsertDocInfo(ctx, NewDocInfo(name, "same"), database.WriteOptions{})
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t,
				errorsIsAny(err, database.ErrDocumentAlreadyExists, database.ErrConflictOnWrite),
				"unexpected error: %v", err,
			)
		}
		assert.Equal(t, 1, succeeded)
	})
}

// RunReplaceDocInfoTest runs the replace tests for the given db.
func RunReplaceDocInfoTest(t *testing.T, db database.Database) {
	t.Run("replace test", func(t *testing.T) {
		ctx := context.Background()
		name := resourceName(t)
		target := NewDocInfo(name, "target")
		info := NewDocInfo(name, "1", target.ID)
		require.NoError(t, db.InsertDocInfo(ctx, target, database.WriteOptions{}))
		require.NoError(t, db.InsertDocInfo(ctx, info, database.WriteOptions{}))

		updated := info.DeepCopy()
		updated.EdfiDoc = map[string]any{"id": "1", "extra": "field"}
		updated.OutboundRefs = nil
		updated.LastModifiedAt = time.UnixMilli(1683548337342).UTC()
		require.NoError(t, db.ReplaceDocInfo(ctx, updated, database.WriteOptions{}))

		found, err := db.FindDocInfoByID(ctx, info.ID)
		require.NoError(t, err)
		assert.Equal(t, info.DocumentUUID, found.DocumentUUID)
		assert.Equal(t, "field", found.EdfiDoc["extra"])
		assert.Nil(t, found.EdfiDoc["nested"])
		assert.True(t, updated.LastModifiedAt.Equal(found.LastModifiedAt))

		referring, err := db.FindReferringDocInfos(ctx, target.ID, 0)
		require.NoError(t, err)
		assert.Empty(t, referring)
	})

	t.Run("replace missing test", func(t *testing.T) {
		ctx := context.Background()
		info := NewDocInfo(resourceName(t), "1")
		assert.ErrorIs(t, db.ReplaceDocInfo(ctx, info, database.WriteOptions{}), database.ErrDocumentNotFound)

		require.NoError(t, db.InsertDocInfo(ctx, info, database.WriteOptions{}))

		// a record re-inserted under another uuid is not the one to replace.
		stale := info.DeepCopy()
		stale.DocumentUUID = types.NewDocumentUUID()
		assert.ErrorIs(t, db.ReplaceDocInfo(ctx, stale, database.WriteOptions{}), database.ErrDocumentNotFound)
	})

	t.Run("replace required refs test", func(t *testing.T) {
		ctx := context.Background()
		name := resourceName(t)
		info := NewDocInfo(name, "1")
		require.NoError(t, db.InsertDocInfo(ctx, info, database.WriteOptions{}))

		missing := types.MeadowlarkIDFor(types.NewResourceInfo(name), types.DocumentIdentity{{Name: "id", Value: "x"}})
		updated := info.DeepCopy()
		updated.EdfiDoc = map[string]any{"changed": true}
		updated.OutboundRefs = []types.MeadowlarkID{missing}
		err := db.ReplaceDocInfo(ctx, updated, database.WriteOptions{RequiredRefs: updated.OutboundRefs})
		assert.ErrorIs(t, err, database.ErrReferencesNotFound)

		found, err := db.FindDocInfoByID(ctx, info.ID)
		require.NoError(t, err)
		assert.Nil(t, found.EdfiDoc["changed"])
	})
}

// RunDeleteDocInfoTest runs the delete tests for the given db.
func RunDeleteDocInfoTest(t *testing.T, db database.Database) {
	t.Run("delete test", func(t *testing.T) {
		ctx := context.Background()
		info := NewDocInfo(resourceName(t), "1")
		assert.ErrorIs(t, db.DeleteDocInfo(ctx, info.ID, database.DeleteOptions{}), database.ErrDocumentNotFound)

		require.NoError(t, db.InsertDocInfo(ctx, info, database.WriteOptions{}))
		require.NoError(t, db.DeleteDocInfo(ctx, info.ID, database.DeleteOptions{}))

		_, err := db.FindDocInfoByID(ctx, info.ID)
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)
		_, err = db.FindDocInfoByDocumentUUID(ctx, info.DocumentUUID)
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)

		assert.ErrorIs(t, db.DeleteDocInfo(ctx, info.ID, database.DeleteOptions{}), database.ErrDocumentNotFound)
	})

	t.Run("forbid referenced test", func(t *testing.T) {
		ctx := context.Background()
		name := resourceName(t)
		school := NewDocInfo(name, "school")
		section := NewDocInfo(name, "section", school.ID)
		require.NoError(t, db.InsertDocInfo(ctx, school, database.WriteOptions{}))
		require.NoError(t, db.InsertDocInfo(ctx, section, database.WriteOptions{}))

		err := db.DeleteDocInfo(ctx, school.ID, database.DeleteOptions{ForbidReferenced: true})
		assert.ErrorIs(t, err, database.ErrDocumentReferenced)
		_, err = db.FindDocInfoByID(ctx, school.ID)
		assert.NoError(t, err)

		require.NoError(t, db.DeleteDocInfo(ctx, section.ID, database.DeleteOptions{ForbidReferenced: true}))
		assert.NoError(t, db.DeleteDocInfo(ctx, school.ID, database.DeleteOptions{ForbidReferenced: true}))
	})

	t.Run("self reference does not block delete test", func(t *testing.T) {
		ctx := context.Background()
		info := NewDocInfo(resourceName(t), "self")
		info.OutboundRefs = []types.MeadowlarkID{info.ID}
		require.NoError(t, db.InsertDocInfo(ctx, info, database.WriteOptions{}))

		require.NoError(t, db.DeleteDocInfo(ctx, info.ID, database.DeleteOptions{ForbidReferenced: true}))
		_, err := db.FindDocInfoByID(ctx, info.ID)
		assert.ErrorIs(t, err, database.ErrDocumentNotFound)
	})

	t.Run("concurrent delete and referencing insert test", func(t *testing.T) {
		ctx := context.Background()
		name := resourceName(t)

		for i := 0; i < 10; i++ {
			school := NewDocInfo(name, fmt.Sprintf("school-%d", i))
			section := NewDocInfo(name, fmt.Sprintf("section-%d", i), school.ID)
			require.NoError(t, db.InsertDocInfo(ctx, school, database.WriteOptions{}))

			var wg sync.WaitGroup
			var deleteErr, insertErr error
			wg.Add(2)
			go func() {
				defer wg.Done()
				deleteErr = db.DeleteDocInfo(ctx, school.ID, database.DeleteOptions{ForbidReferenced: true})
			}()
			go func() {
				defer wg.Done()
				insertErr = db.InsertDocInfo(ctx, section, database.WriteOptions{
					RequiredRefs: []types.MeadowlarkID{school.ID},
				})
			}()
			wg.Wait()

			_, schoolErr := db.FindDocInfoByID(ctx, school.ID)
			_, sectionErr := db.FindDocInfoByID(ctx, section.ID)
			if insertErr == nil {
				assert.NoError(t, sectionErr)
				assert.NoError(t, schoolErr, "section %d references a deleted school", i)
				assert.True(t, errorsIsAny(deleteErr, database.ErrDocumentReferenced, database.ErrConflictOnWrite))
			} else {
				assert.True(t, errorsIsAny(insertErr, database.ErrReferencesNotFound, database.ErrConflictOnWrite))
				assert.ErrorIs(t, sectionErr, database.ErrDocumentNotFound)
			}
		}
	})

	t.Run("delete referenced allowed test", func(t *testing.T) {
		ctx := context.Background()
		name := resourceName(t)
		school := NewDocInfo(name, "school")
		section := NewDocInfo(name, "section", school.ID)
		require.NoError(t, db.InsertDocInfo(ctx, school, database.WriteOptions{}))
		require.NoError(t, db.InsertDocInfo(ctx, section, database.WriteOptions{}))

		assert.NoError(t, db.DeleteDocInfo(ctx, school.ID, database.DeleteOptions{}))
	})
}

// RunFindReferringDocInfosTest runs the FindReferringDocInfos test for the given db.
func RunFindReferringDocInfosTest(t *testing.T, db database.Database) {
	t.Run("find referring test", func(t *testing.T) {
		ctx := context.Background()
		name := resourceName(t)
		school := NewDocInfo(name, "school")
		require.NoError(t, db.InsertDocInfo(ctx, school, database.WriteOptions{}))

		var expected []types.DocumentUUID
		for i := 0; i < 3; i++ {
			section := NewDocInfo(name, fmt.Sprintf("section-%d", i), school.ID, school.ID)
			require.NoError(t, db.InsertDocInfo(ctx, section, database.WriteOptions{}))
			expected = append(expected, section.DocumentUUID)
		}
		require.NoError(t, db.InsertDocInfo(ctx, NewDocInfo(name, "unrelated"), database.WriteOptions{}))

		referring, err := db.FindReferringDocInfos(ctx, school.ID, 0)
		require.NoError(t, err)
		assert.ElementsMatch(t, expected, documentUUIDs(referring))

		referring, err = db.FindReferringDocInfos(ctx, school.ID, 2)
		require.NoError(t, err)
		assert.Len(t, referring, 2)

		referring, err = db.FindReferringDocInfos(ctx, types.MeadowlarkID("nobody"), 0)
		require.NoError(t, err)
		assert.Empty(t, referring)
	})
}

// RunFindDocInfosByResourceTest runs the paging test for the given db.
func RunFindDocInfosByResourceTest(t *testing.T, db database.Database) {
	t.Run("paging test", func(t *testing.T) {
		ctx := context.Background()
		name := resourceName(t)
		resourceInfo := types.NewResourceInfo(name)

		var ids []string
		for i := 0; i < 7; i++ {
			info := NewDocInfo(name, fmt.Sprintf("%d", i))
			require.NoError(t, db.InsertDocInfo(ctx, info, database.WriteOptions{}))
			ids = append(ids, info.ID.String())
		}
		require.NoError(t, db.InsertDocInfo(ctx, NewDocInfo(name+"Other", "0"), database.WriteOptions{}))
		sort.Strings(ids)

		var paged []string
		lastID := types.MeadowlarkID("")
		for {
			infos, err := db.FindDocInfosByResource(ctx, resourceInfo, lastID, 3)
			require.NoError(t, err)
			if len(infos) == 0 {
				break
			}
			assert.LessOrEqual(t, len(infos), 3)
			for _, info := range infos {
				assert.Equal(t, name, info.ResourceInfo.ResourceName)
				paged = append(paged, info.ID.String())
			}
			lastID = infos[len(infos)-1].ID
		}
		assert.Equal(t, ids, paged)

		all, err := db.FindDocInfosByResource(ctx, resourceInfo, "", 0)
		require.NoError(t, err)
		assert.Len(t, all, 7)
	})
}

func documentUUIDs(infos []*database.DocInfo) []types.DocumentUUID {
	uuids := make([]types.DocumentUUID, 0, len(infos))
	for _, info := range infos {
		uuids = append(uuids, info.DocumentUUID)
	}
	return uuids
}

func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
