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

package bleve_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/server/backend/database/testcases"
	"github.com/meadowlark-team/meadowlark/server/backend/search/bleve"
)

func TestIndex(t *testing.T) {
	t.Run("upsert and delete test", func(t *testing.T) {
		ctx := context.Background()
		idx, err := bleve.Open("")
		require.NoError(t, err)
		defer func() { assert.NoError(t, idx.Close()) }()

		school := testcases.NewDocInfo("School", "123")
		student := testcases.NewDocInfo("Student", "s1")
		require.NoError(t, idx.Upsert(ctx, school))
		require.NoError(t, idx.Upsert(ctx, student))

		ok, err := idx.Contains(school.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		count, err := idx.CountResource(types.NewResourceInfo("School"))
		require.NoError(t, err)
		assert.Equal(t, uint64(1), count)

		// upserting twice replaces the document.
		school.EdfiDoc["nameOfInstitution"] = "Updated"
		require.NoError(t, idx.Upsert(ctx, school))
		count, err = idx.DocCount()
		require.NoError(t, err)
		assert.Equal(t, uint64(2), count)

		require.NoError(t, idx.Delete(ctx, school.ID))
		ok, err = idx.Contains(school.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		// deleting a missing document succeeds.
		assert.NoError(t, idx.Delete(ctx, school.ID))
	})

	t.Run("canceled context test", func(t *testing.T) {
		idx, err := bleve.Open("")
		require.NoError(t, err)
		defer func() { assert.NoError(t, idx.Close()) }()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, idx.Upsert(ctx, testcases.NewDocInfo("School", "1")), context.Canceled)
	})

	t.Run("reopen test", func(t *testing.T) {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "search", "meadowlark.bleve")
		info := testcases.NewDocInfo("School", "123")

		idx, err := bleve.Open(path)
		require.NoError(t, err)
		require.NoError(t, idx.Upsert(ctx, info))
		require.NoError(t, idx.Close())

		idx, err = bleve.Open(path)
		require.NoError(t, err)
		defer func() { assert.NoError(t, idx.Close()) }()

		ok, err := idx.Contains(info.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
