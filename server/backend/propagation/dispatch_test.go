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

package propagation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/server/backend/database"
	"github.com/meadowlark-team/meadowlark/server/backend/search"
)

type emptySource struct{}

func (emptySource) FindDocInfoByID(_ context.Context, _ types.MeadowlarkID) (*database.DocInfo, error) {
	return nil, database.ErrDocumentNotFound
}

func TestDispatch(t *testing.T) {
	t.Run("rejected submit keeps the dispatcher running test", func(t *testing.T) {
		p, err := New(&Config{
			Workers:         1,
			MaxRetries:      1,
			InitialInterval: "1ms",
			MaxInterval:     "1ms",
			Timeout:         "1s",
		}, emptySource{}, search.Noop{}, nil)
		require.NoError(t, err)
		defer func() { assert.NoError(t, p.Close()) }()

		// every submit to a released pool fails
		p.pool.Release()

		for _, id := range []types.MeadowlarkID{"first", "second"} {
			require.NoError(t, p.Changed(id))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			assert.NoError(t, p.Flush(ctx))
			cancel()
		}
		assert.Equal(t, 0, p.Pending())
	})
}
