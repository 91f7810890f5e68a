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

package documents

import (
	"context"
	"fmt"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/server/backend"
)

// Reindex queues every document of the given resource for the search index.
// It recovers documents whose index writes were given up on. It returns the
// number of documents queued; Propagator.Flush waits for them.
func Reindex(
	ctx context.Context,
	be *backend.Backend,
	resourceInfo types.ResourceInfo,
	traceID types.TraceID,
) (int, error) {
	if err := resourceInfo.Validate(); err != nil {
		return 0, fmt.Errorf("%s: %w", err.Error(), types.ErrInvalidRequest)
	}

	ctx, op := begin(ctx, be, opReindex, resourceInfo, traceID)

	var lastID types.MeadowlarkID
	count := 0
	for {
		infos, err := be.DB.FindDocInfosByResource(ctx, resourceInfo, lastID, be.Config.ReindexPageSize)
		if err != nil {
			op.end("failure")
			return count, fmt.Errorf("reindex %s: %w", resourceInfo, err)
		}

		for _, info := range infos {
			if err := be.Propagator.Changed(info.ID); err != nil {
				op.end("failure")
				return count, fmt.Errorf("reindex %s: %w", resourceInfo, err)
			}
			count++
			lastID = info.ID
		}

		if len(infos) < be.Config.ReindexPageSize {
			break
		}
	}

	op.logger.Infof("queued %d documents of %s for reindex", count, resourceInfo)
	op.end("success")
	return count, nil
}
