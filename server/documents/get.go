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
	"github.com/meadowlark-team/meadowlark/pkg/errors"
	"github.com/meadowlark-team/meadowlark/server/backend"
	"github.com/meadowlark-team/meadowlark/server/backend/database"
)

// Get returns the document of the given uuid. An unknown uuid, or one of
// another resource, is GET_FAILURE_NOT_EXISTS. A store failure is
// GET_FAILURE_ERROR.
//
// The returned error is only set for a malformed request.
func Get(
	ctx context.Context,
	be *backend.Backend,
	req *types.GetRequest,
) (types.GetResult, error) {
	if req.DocumentUUID == "" {
		return types.GetResult{}, fmt.Errorf("document uuid is empty: %w", types.ErrInvalidRequest)
	}

	ctx, op := begin(ctx, be, opGet, req.ResourceInfo, req.TraceID)
	info, err := be.DB.FindDocInfoByDocumentUUID(ctx, req.DocumentUUID)
	result := toGetResult(op, req.DocumentUUID.String(), info, err)
	if result.Response == types.GetSuccess &&
		req.ResourceInfo.ResourceName != "" &&
		!sameResource(info, req.ResourceInfo) {
		result = types.GetResult{Response: types.GetFailureNotExists}
	}

	op.end(string(result.Response))
	return result, nil
}

// GetByMeadowlarkID returns the document of the given MeadowlarkID.
func GetByMeadowlarkID(
	ctx context.Context,
	be *backend.Backend,
	id types.MeadowlarkID,
	traceID types.TraceID,
) types.GetResult {
	ctx, op := begin(ctx, be, opGet, types.ResourceInfo{}, traceID)
	info, err := be.DB.FindDocInfoByID(ctx, id)
	result := toGetResult(op, id.String(), info, err)
	op.end(string(result.Response))
	return result
}

func toGetResult(op *operation, key string, info *database.DocInfo, err error) types.GetResult {
	if errors.Is(err, database.ErrDocumentNotFound) {
		return types.GetResult{Response: types.GetFailureNotExists}
	}
	if err != nil {
		op.logger.Errorf("get %s: %v", key, err)
		return types.GetResult{Response: types.GetFailureError}
	}

	return types.GetResult{Response: types.GetSuccess, Document: ResponseBody(info)}
}

// ResponseBody returns the body of the stored document merged with its
// "id" and "_lastModifiedDate".
func ResponseBody(info *database.DocInfo) map[string]any {
	body := database.CopyBody(info.EdfiDoc)
	if body == nil {
		body = make(map[string]any, 2)
	}
	body[idKey] = info.DocumentUUID.String()
	body[lastModifiedDateKey] = types.FormatLastModifiedDate(info.LastModifiedAt)
	return body
}
