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
	"strings"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/pkg/errors"
	"github.com/meadowlark-team/meadowlark/server/backend"
	"github.com/meadowlark-team/meadowlark/server/backend/database"
)

// Delete removes the document of the given uuid. When the request validates
// references, a document referenced by other documents is kept and the
// referring documents are reported.
func Delete(
	ctx context.Context,
	be *backend.Backend,
	req *types.DeleteRequest,
) (types.DeleteResult, error) {
	if req.DocumentUUID == "" {
		return types.DeleteResult{}, fmt.Errorf("document uuid is empty: %w", types.ErrInvalidRequest)
	}

	ctx, op := begin(ctx, be, opDelete, req.ResourceInfo, req.TraceID)
	result := deleteDocument(ctx, be, op, req)
	op.end(string(result.Result))
	return result, nil
}

func deleteDocument(
	ctx context.Context,
	be *backend.Backend,
	op *operation,
	req *types.DeleteRequest,
) types.DeleteResult {
	existing, err := be.DB.FindDocInfoByDocumentUUID(ctx, req.DocumentUUID)
	if errors.Is(err, database.ErrDocumentNotFound) {
		return types.DeleteResult{Result: types.DeleteFailureNotExists}
	}
	if err != nil {
		return unknownDeleteFailure(op, req.DocumentUUID, err)
	}
	if req.ResourceInfo.ResourceName != "" && !sameResource(existing, req.ResourceInfo) {
		return types.DeleteResult{Result: types.DeleteFailureNotExists}
	}

	err = be.DB.DeleteDocInfo(ctx, existing.ID, database.DeleteOptions{
		ForbidReferenced: req.ValidateNoReferencesToDocument,
	})
	switch {
	case err == nil:
		op.logger.Debugf("deleted %s", req.DocumentUUID)
		propagate(be, op.logger, existing.ID)
		return types.DeleteResult{Result: types.DeleteSuccess}
	case errors.Is(err, database.ErrDocumentNotFound):
		return types.DeleteResult{Result: types.DeleteFailureNotExists}
	case errors.Is(err, database.ErrDocumentReferenced):
		op.referenceFailure()
		return referencedFailure(ctx, be, op, existing)
	default:
		return unknownDeleteFailure(op, req.DocumentUUID, err)
	}
}

// referencedFailure reports the documents that block the delete of the
// given document.
func referencedFailure(
	ctx context.Context,
	be *backend.Backend,
	op *operation,
	info *database.DocInfo,
) types.DeleteResult {
	result := types.DeleteResult{
		Result:         types.DeleteFailureReference,
		FailureMessage: "The resource cannot be deleted because it is a dependency of other documents",
	}

	// one more than the limit, the document may reference itself
	referring, err := be.DB.FindReferringDocInfos(ctx, info.ID, be.Config.ReferringDocumentsLimit+1)
	if err != nil {
		op.logger.Warnf("find documents referring to %s: %v", info.ID, err)
		return result
	}

	var names []string
	for _, r := range referring {
		if r.ID == info.ID || len(result.ReferringDocumentUUIDs) == be.Config.ReferringDocumentsLimit {
			continue
		}
		result.ReferringDocumentUUIDs = append(result.ReferringDocumentUUIDs, r.DocumentUUID)
		names = append(names, r.ResourceInfo.ResourceName+"/"+r.DocumentUUID.String())
	}
	if len(names) > 0 {
		result.FailureMessage += ": " + strings.Join(names, ", ")
	}

	return result
}

func unknownDeleteFailure(op *operation, documentUUID types.DocumentUUID, err error) types.DeleteResult {
	op.logger.Errorf("delete %s: %v", documentUUID, err)
	return types.DeleteResult{Result: types.DeleteUnknownFailure, FailureMessage: err.Error()}
}
