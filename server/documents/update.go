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

// Update replaces the document of the given uuid. The identity of a document
// is immutable: an identity deriving another MeadowlarkID than the stored one
// is rejected and the stored document is left unchanged.
//
// The returned error is only set for a malformed request.
func Update(
	ctx context.Context,
	be *backend.Backend,
	req *types.UpdateRequest,
) (types.UpdateResult, error) {
	if err := req.Validate(); err != nil {
		return types.UpdateResult{}, err
	}

	ctx, op := begin(ctx, be, opUpdate, req.ResourceInfo, req.TraceID)
	result := update(ctx, be, op, req)
	op.end(string(result.Result))
	return result, nil
}

func update(
	ctx context.Context,
	be *backend.Backend,
	op *operation,
	req *types.UpdateRequest,
) types.UpdateResult {
	id := types.MeadowlarkIDFor(req.ResourceInfo, req.DocumentIdentity)
	refs := req.References.MeadowlarkIDs()

	opts := database.WriteOptions{}
	if req.ValidateReferences {
		opts.RequiredRefs = refs
	}

	for attempt := 1; attempt <= be.Config.MaxUpsertAttempts; attempt++ {
		existing, err := be.DB.FindDocInfoByDocumentUUID(ctx, req.DocumentUUID)
		if errors.Is(err, database.ErrDocumentNotFound) {
			return types.UpdateResult{Result: types.UpdateFailureNotExists}
		}
		if err != nil {
			return unknownUpdateFailure(op, req.DocumentUUID, err)
		}
		if !sameResource(existing, req.ResourceInfo) {
			return types.UpdateResult{Result: types.UpdateFailureNotExists}
		}

		if existing.ID != id {
			op.logger.Infof("update of %s changes identity %s to %s", req.DocumentUUID, existing.DocumentIdentity, req.DocumentIdentity)
			return types.UpdateResult{
				Result: types.UpdateFailureImmutableIdentity,
				FailureMessage: fmt.Sprintf(
					"The identity of the resource does not match the identity in the updated document: stored %s, given %s",
					existing.DocumentIdentity,
					req.DocumentIdentity,
				),
			}
		}

		if !sameIdentity(existing, req.ResourceInfo, req.DocumentIdentity) {
			return types.UpdateResult{
				Result:         types.UpdateUnknownFailure,
				FailureMessage: identityCollision(op, existing, req.ResourceInfo, req.DocumentIdentity),
			}
		}

		if req.ValidateReferences {
			validation, err := ValidateReferences(ctx, be.DB, req.References)
			if err != nil {
				return unknownUpdateFailure(op, req.DocumentUUID, err)
			}
			if !validation.OK() {
				op.referenceFailure()
				return types.UpdateResult{
					Result:         types.UpdateByUUIDFailureReference,
					FailureMessage: validation.FailureMessage(),
				}
			}
		}

		info := existing.DeepCopy()
		info.ResourceInfo = req.ResourceInfo
		info.EdfiDoc = database.CopyBody(req.EdfiDoc)
		info.OutboundRefs = refs
		info.LastModifiedAt = now(be)

		err = be.DB.ReplaceDocInfo(ctx, info, opts)
		switch {
		case err == nil:
			op.logger.Debugf("updated %s", req.DocumentUUID)
			propagate(be, op.logger, info.ID)
			return types.UpdateResult{Result: types.UpdateByUUIDSuccess}
		case errors.Is(err, database.ErrDocumentNotFound):
			return types.UpdateResult{Result: types.UpdateFailureNotExists}
		case errors.Is(err, database.ErrReferencesNotFound):
			op.referenceFailure()
			return types.UpdateResult{
				Result:         types.UpdateByUUIDFailureReference,
				FailureMessage: missingReferencesMessage(nil),
			}
		case errors.Is(err, database.ErrConflictOnWrite):
			op.logger.Debugf("update of %s lost a race on attempt %d: %v", req.DocumentUUID, attempt, err)
			continue
		default:
			return unknownUpdateFailure(op, req.DocumentUUID, err)
		}
	}

	op.logger.Warnf("update of %s gave up after %d attempts", req.DocumentUUID, be.Config.MaxUpsertAttempts)
	return types.UpdateResult{
		Result:         types.UpdateUnknownFailure,
		FailureMessage: fmt.Sprintf("concurrent writes to %s, try again", req.DocumentUUID),
	}
}

func unknownUpdateFailure(op *operation, documentUUID types.DocumentUUID, err error) types.UpdateResult {
	op.logger.Errorf("update %s: %v", documentUUID, err)
	return types.UpdateResult{Result: types.UpdateUnknownFailure, FailureMessage: err.Error()}
}
