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

// Upsert inserts the document of the request, or replaces the document that
// has the same identity. Of concurrent upserts of a new identity exactly one
// inserts, the others update the inserted document.
//
// The returned error is only set for a malformed request.
func Upsert(
	ctx context.Context,
	be *backend.Backend,
	req *types.UpsertRequest,
) (types.UpsertResult, error) {
	if err := req.Validate(); err != nil {
		return types.UpsertResult{}, err
	}

	ctx, op := begin(ctx, be, opUpsert, req.ResourceInfo, req.TraceID)
	result := upsert(ctx, be, op, req)
	op.end(string(result.Result))
	return result, nil
}

func upsert(
	ctx context.Context,
	be *backend.Backend,
	op *operation,
	req *types.UpsertRequest,
) types.UpsertResult {
	id := types.MeadowlarkIDFor(req.ResourceInfo, req.DocumentIdentity)
	refs := req.References.MeadowlarkIDs()

	opts := database.WriteOptions{}
	if req.ValidateReferences {
		opts.RequiredRefs = refs
	}

	for attempt := 1; attempt <= be.Config.MaxUpsertAttempts; attempt++ {
		existing, err := be.DB.FindDocInfoByID(ctx, id)
		if err != nil && !errors.Is(err, database.ErrDocumentNotFound) {
			return unknownUpsertFailure(op, id, err)
		}
		exists := err == nil

		if req.ValidateReferences {
			validation, err := ValidateReferences(ctx, be.DB, req.References)
			if err != nil {
				return unknownUpsertFailure(op, id, err)
			}
			if !validation.OK() {
				return upsertReferenceFailure(op, exists, validation.FailureMessage())
			}
		}

		if !exists {
			info := &database.DocInfo{
				ID:               id,
				DocumentUUID:     types.NewDocumentUUID(),
				ResourceInfo:     req.ResourceInfo,
				DocumentIdentity: req.DocumentIdentity,
				EdfiDoc:          database.CopyBody(req.EdfiDoc),
				OutboundRefs:     refs,
				CreatedBy:        req.ClientID,
			}
			info.CreatedAt = now(be)
			info.LastModifiedAt = info.CreatedAt

			err := be.DB.InsertDocInfo(ctx, info, opts)
			switch {
			case err == nil:
				op.logger.Debugf("inserted %s as %s", id, info.DocumentUUID)
				propagate(be, op.logger, info.ID)
				return types.UpsertResult{Result: types.InsertSuccess, NewDocumentUUID: info.DocumentUUID}
			case errors.Is(err, database.ErrReferencesNotFound):
				return upsertReferenceFailure(op, false, missingReferencesMessage(nil))
			case errors.Is(err, database.ErrDocumentAlreadyExists), errors.Is(err, database.ErrConflictOnWrite):
				// another upsert inserted it first; the next attempt updates
				op.logger.Debugf("insert of %s lost a race on attempt %d: %v", id, attempt, err)
				continue
			default:
				return unknownUpsertFailure(op, id, err)
			}
		}

		if !sameIdentity(existing, req.ResourceInfo, req.DocumentIdentity) {
			return types.UpsertResult{
				Result:         types.UpsertUnknownFailure,
				FailureMessage: identityCollision(op, existing, req.ResourceInfo, req.DocumentIdentity),
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
			op.logger.Debugf("updated %s", id)
			propagate(be, op.logger, info.ID)
			return types.UpsertResult{Result: types.UpdateSuccess, NewDocumentUUID: info.DocumentUUID}
		case errors.Is(err, database.ErrReferencesNotFound):
			return upsertReferenceFailure(op, true, missingReferencesMessage(nil))
		case errors.Is(err, database.ErrDocumentNotFound), errors.Is(err, database.ErrConflictOnWrite):
			// deleted or rewritten since it was read; the next attempt starts over
			op.logger.Debugf("update of %s lost a race on attempt %d: %v", id, attempt, err)
			continue
		default:
			return unknownUpsertFailure(op, id, err)
		}
	}

	op.logger.Warnf("upsert of %s gave up after %d attempts", id, be.Config.MaxUpsertAttempts)
	return types.UpsertResult{
		Result:         types.UpsertUnknownFailure,
		FailureMessage: fmt.Sprintf("concurrent writes to %s, try again", id),
	}
}

func upsertReferenceFailure(op *operation, exists bool, message string) types.UpsertResult {
	op.referenceFailure()
	if exists {
		return types.UpsertResult{Result: types.UpdateFailureReference, FailureMessage: message}
	}
	return types.UpsertResult{Result: types.InsertFailureReference, FailureMessage: message}
}

func unknownUpsertFailure(op *operation, id types.MeadowlarkID, err error) types.UpsertResult {
	op.logger.Errorf("upsert %s: %v", id, err)
	return types.UpsertResult{Result: types.UpsertUnknownFailure, FailureMessage: err.Error()}
}
