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

// Package documents implements the repository operations of Meadowlark:
// upsert, update, get and delete of Ed-Fi documents. Expected conditions such
// as a missing document or a missing reference are reported as outcomes of
// the returned result, never as errors.
package documents

import (
	"context"
	"fmt"
	"time"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/server/backend"
	"github.com/meadowlark-team/meadowlark/server/backend/database"
	"github.com/meadowlark-team/meadowlark/server/logging"
)

// Below are the names of the operations used in logs and metrics.
const (
	opUpsert  = "upsert"
	opUpdate  = "update"
	opGet     = "get"
	opDelete  = "delete"
	opReindex = "reindex"
)

// lastModifiedDateKey and idKey are merged into the body of a read document.
const (
	idKey               = "id"
	lastModifiedDateKey = "_lastModifiedDate"
)

// operation carries the logger and metrics of a single repository call.
type operation struct {
	be           *backend.Backend
	name         string
	resourceInfo types.ResourceInfo
	start        time.Time
	logger       logging.Logger
}

func begin(
	ctx context.Context,
	be *backend.Backend,
	name string,
	resourceInfo types.ResourceInfo,
	traceID types.TraceID,
) (context.Context, *operation) {
	resource := ""
	if resourceInfo.ResourceName != "" {
		resource = resourceInfo.String()
	}
	ctx, logger := logging.WithOperation(ctx, name, resource, string(traceID))
	return ctx, &operation{
		be:           be,
		name:         name,
		resourceInfo: resourceInfo,
		start:        time.Now(),
		logger:       logger,
	}
}

// end records the result of the operation.
func (o *operation) end(result string) {
	if o.be.Metrics == nil {
		return
	}
	o.be.Metrics.AddRepositoryOperation(o.name, result, o.resourceInfo.ProjectName, o.resourceInfo.ResourceName)
	o.be.Metrics.ObserveRepositoryOperationSeconds(o.name, time.Since(o.start).Seconds())
}

func (o *operation) referenceFailure() {
	if o.be.Metrics != nil {
		o.be.Metrics.AddReferenceFailure(o.name)
	}
}

// now returns the time documents written by this operation are stamped with.
func now(be *backend.Backend) time.Time {
	if be.Clock == nil {
		return time.Now().UTC()
	}
	return be.Clock().UTC()
}

// sameResource returns whether the stored document belongs to the given
// resource. Documents are scoped by resource, a uuid of another resource is
// reported as not found.
func sameResource(info *database.DocInfo, resourceInfo types.ResourceInfo) bool {
	return info.ResourceInfo.ProjectName == resourceInfo.ProjectName &&
		info.ResourceInfo.ResourceName == resourceInfo.ResourceName
}

// sameIdentity returns whether the stored document has the given identity.
// Two identities with the same MeadowlarkID that differ here are a digest
// collision.
func sameIdentity(
	info *database.DocInfo,
	resourceInfo types.ResourceInfo,
	identity types.DocumentIdentity,
) bool {
	return sameResource(info, resourceInfo) &&
		info.ResourceInfo.IsDescriptor == resourceInfo.IsDescriptor &&
		info.DocumentIdentity.Equal(identity)
}

// identityCollision records that the stored document has the MeadowlarkID of
// the given identity without having that identity, and returns the failure
// message.
func identityCollision(
	op *operation,
	existing *database.DocInfo,
	resourceInfo types.ResourceInfo,
	identity types.DocumentIdentity,
) string {
	if op.be.Metrics != nil {
		op.be.Metrics.AddIdentityCollision()
	}
	op.logger.Errorf(
		"identity collision on %s: stored %s%s, given %s%s",
		existing.ID,
		existing.ResourceInfo.ResourceName,
		existing.DocumentIdentity,
		resourceInfo.ResourceName,
		identity,
	)
	return fmt.Sprintf("identity collision on %s", existing.ID)
}

// propagate queues the written document for the search index. A failure is
// logged and never fails the write.
func propagate(be *backend.Backend, logger logging.Logger, id types.MeadowlarkID) {
	if err := be.Propagator.Changed(id); err != nil {
		logger.Warnf("queue %s for index: %v", id, err)
	}
}
