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

package types

import (
	"fmt"
	"time"
)

// lastModifiedDateLayout is ISO-8601 in UTC with millisecond precision.
const lastModifiedDateLayout = "2006-01-02T15:04:05.000Z"

// FormatLastModifiedDate formats the given time the way documents expose
// their "_lastModifiedDate".
func FormatLastModifiedDate(t time.Time) string {
	return t.UTC().Format(lastModifiedDateLayout)
}

// UpsertRequest is the request to insert a document or to update the
// document that has the same identity.
type UpsertRequest struct {
	ResourceInfo     ResourceInfo
	DocumentIdentity DocumentIdentity
	EdfiDoc          map[string]any

	// References are the documents this document depends on, descriptors
	// included.
	References References

	// ValidateReferences requires every reference to exist before writing.
	ValidateReferences bool

	// ClientID identifies the API client on whose behalf the write is made.
	ClientID string
	TraceID  TraceID
}

// Validate returns an error if the request is malformed.
func (r *UpsertRequest) Validate() error {
	return validateWrite(r.ResourceInfo, r.DocumentIdentity, r.EdfiDoc)
}

// UpdateRequest is the request to replace the document of the given uuid.
type UpdateRequest struct {
	DocumentUUID     DocumentUUID
	ResourceInfo     ResourceInfo
	DocumentIdentity DocumentIdentity
	EdfiDoc          map[string]any

	References         References
	ValidateReferences bool

	ClientID string
	TraceID  TraceID
}

// Validate returns an error if the request is malformed.
func (r *UpdateRequest) Validate() error {
	if r.DocumentUUID == "" {
		return fmt.Errorf("document uuid is empty: %w", ErrInvalidRequest)
	}
	return validateWrite(r.ResourceInfo, r.DocumentIdentity, r.EdfiDoc)
}

// GetRequest is the request to read the document of the given uuid.
type GetRequest struct {
	DocumentUUID DocumentUUID
	ResourceInfo ResourceInfo
	TraceID      TraceID
}

// DeleteRequest is the request to delete the document of the given uuid.
type DeleteRequest struct {
	DocumentUUID DocumentUUID
	ResourceInfo ResourceInfo

	// ValidateNoReferencesToDocument rejects the delete while other documents
	// still reference this one.
	ValidateNoReferencesToDocument bool

	TraceID TraceID
}

func validateWrite(resourceInfo ResourceInfo, identity DocumentIdentity, edfiDoc map[string]any) error {
	if err := resourceInfo.Validate(); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), ErrInvalidRequest)
	}
	if err := identity.Validate(); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), ErrInvalidRequest)
	}
	if edfiDoc == nil {
		return fmt.Errorf("document body is empty: %w", ErrInvalidRequest)
	}
	return nil
}
