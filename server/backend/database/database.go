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

// Package database provides the document store interface of the Meadowlark
// backend and the records kept in it.
package database

import (
	"context"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/pkg/errors"
)

var (
	// ErrDocumentNotFound is returned when the document could not be found.
	ErrDocumentNotFound = errors.NotFound("document not found").WithCode("ErrDocumentNotFound")

	// ErrDocumentAlreadyExists is returned when a document with the same
	// MeadowlarkID or DocumentUUID already exists.
	ErrDocumentAlreadyExists = errors.AlreadyExists("document already exists").WithCode("ErrDocumentAlreadyExists")

	// ErrReferencesNotFound is returned when a write requires references
	// that do not exist in the store.
	ErrReferencesNotFound = errors.FailedPrecond("references not found").WithCode("ErrReferencesNotFound")

	// ErrDocumentReferenced is returned when a delete is forbidden because
	// other documents reference the document.
	ErrDocumentReferenced = errors.FailedPrecond("document is referenced").WithCode("ErrDocumentReferenced")

	// ErrConflictOnWrite is returned when a write lost a race with a
	// concurrent write of the same document and may be retried.
	ErrConflictOnWrite = errors.Aborted("conflict on write").WithCode("ErrConflictOnWrite")
)

// WriteOptions are the options of an insert or a replace.
type WriteOptions struct {
	// RequiredRefs are the documents that must exist for the write to
	// happen. The check and the write are atomic when the store supports it.
	RequiredRefs []types.MeadowlarkID
}

// DeleteOptions are the options of a delete.
type DeleteOptions struct {
	// ForbidReferenced rejects the delete while other documents reference
	// the document.
	ForbidReferenced bool
}

// Database represents the document store which reads or saves documents.
// Implementations never hand out records they keep: every returned DocInfo
// is a copy owned by the caller.
type Database interface {
	// Close all resources of this database.
	Close() error

	// FindDocInfoByID returns the document of the given MeadowlarkID.
	FindDocInfoByID(ctx context.Context, id types.MeadowlarkID) (*DocInfo, error)

	// FindDocInfoByDocumentUUID returns the document of the given uuid.
	FindDocInfoByDocumentUUID(ctx context.Context, documentUUID types.DocumentUUID) (*DocInfo, error)

	// FindExistingIDs returns the given ids that are present in the store,
	// in the given order.
	FindExistingIDs(ctx context.Context, ids []types.MeadowlarkID) ([]types.MeadowlarkID, error)

	// InsertDocInfo inserts a new document. It fails with
	// ErrDocumentAlreadyExists if the id or the uuid is taken and with
	// ErrReferencesNotFound if a required reference is missing.
	InsertDocInfo(ctx context.Context, info *DocInfo, opts WriteOptions) error

	// ReplaceDocInfo replaces the document whose id and uuid are those of
	// the given info. It fails with ErrDocumentNotFound if no such document
	// exists, so a concurrent delete or re-insert is never overwritten.
	ReplaceDocInfo(ctx context.Context, info *DocInfo, opts WriteOptions) error

	// DeleteDocInfo deletes the document of the given id. It fails with
	// ErrDocumentNotFound if there is none and with ErrDocumentReferenced if
	// the options forbid deleting a referenced document.
	DeleteDocInfo(ctx context.Context, id types.MeadowlarkID, opts DeleteOptions) error

	// FindReferringDocInfos returns up to limit documents referencing the
	// document of the given id. A limit of 0 returns all of them.
	FindReferringDocInfos(ctx context.Context, id types.MeadowlarkID, limit int) ([]*DocInfo, error)

	// FindDocInfosByResource returns up to limit documents of the given
	// resource whose ids are greater than lastID, ordered by id. It is used
	// to page through a resource.
	FindDocInfosByResource(
		ctx context.Context,
		resourceInfo types.ResourceInfo,
		lastID types.MeadowlarkID,
		limit int,
	) ([]*DocInfo, error)
}
