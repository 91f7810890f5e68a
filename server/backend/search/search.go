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

// Package search provides the search index the documents of the store are
// propagated to. The index is eventually consistent with the store; the
// store stays the source of truth.
package search

import (
	"context"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/server/backend/database"
)

// Below are the fields added to the body of an indexed document.
const (
	FieldID               = "id"
	FieldMeadowlarkID     = "_meadowlarkId"
	FieldProjectName      = "_projectName"
	FieldResourceName     = "_resourceName"
	FieldResourceVersion  = "_resourceVersion"
	FieldLastModifiedDate = "_lastModifiedDate"
)

// Index is a search index keyed by MeadowlarkID. Implementations must be
// safe for concurrent use.
type Index interface {
	// Name returns the name of the provider.
	Name() string

	// Upsert adds or replaces the document.
	Upsert(ctx context.Context, info *database.DocInfo) error

	// Delete removes the document. Deleting a missing document succeeds.
	Delete(ctx context.Context, id types.MeadowlarkID) error

	// Close closes the index.
	Close() error
}

// NewDocument returns the body indexed for the given document: the body sent
// by the client with the document uuid as "id" and the bookkeeping fields.
func NewDocument(info *database.DocInfo) map[string]any {
	doc := database.CopyBody(info.EdfiDoc)
	if doc == nil {
		doc = make(map[string]any, 6)
	}

	doc[FieldID] = info.DocumentUUID.String()
	doc[FieldMeadowlarkID] = info.ID.String()
	doc[FieldProjectName] = info.ResourceInfo.ProjectName
	doc[FieldResourceName] = info.ResourceInfo.ResourceName
	doc[FieldResourceVersion] = info.ResourceInfo.ResourceVersion
	doc[FieldLastModifiedDate] = types.FormatLastModifiedDate(info.LastModifiedAt)

	return doc
}

// Noop is an index that drops every write. It is used when no search
// provider is configured.
type Noop struct{}

// Name returns the name of the provider.
func (Noop) Name() string {
	return ProviderNone
}

// Upsert does nothing.
func (Noop) Upsert(_ context.Context, _ *database.DocInfo) error {
	return nil
}

// Delete does nothing.
func (Noop) Delete(_ context.Context, _ types.MeadowlarkID) error {
	return nil
}

// Close does nothing.
func (Noop) Close() error {
	return nil
}
