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

// Package memory implements the database interface using in-memory database.
package memory

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-memdb"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/server/backend/database"
)

// DB is an in-memory database for testing or temporarily.
type DB struct {
	db *memdb.MemDB
}

// New returns a new in-memory database.
func New() (*DB, error) {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}

	return &DB{
		db: memDB,
	}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return nil
}

// docRecord flattens the indexed fields of a DocInfo, as memdb indexes only
// top-level fields.
type docRecord struct {
	ID           string
	DocumentUUID string
	ProjectName  string
	ResourceName string
	OutboundRefs []string
	Info         *database.DocInfo
}

func newDocRecord(info *database.DocInfo) *docRecord {
	refs := make([]string, 0, len(info.OutboundRefs))
	seen := make(map[types.MeadowlarkID]struct{}, len(info.OutboundRefs))
	for _, ref := range info.OutboundRefs {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref.String())
	}

	return &docRecord{
		ID:           info.ID.String(),
		DocumentUUID: info.DocumentUUID.String(),
		ProjectName:  info.ResourceInfo.ProjectName,
		ResourceName: info.ResourceInfo.ResourceName,
		OutboundRefs: refs,
		Info:         info.DeepCopy(),
	}
}

// FindDocInfoByID returns the document of the given id.
func (d *DB) FindDocInfoByID(
	_ context.Context,
	id types.MeadowlarkID,
) (*database.DocInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblDocuments, "id", id.String())
	if err != nil {
		return nil, fmt.Errorf("find document of %s: %w", id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("find document of %s: %w", id, database.ErrDocumentNotFound)
	}

	return raw.(*docRecord).Info.DeepCopy(), nil
}

// FindDocInfoByDocumentUUID returns the document of the given uuid.
func (d *DB) FindDocInfoByDocumentUUID(
	_ context.Context,
	documentUUID types.DocumentUUID,
) (*database.DocInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblDocuments, "document_uuid", documentUUID.String())
	if err != nil {
		return nil, fmt.Errorf("find document of uuid %s: %w", documentUUID, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("find document of uuid %s: %w", documentUUID, database.ErrDocumentNotFound)
	}

	return raw.(*docRecord).Info.DeepCopy(), nil
}

// FindExistingIDs returns the given ids that are present in the store.
func (d *DB) FindExistingIDs(
	_ context.Context,
	ids []types.MeadowlarkID,
) ([]types.MeadowlarkID, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	return findExistingIDs(txn, ids)
}

func findExistingIDs(txn *memdb.Txn, ids []types.MeadowlarkID) ([]types.MeadowlarkID, error) {
	existing := make([]types.MeadowlarkID, 0, len(ids))
	for _, id := range ids {
		raw, err := txn.First(tblDocuments, "id", id.String())
		if err != nil {
			return nil, fmt.Errorf("find document of %s: %w", id, err)
		}
		if raw != nil {
			existing = append(existing, id)
		}
	}
	return existing, nil
}

func checkRequiredRefs(txn *memdb.Txn, refs []types.MeadowlarkID) error {
	if len(refs) == 0 {
		return nil
	}

	existing, err := findExistingIDs(txn, refs)
	if err != nil {
		return err
	}
	if len(existing) < len(refs) {
		return fmt.Errorf("%d of %d: %w", len(refs)-len(existing), len(refs), database.ErrReferencesNotFound)
	}
	return nil
}

// InsertDocInfo inserts a new document.
func (d *DB) InsertDocInfo(
	_ context.Context,
	info *database.DocInfo,
	opts database.WriteOptions,
) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblDocuments, "id", info.ID.String())
	if err != nil {
		return fmt.Errorf("insert document of %s: %w", info.ID, err)
	}
	if raw != nil {
		return fmt.Errorf("insert document of %s: %w", info.ID, database.ErrDocumentAlreadyExists)
	}

	raw, err = txn.First(tblDocuments, "document_uuid", info.DocumentUUID.String())
	if err != nil {
		return fmt.Errorf("insert document of %s: %w", info.ID, err)
	}
	if raw != nil {
		return fmt.Errorf("insert document of uuid %s: %w", info.DocumentUUID, database.ErrDocumentAlreadyExists)
	}

	if err := checkRequiredRefs(txn, opts.RequiredRefs); err != nil {
		return fmt.Errorf("insert document of %s: %w", info.ID, err)
	}

	if err := txn.Insert(tblDocuments, newDocRecord(info)); err != nil {
		return fmt.Errorf("insert document of %s: %w", info.ID, err)
	}
	txn.Commit()

	return nil
}

// ReplaceDocInfo replaces the document of the id and uuid of the given info.
func (d *DB) ReplaceDocInfo(
	_ context.Context,
	info *database.DocInfo,
	opts database.WriteOptions,
) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblDocuments, "id", info.ID.String())
	if err != nil {
		return fmt.Errorf("replace document of %s: %w", info.ID, err)
	}
	if raw == nil || raw.(*docRecord).DocumentUUID != info.DocumentUUID.String() {
		return fmt.Errorf("replace document of %s: %w", info.ID, database.ErrDocumentNotFound)
	}

	if err := checkRequiredRefs(txn, opts.RequiredRefs); err != nil {
		return fmt.Errorf("replace document of %s: %w", info.ID, err)
	}

	if err := txn.Insert(tblDocuments, newDocRecord(info)); err != nil {
		return fmt.Errorf("replace document of %s: %w", info.ID, err)
	}
	txn.Commit()

	return nil
}

// DeleteDocInfo deletes the document of the given id.
func (d *DB) DeleteDocInfo(
	_ context.Context,
	id types.MeadowlarkID,
	opts database.DeleteOptions,
) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblDocuments, "id", id.String())
	if err != nil {
		return fmt.Errorf("delete document of %s: %w", id, err)
	}
	if raw == nil {
		return fmt.Errorf("delete document of %s: %w", id, database.ErrDocumentNotFound)
	}

	if opts.ForbidReferenced {
		referenced, err := hasReferrer(txn, id)
		if err != nil {
			return fmt.Errorf("delete document of %s: %w", id, err)
		}
		if referenced {
			return fmt.Errorf("delete document of %s: %w", id, database.ErrDocumentReferenced)
		}
	}

	if err := txn.Delete(tblDocuments, raw); err != nil {
		return fmt.Errorf("delete document of %s: %w", id, err)
	}
	txn.Commit()

	return nil
}

// hasReferrer returns whether a document other than the given one
// references it.
func hasReferrer(txn *memdb.Txn, id types.MeadowlarkID) (bool, error) {
	iterator, err := txn.Get(tblDocuments, "outbound_refs", id.String())
	if err != nil {
		return false, err
	}
	for raw := iterator.Next(); raw != nil; raw = iterator.Next() {
		if raw.(*docRecord).ID != id.String() {
			return true, nil
		}
	}
	return false, nil
}

// FindReferringDocInfos returns the documents referencing the given id.
func (d *DB) FindReferringDocInfos(
	_ context.Context,
	id types.MeadowlarkID,
	limit int,
) ([]*database.DocInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	iterator, err := txn.Get(tblDocuments, "outbound_refs", id.String())
	if err != nil {
		return nil, fmt.Errorf("find documents referring %s: %w", id, err)
	}

	var infos []*database.DocInfo
	for raw := iterator.Next(); raw != nil; raw = iterator.Next() {
		if limit > 0 && len(infos) >= limit {
			break
		}
		infos = append(infos, raw.(*docRecord).Info.DeepCopy())
	}

	return infos, nil
}

// FindDocInfosByResource returns a page of the documents of the resource.
func (d *DB) FindDocInfosByResource(
	_ context.Context,
	resourceInfo types.ResourceInfo,
	lastID types.MeadowlarkID,
	limit int,
) ([]*database.DocInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	iterator, err := txn.LowerBound(
		tblDocuments,
		"project_resource_id",
		resourceInfo.ProjectName,
		resourceInfo.ResourceName,
		lastID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("find documents of %s: %w", resourceInfo, err)
	}

	var infos []*database.DocInfo
	for raw := iterator.Next(); raw != nil; raw = iterator.Next() {
		// NOTE: a limit of 0 means no limit, as with MongoDB.
		if limit > 0 && len(infos) >= limit {
			break
		}

		record := raw.(*docRecord)
		if record.ProjectName != resourceInfo.ProjectName || record.ResourceName != resourceInfo.ResourceName {
			break
		}
		if record.ID == lastID.String() {
			continue
		}

		infos = append(infos, record.Info.DeepCopy())
	}

	return infos, nil
}
