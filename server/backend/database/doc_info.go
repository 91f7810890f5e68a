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

package database

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/meadowlark-team/meadowlark/api/types"
)

// DocInfo is the stored record of a document.
type DocInfo struct {
	// ID is the MeadowlarkID of the document, derived from its identity.
	ID types.MeadowlarkID `bson:"_id" json:"id"`

	// DocumentUUID is the external id of the document. It is assigned on
	// insert and preserved by every replace.
	DocumentUUID types.DocumentUUID `bson:"document_uuid" json:"documentUuid"`

	ResourceInfo     types.ResourceInfo     `bson:"resource_info" json:"resourceInfo"`
	DocumentIdentity types.DocumentIdentity `bson:"document_identity" json:"documentIdentity"`

	// EdfiDoc is the body of the document as sent by the client.
	EdfiDoc map[string]any `bson:"edfi_doc" json:"edfiDoc"`

	// OutboundRefs are the ids of the documents this document references.
	OutboundRefs []types.MeadowlarkID `bson:"outbound_refs" json:"outboundRefs"`

	// CreatedBy is the client that inserted the document.
	CreatedBy string `bson:"created_by" json:"createdBy"`

	// CreatedAt is the time when the document is inserted.
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`

	// LastModifiedAt is the time of the last insert or replace.
	LastModifiedAt time.Time `bson:"last_modified_at" json:"lastModifiedAt"`
}

// DeepCopy creates a deep copy of this DocInfo.
func (info *DocInfo) DeepCopy() *DocInfo {
	if info == nil {
		return nil
	}

	var identity types.DocumentIdentity
	if info.DocumentIdentity != nil {
		identity = make(types.DocumentIdentity, len(info.DocumentIdentity))
		copy(identity, info.DocumentIdentity)
	}

	var refs []types.MeadowlarkID
	if info.OutboundRefs != nil {
		refs = make([]types.MeadowlarkID, len(info.OutboundRefs))
		copy(refs, info.OutboundRefs)
	}

	return &DocInfo{
		ID:               info.ID,
		DocumentUUID:     info.DocumentUUID,
		ResourceInfo:     info.ResourceInfo,
		DocumentIdentity: identity,
		EdfiDoc:          CopyBody(info.EdfiDoc),
		OutboundRefs:     refs,
		CreatedBy:        info.CreatedBy,
		CreatedAt:        info.CreatedAt,
		LastModifiedAt:   info.LastModifiedAt,
	}
}

// CopyBody returns a deep copy of a JSON-like document body. Maps and slices
// are copied recursively; other values are shared. Documents and arrays
// decoded by the bson codec are turned into plain maps and slices.
func CopyBody(body map[string]any) map[string]any {
	if body == nil {
		return nil
	}
	copied := make(map[string]any, len(body))
	for k, v := range body {
		copied[k] = copyValue(v)
	}
	return copied
}

func copyValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return CopyBody(value)
	case bson.M:
		return CopyBody(value)
	case bson.D:
		copied := make(map[string]any, len(value))
		for _, elem := range value {
			copied[elem.Key] = copyValue(elem.Value)
		}
		return copied
	case []any:
		return copySlice(value)
	case bson.A:
		return copySlice(value)
	default:
		return v
	}
}

func copySlice(values []any) []any {
	copied := make([]any, len(values))
	for i, elem := range values {
		copied[i] = copyValue(elem)
	}
	return copied
}
