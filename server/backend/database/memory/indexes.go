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

package memory

import "github.com/hashicorp/go-memdb"

var (
	tblDocuments = "documents"
)

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tblDocuments: {
			Name: tblDocuments,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"document_uuid": {
					Name:    "document_uuid",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "DocumentUUID"},
				},
				"outbound_refs": {
					Name:         "outbound_refs",
					AllowMissing: true,
					Indexer:      &memdb.StringSliceFieldIndex{Field: "OutboundRefs"},
				},
				"project_resource_id": {
					Name:   "project_resource_id",
					Unique: true,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "ProjectName"},
							&memdb.StringFieldIndex{Field: "ResourceName"},
							&memdb.StringFieldIndex{Field: "ID"},
						},
					},
				},
			},
		},
	},
}
