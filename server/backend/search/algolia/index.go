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

// Package algolia implements the search index on a hosted Algolia index.
package algolia

import (
	"context"
	"fmt"

	algoliasearch "github.com/algolia/algoliasearch-client-go/v3/algolia/search"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/server/backend/database"
	"github.com/meadowlark-team/meadowlark/server/backend/search"
)

// objectIDKey is the primary key of an Algolia record.
const objectIDKey = "objectID"

// Config contains Algolia configuration.
type Config struct {
	AppID     string
	APIKey    string
	IndexName string

	// WaitForTasks blocks each write until Algolia has applied it.
	WaitForTasks bool
}

// Index is a search index backed by Algolia.
type Index struct {
	index *algoliasearch.Index
	wait  bool
}

// New creates an Algolia index client. It does not contact Algolia.
func New(conf *Config) (*Index, error) {
	if conf.AppID == "" {
		return nil, fmt.Errorf("algolia app id required")
	}
	if conf.APIKey == "" {
		return nil, fmt.Errorf("algolia api key required")
	}
	if conf.IndexName == "" {
		return nil, fmt.Errorf("algolia index name required")
	}

	client := algoliasearch.NewClient(conf.AppID, conf.APIKey)

	return &Index{
		index: client.InitIndex(conf.IndexName),
		wait:  conf.WaitForTasks,
	}, nil
}

// NewRecord returns the Algolia record of the given document.
func NewRecord(info *database.DocInfo) map[string]any {
	record := search.NewDocument(info)
	record[objectIDKey] = info.ID.String()
	return record
}

// Name returns the provider name.
func (i *Index) Name() string {
	return search.ProviderAlgolia
}

// Upsert adds or replaces the document.
func (i *Index) Upsert(ctx context.Context, info *database.DocInfo) error {
	res, err := i.index.SaveObject(NewRecord(info), ctx)
	if err != nil {
		return fmt.Errorf("save object %s: %w", info.ID, err)
	}

	if i.wait {
		if err := res.Wait(ctx); err != nil {
			return fmt.Errorf("wait for object %s: %w", info.ID, err)
		}
	}
	return nil
}

// Delete removes the document.
func (i *Index) Delete(ctx context.Context, id types.MeadowlarkID) error {
	res, err := i.index.DeleteObject(id.String(), ctx)
	if err != nil {
		return fmt.Errorf("delete object %s: %w", id, err)
	}

	if i.wait {
		if err := res.Wait(ctx); err != nil {
			return fmt.Errorf("wait for deletion of %s: %w", id, err)
		}
	}
	return nil
}

// Close does nothing; the Algolia client holds no connection of its own.
func (i *Index) Close() error {
	return nil
}
