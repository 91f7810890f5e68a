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

// Package bleve implements the search index on an embedded bleve index.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/server/backend/database"
	"github.com/meadowlark-team/meadowlark/server/backend/search"
)

// Index is a search index backed by bleve.
type Index struct {
	index bleve.Index
}

// Open opens the bleve index at the given path, creating it if it does not
// exist. An empty path creates an index kept in memory.
func Open(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(newIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create bleve index in memory: %w", err)
		}
		return &Index{index: idx}, nil
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		// bleve creates the index directory itself but not its parents.
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create bleve index directory: %w", err)
		}
		idx, err = bleve.New(path, newIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index %s: %w", path, err)
	}

	return &Index{index: idx}, nil
}

// newIndexMapping keeps the bookkeeping fields as keywords, so that they are
// matched exactly. The body of the document is mapped dynamically.
func newIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	keywordFieldMapping := bleve.NewKeywordFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt(search.FieldID, keywordFieldMapping)
	docMapping.AddFieldMappingsAt(search.FieldMeadowlarkID, keywordFieldMapping)
	docMapping.AddFieldMappingsAt(search.FieldProjectName, keywordFieldMapping)
	docMapping.AddFieldMappingsAt(search.FieldResourceName, keywordFieldMapping)
	docMapping.AddFieldMappingsAt(search.FieldResourceVersion, keywordFieldMapping)
	docMapping.AddFieldMappingsAt(search.FieldLastModifiedDate, keywordFieldMapping)

	indexMapping.DefaultMapping = docMapping

	return indexMapping
}

// Name returns the provider name.
func (i *Index) Name() string {
	return search.ProviderBleve
}

// Upsert adds or replaces the document.
func (i *Index) Upsert(ctx context.Context, info *database.DocInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := i.index.Index(info.ID.String(), search.NewDocument(info)); err != nil {
		return fmt.Errorf("index document %s: %w", info.ID, err)
	}
	return nil
}

// Delete removes the document.
func (i *Index) Delete(ctx context.Context, id types.MeadowlarkID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := i.index.Delete(id.String()); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// Contains returns whether the document is indexed.
func (i *Index) Contains(id types.MeadowlarkID) (bool, error) {
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id.String()}))
	res, err := i.index.Search(req)
	if err != nil {
		return false, fmt.Errorf("search document %s: %w", id, err)
	}
	return res.Total > 0, nil
}

// CountResource returns the number of indexed documents of the resource.
func (i *Index) CountResource(resourceInfo types.ResourceInfo) (uint64, error) {
	project := bleve.NewTermQuery(resourceInfo.ProjectName)
	project.SetField(search.FieldProjectName)
	resource := bleve.NewTermQuery(resourceInfo.ResourceName)
	resource.SetField(search.FieldResourceName)

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(project, resource))
	req.Size = 0
	res, err := i.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("count documents of %s: %w", resourceInfo, err)
	}
	return res.Total, nil
}

// DocCount returns the number of indexed documents.
func (i *Index) DocCount() (uint64, error) {
	count, err := i.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

// Close closes the index.
func (i *Index) Close() error {
	if err := i.index.Close(); err != nil {
		return fmt.Errorf("close bleve index: %w", err)
	}
	return nil
}
