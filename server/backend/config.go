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

package backend

import (
	"fmt"
)

// Below are the document stores the backend can run on.
const (
	DatabaseMemory = "memory"
	DatabaseMongo  = "mongo"
	DatabaseBadger = "badger"
)

// Config is the configuration for creating a Backend instance.
type Config struct {
	// Database is the document store: "memory", "mongo" or "badger".
	Database string `yaml:"Database"`

	// MaxUpsertAttempts is how many times an upsert retries after losing a
	// race between its insert and a concurrent write of the same document.
	MaxUpsertAttempts int `yaml:"MaxUpsertAttempts"`

	// ReferringDocumentsLimit is how many referring documents a rejected
	// delete reports.
	ReferringDocumentsLimit int `yaml:"ReferringDocumentsLimit"`

	// ReindexPageSize is the number of documents read per page by a reindex.
	ReindexPageSize int `yaml:"ReindexPageSize"`

	// Hostname is the hostname of this server, used in logs.
	Hostname string `yaml:"Hostname"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	switch c.Database {
	case DatabaseMemory, DatabaseMongo, DatabaseBadger:
	default:
		return fmt.Errorf(`invalid argument "%s" for "--database" flag`, c.Database)
	}

	if c.MaxUpsertAttempts < 1 {
		return fmt.Errorf(
			`invalid argument "%d" for "--backend-max-upsert-attempts" flag: must be positive`,
			c.MaxUpsertAttempts,
		)
	}

	if c.ReferringDocumentsLimit < 1 {
		return fmt.Errorf(
			`invalid argument "%d" for "--backend-referring-documents-limit" flag: must be positive`,
			c.ReferringDocumentsLimit,
		)
	}

	if c.ReindexPageSize < 1 {
		return fmt.Errorf(
			`invalid argument "%d" for "--backend-reindex-page-size" flag: must be positive`,
			c.ReindexPageSize,
		)
	}

	return nil
}
