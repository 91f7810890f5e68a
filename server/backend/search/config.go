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

package search

import (
	"fmt"
)

// Below are the supported search providers.
const (
	ProviderNone    = "none"
	ProviderBleve   = "bleve"
	ProviderAlgolia = "algolia"
)

// Config is the configuration of the search index.
type Config struct {
	// Provider is one of "none", "bleve" and "algolia".
	Provider string `yaml:"Provider"`

	// BleveIndexPath is the directory of the bleve index. Empty keeps the
	// index in memory.
	BleveIndexPath string `yaml:"BleveIndexPath"`

	AlgoliaAppID     string `yaml:"AlgoliaAppID"`
	AlgoliaAPIKey    string `yaml:"AlgoliaAPIKey"`
	AlgoliaIndexName string `yaml:"AlgoliaIndexName"`

	// AlgoliaWaitForTasks blocks each index write until Algolia applied it.
	AlgoliaWaitForTasks bool `yaml:"AlgoliaWaitForTasks"`
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	switch c.Provider {
	case "", ProviderNone, ProviderBleve:
		return nil
	case ProviderAlgolia:
		if c.AlgoliaAppID == "" || c.AlgoliaAPIKey == "" || c.AlgoliaIndexName == "" {
			return fmt.Errorf(
				`"--algolia-app-id", "--algolia-api-key" and "--algolia-index-name" flags are required for algolia`,
			)
		}
		return nil
	default:
		return fmt.Errorf(`invalid argument "%s" for "--search-provider" flag`, c.Provider)
	}
}
