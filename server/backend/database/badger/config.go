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

package badger

import (
	"fmt"
	"time"
)

// Config is the configuration for opening a badger store.
type Config struct {
	// Path is the directory of the store. It is ignored when InMemory is set.
	Path string `yaml:"Path"`

	// InMemory keeps the whole store in memory, for tests and demos.
	InMemory bool `yaml:"InMemory"`

	// MaxConflictRetries is how many times a write is retried after losing
	// a race with a concurrent transaction.
	MaxConflictRetries int `yaml:"MaxConflictRetries"`

	// GCInterval is the interval of value log garbage collection. Empty
	// disables it.
	GCInterval string `yaml:"GCInterval"`
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return fmt.Errorf(`"--badger-path" flag is required unless the store is in memory`)
	}

	if c.MaxConflictRetries < 0 {
		return fmt.Errorf(
			`invalid argument "%d" for "--badger-max-conflict-retries" flag: must not be negative`,
			c.MaxConflictRetries,
		)
	}

	if c.GCInterval != "" {
		if _, err := time.ParseDuration(c.GCInterval); err != nil {
			return fmt.Errorf(
				`invalid argument "%s" for "--badger-gc-interval" flag: %w`,
				c.GCInterval,
				err,
			)
		}
	}

	return nil
}

// ParseGCInterval returns the garbage collection interval, 0 if disabled.
func (c *Config) ParseGCInterval() time.Duration {
	if c.GCInterval == "" {
		return 0
	}
	result, err := time.ParseDuration(c.GCInterval)
	if err != nil {
		return 0
	}
	return result
}
