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

package propagation

import (
	"fmt"
	"time"

	"github.com/meadowlark-team/meadowlark/internal/validation"
)

// Config is the configuration of the propagation of documents from the
// document store to the search index.
type Config struct {
	// Workers is the number of index writes running at the same time.
	Workers int `yaml:"Workers"`

	// MaxRetries is how many times a failed index write is retried before it
	// is given up on. A given up document is recovered by a reindex.
	MaxRetries uint64 `yaml:"MaxRetries"`

	// InitialInterval is the wait before the first retry. Later waits grow
	// exponentially up to MaxInterval.
	InitialInterval string `yaml:"InitialInterval" validate:"required,duration"`
	MaxInterval     string `yaml:"MaxInterval" validate:"required,duration"`

	// Timeout bounds a single index write.
	Timeout string `yaml:"Timeout" validate:"required,duration"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf(`invalid argument "%d" for "--propagation-workers" flag: must be positive`, c.Workers)
	}

	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("propagation config: %w", err)
	}

	return nil
}

// ParseInitialInterval returns the wait before the first retry.
func (c *Config) ParseInitialInterval() time.Duration {
	return parseDuration(c.InitialInterval)
}

// ParseMaxInterval returns the longest wait between retries.
func (c *Config) ParseMaxInterval() time.Duration {
	return parseDuration(c.MaxInterval)
}

// ParseTimeout returns the timeout of a single index write.
func (c *Config) ParseTimeout() time.Duration {
	return parseDuration(c.Timeout)
}

// parseDuration parses a duration already checked by Validate.
func parseDuration(value string) time.Duration {
	result, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return result
}
