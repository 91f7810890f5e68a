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

package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meadowlark-team/meadowlark/server/backend"
	"github.com/meadowlark-team/meadowlark/server/backend/database/badger"
	"github.com/meadowlark-team/meadowlark/server/backend/database/mongo"
	"github.com/meadowlark-team/meadowlark/server/backend/propagation"
	"github.com/meadowlark-team/meadowlark/server/backend/search"
	"github.com/meadowlark-team/meadowlark/server/profiling"
)

// Below are the values of the default values of Meadowlark config.
const (
	DefaultProfilingPort = profiling.DefaultPort

	DefaultDatabase                = backend.DatabaseMemory
	DefaultMaxUpsertAttempts       = 3
	DefaultReferringDocumentsLimit = 5
	DefaultReindexPageSize         = 500
	DefaultHostname                = ""

	DefaultMongoConnectionURI                = "mongodb://localhost:27017"
	DefaultMongoConnectionTimeout            = 5 * time.Second
	DefaultMongoPingTimeout                  = 5 * time.Second
	DefaultMongoDatabase                     = "meadowlark"
	DefaultMongoCacheSize                    = 1000
	DefaultMongoMonitoringSlowQueryThreshold = 100 * time.Millisecond

	DefaultBadgerPath               = "meadowlark-data"
	DefaultBadgerMaxConflictRetries = 10
	DefaultBadgerGCInterval         = 5 * time.Minute

	DefaultSearchProvider = search.ProviderNone

	DefaultPropagationWorkers         = 4
	DefaultPropagationMaxRetries      = 5
	DefaultPropagationInitialInterval = 100 * time.Millisecond
	DefaultPropagationMaxInterval     = 5 * time.Second
	DefaultPropagationTimeout         = 10 * time.Second

	DefaultShutdownTimeout = 10 * time.Second
)

// Config is the configuration for creating a Meadowlark instance.
type Config struct {
	Profiling   *profiling.Config   `yaml:"Profiling"`
	Backend     *backend.Config     `yaml:"Backend"`
	Mongo       *mongo.Config       `yaml:"Mongo"`
	Badger      *badger.Config      `yaml:"Badger"`
	Search      *search.Config      `yaml:"Search"`
	Propagation *propagation.Config `yaml:"Propagation"`
}

// NewConfig returns a Config struct that contains reasonable defaults
// for most of the configurations.
func NewConfig() *Config {
	return newConfig(DefaultProfilingPort)
}

// NewConfigFromFile returns a Config struct for the given conf file.
func NewConfigFromFile(path string) (*Config, error) {
	conf := &Config{}
	bytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err = yaml.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	conf.ensureDefaultValue()
	return conf, nil
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if err := c.Profiling.Validate(); err != nil {
		return err
	}

	if err := c.Backend.Validate(); err != nil {
		return err
	}

	switch c.Backend.Database {
	case backend.DatabaseMongo:
		if c.Mongo == nil {
			return fmt.Errorf("mongo config is required for the %q database", c.Backend.Database)
		}
		if err := c.Mongo.Validate(); err != nil {
			return err
		}
	case backend.DatabaseBadger:
		if c.Badger == nil {
			return fmt.Errorf("badger config is required for the %q database", c.Backend.Database)
		}
		if err := c.Badger.Validate(); err != nil {
			return err
		}
	}

	if err := c.Search.Validate(); err != nil {
		return err
	}

	if err := c.Propagation.Validate(); err != nil {
		return err
	}

	return nil
}

// ensureDefaultValue sets the value of the option to which the default value
// should be applied when the user does not input it.
func (c *Config) ensureDefaultValue() {
	defaults := newConfig(DefaultProfilingPort)

	if c.Profiling == nil {
		c.Profiling = defaults.Profiling
	}
	if c.Profiling.Port == 0 {
		c.Profiling.Port = DefaultProfilingPort
	}

	if c.Backend == nil {
		c.Backend = defaults.Backend
	}
	if c.Backend.Database == "" {
		c.Backend.Database = DefaultDatabase
	}
	if c.Backend.MaxUpsertAttempts == 0 {
		c.Backend.MaxUpsertAttempts = DefaultMaxUpsertAttempts
	}
	if c.Backend.ReferringDocumentsLimit == 0 {
		c.Backend.ReferringDocumentsLimit = DefaultReferringDocumentsLimit
	}
	if c.Backend.ReindexPageSize == 0 {
		c.Backend.ReindexPageSize = DefaultReindexPageSize
	}

	if c.Mongo != nil {
		if c.Mongo.ConnectionURI == "" {
			c.Mongo.ConnectionURI = DefaultMongoConnectionURI
		}
		if c.Mongo.ConnectionTimeout == "" {
			c.Mongo.ConnectionTimeout = DefaultMongoConnectionTimeout.String()
		}
		if c.Mongo.Database == "" {
			c.Mongo.Database = DefaultMongoDatabase
		}
		if c.Mongo.PingTimeout == "" {
			c.Mongo.PingTimeout = DefaultMongoPingTimeout.String()
		}
		if c.Mongo.CacheSize == 0 {
			c.Mongo.CacheSize = DefaultMongoCacheSize
		}
		if c.Mongo.MonitoringEnabled && c.Mongo.MonitoringSlowQueryThreshold == "" {
			c.Mongo.MonitoringSlowQueryThreshold = DefaultMongoMonitoringSlowQueryThreshold.String()
		}
	}

	if c.Badger != nil {
		if c.Badger.Path == "" && !c.Badger.InMemory {
			c.Badger.Path = DefaultBadgerPath
		}
		if c.Badger.MaxConflictRetries == 0 {
			c.Badger.MaxConflictRetries = DefaultBadgerMaxConflictRetries
		}
		if c.Badger.GCInterval == "" && !c.Badger.InMemory {
			c.Badger.GCInterval = DefaultBadgerGCInterval.String()
		}
	}

	if c.Search == nil {
		c.Search = defaults.Search
	}
	if c.Search.Provider == "" {
		c.Search.Provider = DefaultSearchProvider
	}

	if c.Propagation == nil {
		c.Propagation = defaults.Propagation
	}
	if c.Propagation.Workers == 0 {
		c.Propagation.Workers = DefaultPropagationWorkers
	}
	if c.Propagation.MaxRetries == 0 {
		c.Propagation.MaxRetries = DefaultPropagationMaxRetries
	}
	if c.Propagation.InitialInterval == "" {
		c.Propagation.InitialInterval = DefaultPropagationInitialInterval.String()
	}
	if c.Propagation.MaxInterval == "" {
		c.Propagation.MaxInterval = DefaultPropagationMaxInterval.String()
	}
	if c.Propagation.Timeout == "" {
		c.Propagation.Timeout = DefaultPropagationTimeout.String()
	}
}

func newConfig(profilingPort int) *Config {
	return &Config{
		Profiling: &profiling.Config{
			Port: profilingPort,
		},
		Backend: &backend.Config{
			Database:                DefaultDatabase,
			MaxUpsertAttempts:       DefaultMaxUpsertAttempts,
			ReferringDocumentsLimit: DefaultReferringDocumentsLimit,
			ReindexPageSize:         DefaultReindexPageSize,
			Hostname:                DefaultHostname,
		},
		Search: &search.Config{
			Provider: DefaultSearchProvider,
		},
		Propagation: &propagation.Config{
			Workers:         DefaultPropagationWorkers,
			MaxRetries:      DefaultPropagationMaxRetries,
			InitialInterval: DefaultPropagationInitialInterval.String(),
			MaxInterval:     DefaultPropagationMaxInterval.String(),
			Timeout:         DefaultPropagationTimeout.String(),
		},
	}
}
