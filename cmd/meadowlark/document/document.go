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

// Package document provides the commands that read and write documents of a
// Meadowlark document store.
package document

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/server"
	"github.com/meadowlark-team/meadowlark/server/backend/database/badger"
	"github.com/meadowlark-team/meadowlark/server/backend/database/mongo"
	"github.com/meadowlark-team/meadowlark/server/logging"
)

var (
	// SubCmd represents the document command.
	SubCmd = &cobra.Command{
		Use:     "document",
		Short:   "Manage documents",
		Aliases: []string{"doc", "documents"},
	}

	flagConfPath       string
	flagLogLevel       string
	database           string
	badgerPath         string
	mongoConnectionURI string
	searchProvider     string
	bleveIndexPath     string
	projectName        string
	traceID            string
	output             string
)

// repositoryConfig returns the config of the store the commands work on.
func repositoryConfig() (*server.Config, error) {
	if flagConfPath != "" {
		return server.NewConfigFromFile(flagConfPath)
	}

	conf := server.NewConfig()
	conf.Backend.Database = database
	conf.Search.Provider = searchProvider
	conf.Search.BleveIndexPath = bleveIndexPath
	if badgerPath != "" {
		conf.Badger = &badger.Config{
			Path:               badgerPath,
			MaxConflictRetries: server.DefaultBadgerMaxConflictRetries,
		}
	}
	if mongoConnectionURI != "" {
		conf.Mongo = &mongo.Config{
			ConnectionURI:     mongoConnectionURI,
			ConnectionTimeout: server.DefaultMongoConnectionTimeout.String(),
			Database:          server.DefaultMongoDatabase,
			PingTimeout:       server.DefaultMongoPingTimeout.String(),
			CacheSize:         server.DefaultMongoCacheSize,
		}
	}
	return conf, nil
}

// withRepository opens the store, runs fn and closes the store after the
// pending search index writes are applied.
func withRepository(fn func(ctx context.Context, r *server.Meadowlark) error) (err error) {
	if err := logging.SetLogLevel(flagLogLevel); err != nil {
		return err
	}
	if err := logging.SetLogOutput("stderr"); err != nil {
		return err
	}

	conf, err := repositoryConfig()
	if err != nil {
		return err
	}
	conf.Profiling.Disabled = true

	r, err := server.New(conf)
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := r.Shutdown(true); err == nil {
			err = shutdownErr
		}
	}()

	return fn(context.Background(), r)
}

func resourceInfo(resourceName string) types.ResourceInfo {
	return types.ResourceInfo{
		ProjectName:  projectName,
		ResourceName: resourceName,
		IsDescriptor: isDescriptorName(resourceName),
	}
}

func requestTraceID() types.TraceID {
	if traceID != "" {
		return types.TraceID(traceID)
	}
	return types.NewTraceID()
}

func init() {
	SubCmd.PersistentFlags().StringVarP(
		&flagConfPath,
		"config",
		"c",
		"",
		"Config path of the store",
	)
	SubCmd.PersistentFlags().StringVarP(
		&flagLogLevel,
		"log-level",
		"l",
		"warn",
		"Log level: debug, info, warn, error, panic, fatal",
	)
	SubCmd.PersistentFlags().StringVar(
		&database,
		"database",
		server.DefaultDatabase,
		"Document store: memory, mongo, badger",
	)
	SubCmd.PersistentFlags().StringVar(
		&badgerPath,
		"badger-path",
		"",
		"Directory of the embedded store",
	)
	SubCmd.PersistentFlags().StringVar(
		&mongoConnectionURI,
		"mongo-connection-uri",
		"",
		"MongoDB's connection URI",
	)
	SubCmd.PersistentFlags().StringVar(
		&searchProvider,
		"search-provider",
		server.DefaultSearchProvider,
		"Search index: none, bleve, algolia",
	)
	SubCmd.PersistentFlags().StringVar(
		&bleveIndexPath,
		"bleve-index-path",
		"",
		"Directory of the bleve index",
	)
	SubCmd.PersistentFlags().StringVar(
		&projectName,
		"project",
		types.DefaultProjectName,
		"Project of the resources",
	)
	SubCmd.PersistentFlags().StringVar(
		&traceID,
		"trace-id",
		"",
		"Trace ID of the request. Generated when empty.",
	)
	SubCmd.PersistentFlags().StringVarP(
		&output,
		"output",
		"o",
		"",
		"One of 'yaml' or 'json'.",
	)
}
