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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/meadowlark-team/meadowlark/server"
	"github.com/meadowlark-team/meadowlark/server/backend/database/badger"
	"github.com/meadowlark-team/meadowlark/server/backend/database/mongo"
	"github.com/meadowlark-team/meadowlark/server/logging"
)

var (
	gracefulTimeout = server.DefaultShutdownTimeout + 5*time.Second
)

var (
	flagConfPath  string
	flagLogLevel  string
	flagLogFormat string

	mongoConnectionURI     string
	mongoConnectionTimeout time.Duration
	mongoDatabase          string
	mongoPingTimeout       time.Duration
	mongoUseTransactions   bool

	badgerPath       string
	badgerInMemory   bool
	badgerGCInterval time.Duration

	propagationInitialInterval time.Duration
	propagationMaxInterval     time.Duration
	propagationTimeout         time.Duration

	conf = server.NewConfig()
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server [options]",
		Short: "Start Meadowlark server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf.Propagation.InitialInterval = propagationInitialInterval.String()
			conf.Propagation.MaxInterval = propagationMaxInterval.String()
			conf.Propagation.Timeout = propagationTimeout.String()

			if mongoConnectionURI != "" {
				conf.Mongo = &mongo.Config{
					ConnectionURI:     mongoConnectionURI,
					ConnectionTimeout: mongoConnectionTimeout.String(),
					Database:          mongoDatabase,
					PingTimeout:       mongoPingTimeout.String(),
					UseTransactions:   mongoUseTransactions,
					CacheSize:         server.DefaultMongoCacheSize,
				}
			}

			if badgerPath != "" || badgerInMemory {
				conf.Badger = &badger.Config{
					Path:               badgerPath,
					InMemory:           badgerInMemory,
					MaxConflictRetries: server.DefaultBadgerMaxConflictRetries,
				}
				if !badgerInMemory && badgerGCInterval > 0 {
					conf.Badger.GCInterval = badgerGCInterval.String()
				}
			}

			// If config file is given, command-line arguments will be overwritten.
			if flagConfPath != "" {
				parsed, err := server.NewConfigFromFile(flagConfPath)
				if err != nil {
					return err
				}
				conf = parsed
			}

			if err := logging.SetLogLevel(flagLogLevel); err != nil {
				return err
			}
			if err := logging.SetLogFormat(flagLogFormat); err != nil {
				return err
			}

			r, err := server.New(conf)
			if err != nil {
				return err
			}

			if err := r.Start(); err != nil {
				return err
			}

			if code := handleSignal(r); code != 0 {
				return fmt.Errorf("exit code: %d", code)
			}

			return nil
		},
	}
}

func handleSignal(r *server.Meadowlark) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var sig os.Signal
	select {
	case s := <-sigCh:
		sig = s
	case <-r.ShutdownCh():
		// meadowlark is already shutdown
		return 0
	}

	graceful := false
	if sig == syscall.SIGINT || sig == syscall.SIGTERM {
		graceful = true
	}

	gracefulCh := make(chan struct{})
	go func() {
		if err := r.Shutdown(graceful); err != nil {
			logging.DefaultLogger().Errorf("shutdown: %v", err)
			return
		}
		close(gracefulCh)
	}()

	select {
	case <-sigCh:
		return 1
	case <-time.After(gracefulTimeout):
		return 1
	case <-gracefulCh:
		return 0
	}
}

func init() {
	cmd := newServerCmd()
	cmd.Flags().StringVarP(
		&flagConfPath,
		"config",
		"c",
		"",
		"Config path",
	)
	cmd.Flags().StringVarP(
		&flagLogLevel,
		"log-level",
		"l",
		"info",
		"Log level: debug, info, warn, error, panic, fatal",
	)
	cmd.Flags().StringVar(
		&flagLogFormat,
		"log-format",
		"console",
		"Log format: console, json",
	)
	cmd.Flags().IntVar(
		&conf.Profiling.Port,
		"profiling-port",
		server.DefaultProfilingPort,
		"Profiling port",
	)
	cmd.Flags().BoolVar(
		&conf.Profiling.EnablePprof,
		"enable-pprof",
		false,
		"Enable runtime profiling data via HTTP server.",
	)
	cmd.Flags().BoolVar(
		&conf.Profiling.Disabled,
		"disable-profiling",
		false,
		"Do not serve metrics and profiling data.",
	)
	cmd.Flags().StringVar(
		&conf.Backend.Database,
		"database",
		server.DefaultDatabase,
		"Document store: memory, mongo, badger",
	)
	cmd.Flags().IntVar(
		&conf.Backend.MaxUpsertAttempts,
		"backend-max-upsert-attempts",
		server.DefaultMaxUpsertAttempts,
		"Number of attempts of a write that lost a race against a concurrent write.",
	)
	cmd.Flags().IntVar(
		&conf.Backend.ReferringDocumentsLimit,
		"backend-referring-documents-limit",
		server.DefaultReferringDocumentsLimit,
		"Number of referring documents reported when a delete is rejected.",
	)
	cmd.Flags().IntVar(
		&conf.Backend.ReindexPageSize,
		"backend-reindex-page-size",
		server.DefaultReindexPageSize,
		"Number of documents read per page when reindexing.",
	)
	cmd.Flags().StringVar(
		&conf.Backend.Hostname,
		"hostname",
		server.DefaultHostname,
		"Meadowlark Server Hostname",
	)
	cmd.Flags().StringVar(
		&mongoConnectionURI,
		"mongo-connection-uri",
		"",
		"MongoDB's connection URI",
	)
	cmd.Flags().DurationVar(
		&mongoConnectionTimeout,
		"mongo-connection-timeout",
		server.DefaultMongoConnectionTimeout,
		"Mongo DB's connection timeout",
	)
	cmd.Flags().StringVar(
		&mongoDatabase,
		"mongo-database",
		server.DefaultMongoDatabase,
		"Meadowlark's database name in MongoDB",
	)
	cmd.Flags().DurationVar(
		&mongoPingTimeout,
		"mongo-ping-timeout",
		server.DefaultMongoPingTimeout,
		"Mongo DB's ping timeout",
	)
	cmd.Flags().BoolVar(
		&mongoUseTransactions,
		"mongo-use-transactions",
		false,
		"Run writes in transactions. Requires a replica set.",
	)
	cmd.Flags().StringVar(
		&badgerPath,
		"badger-path",
		"",
		"Directory of the embedded store",
	)
	cmd.Flags().BoolVar(
		&badgerInMemory,
		"badger-in-memory",
		false,
		"Keep the embedded store in memory",
	)
	cmd.Flags().DurationVar(
		&badgerGCInterval,
		"badger-gc-interval",
		server.DefaultBadgerGCInterval,
		"Interval of value log garbage collection of the embedded store",
	)
	cmd.Flags().StringVar(
		&conf.Search.Provider,
		"search-provider",
		server.DefaultSearchProvider,
		"Search index: none, bleve, algolia",
	)
	cmd.Flags().StringVar(
		&conf.Search.BleveIndexPath,
		"bleve-index-path",
		"",
		"Directory of the bleve index. Empty keeps it in memory.",
	)
	cmd.Flags().StringVar(
		&conf.Search.AlgoliaAppID,
		"algolia-app-id",
		"",
		"Algolia application ID",
	)
	cmd.Flags().StringVar(
		&conf.Search.AlgoliaAPIKey,
		"algolia-api-key",
		"",
		"Algolia API key",
	)
	cmd.Flags().StringVar(
		&conf.Search.AlgoliaIndexName,
		"algolia-index-name",
		"",
		"Algolia index name",
	)
	cmd.Flags().BoolVar(
		&conf.Search.AlgoliaWaitForTasks,
		"algolia-wait-for-tasks",
		false,
		"Wait until Algolia applied each write",
	)
	cmd.Flags().IntVar(
		&conf.Propagation.Workers,
		"propagation-workers",
		server.DefaultPropagationWorkers,
		"Number of concurrent search index writes",
	)
	cmd.Flags().Uint64Var(
		&conf.Propagation.MaxRetries,
		"propagation-max-retries",
		server.DefaultPropagationMaxRetries,
		"Maximum number of retries of a failed search index write",
	)
	cmd.Flags().DurationVar(
		&propagationInitialInterval,
		"propagation-initial-interval",
		server.DefaultPropagationInitialInterval,
		"Wait before the first retry of a failed search index write",
	)
	cmd.Flags().DurationVar(
		&propagationMaxInterval,
		"propagation-max-interval",
		server.DefaultPropagationMaxInterval,
		"Maximum wait between retries of a failed search index write",
	)
	cmd.Flags().DurationVar(
		&propagationTimeout,
		"propagation-timeout",
		server.DefaultPropagationTimeout,
		"Timeout of a single search index write",
	)

	rootCmd.AddCommand(cmd)
}
