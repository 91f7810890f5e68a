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

package document

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/meadowlark-team/meadowlark/server"
)

func newReindexCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex [resource]",
		Short: "Write every document of the resource to the search index again",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("resource is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(func(ctx context.Context, r *server.Meadowlark) error {
				count, err := r.Reindex(ctx, resourceInfo(args[0]), requestTraceID())
				if err != nil {
					return err
				}

				cmd.Printf("Reindexed %d documents of %s into %s\n", count, args[0], r.IndexName())
				return nil
			})
		},
	}
}

func init() {
	SubCmd.AddCommand(newReindexCommand())
}
