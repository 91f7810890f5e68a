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

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/server"
)

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get [resource] [document uuid]",
		Short: "Print the document of the given uuid",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("requires resource and document uuid")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &types.GetRequest{
				DocumentUUID: types.DocumentUUID(args[1]),
				ResourceInfo: resourceInfo(args[0]),
				TraceID:      requestTraceID(),
			}

			return withRepository(func(ctx context.Context, r *server.Meadowlark) error {
				result, err := r.Get(ctx, req)
				if err != nil {
					return err
				}
				if result.Response != types.GetSuccess {
					return errors.New(string(result.Response))
				}
				return printDocument(cmd, result.Document)
			})
		},
	}
}

func init() {
	SubCmd.AddCommand(newGetCommand())
}
