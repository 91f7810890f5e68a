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

var validateNoReferences bool

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete [resource] [document uuid]",
		Short:   "Delete the document of the given uuid",
		Aliases: []string{"rm"},
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("requires resource and document uuid")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &types.DeleteRequest{
				DocumentUUID:                   types.DocumentUUID(args[1]),
				ResourceInfo:                   resourceInfo(args[0]),
				ValidateNoReferencesToDocument: validateNoReferences,
				TraceID:                        requestTraceID(),
			}

			return withRepository(func(ctx context.Context, r *server.Meadowlark) error {
				result, err := r.Delete(ctx, req)
				if err != nil {
					return err
				}

				o := outcome{
					Result:         string(result.Result),
					DocumentUUID:   req.DocumentUUID.String(),
					FailureMessage: result.FailureMessage,
				}
				if err := printOutcome(cmd, o); err != nil {
					return err
				}
				if result.Result != types.DeleteSuccess {
					return errors.New(o.Result)
				}
				return nil
			})
		},
	}
}

func init() {
	cmd := newDeleteCommand()
	cmd.Flags().BoolVar(
		&validateNoReferences,
		"validate-references",
		true,
		"Keep the document while other documents reference it",
	)
	SubCmd.AddCommand(cmd)
}
