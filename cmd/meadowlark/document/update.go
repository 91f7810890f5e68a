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

var updateFlags writeFlags

func newUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update [resource] [document uuid]",
		Short: "Replace the document of the given uuid",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("requires resource and document uuid")
			}
			if !types.DocumentUUID(args[1]).IsValid() {
				return errors.New("malformed document uuid")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := parseIdentity(updateFlags.identity)
			if err != nil {
				return err
			}
			refs, err := parseReferences(projectName, updateFlags.references)
			if err != nil {
				return err
			}
			body, err := readBody(updateFlags.file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			req := &types.UpdateRequest{
				DocumentUUID:       types.DocumentUUID(args[1]),
				ResourceInfo:       resourceInfo(args[0]),
				DocumentIdentity:   identity,
				EdfiDoc:            body,
				References:         refs,
				ValidateReferences: updateFlags.validateReferences,
				ClientID:           updateFlags.clientID,
				TraceID:            requestTraceID(),
			}

			return withRepository(func(ctx context.Context, r *server.Meadowlark) error {
				result, err := r.Update(ctx, req)
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
				if result.Result != types.UpdateByUUIDSuccess {
					return errors.New(o.Result)
				}
				return nil
			})
		},
	}
}

func init() {
	cmd := newUpdateCommand()
	updateFlags.register(cmd)
	SubCmd.AddCommand(cmd)
}
