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

// writeFlags are the flags of the commands that write a document.
type writeFlags struct {
	identity           []string
	references         []string
	file               string
	validateReferences bool
	clientID           string
}

func (f *writeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(
		&f.identity,
		"identity",
		nil,
		"(required) Identity element of the document as name=value, repeatable",
	)
	cmd.Flags().StringArrayVar(
		&f.references,
		"reference",
		nil,
		"Referenced document as Resource:name=value;name=value, repeatable",
	)
	cmd.Flags().StringVarP(
		&f.file,
		"file",
		"f",
		"",
		"(required) JSON file of the document body, - for stdin",
	)
	cmd.Flags().BoolVar(
		&f.validateReferences,
		"validate-references",
		true,
		"Require every referenced document to exist",
	)
	cmd.Flags().StringVar(
		&f.clientID,
		"client-id",
		"",
		"API client on whose behalf the document is written",
	)
	_ = cmd.MarkFlagRequired("identity")
	_ = cmd.MarkFlagRequired("file")
}

var upsertFlags writeFlags

func newUpsertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upsert [resource]",
		Short: "Insert a document or update the document of the same identity",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("resource is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := parseIdentity(upsertFlags.identity)
			if err != nil {
				return err
			}
			refs, err := parseReferences(projectName, upsertFlags.references)
			if err != nil {
				return err
			}
			body, err := readBody(upsertFlags.file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			req := &types.UpsertRequest{
				ResourceInfo:       resourceInfo(args[0]),
				DocumentIdentity:   identity,
				EdfiDoc:            body,
				References:         refs,
				ValidateReferences: upsertFlags.validateReferences,
				ClientID:           upsertFlags.clientID,
				TraceID:            requestTraceID(),
			}

			return withRepository(func(ctx context.Context, r *server.Meadowlark) error {
				result, err := r.Upsert(ctx, req)
				if err != nil {
					return err
				}

				o := outcome{
					Result:         string(result.Result),
					DocumentUUID:   result.NewDocumentUUID.String(),
					FailureMessage: result.FailureMessage,
				}
				if err := printOutcome(cmd, o); err != nil {
					return err
				}
				if result.Result != types.InsertSuccess && result.Result != types.UpdateSuccess {
					return errors.New(o.Result)
				}
				return nil
			})
		},
	}
}

func init() {
	cmd := newUpsertCommand()
	upsertFlags.register(cmd)
	SubCmd.AddCommand(cmd)
}
