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
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// outcome is the printed form of the result of a command.
type outcome struct {
	Result         string `json:"result" yaml:"result"`
	DocumentUUID   string `json:"documentUuid,omitempty" yaml:"documentUuid,omitempty"`
	FailureMessage string `json:"failureMessage,omitempty" yaml:"failureMessage,omitempty"`
}

func newTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateFooter = false
	tw.Style().Options.SeparateHeader = false
	tw.Style().Options.SeparateRows = false
	return tw
}

func printOutcome(cmd *cobra.Command, o outcome) error {
	if output == "" {
		tw := newTableWriter()
		tw.AppendHeader(table.Row{"RESULT", "DOCUMENT UUID", "MESSAGE"})
		tw.AppendRow(table.Row{o.Result, o.DocumentUUID, o.FailureMessage})
		cmd.Printf("%s\n", tw.Render())
		return nil
	}
	return printStructured(cmd, o)
}

func printDocument(cmd *cobra.Command, doc map[string]any) error {
	if output == "" {
		names := make([]string, 0, len(doc))
		for name := range doc {
			names = append(names, name)
		}
		sort.Strings(names)

		tw := newTableWriter()
		tw.AppendHeader(table.Row{"FIELD", "VALUE"})
		for _, name := range names {
			value, err := json.Marshal(doc[name])
			if err != nil {
				return fmt.Errorf("marshal %s: %w", name, err)
			}
			tw.AppendRow(table.Row{name, string(value)})
		}
		cmd.Printf("%s\n", tw.Render())
		return nil
	}
	return printStructured(cmd, doc)
}

func printStructured(cmd *cobra.Command, v any) error {
	switch output {
	case "json":
		jsonOutput, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		cmd.Println(string(jsonOutput))
	case "yaml":
		yamlOutput, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal YAML: %w", err)
		}
		cmd.Println(string(yamlOutput))
	default:
		return fmt.Errorf("unknown output format: %s", output)
	}
	return nil
}
