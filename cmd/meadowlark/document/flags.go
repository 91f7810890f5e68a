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
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/meadowlark-team/meadowlark/api/types"
)

// isDescriptorName reports whether the resource is a descriptor, which Ed-Fi
// names with the "Descriptor" suffix.
func isDescriptorName(resourceName string) bool {
	return strings.HasSuffix(resourceName, "Descriptor")
}

// parseIdentity parses "name=value" pairs into a document identity.
func parseIdentity(pairs []string) (types.DocumentIdentity, error) {
	elements := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("identity element %q: want name=value", pair)
		}
		if _, exists := elements[name]; exists {
			return nil, fmt.Errorf("identity element %q given twice", name)
		}
		elements[name] = value
	}

	identity := types.NewDocumentIdentity(elements)
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	return identity, nil
}

// parseReference parses a reference given as
// "Resource:name=value;name=value" of the given project.
func parseReference(project, value string) (types.DocumentReference, error) {
	resourceName, rest, ok := strings.Cut(value, ":")
	if !ok || resourceName == "" || rest == "" {
		return types.DocumentReference{}, fmt.Errorf("reference %q: want Resource:name=value;...", value)
	}

	identity, err := parseIdentity(strings.Split(rest, ";"))
	if err != nil {
		return types.DocumentReference{}, fmt.Errorf("reference %q: %w", value, err)
	}

	return types.DocumentReference{
		ResourceInfo: types.ResourceInfo{
			ProjectName:  project,
			ResourceName: resourceName,
			IsDescriptor: isDescriptorName(resourceName),
		},
		DocumentIdentity: identity,
	}, nil
}

func parseReferences(project string, values []string) (types.References, error) {
	refs := make(types.References, 0, len(values))
	for _, value := range values {
		ref, err := parseReference(project, value)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// readBody reads the JSON body of a document from the given file, "-" for
// the standard input.
func readBody(path string, stdin io.Reader) (map[string]any, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(filepath.Clean(path))
	}
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	body := make(map[string]any)
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("parse body: %w", err)
	}
	return body, nil
}
