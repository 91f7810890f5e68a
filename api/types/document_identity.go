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

package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidDocumentIdentity is returned when the identity of a document
	// has no elements or has an element without a name.
	ErrInvalidDocumentIdentity = errors.New("invalid document identity")
)

// IdentityElement is one natural-key element of a document identity.
type IdentityElement struct {
	Name  string `json:"name" bson:"name"`
	Value string `json:"value" bson:"value"`
}

// DocumentIdentity is the ordered list of natural-key elements of a document.
// The order is the canonical order defined by the resource schema; it takes
// part in the derivation of the MeadowlarkID.
type DocumentIdentity []IdentityElement

// NewDocumentIdentity builds an identity from a map, ordering the elements by
// name. It is meant for callers that have no schema-defined order at hand.
func NewDocumentIdentity(elements map[string]string) DocumentIdentity {
	names := make([]string, 0, len(elements))
	for name := range elements {
		names = append(names, name)
	}
	sort.Strings(names)

	identity := make(DocumentIdentity, 0, len(names))
	for _, name := range names {
		identity = append(identity, IdentityElement{Name: name, Value: elements[name]})
	}
	return identity
}

// Validate returns an error if the identity is empty, has an unnamed element
// or names an element twice.
func (i DocumentIdentity) Validate() error {
	if len(i) == 0 {
		return fmt.Errorf("no elements: %w", ErrInvalidDocumentIdentity)
	}

	seen := make(map[string]struct{}, len(i))
	for _, elem := range i {
		if elem.Name == "" {
			return fmt.Errorf("element without name: %w", ErrInvalidDocumentIdentity)
		}
		if _, ok := seen[elem.Name]; ok {
			return fmt.Errorf("duplicated element %q: %w", elem.Name, ErrInvalidDocumentIdentity)
		}
		seen[elem.Name] = struct{}{}
	}

	return nil
}

// Equal returns whether the two identities have the same elements in the
// same order.
func (i DocumentIdentity) Equal(other DocumentIdentity) bool {
	if len(i) != len(other) {
		return false
	}
	for idx := range i {
		if i[idx] != other[idx] {
			return false
		}
	}
	return true
}

// String returns a human readable form, e.g. "{schoolId=123,name=x}".
func (i DocumentIdentity) String() string {
	sb := strings.Builder{}
	sb.WriteString("{")
	for idx, elem := range i {
		if idx > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(elem.Name)
		sb.WriteString("=")
		sb.WriteString(elem.Value)
	}
	sb.WriteString("}")
	return sb.String()
}
