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

package documents

import (
	"context"
	"fmt"
	"strings"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/server/backend/database"
)

// ReferenceOutcome is the outcome of a reference validation.
type ReferenceOutcome string

// Below are the outcomes of a reference validation. A store failure is
// returned as an error instead.
const (
	ReferencesOK      ReferenceOutcome = "OK"
	ReferencesMissing ReferenceOutcome = "MISSING"
)

// ReferenceValidation is the result of ValidateReferences.
type ReferenceValidation struct {
	Outcome ReferenceOutcome

	// Missing are the references that do not exist, in the order they were
	// declared.
	Missing types.References
}

// OK returns whether every reference exists.
func (v ReferenceValidation) OK() bool {
	return v.Outcome == ReferencesOK
}

// FailureMessage describes the missing references.
func (v ReferenceValidation) FailureMessage() string {
	return missingReferencesMessage(v.Missing)
}

// ValidateReferences checks that every referenced document, descriptors
// included, exists in the store. All references are checked with a single
// query.
func ValidateReferences(
	ctx context.Context,
	db database.Database,
	refs types.References,
) (ReferenceValidation, error) {
	ids := refs.MeadowlarkIDs()
	if len(ids) == 0 {
		return ReferenceValidation{Outcome: ReferencesOK}, nil
	}

	existing, err := db.FindExistingIDs(ctx, ids)
	if err != nil {
		return ReferenceValidation{}, fmt.Errorf("validate references: %w", err)
	}
	if len(existing) == len(ids) {
		return ReferenceValidation{Outcome: ReferencesOK}, nil
	}

	found := make(map[types.MeadowlarkID]struct{}, len(existing))
	for _, id := range existing {
		found[id] = struct{}{}
	}

	var missing types.References
	for _, id := range ids {
		if _, ok := found[id]; ok {
			continue
		}
		if ref, ok := refs.Find(id); ok {
			missing = append(missing, ref)
		}
	}

	return ReferenceValidation{Outcome: ReferencesMissing, Missing: missing}, nil
}

// missingReferencesMessage lists the given references, or reports them as
// removed concurrently when the store found them missing during the write.
func missingReferencesMessage(missing types.References) string {
	if len(missing) == 0 {
		return "Reference validation failed: a referenced document was removed during the write"
	}

	names := make([]string, len(missing))
	for i, ref := range missing {
		names[i] = ref.String()
	}
	return "Reference validation failed, missing: " + strings.Join(names, ", ")
}
