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

// DocumentReference is a declared dependency of a document on another
// document, given by the referenced document's resource and identity.
type DocumentReference struct {
	ResourceInfo     ResourceInfo     `json:"resourceInfo"`
	DocumentIdentity DocumentIdentity `json:"documentIdentity"`
}

// MeadowlarkID returns the id of the referenced document.
func (r DocumentReference) MeadowlarkID() MeadowlarkID {
	return MeadowlarkIDFor(r.ResourceInfo, r.DocumentIdentity)
}

// String returns a human readable form, e.g. "School{schoolId=123}".
func (r DocumentReference) String() string {
	return r.ResourceInfo.ResourceName + r.DocumentIdentity.String()
}

// References is a list of document references.
type References []DocumentReference

// MeadowlarkIDs returns the ids of the referenced documents without
// duplicates, in the order of first appearance.
func (refs References) MeadowlarkIDs() []MeadowlarkID {
	seen := make(map[MeadowlarkID]struct{}, len(refs))
	ids := make([]MeadowlarkID, 0, len(refs))
	for _, ref := range refs {
		id := ref.MeadowlarkID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Find returns the reference whose derived id is the given id.
func (refs References) Find(id MeadowlarkID) (DocumentReference, bool) {
	for _, ref := range refs {
		if ref.MeadowlarkID() == id {
			return ref, true
		}
	}
	return DocumentReference{}, false
}
