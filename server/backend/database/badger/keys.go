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

package badger

import (
	"github.com/meadowlark-team/meadowlark/api/types"
)

// Key prefixes. MeadowlarkIDs are unpadded base64url and never contain '/'.
const (
	docPrefix      = "doc/"
	uuidPrefix     = "uuid/"
	refPrefix      = "ref/"
	resourcePrefix = "res/"
)

// docKey is the key of the record of a document.
func docKey(id types.MeadowlarkID) []byte {
	return []byte(docPrefix + id.String())
}

// uuidKey maps a DocumentUUID to the MeadowlarkID of its document.
func uuidKey(documentUUID types.DocumentUUID) []byte {
	return []byte(uuidPrefix + documentUUID.String())
}

// refKey records that source references target.
// Format: ref/target/source
func refKey(target, source types.MeadowlarkID) []byte {
	return []byte(refPrefix + target.String() + "/" + source.String())
}

// refKeyPrefix is the prefix of the keys of the documents referencing target.
func refKeyPrefix(target types.MeadowlarkID) []byte {
	return []byte(refPrefix + target.String() + "/")
}

// sourceOfRefKey returns the referencing document of a ref key.
func sourceOfRefKey(key []byte, target types.MeadowlarkID) types.MeadowlarkID {
	return types.MeadowlarkID(key[len(refKeyPrefix(target)):])
}

// resourceKeyPrefix is the prefix of the keys of the documents of a resource.
// Format: res/project\x00resource\x00
func resourceKeyPrefix(resourceInfo types.ResourceInfo) []byte {
	return []byte(resourcePrefix + resourceInfo.ProjectName + "\x00" + resourceInfo.ResourceName + "\x00")
}

// resourceKey indexes a document under its resource, ordered by id.
func resourceKey(resourceInfo types.ResourceInfo, id types.MeadowlarkID) []byte {
	return append(resourceKeyPrefix(resourceInfo), id.String()...)
}
