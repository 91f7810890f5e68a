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
	"encoding/base64"
	"encoding/binary"
	"hash"

	"golang.org/x/crypto/sha3"
)

// meadowlarkIDLength is the length of an encoded MeadowlarkID: 32 bytes of
// SHA3-256 digest in unpadded base64url.
const meadowlarkIDLength = 43

// MeadowlarkID is the identity of a document derived from its resource type
// and natural key. It is the primary key of the document store.
type MeadowlarkID string

// String returns the string representation of this id.
func (id MeadowlarkID) String() string {
	return string(id)
}

// MeadowlarkIDFor derives the MeadowlarkID of the document with the given
// resource type and identity.
//
// Every field is written with a uvarint length prefix so that no two
// different field sequences produce the same digest input. The resource
// version is not part of the input.
func MeadowlarkIDFor(resourceInfo ResourceInfo, identity DocumentIdentity) MeadowlarkID {
	h := sha3.New256()

	writeField(h, resourceInfo.ProjectName)
	writeField(h, resourceInfo.ResourceName)
	if resourceInfo.IsDescriptor {
		writeField(h, "descriptor")
	} else {
		writeField(h, "resource")
	}

	writeLength(h, len(identity))
	for _, elem := range identity {
		writeField(h, elem.Name)
		writeField(h, elem.Value)
	}

	return MeadowlarkID(base64.RawURLEncoding.EncodeToString(h.Sum(nil)))
}

// IsMeadowlarkID returns whether the given string has the shape of a
// MeadowlarkID.
func IsMeadowlarkID(s string) bool {
	if len(s) != meadowlarkIDLength {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}

func writeField(h hash.Hash, field string) {
	writeLength(h, len(field))
	_, _ = h.Write([]byte(field))
}

func writeLength(h hash.Hash, n int) {
	var buf [binary.MaxVarintLen64]byte
	size := binary.PutUvarint(buf[:], uint64(n))
	_, _ = h.Write(buf[:size])
}
