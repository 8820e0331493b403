// Copyright 2025 The Predtest Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package pred

// OpID identifies an operator in the host's catalog. The zero value is
// reserved to mean "no operator".
type OpID uint32

// FuncID identifies a function in the host's catalog.
type FuncID uint32

// TypeID identifies a type in the host's catalog.
type TypeID uint32

// CollationID identifies an input collation. Zero means "no collation".
type CollationID uint32

// FamilyID identifies a comparison operator family in the host's catalog.
type FamilyID uint32
