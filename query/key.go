// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package query

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Key identifies a query by its logical name and its parameters. Keys are only
// used for looking up cache entries; they are never persisted.
type Key struct {
	Name   string
	Params map[string]string
}

// ComputeKey returns the Key for the named query with the specified
// parameters. The parameters are copied, so later changes to params don't
// affect the returned key.
func ComputeKey(name string, params map[string]string) Key {
	k := Key{Name: name, Params: make(map[string]string, len(params))}
	for pname, pvalue := range params {
		k.Params[pname] = pvalue
	}
	return k
}

// Hash returns the deterministic textual form of this key. It is the JSON
// array of the query name followed by the parameter object, with the
// parameters always in sorted order, so the insertion order of the parameters
// never matters.
func (k Key) Hash() string {
	// encoding/json always emits map keys in sorted order.
	b, _ := k.MarshalJSON()
	return string(b)
}

// Equal returns true if both keys have the same name and the same parameter
// names and values.
func (k Key) Equal(other Key) bool {
	return k.Hash() == other.Hash()
}

// String returns the hash form of this key.
func (k Key) String() string { return k.Hash() }

// MarshalJSON encodes the key as `[name, {params}]`.
func (k Key) MarshalJSON() ([]byte, error) {
	params := k.Params
	if params == nil {
		params = map[string]string{}
	}
	return json.Marshal([]any{k.Name, params})
}

// UnmarshalJSON decodes a key from its `[name, {params}]` form; the parameter
// object is optional.
func (k *Key) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("invalid query key: %w", err)
	}
	if len(parts) == 0 || len(parts) > 2 {
		return errors.New("invalid query key: expected [name] or [name, params]")
	}
	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return fmt.Errorf("invalid query key name: %w", err)
	}
	params := map[string]string{}
	if len(parts) == 2 {
		if err := json.Unmarshal(parts[1], &params); err != nil {
			return fmt.Errorf("invalid query key params: %w", err)
		}
		if params == nil {
			params = map[string]string{}
		}
	}
	k.Name = name
	k.Params = params
	return nil
}
