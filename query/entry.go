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
	"time"
)

// Status of a query cache entry.
type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusError
)

var statusNames = map[Status]string{
	StatusPending: "pending",
	StatusSuccess: "success",
	StatusError:   "error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalJSON encodes the status in its textual form.
func (s Status) MarshalJSON() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid query status %d", int(s))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a textual status.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for status, n := range statusNames {
		if n == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("invalid query status %q", name)
}

// CacheEntry associates a query key with its cached value and status. Entries
// are owned by exactly one Cache.
type CacheEntry struct {
	Key       Key
	Value     any // either a native value or, when hydrated, a json.RawMessage.
	Status    Status
	Err       error
	CreatedAt time.Time
	UpdatedAt time.Time

	done chan struct{} // closed when a pending entry settles.
}

func (e *CacheEntry) result() Result {
	return Result{Status: e.Status, Value: e.Value, Err: e.Err}
}

// Result of reading a query from the cache.
type Result struct {
	Status Status
	Value  any
	Err    error
}

// ErrNoValue is returned by As when there is no value to convert.
var ErrNoValue = errors.New("query has no value")

// As returns the value v as type T. The value either already is a T, as is the
// case for values stored by loaders, or it is a json.RawMessage as is the case
// for hydrated values, which then gets decoded into a T.
func As[T any](v any) (T, error) {
	var zero T
	switch val := v.(type) {
	case nil:
		return zero, ErrNoValue
	case T:
		return val, nil
	case json.RawMessage:
		var t T
		if err := json.Unmarshal(val, &t); err != nil {
			return zero, fmt.Errorf("cannot decode query value: %w", err)
		}
		return t, nil
	}
	return zero, fmt.Errorf("query value of type %T is not a %T", v, zero)
}
