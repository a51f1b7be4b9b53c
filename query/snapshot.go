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

import "encoding/json"

// Snapshot is the serializable ("dehydrated") form of a cache's successful
// entries at a particular point in time. A snapshot is created once per server
// render and consumed exactly once when hydrating a client cache.
type Snapshot struct {
	Queries []DehydratedQuery `json:"queries"`
}

// DehydratedQuery is a single cache entry inside a Snapshot.
type DehydratedQuery struct {
	QueryKey  Key        `json:"queryKey"`
	QueryHash string     `json:"queryHash"`
	State     QueryState `json:"state"`
}

// QueryState carries the data of a dehydrated query, together with its status
// and the time of its last update in Unix milliseconds.
type QueryState struct {
	Data          json.RawMessage `json:"data"`
	Status        Status          `json:"status"`
	DataUpdatedAt int64           `json:"dataUpdatedAt"`
}

// Len returns the number of queries in this snapshot.
func (s Snapshot) Len() int { return len(s.Queries) }

// Contains returns true if this snapshot carries a query for the specified key.
func (s Snapshot) Contains(key Key) bool {
	hash := key.Hash()
	for _, q := range s.Queries {
		if q.QueryKey.Hash() == hash {
			return true
		}
	}
	return false
}
