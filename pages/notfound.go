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

package pages

import (
	"io"

	"github.com/thediveo/ssrserve/query"
)

// NotFound is the page for all paths without a page of their own.
type NotFound struct{}

func (NotFound) Name() string { return "NotFound" }

func (NotFound) Render(w io.Writer, _ *query.Cache) error {
	return templates.ExecuteTemplate(w, "notfound.html", nil)
}
