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

/*
Package httptest provides HTTP test helpers: a response recorder failing tests
on superfluous response.WriteHeader calls, and access to recorded HTML
responses as goquery documents.
*/
package httptest

import (
	"bytes"
	"encoding/json"
	stdhttptest "net/http/httptest"

	"github.com/PuerkitoBio/goquery"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// WrappedResponseRecorder wraps httptest.ResponseRecorder in order to fail
// tests doing superfluous WriteHeader calls.
type WrappedResponseRecorder struct {
	*stdhttptest.ResponseRecorder
	wroteHeader bool
}

// NewRecorder returns a new test response recorder detecting superfluous
// WriteHeader calls.
func NewRecorder() *WrappedResponseRecorder {
	return &WrappedResponseRecorder{
		ResponseRecorder: stdhttptest.NewRecorder(),
	}
}

// WriteHeader implements http.ResponseWriter, failing tests that do superfluous
// WriteHeader calls.
func (w *WrappedResponseRecorder) WriteHeader(code int) {
	GinkgoHelper()
	Expect(w.wroteHeader).To(BeFalse(), "superfluous response.WriteHeader call")
	w.wroteHeader = true
	w.ResponseRecorder.WriteHeader(code)
}

// Document parses the recorded response body as an HTML document, failing the
// test if it is malformed. The recorded body is left untouched.
func (w *WrappedResponseRecorder) Document() *goquery.Document {
	GinkgoHelper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(w.Body.Bytes()))
	Expect(err).NotTo(HaveOccurred(), "malformed HTML response")
	return doc
}

// DecodeJSON decodes the recorded response body into v, failing the test if
// the body isn't valid JSON.
func (w *WrappedResponseRecorder) DecodeJSON(v any) {
	GinkgoHelper()
	Expect(json.Unmarshal(w.Body.Bytes(), v)).To(Succeed(), "malformed JSON response")
}
