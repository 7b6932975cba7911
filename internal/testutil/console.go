// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"k8s.io/apimachinery/pkg/api/resource"

	"tenantlog/internal/constants"
	"tenantlog/internal/tenant"
)

// Console operations that can be made to fail.
const (
	OpGet     = "get"
	OpUpdate  = "update"
	OpEnable  = "enable"
	OpDisable = "disable"
)

// Request is one call received by a FakeConsole.
type Request struct {
	Method string
	Path   string
	Body   []byte
	Token  string
}

type failure struct {
	status int
	body   tenant.ErrorResponse
}

// FakeConsole is an in-memory console API served over httptest. Memory
// requests are reported in bytes and disk capacity as a JSON number, as the
// real console does.
type FakeConsole struct {
	Server *httptest.Server

	mu       sync.Mutex
	token    string
	tenants  map[tenant.Ref]*tenant.LogSettings
	requests []Request
	failures map[string]failure
}

// NewFakeConsole starts a fake console. When token is not empty every
// request must carry it as the session cookie.
func NewFakeConsole(token string) *FakeConsole {
	f := &FakeConsole{
		token:    token,
		tenants:  make(map[tenant.Ref]*tenant.LogSettings),
		failures: make(map[string]failure),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/namespaces/{ns}/tenants/{name}/log", f.handle(OpGet, f.getLog))
	mux.HandleFunc("PUT /api/v1/namespaces/{ns}/tenants/{name}/log", f.handle(OpUpdate, f.putLog))
	mux.HandleFunc("POST /api/v1/namespaces/{ns}/tenants/{name}/enable-logging", f.handle(OpEnable, f.enable))
	mux.HandleFunc("POST /api/v1/namespaces/{ns}/tenants/{name}/disable-logging", f.handle(OpDisable, f.disable))
	f.Server = httptest.NewServer(mux)
	return f
}

// URL returns the base URL of the fake console.
func (f *FakeConsole) URL() string {
	return f.Server.URL
}

// Close shuts the server down.
func (f *FakeConsole) Close() {
	f.Server.Close()
}

// SetTenant stores settings for ref, replacing any previous value.
func (f *FakeConsole) SetTenant(ref tenant.Ref, settings tenant.LogSettings) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := settings
	f.tenants[ref] = &s
}

// Tenant returns a copy of the settings stored for ref.
func (f *FakeConsole) Tenant(ref tenant.Ref) (tenant.LogSettings, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.tenants[ref]
	if !ok {
		return tenant.LogSettings{}, false
	}
	return *s, true
}

// Fail makes every later call of op answer with status and body until
// ClearFailures is called.
func (f *FakeConsole) Fail(op string, status int, body tenant.ErrorResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = failure{status: status, body: body}
}

// ClearFailures removes all injected failures.
func (f *FakeConsole) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]failure)
}

// Requests returns the calls received so far.
func (f *FakeConsole) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

// CountRequests returns how many calls used method on a path.
func (f *FakeConsole) CountRequests(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, ref tenant.Ref, s *tenant.LogSettings, body []byte)

func (f *FakeConsole) handle(op string, next handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		defer f.mu.Unlock()

		req := Request{Method: r.Method, Path: r.URL.Path, Body: body}
		if c, err := r.Cookie(constants.SessionCookieName); err == nil {
			req.Token = c.Value
		}
		f.requests = append(f.requests, req)

		if f.token != "" && req.Token != f.token {
			writeJSON(w, http.StatusUnauthorized, tenant.ErrorResponse{Code: 401, ErrorMessage: "invalid session"})
			return
		}
		if fail, ok := f.failures[op]; ok {
			writeJSON(w, fail.status, fail.body)
			return
		}

		ref := tenant.Ref{Namespace: r.PathValue("ns"), Name: r.PathValue("name")}
		s, ok := f.tenants[ref]
		if !ok {
			writeJSON(w, http.StatusNotFound, tenant.ErrorResponse{
				Code:          404,
				ErrorMessage:  "Tenant not found",
				DetailedError: "tenants.minio.min.io \"" + ref.Name + "\" not found",
			})
			return
		}
		next(w, r, ref, s, body)
	}
}

func (f *FakeConsole) getLog(w http.ResponseWriter, _ *http.Request, _ tenant.Ref, s *tenant.LogSettings, _ []byte) {
	out := *s
	out.Enabled = s.IsEnabled()
	out.MemRequest = toBytes(s.MemRequest)
	out.DBMemRequest = toBytes(s.DBMemRequest)

	data, err := json.Marshal(out)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, tenant.ErrorResponse{ErrorMessage: err.Error()})
		return
	}
	var m map[string]interface{}
	_ = json.Unmarshal(data, &m)
	if n, err := strconv.ParseInt(string(s.DiskCapacityGB), 10, 64); err == nil {
		m["diskCapacityGB"] = n
	} else {
		delete(m, "diskCapacityGB")
	}
	writeJSON(w, http.StatusOK, m)
}

func (f *FakeConsole) putLog(w http.ResponseWriter, _ *http.Request, ref tenant.Ref, s *tenant.LogSettings, body []byte) {
	var in tenant.LogSettings
	if err := json.Unmarshal(body, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, tenant.ErrorResponse{
			Code: 400, ErrorMessage: "invalid request body", DetailedError: err.Error(),
		})
		return
	}
	in.Enabled = s.IsEnabled()
	in.Disabled = s.Disabled
	f.tenants[ref] = &in
	w.WriteHeader(http.StatusOK)
}

func (f *FakeConsole) enable(w http.ResponseWriter, _ *http.Request, _ tenant.Ref, s *tenant.LogSettings, _ []byte) {
	if !s.IsEnabled() && s.Image == "" {
		s.Image = constants.DefaultLogImage
		s.DBImage = constants.DefaultLogDBImage
		s.DBInitImage = constants.DefaultLogDBInitImage
		s.DiskCapacityGB = tenant.NumericString(strconv.Itoa(constants.DefaultLogDiskCapacityGB))
	}
	disabled := false
	s.Enabled = true
	s.Disabled = &disabled
	w.WriteHeader(http.StatusOK)
}

func (f *FakeConsole) disable(w http.ResponseWriter, _ *http.Request, ref tenant.Ref, _ *tenant.LogSettings, _ []byte) {
	disabled := true
	f.tenants[ref] = &tenant.LogSettings{Disabled: &disabled}
	w.WriteHeader(http.StatusOK)
}

// toBytes reports a memory quantity in bytes. Values that do not parse are
// passed through.
func toBytes(v string) string {
	if v == "" {
		return ""
	}
	q, err := resource.ParseQuantity(v)
	if err != nil {
		return v
	}
	return strconv.FormatInt(q.Value(), 10)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
