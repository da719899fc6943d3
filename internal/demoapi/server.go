// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package demoapi is an in-memory stand-in for the two OSF endpoints the
// deletion wizard talks to: the v1 tree endpoint and the v2 bulk nodes endpoint.
package demoapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/monadic/nodes-delete/pkg/nodes"
	"github.com/monadic/nodes-delete/pkg/osf"
)

// DefaultBulkLimit matches the production bulk operation limit.
const DefaultBulkLimit = 100

// Metrics counts traffic seen by the server.
type Metrics struct {
	TreeRequests *prometheus.CounterVec
	BulkRequests *prometheus.CounterVec
	NodesPatched prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TreeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodesdelete_demo_tree_requests_total",
			Help: "Tree fetches served, by outcome",
		}, []string{"outcome"}),
		BulkRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodesdelete_demo_bulk_requests_total",
			Help: "Bulk node requests received, by outcome",
		}, []string{"outcome"}),
		NodesPatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodesdelete_demo_nodes_patched_total",
			Help: "Nodes whose visibility was changed",
		}),
	}
	reg.MustRegister(m.TreeRequests, m.BulkRequests, m.NodesPatched)
	return m
}

type failure struct {
	status int
	detail string
}

// Server holds one node hierarchy and applies bulk visibility changes to it.
type Server struct {
	mu        sync.Mutex
	root      *nodes.NodeTree
	index     map[nodes.NodeID]*nodes.NodeTree
	token     string
	bulkLimit int
	failNext  *failure
	requests  []osf.BulkRequest

	registry *prometheus.Registry
	metrics  *Metrics
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires bulk requests to carry this bearer token.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithBulkLimit changes the maximum number of entries per bulk request.
func WithBulkLimit(n int) Option {
	return func(s *Server) { s.bulkLimit = n }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a server serving a copy of tree.
func New(tree *nodes.NodeTree, opts ...Option) (*Server, error) {
	if tree == nil {
		return nil, nodes.ErrNilTree
	}
	s := &Server{
		root:      cloneTree(tree),
		index:     make(map[nodes.NodeID]*nodes.NodeTree),
		bulkLimit: DefaultBulkLimit,
		registry:  prometheus.NewRegistry(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.reindex(); err != nil {
		return nil, err
	}
	s.metrics = newMetrics(s.registry)
	return s, nil
}

// Metrics returns the server's counters.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler returns the HTTP routes. The v2 API lives under /v2/ and the web
// app's v1 API under /api/v1/, so both base URLs point at the same host.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/project/{id}/tree/", s.handleTree)
	r.Delete("/v2/nodes/", s.handleBulk)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

// FailNext makes the next bulk request fail with the given status and detail.
func (s *Server) FailNext(status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = &failure{status: status, detail: detail}
}

// Node returns the current server-side record for id.
func (s *Server) Node(id nodes.NodeID) (nodes.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.index[id]
	if !ok {
		return nodes.Node{}, false
	}
	return t.Node, true
}

// Requests returns every bulk body accepted so far.
func (s *Server) Requests() []osf.BulkRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]osf.BulkRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	id := nodes.NodeID(chi.URLParam(r, "id"))

	s.mu.Lock()
	t, ok := s.index[id]
	var body []*nodes.NodeTree
	if ok {
		body = []*nodes.NodeTree{cloneTree(t)}
	}
	s.mu.Unlock()

	if !ok {
		s.metrics.TreeRequests.WithLabelValues("not_found").Inc()
		writeErrors(w, http.StatusNotFound, "Node not found.")
		return
	}
	s.metrics.TreeRequests.WithLabelValues("ok").Inc()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	status, detail, applied := s.applyBulk(r)
	if status >= 300 {
		s.metrics.BulkRequests.WithLabelValues("rejected").Inc()
		s.logger.Warn("bulk request rejected", "status", status, "detail", detail)
		writeErrors(w, status, detail)
		return
	}
	s.metrics.BulkRequests.WithLabelValues("ok").Inc()
	s.metrics.NodesPatched.Add(float64(applied))
	s.logger.Info("bulk request applied", "nodes", applied)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) applyBulk(r *http.Request) (int, string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f := s.failNext; f != nil {
		s.failNext = nil
		return f.status, f.detail, 0
	}
	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		return http.StatusUnauthorized, "Authentication credentials were not provided.", 0
	}
	if !strings.Contains(r.Header.Get("Content-Type"), "ext=bulk") {
		return http.StatusUnsupportedMediaType, "Bulk requests must use the bulk extension media type.", 0
	}

	var req osf.BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return http.StatusBadRequest, "Malformed request.", 0
	}
	if len(req.Data) == 0 {
		return http.StatusBadRequest, "Request must contain array of resource identifier objects.", 0
	}
	if len(req.Data) > s.bulkLimit {
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("Bulk operation limit is %d, got %d.", s.bulkLimit, len(req.Data)), 0
	}

	// Validate against a working copy so a rejected request changes nothing.
	public := make(map[nodes.NodeID]bool, len(s.index))
	for id, t := range s.index {
		public[id] = t.Node.IsPublic
	}
	hideAt := make(map[nodes.NodeID]int, len(req.Data))
	for i, p := range req.Data {
		if !p.Attributes.Public {
			hideAt[p.ID] = i
		}
	}
	for i, p := range req.Data {
		if p.Type != osf.NodesType {
			return http.StatusConflict, fmt.Sprintf("Resource type %q is not %q.", p.Type, osf.NodesType), 0
		}
		t, ok := s.index[p.ID]
		if !ok {
			return http.StatusNotFound, fmt.Sprintf("Node %s not found.", p.ID), 0
		}
		if !p.Attributes.Public {
			// A component hidden by the same request must be hidden first.
			for _, child := range t.Children {
				if pos, pending := hideAt[child.Node.ID]; pending && pos > i && public[child.Node.ID] {
					return http.StatusBadRequest, fmt.Sprintf("Cannot make %q private while its component %q is public.", t.Node.Title, child.Node.Title), 0
				}
			}
		}
		public[p.ID] = p.Attributes.Public
	}

	for _, p := range req.Data {
		s.index[p.ID].Node.IsPublic = p.Attributes.Public
	}
	s.requests = append(s.requests, req)
	return http.StatusNoContent, "", len(req.Data)
}

func (s *Server) reindex() error {
	stack := []*nodes.NodeTree{s.root}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if t == nil {
			continue
		}
		if _, dup := s.index[t.Node.ID]; dup {
			return fmt.Errorf("%w: %s", nodes.ErrDuplicateID, t.Node.ID)
		}
		s.index[t.Node.ID] = t
		stack = append(stack, t.Children...)
	}
	return nil
}

func cloneTree(t *nodes.NodeTree) *nodes.NodeTree {
	if t == nil {
		return nil
	}
	c := &nodes.NodeTree{Node: t.Node, Children: make([]*nodes.NodeTree, 0, len(t.Children))}
	for _, child := range t.Children {
		c.Children = append(c.Children, cloneTree(child))
	}
	return c
}

func writeErrors(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/vnd.api+json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(osf.ErrorDocument{
		Errors: []osf.ErrorObject{{Status: fmt.Sprint(status), Detail: detail}},
	})
}
