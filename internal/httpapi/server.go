package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mbbill/samply-for-ai/internal/analysis"
	"github.com/mbbill/samply-for-ai/internal/config"
	"github.com/mbbill/samply-for-ai/internal/disasm"
	"github.com/mbbill/samply-for-ai/internal/profile"
)

// SymbolResolver proxies the Mozilla symbolication v5 and source-query
// endpoints to an external symbol server. samply's core doesn't implement
// symbol resolution itself (§4.F delegates it to a collaborator); when none
// is configured, those two endpoints answer with a structured error.
type SymbolResolver interface {
	Symbolicate(body []byte) ([]byte, error)
	Source(body []byte) ([]byte, error)
}

// Server is the HTTP façade described in §4.F / §6: a shared immutable
// reference to the decoded profile behind a randomly generated token path
// prefix, with every query response wrapped in a JSON envelope.
type Server struct {
	profilePath string
	token       string
	cfg         config.Config
	model       *profile.Profile
	disasm      *disasm.Service
	resolver    SymbolResolver
	logger      zerolog.Logger
	httpServer  *http.Server
}

// Options configures a new Server.
type Options struct {
	ProfilePath string
	Token       string
	Config      config.Config
	Model       *profile.Profile
	Resolver    SymbolResolver
	Logger      zerolog.Logger
}

// New builds the façade's handler chain and underlying http.Server, but
// does not start listening.
func New(opts Options) *Server {
	logger := opts.Logger.With().Str("component", "httpapi").Logger()

	s := &Server{
		profilePath: opts.ProfilePath,
		token:       opts.Token,
		cfg:         opts.Config,
		model:       opts.Model,
		disasm:      disasm.NewService(opts.Model),
		resolver:    opts.Resolver,
		logger:      logger,
	}

	mux := http.NewServeMux()
	prefix := "/" + opts.Token
	mux.HandleFunc("/", s.handleLanding)
	mux.HandleFunc(prefix+"/profile.json", s.handleProfileJSON)
	mux.HandleFunc(prefix+"/symbolicate/v5", s.handleSymbolicate)
	mux.HandleFunc(prefix+"/source/v1", s.handleSource)
	mux.HandleFunc(prefix+"/query/hotspots", s.handleHotspots)
	mux.HandleFunc(prefix+"/query/callers", s.handleCallers)
	mux.HandleFunc(prefix+"/query/callees", s.handleCallees)
	mux.HandleFunc(prefix+"/query/summary", s.handleSummary)
	mux.HandleFunc(prefix+"/query/asm", s.handleAsm)
	mux.HandleFunc(prefix+"/query/drilldown", s.handleDrilldown)

	handler := withRequestLog(logger, withCORS(opts.Config.CORSOrigin, mux))

	addr := fmt.Sprintf("%s:%d", opts.Config.Host, opts.Config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Start serves the façade in a background goroutine.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("starting samply server")
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("server error")
		}
	}()
	return nil
}

// Stop gracefully shuts down the façade.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the server's bound address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// URL returns the base URL clients should use, including the token prefix.
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s/%s", s.httpServer.Addr, s.token)
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html><html><head><title>samply</title></head>
<body><h1>samply analysis server</h1><p>Use the query CLI or a token-prefixed URL to reach this profile.</p></body></html>`)
}

func (s *Server) handleProfileJSON(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.profilePath)
	if err != nil {
		writeError(w, fmt.Sprintf("open profile file: %v", err))
		return
	}
	defer f.Close()

	if hasGzSuffix(s.profilePath) {
		w.Header().Set("Content-Encoding", "gzip")
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.Copy(w, f)
}

func (s *Server) handleSymbolicate(w http.ResponseWriter, r *http.Request) {
	s.proxyToResolver(w, r, func(body []byte) ([]byte, error) { return s.resolver.Symbolicate(body) })
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	s.proxyToResolver(w, r, func(body []byte) ([]byte, error) { return s.resolver.Source(body) })
}

func (s *Server) proxyToResolver(w http.ResponseWriter, r *http.Request, call func([]byte) ([]byte, error)) {
	if s.resolver == nil {
		writeError(w, "no symbol resolver configured")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, fmt.Sprintf("read request body: %v", err))
		return
	}
	resp, err := call(body)
	if err != nil {
		writeError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(resp)
}

func (s *Server) handleHotspots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := analysis.HotspotsOptions{
		Limit:            intParam(q, "limit", s.cfg.DefaultLimit),
		ThreadFilter:     q.Get("thread"),
		IncludeLines:     boolParam(q, "include_lines"),
		IncludeAddresses: boolParam(q, "include_addresses"),
	}
	entries := analysis.Hotspots(s.model, opts)
	writeSuccess(w, "hotspots", entries)
}

func (s *Server) handleCallers(w http.ResponseWriter, r *http.Request) {
	s.handleTree(w, r, "callers", analysis.Callers)
}

func (s *Server) handleCallees(w http.ResponseWriter, r *http.Request) {
	s.handleTree(w, r, "callees", analysis.Callees)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request, query string, expand func(*analysis.Aggregation, string, int, int) []analysis.TreeNode) {
	q := r.URL.Query()
	fn := q.Get("function")
	if fn == "" {
		writeError(w, "Missing 'function' parameter")
		return
	}
	depth := intParam(q, "depth", s.cfg.DefaultDepth)
	limit := intParam(q, "limit", s.cfg.DefaultLimit)

	agg := analysis.Aggregate(s.model, "")
	nodes := expand(agg, fn, depth, limit)
	writeSuccess(w, query, nodes)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, "summary", analysis.BuildSummary(s.model))
}

func (s *Server) handleAsm(w http.ResponseWriter, r *http.Request) {
	fn := r.URL.Query().Get("function")
	if fn == "" {
		writeError(w, "Missing 'function' parameter")
		return
	}
	result := s.disasm.Disassemble(fn, "")
	writeSuccess(w, "asm", result)
}

func (s *Server) handleDrilldown(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fn := q.Get("function")
	if fn == "" {
		writeError(w, "Missing 'function' parameter")
		return
	}
	opts := analysis.DrilldownOptions{
		Pattern:              fn,
		MaxDepth:             intParam(q, "depth", s.cfg.DrilldownDepth),
		SelfPercentThreshold: floatParam(q, "threshold", s.cfg.Threshold),
	}
	result := analysis.Drilldown(s.model, opts)
	writeSuccess(w, "drilldown", result)
}

func intParam(q map[string][]string, key string, def int) int {
	vals, ok := q[key]
	if !ok || len(vals) == 0 {
		return def
	}
	n, err := strconv.Atoi(vals[0])
	if err != nil {
		return def
	}
	return n
}

func floatParam(q map[string][]string, key string, def float64) float64 {
	vals, ok := q[key]
	if !ok || len(vals) == 0 {
		return def
	}
	f, err := strconv.ParseFloat(vals[0], 64)
	if err != nil {
		return def
	}
	return f
}

func boolParam(q map[string][]string, key string) bool {
	vals, ok := q[key]
	if !ok || len(vals) == 0 {
		return false
	}
	b, _ := strconv.ParseBool(vals[0])
	return b
}

func hasGzSuffix(path string) bool {
	return len(path) > 3 && path[len(path)-3:] == ".gz"
}
