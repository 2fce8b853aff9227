package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codespice/internal/driver"
	"codespice/internal/engine"
	"codespice/internal/observ"
	"codespice/internal/version"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

const (
	CommandStart  = "codespice.start"
	CommandStop   = "codespice.stop"
	CommandStatus = "codespice.status"
)

const (
	defaultDebounce       = 300 * time.Millisecond
	defaultMaxDiagnostics = 100
)

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	Debounce       time.Duration
	MaxDiagnostics int
	// ConfigPath is used when the client does not send codespice.configPath.
	ConfigPath string
	Timer      *observ.Timer
	Trace      bool
	// Log receives server diagnostics; stderr when nil.
	Log io.Writer
}

// Server handles stdio JSON-RPC for the codespice language server.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	log    io.Writer
	sendMu sync.Mutex
	mu     sync.Mutex
	runMu  sync.Mutex

	docs      map[string]*document
	pending   map[string]struct{}
	published map[string]struct{}

	eng   *engine.Engine
	store *engine.Store
	cache *driver.MemCache

	workspaceRoot     string
	shutdownRequested bool
	debounce          time.Duration
	debounceTimer     *time.Timer
	maxDiagnostics    int
	settings          settings
	baseCtx           context.Context
	traceLSP          bool

	// idle is signalled after every debounced analysis round; tests wait on it.
	idle chan struct{}
}

type handlerFunc func(s *Server, msg *rpcMessage) error

// handlers maps LSP methods to their handlers. Methods missing here get
// MethodNotFound when sent as requests and are dropped as notifications.
var handlers = map[string]handlerFunc{
	"initialize":                       (*Server).handleInitialize,
	"initialized":                      func(*Server, *rpcMessage) error { return nil },
	"shutdown":                         (*Server).handleShutdown,
	"workspace/didChangeConfiguration": (*Server).handleDidChangeConfiguration,
	"workspace/executeCommand":         (*Server).handleExecuteCommand,
	"textDocument/didOpen":             (*Server).handleDidOpen,
	"textDocument/didChange":           (*Server).handleDidChange,
	"textDocument/didSave":             (*Server).handleDidSave,
	"textDocument/didClose":            (*Server).handleDidClose,
	"textDocument/codeAction":          (*Server).handleCodeAction,
}

// NewServer constructs a new LSP server. The engine starts Stopped and
// is switched on during initialize unless the client opts out.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	s := &Server{
		in:             bufio.NewReader(in),
		out:            bufio.NewWriter(out),
		log:            opts.Log,
		docs:           make(map[string]*document),
		pending:        make(map[string]struct{}),
		published:      make(map[string]struct{}),
		eng:            engine.New(engine.Options{Timer: opts.Timer}),
		store:          engine.NewStore(),
		cache:          driver.NewMemCache(16),
		debounce:       opts.Debounce,
		maxDiagnostics: opts.MaxDiagnostics,
		settings:       settings{configPath: opts.ConfigPath},
		baseCtx:        context.Background(),
		traceLSP:       opts.Trace,
		idle:           make(chan struct{}, 1),
	}
	if s.log == nil {
		s.log = os.Stderr
	}
	if s.debounce <= 0 {
		s.debounce = defaultDebounce
	}
	if s.maxDiagnostics <= 0 {
		s.maxDiagnostics = defaultMaxDiagnostics
	}
	return s
}

// Run serves LSP requests until exit or EOF.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	defer s.stopTimer()
	for {
		msg, err := s.next()
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		case msg == nil:
			continue
		}
		if err := s.handleMessage(msg); err != nil {
			return err
		}
	}
}

// next reads one frame. Unparseable payloads and client responses
// (no method) yield a nil message.
func (s *Server) next() (*rpcMessage, error) {
	payload, err := readMessage(s.in)
	if err != nil {
		return nil, err
	}
	var msg rpcMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.logf("failed to parse message: %v", err)
		return nil, nil
	}
	if msg.Method == "" {
		return nil, nil
	}
	return &msg, nil
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	isRequest := len(msg.ID) > 0
	if msg.Method == "exit" {
		if s.shuttingDown() {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	}
	if s.shuttingDown() {
		if isRequest {
			return s.sendError(msg.ID, codeInvalidRequest, "server is shutting down")
		}
		return nil
	}
	h, ok := handlers[msg.Method]
	if !ok {
		if isRequest {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
	return h(s, msg)
}

func (s *Server) shuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdownRequested
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	root := workspaceRootOf(params)
	s.mu.Lock()
	s.workspaceRoot = root
	s.mu.Unlock()

	autoStart := true
	if opts := params.InitializationOptions; opts != nil {
		if opts.AutoStart != nil {
			autoStart = *opts.AutoStart
		}
		s.applySettings(opts.Settings)
	}
	if autoStart {
		s.eng.Start()
	}

	return s.sendResponse(msg.ID, initializeResult{
		Capabilities: serverCapabilities{
			// 2 = incremental sync
			TextDocumentSync: textDocumentSyncOptions{OpenClose: true, Change: 2, Save: saveOptions{IncludeText: true}},
			ExecuteCommandProvider: &executeCommandOptions{
				Commands: []string{CommandStart, CommandStop, CommandStatus},
			},
			CodeActionProvider: &codeActionOptions{CodeActionKinds: []string{"quickfix"}},
		},
		ServerInfo: serverInfo{Name: "codespice", Version: version.Version},
	})
}

// workspaceRootOf picks rootUri, then rootPath, then the first workspace
// folder, and makes the result absolute.
func workspaceRootOf(params initializeParams) string {
	root, _ := docPath(params.RootURI)
	if root == "" {
		root = params.RootPath
	}
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root, _ = docPath(params.WorkspaceFolders[0].URI)
	}
	if root == "" {
		return ""
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	s.stopTimer()
	s.clearPublishedDiagnostics()
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) logf(format string, args ...any) {
	fmt.Fprintf(s.log, "lsp: "+format+"\n", args...)
}

func (s *Server) stopTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
}
