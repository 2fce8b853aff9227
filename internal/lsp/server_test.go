package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codespice/internal/engine"
)

// sample triggers exactly one diagnostic per rule tag under the harness config
// (defaults plus camelCase naming).
var sample = strings.Join([]string{
	"int my_var;",
	"#define SWAP(a) \\",
	"  a++;",
	"int sum(int a, int b, int c, int d, int e) {",
	"  return 0;",
	"}",
	"// " + strings.Repeat("x", 90),
}, "\n")

type harness struct {
	t      *testing.T
	server *Server
	out    *bytes.Buffer
	dir    string
	nextID int
}

func newHarness(t *testing.T, initOpts any) *harness {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".codespice.json"), []byte(`{"namingConventions":{"variable":"camelCase"}}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out := &bytes.Buffer{}
	h := &harness{
		t:      t,
		server: NewServer(bytes.NewReader(nil), out, ServerOptions{Debounce: time.Hour}),
		out:    out,
		dir:    dir,
	}
	params := map[string]any{"rootUri": pathToURI(dir)}
	if initOpts != nil {
		params["initializationOptions"] = initOpts
	}
	h.request("initialize", params)
	return h
}

func (h *harness) uri(name string) string {
	return pathToURI(filepath.Join(h.dir, name))
}

func (h *harness) notify(method string, params any) {
	h.t.Helper()
	payload, err := json.Marshal(params)
	if err != nil {
		h.t.Fatalf("marshal: %v", err)
	}
	if err := h.server.handleMessage(&rpcMessage{JSONRPC: "2.0", Method: method, Params: payload}); err != nil {
		h.t.Fatalf("%s: %v", method, err)
	}
}

// request sends a request and returns its decoded response.
func (h *harness) request(method string, params any) rpcMessage {
	h.t.Helper()
	h.nextID++
	id := json.RawMessage(strings.TrimSpace(string(mustJSON(h.t, h.nextID))))
	payload := mustJSON(h.t, params)
	if err := h.server.handleMessage(&rpcMessage{JSONRPC: "2.0", ID: id, Method: method, Params: payload}); err != nil {
		h.t.Fatalf("%s: %v", method, err)
	}
	for _, msg := range h.drain() {
		if string(msg.ID) == string(id) {
			return msg
		}
	}
	h.t.Fatalf("no response to %s", method)
	return rpcMessage{}
}

func (h *harness) flush() {
	h.server.stopTimer()
	h.server.runDiagnostics()
}

// drain decodes and consumes every message written so far.
func (h *harness) drain() []rpcMessage {
	h.t.Helper()
	reader := bufio.NewReader(bytes.NewReader(h.out.Bytes()))
	h.out.Reset()
	var msgs []rpcMessage
	for {
		payload, err := readMessage(reader)
		if errors.Is(err, io.EOF) {
			return msgs
		}
		if err != nil {
			h.t.Fatalf("read: %v", err)
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.t.Fatalf("decode: %v", err)
		}
		msgs = append(msgs, msg)
	}
}

func (h *harness) publishes() map[string]publishDiagnosticsParams {
	h.t.Helper()
	got := make(map[string]publishDiagnosticsParams)
	for _, msg := range h.drain() {
		if msg.Method != "textDocument/publishDiagnostics" {
			continue
		}
		var params publishDiagnosticsParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			h.t.Fatalf("decode params: %v", err)
		}
		got[params.URI] = params
	}
	return got
}

func (h *harness) open(name, text string) string {
	uri := h.uri(name)
	h.notify("textDocument/didOpen", didOpenTextDocumentParams{
		TextDocument: textDocumentItem{URI: uri, LanguageID: "c", Version: 1, Text: text},
	})
	return uri
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func codes(list []lspDiagnostic) []string {
	out := make([]string, 0, len(list))
	for _, d := range list {
		out = append(out, d.Code)
	}
	return out
}

func TestInitializeAdvertisesCommands(t *testing.T) {
	h := newHarness(t, nil)
	if h.server.State() != engine.Running {
		t.Fatalf("expected auto start, state=%s", h.server.State())
	}
	h.nextID = 0
	resp := h.request("initialize", map[string]any{})
	var result initializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	cmds := result.Capabilities.ExecuteCommandProvider.Commands
	if len(cmds) != 3 || cmds[0] != CommandStart || cmds[1] != CommandStop {
		t.Fatalf("unexpected commands: %v", cmds)
	}
	if result.ServerInfo.Name != "codespice" || result.Capabilities.TextDocumentSync.Change != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestOpenPublishesDiagnostics(t *testing.T) {
	h := newHarness(t, nil)
	uri := h.open("a.c", sample)
	h.flush()

	got, ok := h.publishes()[uri]
	if !ok {
		t.Fatalf("no diagnostics published for %s", uri)
	}
	if len(got.Diagnostics) != 6 {
		t.Fatalf("expected 6 diagnostics, got %v", codes(got.Diagnostics))
	}
	if got.Version == nil || *got.Version != 1 {
		t.Fatalf("unexpected version: %v", got.Version)
	}
	var uninit *lspDiagnostic
	for i, d := range got.Diagnostics {
		if d.Source != "codespice" || d.Severity != 2 {
			t.Fatalf("unexpected diagnostic: %+v", d)
		}
		if d.Code == "VAR6001" {
			uninit = &got.Diagnostics[i]
		}
	}
	if uninit == nil || len(uninit.RelatedInformation) != 1 {
		t.Fatalf("expected uninitialized diagnostic with a note, got %+v", uninit)
	}
	note := uninit.RelatedInformation[0]
	if note.Message != "declared here" || note.Location.Range.Start.Line != 0 || note.Location.Range.Start.Character != 4 {
		t.Fatalf("unexpected note: %+v", note)
	}
}

func TestUnsupportedDocumentIsIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.open("a.py", sample)
	h.flush()
	if n := len(h.publishes()); n != 0 {
		t.Fatalf("expected no publish, got %d", n)
	}
}

func TestStopClearsAndStartRepublishes(t *testing.T) {
	h := newHarness(t, nil)
	uri := h.open("a.c", sample)
	h.flush()
	h.drain()

	resp := h.request("workspace/executeCommand", executeCommandParams{Command: CommandStop})
	var res commandResult
	if err := json.Unmarshal(resp.Result, &res); err != nil || res.State != "stopped" {
		t.Fatalf("unexpected stop result %s (%v)", resp.Result, err)
	}
	// the clearing publish precedes the response
	h.notify("textDocument/didChange", didChangeTextDocumentParams{
		TextDocument:   versionedTextDocumentIdentifier{URI: uri, Version: 2},
		ContentChanges: []textDocumentContentChangeEvent{{Text: sample + "\n"}},
	})
	h.flush()
	if n := len(h.publishes()); n != 0 {
		t.Fatalf("stopped server published %d documents", n)
	}
	if docs := h.server.store.Documents(); len(docs) != 0 {
		t.Fatalf("store not cleared: %v", docs)
	}

	h.request("workspace/executeCommand", executeCommandParams{Command: CommandStart})
	h.flush()
	got, ok := h.publishes()[uri]
	if !ok || len(got.Diagnostics) != 6 {
		t.Fatalf("expected 6 diagnostics after restart, got %+v", got)
	}
}

func TestStopPublishesEmptyList(t *testing.T) {
	h := newHarness(t, nil)
	uri := h.open("a.c", sample)
	h.flush()
	h.drain()

	h.server.stopScanning()
	got, ok := h.publishes()[uri]
	if !ok || len(got.Diagnostics) != 0 {
		t.Fatalf("expected empty publish, got %+v (ok=%v)", got, ok)
	}
}

func TestAutoStartDisabled(t *testing.T) {
	h := newHarness(t, map[string]any{"autoStart": false})
	if h.server.State() != engine.Stopped {
		t.Fatalf("expected stopped, got %s", h.server.State())
	}
	h.open("a.c", sample)
	h.flush()
	if n := len(h.publishes()); n != 0 {
		t.Fatalf("expected no publish, got %d", n)
	}
	resp := h.request("workspace/executeCommand", executeCommandParams{Command: CommandStatus})
	if !strings.Contains(string(resp.Result), "stopped") {
		t.Fatalf("unexpected status: %s", resp.Result)
	}
}

func TestAppendTagsSurviveEdits(t *testing.T) {
	h := newHarness(t, nil)
	uri := h.open("a.c", sample)
	h.flush()
	h.drain()

	// чистый документ: replace-теги пустеют, append-теги держат прошлое
	h.notify("textDocument/didChange", didChangeTextDocumentParams{
		TextDocument:   versionedTextDocumentIdentifier{URI: uri, Version: 2},
		ContentChanges: []textDocumentContentChangeEvent{{Text: "// a.c\nint okVar = 1;\n"}},
	})
	h.flush()
	got := h.publishes()[uri]
	if len(got.Diagnostics) != 4 {
		t.Fatalf("expected 4 retained diagnostics, got %v", codes(got.Diagnostics))
	}
	for _, code := range codes(got.Diagnostics) {
		if strings.HasPrefix(code, "LIN") || strings.HasPrefix(code, "CMT") {
			t.Fatalf("replace tag %s survived", code)
		}
	}
}

func TestInlineOverridesUnifiedReplace(t *testing.T) {
	h := newHarness(t, nil)
	h.notify("workspace/didChangeConfiguration", didChangeConfigurationParams{
		Settings: mustJSON(t, map[string]any{
			"codespice": map[string]any{
				"config": map[string]any{"engine": map[string]any{"unifiedReplace": true}},
			},
		}),
	})
	uri := h.open("a.c", sample)
	h.flush()
	h.drain()

	h.notify("textDocument/didChange", didChangeTextDocumentParams{
		TextDocument:   versionedTextDocumentIdentifier{URI: uri, Version: 2},
		ContentChanges: []textDocumentContentChangeEvent{{Text: "// a.c\nint okVar = 1;\n"}},
	})
	h.flush()
	if got := h.publishes()[uri]; len(got.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %v", codes(got.Diagnostics))
	}
}

func TestConfigPathSetting(t *testing.T) {
	h := newHarness(t, nil)
	cfgPath := filepath.Join(h.dir, "custom.toml")
	if err := os.WriteFile(cfgPath, []byte("[lineLength]\nmaxLength = 200\n\n[namingConventions]\nvariable = \"camelCase\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	h.notify("workspace/didChangeConfiguration", didChangeConfigurationParams{
		Settings: mustJSON(t, map[string]any{
			"codespice": map[string]any{"configPath": "custom.toml"},
		}),
	})
	uri := h.open("a.c", sample)
	h.flush()
	got := h.publishes()[uri]
	if len(got.Diagnostics) != 5 {
		t.Fatalf("expected 5 diagnostics, got %v", codes(got.Diagnostics))
	}
	for _, code := range codes(got.Diagnostics) {
		if strings.HasPrefix(code, "LIN") {
			t.Fatalf("line length should be relaxed, got %s", code)
		}
	}
}

func TestMaxDiagnosticsSetting(t *testing.T) {
	h := newHarness(t, map[string]any{
		"settings": map[string]any{"codespice": map[string]any{"maxDiagnostics": 2}},
	})
	uri := h.open("a.c", sample)
	h.flush()
	if got := h.publishes()[uri]; len(got.Diagnostics) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(got.Diagnostics))
	}
}

func TestIncrementalChange(t *testing.T) {
	h := newHarness(t, nil)
	uri := h.open("a.c", "int x = 0;\n")
	h.notify("textDocument/didChange", didChangeTextDocumentParams{
		TextDocument: versionedTextDocumentIdentifier{URI: uri, Version: 2},
		ContentChanges: []textDocumentContentChangeEvent{{
			Range: &lspRange{Start: position{Line: 0, Character: 0}, End: position{Line: 0, Character: 0}},
			Text:  "// a.c\n",
		}},
	})
	h.server.mu.Lock()
	text := h.server.docs[uri].text
	version := h.server.docs[uri].version
	h.server.mu.Unlock()
	if text != "// a.c\nint x = 0;\n" || version != 2 {
		t.Fatalf("unexpected buffer %q v%d", text, version)
	}
	h.flush()
	if got := h.publishes()[uri]; len(got.Diagnostics) != 0 {
		t.Fatalf("expected clean document, got %v", codes(got.Diagnostics))
	}
}

func TestDidCloseClearsDiagnostics(t *testing.T) {
	h := newHarness(t, nil)
	uri := h.open("a.c", sample)
	h.flush()
	h.drain()

	h.notify("textDocument/didClose", didCloseTextDocumentParams{TextDocument: textDocumentIdentifier{URI: uri}})
	got, ok := h.publishes()[uri]
	if !ok || len(got.Diagnostics) != 0 {
		t.Fatalf("expected clearing publish, got %+v", got)
	}
	if n := len(h.server.store.Get(uri)); n != 0 {
		t.Fatalf("store still holds %d diagnostics", n)
	}
}

func TestCodeActionsFromFixes(t *testing.T) {
	h := newHarness(t, nil)
	uri := h.open("a.c", sample)
	h.flush()
	h.drain()

	params := codeActionParams{
		TextDocument: textDocumentIdentifier{URI: uri},
		Range:        lspRange{},
	}
	resp := h.request("textDocument/codeAction", params)
	var actions []codeAction
	if err := json.Unmarshal(resp.Result, &actions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	titles := make(map[string]string)
	for _, a := range actions {
		edits := a.Edit.Changes[uri]
		if a.Kind != "quickfix" || len(edits) != 1 {
			t.Fatalf("unexpected action: %+v", a)
		}
		titles[a.Title] = edits[0].NewText
	}
	if titles["insert comment header"] != "// a.c\n" {
		t.Fatalf("missing header fix: %v", titles)
	}
	if titles["initialize 'my_var' with zero"] != " = 0" {
		t.Fatalf("missing initializer fix: %v", titles)
	}

	// buffer moved past the analyzed snapshot
	h.notify("textDocument/didChange", didChangeTextDocumentParams{
		TextDocument:   versionedTextDocumentIdentifier{URI: uri, Version: 2},
		ContentChanges: []textDocumentContentChangeEvent{{Text: "int y;\n"}},
	})
	resp = h.request("textDocument/codeAction", params)
	if string(resp.Result) != "[]" {
		t.Fatalf("expected no actions for stale snapshot, got %s", resp.Result)
	}
}

func TestUnknownRequestAndCommand(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.request("textDocument/hover", map[string]any{})
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", resp)
	}
	resp = h.request("workspace/executeCommand", executeCommandParams{Command: "codespice.nope"})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid params, got %+v", resp)
	}
}

func TestRunShutdownExit(t *testing.T) {
	var in bytes.Buffer
	for _, raw := range []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"initialized","params":{}}`,
		`{"jsonrpc":"2.0","id":2,"method":"shutdown"}`,
		`{"jsonrpc":"2.0","id":3,"method":"textDocument/codeAction","params":{}}`,
		`{"jsonrpc":"2.0","method":"exit"}`,
	} {
		if err := writeMessage(&in, []byte(raw)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	var out bytes.Buffer
	err := NewServer(&in, &out, ServerOptions{}).Run(context.Background())
	if !errors.Is(err, ErrExit) {
		t.Fatalf("expected ErrExit, got %v", err)
	}
	if n := strings.Count(out.String(), "Content-Length"); n != 3 {
		t.Fatalf("expected 3 responses, got %d", n)
	}
	if !strings.Contains(out.String(), "server is shutting down") {
		t.Fatalf("request after shutdown was not rejected: %s", out.String())
	}
}

func TestRunExitWithoutShutdown(t *testing.T) {
	var in bytes.Buffer
	if err := writeMessage(&in, []byte(`{"jsonrpc":"2.0","method":"exit"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := NewServer(&in, io.Discard, ServerOptions{}).Run(context.Background())
	if !errors.Is(err, ErrExitWithoutShutdown) {
		t.Fatalf("expected ErrExitWithoutShutdown, got %v", err)
	}
	if err := NewServer(bytes.NewReader(nil), io.Discard, ServerOptions{}).Run(context.Background()); err != nil {
		t.Fatalf("EOF should end cleanly, got %v", err)
	}
}

func TestMalformedNotificationIsLogged(t *testing.T) {
	var out, logs bytes.Buffer
	s := NewServer(bytes.NewReader(nil), &out, ServerOptions{Log: &logs})
	msg := &rpcMessage{JSONRPC: "2.0", Method: "textDocument/didOpen", Params: json.RawMessage(`{"textDocument":7}`)}
	if err := s.handleMessage(msg); err != nil {
		t.Fatalf("didOpen: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("notification must not get a reply, got %q", out.String())
	}
	if !strings.Contains(logs.String(), "textDocument/didOpen: invalid params") {
		t.Fatalf("log = %q", logs.String())
	}
}
