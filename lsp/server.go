// Package lsp implements a Language Server Protocol server for .ent files.
package lsp

import (
	"context"
	"errors"
	"sync"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/entcheck"
	"github.com/rlch/entcheck/analysis"
	"github.com/rlch/entcheck/workspace"
)

// Server implements the LSP Server interface for entcheck.
//
// Every change re-analyzes the whole compilation unit: the .ent files of
// the workspace with open documents laid over them. Analysis runs behind
// a mutex, one pass at a time.
type Server struct {
	client protocol.Client
	logger *zap.Logger

	// Document state
	mu        sync.RWMutex
	documents map[protocol.DocumentURI]*Document
	result    *analysis.Result
	sources   map[string][]byte
	published map[string]bool

	// analyzeMu serializes analysis passes.
	analyzeMu sync.Mutex
	analyzer  *analysis.Analyzer
	loader    *workspace.Loader

	// Server state
	initialized   bool
	shutdown      bool
	workspaceRoot string
}

// Document represents an open document in the server.
type Document struct {
	URI     protocol.DocumentURI
	Version int32
	Content string
}

// NewServer creates a new LSP server.
func NewServer(client protocol.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		client:    client,
		logger:    logger,
		documents: make(map[protocol.DocumentURI]*Document),
		result:    &analysis.Result{},
		published: make(map[string]bool),
		analyzer:  analysis.NewAnalyzer(logger, nil),
		loader:    workspace.NewLoader(logger, nil),
	}
}

// Initialize handles the initialize request.
func (s *Server) Initialize(_ context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	s.logger.Info("Initialize", zap.String("rootURI", string(params.RootURI)))

	switch {
	case params.RootURI != "":
		s.workspaceRoot = URIToPath(params.RootURI)
	case params.RootPath != "":
		s.workspaceRoot = params.RootPath
	}

	if s.workspaceRoot != "" {
		s.configure(s.workspaceRoot)
		s.logger.Info("Workspace root", zap.String("root", s.workspaceRoot))
	}

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			// Full document sync - client sends entire content on change
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			HoverProvider:      true,
			DefinitionProvider: true,
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{"@", ":"},
				ResolveProvider:   false,
			},
			DocumentHighlightProvider: true,
			ReferencesProvider:        true,
			RenameProvider: &protocol.RenameOptions{
				PrepareProvider: true,
			},
			// Document symbol support for outline view
			DocumentSymbolProvider: true,
			// Code actions (quick fixes)
			CodeActionProvider: &protocol.CodeActionOptions{
				CodeActionKinds: []protocol.CodeActionKind{
					protocol.QuickFix,
				},
			},
			WorkspaceSymbolProvider:    true,
			FoldingRangeProvider:       true,
			DocumentFormattingProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "entcheck-lsp",
			Version: "0.1.0",
		},
	}, nil
}

// configure loads the workspace's .entcheck.yaml, if any.
func (s *Server) configure(root string) {
	cfg, err := entcheck.LoadConfig(root)
	if err != nil {
		if !errors.Is(err, entcheck.ErrConfigNotFound) {
			s.logger.Warn("Ignoring config", zap.Error(err))
		}

		return
	}

	s.analyzeMu.Lock()
	defer s.analyzeMu.Unlock()

	s.analyzer = analysis.NewAnalyzer(s.logger, cfg)
	s.loader = workspace.NewLoader(s.logger, cfg)
}

// Initialized handles the initialized notification.
func (s *Server) Initialized(ctx context.Context, _ *protocol.InitializedParams) error {
	s.logger.Info("Initialized")
	s.initialized = true

	if s.workspaceRoot != "" {
		s.refresh(ctx)
	}

	return nil
}

// Shutdown handles the shutdown request.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info("Shutdown")
	s.shutdown = true

	return nil
}

// Exit handles the exit notification.
func (s *Server) Exit(_ context.Context) error {
	s.logger.Info("Exit")
	// The main loop should handle exiting after this
	return nil
}

// DidOpen handles textDocument/didOpen notifications.
func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.logger.Info("DidOpen", zap.String("uri", string(params.TextDocument.URI)))

	s.mu.Lock()
	s.documents[params.TextDocument.URI] = &Document{
		URI:     params.TextDocument.URI,
		Version: params.TextDocument.Version,
		Content: params.TextDocument.Text,
	}
	s.mu.Unlock()

	s.refresh(ctx)

	return nil
}

// DidChange handles textDocument/didChange notifications.
func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.logger.Info("DidChange",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Int32("version", params.TextDocument.Version))

	if len(params.ContentChanges) == 0 {
		return nil
	}

	s.mu.Lock()

	doc, ok := s.documents[params.TextDocument.URI]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("DidChange for unknown document", zap.String("uri", string(params.TextDocument.URI)))

		return nil
	}

	// Full sync - take the last content change (should only be one with full sync)
	doc.Content = params.ContentChanges[len(params.ContentChanges)-1].Text
	doc.Version = params.TextDocument.Version
	s.mu.Unlock()

	s.refresh(ctx)

	return nil
}

// DidClose handles textDocument/didClose notifications. The file stays
// part of the compilation unit when it exists on disk.
func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.logger.Info("DidClose", zap.String("uri", string(params.TextDocument.URI)))

	s.mu.Lock()
	delete(s.documents, params.TextDocument.URI)
	s.mu.Unlock()

	s.refresh(ctx)

	return nil
}

// DidSave handles textDocument/didSave notifications.
func (s *Server) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.logger.Info("DidSave", zap.String("uri", string(params.TextDocument.URI)))
	s.refresh(ctx)

	return nil
}

// DidChangeWatchedFiles handles workspace/didChangeWatchedFiles
// notifications. Any change on disk can alter the compilation unit.
func (s *Server) DidChangeWatchedFiles(ctx context.Context, params *protocol.DidChangeWatchedFilesParams) error {
	s.logger.Info("DidChangeWatchedFiles", zap.Int("changes", len(params.Changes)))

	if len(params.Changes) > 0 {
		s.refresh(ctx)
	}

	return nil
}

// getDocument returns a document by URI (read-locked).
func (s *Server) getDocument(uri protocol.DocumentURI) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[uri]

	return doc, ok
}

// snapshot returns the latest analysis and the sources it ran on.
func (s *Server) snapshot() (*analysis.Result, map[string][]byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.result, s.sources
}

// refresh re-analyzes the compilation unit and publishes diagnostics for
// every file in it.
func (s *Server) refresh(ctx context.Context) {
	s.analyzeMu.Lock()
	defer s.analyzeMu.Unlock()

	s.mu.RLock()

	open := make(map[string][]byte, len(s.documents))
	for uri, doc := range s.documents {
		open[URIToPath(uri)] = []byte(doc.Content)
	}

	s.mu.RUnlock()

	var disk []analysis.Source

	if s.workspaceRoot != "" {
		var err error

		disk, err = s.loader.Load(ctx, s.workspaceRoot)
		if err != nil && !errors.Is(err, workspace.ErrNoSources) {
			s.logger.Warn("Failed to load workspace", zap.Error(err))
		}
	}

	sources := workspace.Overlay(disk, open)
	res := s.analyzer.Analyze(sources)

	s.mu.Lock()
	s.result = res
	s.sources = workspace.Contents(sources)
	s.mu.Unlock()

	s.publishDiagnostics(ctx, res)
}
