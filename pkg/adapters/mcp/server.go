package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/epa"
	"github.com/aretw0/epa/internal/logging"
	"github.com/aretw0/epa/internal/presentation/graph"
	"github.com/aretw0/epa/pkg/domain"
	"github.com/aretw0/epa/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TraceResponse is the structured result of the get_transitions tool.
type TraceResponse struct {
	Subject     domain.SubjectID    `json:"subject" jsonschema_description:"The subject id"`
	Transitions []domain.Transition `json:"transitions" jsonschema_description:"Transitions in recording order"`
	Covered     int                 `json:"covered" jsonschema_description:"Declared transitions this subject exercised"`
	Declared    int                 `json:"declared" jsonschema_description:"Transitions declared by the automaton"`
}

// Server exposes an automaton and a recorded trace as an MCP server, so
// agents can inspect protocol coverage.
type Server struct {
	automaton *domain.Automaton
	trace     ports.TraceReader
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(automaton *domain.Automaton, trace ports.TraceReader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		automaton: automaton,
		trace:     trace,
		mcpServer: server.NewMCPServer("epa-mcp", strings.TrimSpace(epa.Version)),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_subjects",
		mcp.WithDescription("List the subjects that have recorded transitions."),
	), s.handleListSubjects)

	transitionsTool := mcp.NewTool("get_transitions",
		mcp.WithDescription("Get the transitions recorded for one subject, with its coverage of the declared automaton."),
		mcp.WithNumber("subject", mcp.Required(), mcp.Description("The subject id, as returned by list_subjects")),
		mcp.WithOutputSchema[TraceResponse](),
	)
	s.mcpServer.AddTool(transitionsTool, mcp.NewStructuredToolHandler(s.handleGetTransitions))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Render the automaton as a Mermaid state diagram with every observed transition."),
	), s.handleGetGraph)
}

func (s *Server) handleListSubjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subjects, err := s.trace.Subjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list subjects failed: %v", err)), nil
	}
	jsonBytes, _ := json.Marshal(subjects)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetTransitions(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TraceResponse, error) {
	raw, ok := args["subject"].(float64)
	if !ok || raw < 0 {
		return TraceResponse{}, fmt.Errorf("subject must be a non-negative number")
	}
	id := domain.SubjectID(raw)

	trace, err := s.trace.Transitions(ctx, id)
	if err != nil {
		s.logger.Warn("MCP get_transitions failed", "subject", id, "error", err)
		return TraceResponse{}, fmt.Errorf("get transitions failed: %w", err)
	}
	covered, declared := graph.Coverage(s.automaton, trace)
	return TraceResponse{Subject: id, Transitions: trace, Covered: covered, Declared: declared}, nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subjects, err := s.trace.Subjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list subjects failed: %v", err)), nil
	}
	overlay := &graph.GraphOverlay{}
	for _, sub := range subjects {
		trace, err := s.trace.Transitions(ctx, sub.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("read trace of subject %d failed: %v", sub.ID, err)), nil
		}
		overlay.Observed = append(overlay.Observed, trace...)
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(s.automaton, overlay)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("epa://automaton", "Automaton Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(map[string]any{
			"name":        s.automaton.Name(),
			"initial":     s.automaton.Initial(),
			"states":      s.automaton.States(),
			"actions":     s.automaton.Actions(),
			"transitions": s.automaton.Transitions(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode automaton: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "epa://automaton",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
