package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/epa/pkg/adapters/memory"
	"github.com/aretw0/epa/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	a, err := domain.NewAutomaton("File", "Closed",
		[]domain.State{"Closed", "Open"},
		[]domain.Action{"open", "close"},
		domain.Transition{From: "Closed", Action: "open", To: "Open"},
		domain.Transition{From: "Open", Action: "close", To: "Closed"},
	)
	require.NoError(t, err)

	rec := memory.NewRecorder()
	require.NoError(t, rec.Record(context.Background(), domain.Subject{ID: 1, Type: "File"},
		domain.Transition{From: "Closed", Action: "open", To: "Open"}))
	return NewServer(a, rec, nil)
}

func TestHandleGetTransitions(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.handleGetTransitions(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"subject": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, domain.SubjectID(1), resp.Subject)
	assert.Len(t, resp.Transitions, 1)
	assert.Equal(t, 1, resp.Covered)
	assert.Equal(t, 2, resp.Declared)

	_, err = s.handleGetTransitions(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"subject": float64(5)})
	assert.ErrorIs(t, err, domain.ErrSubjectNotFound)

	_, err = s.handleGetTransitions(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"subject": "one"})
	assert.Error(t, err)
}

func TestHandleListSubjects(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleListSubjects(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":1,"type":"File"}]`, text.Text)
}

func TestHandleGetGraph(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleGetGraph(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Closed --> Open : open")
	assert.Contains(t, text.Text, "class Open visited")
}
