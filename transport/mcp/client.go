package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/chess-referee/game/service"
	"github.com/wricardo/chess-referee/game/session"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API at baseURL.
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Chess Referee",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Chess Referee - MCP Interface

Read-only view of a server that pairs websocket clients for timed chess games.
Games are started by the viewer client and played over the websocket; these
tools only observe.

AVAILABLE TOOLS:
- server_status: Is the viewer connected, how many players and live games
- list_players: Registered clients and the game each one is in
- list_sessions: Live games (optionally only those of one player)
- get_session: Players, turn budget, side to move and move count of one game`),
	)

	c.registerTools()
}

func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_status",
		Description: "Get server status: viewer presence, player and session counts, uptime",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleServerStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_players",
		Description: "List registered clients and the session each one is playing",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListPlayers)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List live game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"player": map[string]any{
					"type":        "string",
					"description": "Only sessions this player is in (optional)",
				},
			},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific live session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": map[string]any{
					"type":        "string",
					"description": "Session ID to retrieve",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)
}

// MCPServer returns the underlying MCP server for serving
func (c *Client) MCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeHTTP answers one JSON-RPC message per POST.
func (c *Client) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := c.mcpServer.HandleMessage(r.Context(), body)

	responseData, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(responseData)
}

func (c *Client) apiCall(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func stringArg(request mcp.CallToolRequest, key string) string {
	args, _ := request.Params.Arguments.(map[string]any)
	value, _ := args[key].(string)
	return strings.TrimSpace(value)
}

// Tool handlers

func (c *Client) handleServerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Server service.ServerStatus `json:"server"`
	}
	if err := c.apiCall(ctx, "/api", &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatStatus(&resp.Server)), nil
}

func (c *Client) handleListPlayers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Players []service.PlayerInfo `json:"players"`
	}
	if err := c.apiCall(ctx, "/api/players", &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatPlayers(resp.Players)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/sessions"
	if player := stringArg(request, "player"); player != "" {
		path += "?player=" + url.QueryEscape(player)
	}

	var list service.SessionList
	if err := c.apiCall(ctx, path, &list); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(list.Sessions) == 0 {
		return mcp.NewToolResultText("No live sessions"), nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Live sessions (%d):\n", len(list.Sessions))
	for _, snap := range list.Sessions {
		sb.WriteString("- ")
		sb.WriteString(formatSessionLine(snap))
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(request, "session_id")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	var snap session.Snapshot
	if err := c.apiCall(ctx, "/api/sessions/"+url.PathEscape(sessionID), &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSession(&snap)), nil
}

func formatStatus(status *service.ServerStatus) string {
	viewer := "not connected"
	if status.ViewerConnected {
		viewer = "connected"
	}
	return fmt.Sprintf("Status: %s\nViewer %q: %s\nPlayers: %d\nLive sessions: %d\nUptime: %s\n",
		status.Status, status.Viewer, viewer, status.Players, status.Sessions, status.Uptime)
}

func formatPlayers(players []service.PlayerInfo) string {
	if len(players) == 0 {
		return "No registered clients"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Registered clients (%d):\n", len(players))
	for _, p := range players {
		switch {
		case p.Viewer:
			fmt.Fprintf(&sb, "- %s (viewer)\n", p.Name)
		case p.SessionID != "":
			fmt.Fprintf(&sb, "- %s playing in session %s\n", p.Name, p.SessionID)
		default:
			fmt.Fprintf(&sb, "- %s idle\n", p.Name)
		}
	}
	return sb.String()
}

func formatSessionLine(snap *session.Snapshot) string {
	return fmt.Sprintf("%s: %s (white) vs %s (black), %d moves, %s to move",
		snap.ID, snap.White, snap.Black, snap.MoveCount, snap.ToMove)
}

func formatSession(snap *session.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Session: %s\n", snap.ID)
	fmt.Fprintf(&sb, "Status: %s\n", snap.Status)
	fmt.Fprintf(&sb, "White: %s\n", snap.White)
	fmt.Fprintf(&sb, "Black: %s\n", snap.Black)
	fmt.Fprintf(&sb, "Seconds per turn: %g\n", snap.SecondsPerTurn)
	fmt.Fprintf(&sb, "Moves played: %d\n", snap.MoveCount)
	if snap.ToMove != "" {
		fmt.Fprintf(&sb, "To move: %s (%s)\n", snap.ToMove, snap.ToMoveColor)
	}
	fmt.Fprintf(&sb, "Started: %s\n", snap.CreatedAt.Format(time.RFC3339))
	return sb.String()
}
