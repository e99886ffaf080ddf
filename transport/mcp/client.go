package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/voting-session/voting/model"
	"github.com/wricardo/voting-session/voting/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
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

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Voting Session",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Voting Session - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A session is identified by its 6 character access code. Participants join a
session, propose cards, and vote yes or no on each card once.

AVAILABLE TOOLS:
- create_session: Create a session (optionally with a chosen access code)
- get_session: Session details with per-card tally
- list_sessions: List sessions
- close_session: Close a session to new cards and votes
- join_session: Register a participant
- list_users: List participants
- add_card: Propose a card
- list_cards: List cards
- cast_vote: Vote yes/no on a card
- list_votes: List votes
- live_stats: Live WebSocket group and connection counts`),
	)

	c.registerTools()
}

func accessCodeProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session access code",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new voting session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"access_code": map[string]interface{}{
					"type":        "string",
					"description": "Access code to use (optional, generated when omitted)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List voting sessions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sort": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"created_at", "access_code"},
					"description": "Sort field",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of sessions",
				},
			},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get a session with counts and the per-card tally",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"access_code": accessCodeProperty()},
			Required:   []string{"access_code"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "close_session",
		Description: "Close a session; it stays readable but accepts no more writes",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"access_code": accessCodeProperty()},
			Required:   []string{"access_code"},
		},
	}, c.handleCloseSession)

	// Participants
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_session",
		Description: "Register a participant in a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"access_code": accessCodeProperty(),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Participant name",
				},
				"is_admin": map[string]interface{}{
					"type":        "boolean",
					"description": "Whether the participant administers the session",
				},
			},
			Required: []string{"access_code", "name"},
		},
	}, c.handleJoinSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_users",
		Description: "List participants of a session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"access_code": accessCodeProperty()},
			Required:   []string{"access_code"},
		},
	}, c.handleListUsers)

	// Cards and votes
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "add_card",
		Description: "Propose a card in a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"access_code": accessCodeProperty(),
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Card title",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Card description (optional)",
				},
			},
			Required: []string{"access_code", "title"},
		},
	}, c.handleAddCard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_cards",
		Description: "List cards of a session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"access_code": accessCodeProperty()},
			Required:   []string{"access_code"},
		},
	}, c.handleListCards)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "cast_vote",
		Description: "Vote yes or no on a card; each participant votes once per card",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"access_code": accessCodeProperty(),
				"card_id": map[string]interface{}{
					"type":        "string",
					"description": "Card ID",
				},
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "Participant ID",
				},
				"vote": map[string]interface{}{
					"type":        "boolean",
					"description": "true for yes, false for no",
				},
			},
			Required: []string{"access_code", "card_id", "user_id", "vote"},
		},
	}, c.handleCastVote)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_votes",
		Description: "List votes of a session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"access_code": accessCodeProperty()},
			Required:   []string{"access_code"},
		},
	}, c.handleListVotes)

	// Live
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "live_stats",
		Description: "Live WebSocket group and connection counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleLiveStats)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
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

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	code, _ := args["access_code"].(string)
	if code == "" {
		return "", fmt.Errorf("access_code is required")
	}
	return "/api/sessions/" + url.PathEscape(code) + suffix, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := map[string]string{}
	if code, _ := args["access_code"].(string); code != "" {
		body["access_code"] = code
	}

	var session model.Session
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\nID: %s\n", session.AccessCode, session.ID)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	query := url.Values{}
	if sort, _ := args["sort"].(string); sort != "" {
		query.Set("sort", sort)
	}
	if order, _ := args["order"].(string); order != "" {
		query.Set("order", order)
	}
	if limit, ok := args["limit"].(float64); ok {
		query.Set("limit", strconv.Itoa(int(limit)))
	}
	path := "/api/sessions"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var response struct {
		Total    int              `json:"total"`
		Sessions []*model.Session `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sessions (%d):\n\n", response.Total)
	for _, s := range response.Sessions {
		status := "open"
		if !s.Active {
			status = "closed"
		}
		fmt.Fprintf(&b, "- %s (%s, Created: %s)\n", s.AccessCode, status, s.CreatedAt.Format(time.RFC3339))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleCloseSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/close")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session model.Session
	if err := c.apiCall(ctx, "POST", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s closed", session.AccessCode)), nil
}

func (c *Client) handleJoinSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/users")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, _ := args["name"].(string)
	isAdmin, _ := args["is_admin"].(bool)

	var user model.User
	if err := c.apiCall(ctx, "POST", path, map[string]interface{}{"name": name, "is_admin": isAdmin}, &user); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Joined as %s\nUser ID: %s\n", user.Name, user.ID)), nil
}

func (c *Client) handleListUsers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/users")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var users []*model.User
	if err := c.apiCall(ctx, "GET", path, nil, &users); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Participants (%d):\n", len(users))
	for _, u := range users {
		role := ""
		if u.IsAdmin {
			role = " [admin]"
		}
		fmt.Fprintf(&b, "- %s%s (%s)\n", u.Name, role, u.ID)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleAddCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/cards")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, _ := args["title"].(string)
	description, _ := args["description"].(string)

	var card model.Card
	if err := c.apiCall(ctx, "POST", path, map[string]string{"title": title, "description": description}, &card); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Card added: %s\nCard ID: %s\n", card.Title, card.ID)), nil
}

func (c *Client) handleListCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/cards")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var cards []*model.Card
	if err := c.apiCall(ctx, "GET", path, nil, &cards); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cards (%d):\n", len(cards))
	for _, card := range cards {
		fmt.Fprintf(&b, "- %s (%s)\n", card.Title, card.ID)
		if card.Description != "" {
			fmt.Fprintf(&b, "  %s\n", card.Description)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleCastVote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/votes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	vote, ok := args["vote"].(bool)
	if !ok {
		return mcp.NewToolResultError("vote is required"), nil
	}
	cardID, _ := args["card_id"].(string)
	userID, _ := args["user_id"].(string)

	body := map[string]interface{}{"card_id": cardID, "user_id": userID, "vote": vote}
	var result model.Vote
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Vote recorded: %s on card %s\n", yesNo(result.Vote), result.CardID)), nil
}

func (c *Client) handleListVotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/votes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var votes []*model.Vote
	if err := c.apiCall(ctx, "GET", path, nil, &votes); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Votes (%d):\n", len(votes))
	for _, v := range votes {
		fmt.Fprintf(&b, "- card %s: %s by %s\n", v.CardID, yesNo(v.Vote), v.UserID)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleLiveStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats struct {
		Groups      int `json:"groups"`
		Connections int `json:"connections"`
	}
	if err := c.apiCall(ctx, "GET", "/api/live/stats", nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Live groups: %d\nConnections: %d\n", stats.Groups, stats.Connections)), nil
}

// Formatting helpers

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func formatSessionInfo(info *service.SessionInfo) string {
	var b strings.Builder
	status := "open"
	if !info.Active {
		status = "closed"
	}
	fmt.Fprintf(&b, "Session %s (%s)\n", info.AccessCode, status)
	fmt.Fprintf(&b, "Participants: %d | Cards: %d | Votes: %d\n", info.UserCount, info.CardCount, info.VoteCount)
	if len(info.Tally) > 0 {
		b.WriteString("\nTally:\n")
		for _, t := range info.Tally {
			fmt.Fprintf(&b, "- %s: %d yes / %d no\n", t.Title, t.Yes, t.No)
		}
	}
	return b.String()
}
