// Package mcpserver exposes the advisory, negotiation, insurance, carbon and
// history flows as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/veriyield/neuralchain/agent"
	"github.com/veriyield/neuralchain/carbon"
	"github.com/veriyield/neuralchain/insurance"
	"github.com/veriyield/neuralchain/ledger"
)

// Advisor produces field reports.
type Advisor interface {
	Advise(ctx context.Context, attrs agent.Attributes) string
}

// Negotiator answers one negotiation turn.
type Negotiator interface {
	Turn(ctx context.Context, transcript []agent.Turn, attrs agent.Attributes, message string) string
}

// Oracle assesses weather risk.
type Oracle interface {
	Check(ctx context.Context, location string, simulate bool) insurance.Assessment
}

// History reads the transaction log.
type History interface {
	List(ctx context.Context, limit int) ([]ledger.Entry, error)
	Balance(ctx context.Context) (float64, error)
}

// Deps are the flows served as tools. Nil fields make their tools report an error.
type Deps struct {
	Advisor    Advisor
	Negotiator Negotiator
	Oracle     Oracle
	History    History
}

// Server wraps the MCP SDK server.
type Server struct {
	MCPServer *sdkmcp.Server

	deps Deps
	log  *slog.Logger
}

// NewServer creates a server with every tool registered.
func NewServer(deps Deps, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		MCPServer: sdkmcp.NewServer(&sdkmcp.Implementation{Name: "veriyield", Version: version}, nil),
		deps:      deps,
		log:       logger.With("component", "mcp"),
	}
	s.registerTools()
	return s
}

// Run serves over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("MCP server listening on stdio")
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "advise",
		Description: "Research treatments and mandi prices for a diagnosed crop and return a field report.",
	}, s.handleAdvise)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "negotiate_turn",
		Description: "Send one message to the mandi broker. The caller owns the transcript and appends the reply itself.",
	}, s.handleNegotiateTurn)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "check_weather",
		Description: "Run the parametric insurance oracle for a location.",
	}, s.handleCheckWeather)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "green_score",
		Description: "Score regenerative farming practices and report eligible AgriTokens.",
	}, s.handleGreenScore)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "history",
		Description: "List recent wallet transactions and the ETH balance.",
	}, s.handleHistory)
}

var errNotConfigured = errors.New("not configured on this server")

// --- Tool input/output types ---

type adviseInput struct {
	Crop       string `json:"crop" jsonschema:"crop name, e.g. Tomato"`
	Disease    string `json:"disease,omitempty" jsonschema:"diagnosed disease"`
	Location   string `json:"location,omitempty" jsonschema:"market town (default Nashik)"`
	SearchTerm string `json:"search_term,omitempty" jsonschema:"treatment search query suggested by image grading"`
}

type adviseOutput struct {
	Report string `json:"report"`
}

type turnInput struct {
	Role    string `json:"role" jsonschema:"user or agent"`
	Content string `json:"content"`
}

type negotiateInput struct {
	Crop       string      `json:"crop,omitempty" jsonschema:"crop being sold (default Tomato)"`
	Grade      string      `json:"grade,omitempty" jsonschema:"quality grade, e.g. Grade A"`
	Location   string      `json:"location,omitempty" jsonschema:"mandi town"`
	Transcript []turnInput `json:"transcript,omitempty" jsonschema:"conversation so far, oldest first"`
	Message    string      `json:"message" jsonschema:"the farmer's new message"`
}

type negotiateOutput struct {
	Reply string `json:"reply"`
}

type weatherInput struct {
	Location string `json:"location" jsonschema:"city to check"`
	Simulate bool   `json:"simulate,omitempty" jsonschema:"force a simulated extreme drought"`
}

type greenScoreInput struct {
	Tillage       string `json:"tillage,omitempty" jsonschema:"No-Till or Conventional"`
	Irrigation    string `json:"irrigation,omitempty" jsonschema:"Drip, Flood or Sprinkler"`
	Fertilizer    string `json:"fertilizer,omitempty" jsonschema:"Organic or Synthetic"`
	CoverCrop     bool   `json:"cover_crop,omitempty" jsonschema:"cover crops were grown"`
	PhotoVerified bool   `json:"photo_verified,omitempty" jsonschema:"a photo audit confirmed the headline claim"`
}

type historyInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum entries to return (default 5)"`
}

type entryOutput struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	Type      string         `json:"type"`
	Details   map[string]any `json:"details"`
}

type historyOutput struct {
	Entries    []entryOutput `json:"entries"`
	BalanceETH float64       `json:"balance_eth"`
}

// --- Tool handlers ---

func (s *Server) handleAdvise(ctx context.Context, _ *sdkmcp.CallToolRequest, input adviseInput) (*sdkmcp.CallToolResult, adviseOutput, error) {
	if s.deps.Advisor == nil {
		return nil, adviseOutput{}, fmt.Errorf("advise: %w", errNotConfigured)
	}
	if input.Crop == "" {
		return nil, adviseOutput{}, fmt.Errorf("crop is required")
	}

	report := s.deps.Advisor.Advise(ctx, agent.Attributes{
		agent.AttrCrop:       input.Crop,
		agent.AttrDisease:    input.Disease,
		agent.AttrLocation:   input.Location,
		agent.AttrSearchTerm: input.SearchTerm,
	})
	return nil, adviseOutput{Report: report}, nil
}

func (s *Server) handleNegotiateTurn(ctx context.Context, _ *sdkmcp.CallToolRequest, input negotiateInput) (*sdkmcp.CallToolResult, negotiateOutput, error) {
	if s.deps.Negotiator == nil {
		return nil, negotiateOutput{}, fmt.Errorf("negotiate_turn: %w", errNotConfigured)
	}
	if input.Message == "" {
		return nil, negotiateOutput{}, fmt.Errorf("message is required")
	}

	transcript := make([]agent.Turn, 0, len(input.Transcript))
	for _, t := range input.Transcript {
		transcript = append(transcript, agent.NewTurn(t.Role, t.Content))
	}
	reply := s.deps.Negotiator.Turn(ctx, transcript, agent.Attributes{
		agent.AttrCrop:     input.Crop,
		agent.AttrGrade:    input.Grade,
		agent.AttrLocation: input.Location,
	}, input.Message)

	s.log.Debug("negotiate_turn", "crop", input.Crop, "turns", len(transcript))
	return nil, negotiateOutput{Reply: reply}, nil
}

func (s *Server) handleCheckWeather(ctx context.Context, _ *sdkmcp.CallToolRequest, input weatherInput) (*sdkmcp.CallToolResult, insurance.Assessment, error) {
	if s.deps.Oracle == nil {
		return nil, insurance.Assessment{}, fmt.Errorf("check_weather: %w", errNotConfigured)
	}
	if input.Location == "" {
		return nil, insurance.Assessment{}, fmt.Errorf("location is required")
	}
	return nil, s.deps.Oracle.Check(ctx, input.Location, input.Simulate), nil
}

func (s *Server) handleGreenScore(_ context.Context, _ *sdkmcp.CallToolRequest, input greenScoreInput) (*sdkmcp.CallToolResult, carbon.Result, error) {
	r := carbon.Score(carbon.Practices(input))
	if r.Breakdown == nil {
		r.Breakdown = []string{}
	}
	return nil, r, nil
}

func (s *Server) handleHistory(ctx context.Context, _ *sdkmcp.CallToolRequest, input historyInput) (*sdkmcp.CallToolResult, historyOutput, error) {
	if s.deps.History == nil {
		return nil, historyOutput{}, fmt.Errorf("history: %w", errNotConfigured)
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}

	entries, err := s.deps.History.List(ctx, limit)
	if err != nil {
		return nil, historyOutput{}, fmt.Errorf("history: %w", err)
	}
	balance, err := s.deps.History.Balance(ctx)
	if err != nil {
		return nil, historyOutput{}, fmt.Errorf("history: %w", err)
	}

	out := historyOutput{Entries: make([]entryOutput, 0, len(entries)), BalanceETH: balance}
	for _, e := range entries {
		details := e.Details
		if details == nil {
			details = map[string]any{}
		}
		out.Entries = append(out.Entries, entryOutput{
			ID:        e.ID,
			Timestamp: e.Timestamp.Format(time.RFC3339),
			Type:      e.Type,
			Details:   details,
		})
	}
	return nil, out, nil
}
