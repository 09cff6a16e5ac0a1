// Package mcptools exposes the calculator as Model Context Protocol tools.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/roach88/voicecalc/internal/calc"
	"github.com/roach88/voicecalc/internal/store"
)

const serverName = "voicecalc"

// History is the persistence the tools need.
type History interface {
	AddCalculation(ctx context.Context, expression, result string, voice bool) (int64, error)
	History(ctx context.Context, limit int) ([]store.Calculation, error)
	VoiceHistory(ctx context.Context, limit int) ([]store.Calculation, error)
}

// CalculateInput is the calculate tool input.
type CalculateInput struct {
	Expression string `json:"expression" jsonschema:"arithmetic expression such as 2 + 2 or sqrt(16)"`
	Record     bool   `json:"record,omitempty" jsonschema:"store the calculation in history"`
}

// CalculateResult is the calculate tool output.
type CalculateResult struct {
	Result string `json:"result" jsonschema:"formatted result"`
}

// VoiceProcessInput is the voice_process tool input.
type VoiceProcessInput struct {
	Transcript string `json:"transcript" jsonschema:"spoken command, e.g. what is 5 squared"`
	Record     bool   `json:"record,omitempty" jsonschema:"store successful results in history"`
}

// VoiceProcessResult mirrors the HTTP voice-process response.
type VoiceProcessResult struct {
	Success    bool   `json:"success" jsonschema:"whether the transcript evaluated"`
	Expression string `json:"expression" jsonschema:"cleaned expression"`
	Result     string `json:"result,omitempty" jsonschema:"formatted result"`
	Error      string `json:"error,omitempty" jsonschema:"user-facing error message"`
	Code       string `json:"code,omitempty" jsonschema:"error code"`
	Steps      string `json:"steps,omitempty" jsonschema:"evaluation steps or error detail"`
}

// HistoryInput is the history tool input.
type HistoryInput struct {
	Limit     int  `json:"limit,omitempty" jsonschema:"maximum entries to return, 0 for all"`
	VoiceOnly bool `json:"voice_only,omitempty" jsonschema:"only return voice calculations"`
}

// HistoryEntry is one calculation in the history tool output.
type HistoryEntry struct {
	ID         int64  `json:"id" jsonschema:"entry id"`
	Expression string `json:"expression" jsonschema:"evaluated expression"`
	Result     string `json:"result" jsonschema:"formatted result"`
	Timestamp  string `json:"timestamp" jsonschema:"RFC 3339 time the entry was recorded"`
	VoiceInput bool   `json:"voice_input" jsonschema:"whether the entry came from voice"`
}

// HistoryResult is the history tool output.
type HistoryResult struct {
	Entries []HistoryEntry `json:"entries" jsonschema:"calculations, newest first"`
}

// NewServer builds an MCP server exposing calculate, voice_process and
// history.
func NewServer(version string, processor *calc.Processor, history History, logger *zap.Logger) *mcp.Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "calculate",
		Description: "Evaluates a typed arithmetic expression",
	}, CalculateHandler(processor, history, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "voice_process",
		Description: "Converts a spoken arithmetic command into an expression and evaluates it",
	}, VoiceProcessHandler(processor, history, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "history",
		Description: "Lists recent calculations",
	}, HistoryHandler(history))

	return server
}

// Run serves the MCP server over stdio until ctx ends.
func Run(ctx context.Context, server *mcp.Server) error {
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve mcp: %w", err)
	}
	return nil
}

// CalculateHandler evaluates typed expressions.
func CalculateHandler(processor *calc.Processor, history History, logger *zap.Logger) mcp.ToolHandlerFor[CalculateInput, CalculateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CalculateInput) (*mcp.CallToolResult, CalculateResult, error) {
		value, err := processor.Evaluator().Calculate(input.Expression)
		if err != nil {
			var ce *calc.Error
			if errors.As(err, &ce) {
				return nil, CalculateResult{}, errors.New(ce.Message)
			}
			return nil, CalculateResult{}, err
		}

		if input.Record && history != nil {
			if _, err := history.AddCalculation(ctx, input.Expression, value.String(), false); err != nil {
				logger.Warn("failed to record calculation", zap.Error(err))
			}
		}
		return nil, CalculateResult{Result: value.String()}, nil
	}
}

// VoiceProcessHandler evaluates spoken commands. Evaluation failures are
// reported in the result rather than as tool errors.
func VoiceProcessHandler(processor *calc.Processor, history History, logger *zap.Logger) mcp.ToolHandlerFor[VoiceProcessInput, VoiceProcessResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input VoiceProcessInput) (*mcp.CallToolResult, VoiceProcessResult, error) {
		if input.Transcript == "" {
			return nil, VoiceProcessResult{}, errors.New("No transcript provided")
		}

		out := processor.Process(input.Transcript)
		res := VoiceProcessResult{
			Success:    out.Success,
			Expression: out.Expression,
			Code:       string(out.Code),
		}
		if out.Result != nil {
			res.Result = *out.Result
		}
		if out.Error != nil {
			res.Error = *out.Error
		}
		if out.Steps != nil {
			res.Steps = *out.Steps
		}

		if out.Success && input.Record && history != nil {
			if _, err := history.AddCalculation(ctx, out.Expression, res.Result, true); err != nil {
				logger.Warn("failed to record voice calculation", zap.Error(err))
			}
		}
		return nil, res, nil
	}
}

// HistoryHandler lists stored calculations.
func HistoryHandler(history History) mcp.ToolHandlerFor[HistoryInput, HistoryResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, HistoryResult, error) {
		if history == nil {
			return nil, HistoryResult{}, errors.New("history is not available")
		}

		var (
			calcs []store.Calculation
			err   error
		)
		if input.VoiceOnly {
			calcs, err = history.VoiceHistory(ctx, input.Limit)
		} else {
			calcs, err = history.History(ctx, input.Limit)
		}
		if err != nil {
			return nil, HistoryResult{}, fmt.Errorf("read history: %w", err)
		}

		entries := make([]HistoryEntry, 0, len(calcs))
		for _, c := range calcs {
			entries = append(entries, HistoryEntry{
				ID:         c.ID,
				Expression: c.Expression,
				Result:     c.Result,
				Timestamp:  c.Timestamp.Format(time.RFC3339),
				VoiceInput: c.VoiceInput,
			})
		}
		return nil, HistoryResult{Entries: entries}, nil
	}
}
