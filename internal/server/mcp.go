// Package server exposes the extraction and transcription services over MCP
// (stdio and streamable HTTP) and a small REST surface.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"media2txt/internal/extract"
	"media2txt/internal/transcribe"
)

// Extractor runs audio extraction jobs.
type Extractor interface {
	Run(ctx context.Context, req extract.Request) extract.Result
}

// Transcriber runs transcription jobs.
type Transcriber interface {
	Run(ctx context.Context, req transcribe.Request) transcribe.Result
}

// ExtractArgs are the MCP arguments of the extract_audio tool.
type ExtractArgs struct {
	InputPath    string `json:"input_path" jsonschema:"local path or http(s) URL of the media file to extract audio from"`
	OutputName   string `json:"output_name,omitempty" jsonschema:"optional base name for the output file; a short unique token is always appended"`
	OutputDir    string `json:"output_dir,omitempty" jsonschema:"optional directory for the output file, created if absent"`
	AudioQuality string `json:"audio_quality,omitempty" jsonschema:"audio quality preset: low, medium or high (default medium)"`
}

// TranscribeArgs are the MCP arguments of the transcribe_audio tool.
type TranscribeArgs struct {
	InputPath  string `json:"input_path" jsonschema:"local path or http(s) URL of the media file to transcribe"`
	OutputName string `json:"output_name,omitempty" jsonschema:"optional base name for the transcript file; a short unique token is always appended"`
	OutputDir  string `json:"output_dir,omitempty" jsonschema:"optional directory for the transcript file, created if absent"`
	ModelSize  string `json:"model_size,omitempty" jsonschema:"whisper model size: tiny, base, small, medium or large (default base)"`
	Language   string `json:"language,omitempty" jsonschema:"language code such as en or de; auto (default) detects the language"`
}

// DatetimeArgs are the MCP arguments of the current_datetime tool.
type DatetimeArgs struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"IANA timezone name such as Europe/Berlin or UTC; defaults to the server timezone"`
}

// NewMCPServer builds the MCP server with all tools registered. The same
// instance serves stdio and streamable HTTP sessions.
func NewMCPServer(version string, extractor Extractor, transcriber Transcriber, logger *zap.Logger) *mcp.Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := mcp.NewServer(&mcp.Implementation{Name: "media2txt", Version: version}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "extract_audio",
		Description: "Extract the audio track of a local or remote media file into an mp3 with a chosen quality preset.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ExtractArgs) (*mcp.CallToolResult, any, error) {
		logger.Debug("tool call", zap.String("tool", "extract_audio"), zap.String("input", args.InputPath))
		result := extractor.Run(ctx, extract.Request{
			InputPath:    args.InputPath,
			OutputName:   args.OutputName,
			OutputDir:    args.OutputDir,
			AudioQuality: args.AudioQuality,
		})
		return toolResult(result, !result.Success), nil, nil
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "transcribe_audio",
		Description: "Transcribe the speech in a local or remote media file to text, chunking long inputs automatically.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args TranscribeArgs) (*mcp.CallToolResult, any, error) {
		logger.Debug("tool call", zap.String("tool", "transcribe_audio"), zap.String("input", args.InputPath))
		result := transcriber.Run(ctx, transcribe.Request{
			InputPath:  args.InputPath,
			OutputName: args.OutputName,
			OutputDir:  args.OutputDir,
			ModelSize:  args.ModelSize,
			Language:   args.Language,
		})
		return toolResult(result, !result.Success), nil, nil
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "current_datetime",
		Description: "Report the current date and time with calendar details, optionally in a given IANA timezone.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args DatetimeArgs) (*mcp.CallToolResult, any, error) {
		result, err := CurrentDatetime(args.Timezone, time.Now())
		if err != nil {
			return toolResult(map[string]any{
				"success":    false,
				"error":      err.Error(),
				"error_kind": "validation",
			}, true), nil, nil
		}
		return toolResult(result, false), nil, nil
	})

	logger.Info("MCP server initialized", zap.String("version", version), zap.Int("tools", 3))
	return srv
}

// ServeStdio runs the MCP server over stdin/stdout until the context ends or
// the client disconnects.
func ServeStdio(ctx context.Context, srv *mcp.Server) error {
	return srv.Run(ctx, &mcp.StdioTransport{})
}

// toolResult wraps a service result for MCP callers: pretty JSON in the text
// content for humans, the raw object as structured content for clients, and
// the error flag mirrored from the job outcome.
func toolResult(payload any, isError bool) *mcp.CallToolResult {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("encode result: %v", err)}},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(data)}},
		StructuredContent: payload,
		IsError:           isError,
	}
}
