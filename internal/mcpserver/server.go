package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nao1215/lpmerge/internal/analyzer"
	"github.com/nao1215/lpmerge/internal/merge"
	"github.com/nao1215/lpmerge/internal/model"
	"github.com/nao1215/lpmerge/internal/parser"
	"github.com/nao1215/lpmerge/internal/pipeline"
	"github.com/nao1215/lpmerge/internal/report"
)

// Name is the server name announced to MCP clients.
const Name = "lpmerge"

// DefaultTopN is the number of hot lines returned when top_n is not given.
const DefaultTopN = 10

// Server exposes parsing and merging as MCP tools.
type Server struct {
	mcp     *server.MCPServer
	logger  *slog.Logger
	workers int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used by the merge runs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithWorkers sets the parse concurrency of the merge runs.
func WithWorkers(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a Server with every tool registered.
func New(version string, opts ...Option) *Server {
	s := &Server{
		logger:  slog.Default(),
		workers: pipeline.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(Name, version, server.WithLogging())

	s.mcp.AddTool(mcp.NewTool("parse_report",
		mcp.WithDescription("Parse one line profiler report and summarize its header and lines"),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path to the line profiler report file"),
		),
	), s.handleParseReport)

	s.mcp.AddTool(mcp.NewTool("merge_reports",
		mcp.WithDescription("Merge line profiler reports of the same function and return the merged report. "+
			"Fails when the reports were not taken from the same function and source."),
		mcp.WithString("paths",
			mcp.Required(),
			mcp.Description("Comma or newline separated report files or directories"),
		),
	), s.handleMergeReports)

	s.mcp.AddTool(mcp.NewTool("find_hot_lines",
		mcp.WithDescription("Merge the given reports and return the lines that take the largest share of the time"),
		mcp.WithString("paths",
			mcp.Required(),
			mcp.Description("Comma or newline separated report files or directories"),
		),
		mcp.WithNumber("top_n",
			mcp.Description(fmt.Sprintf("Number of lines to return (default: %d)", DefaultTopN)),
		),
	), s.handleFindHotLines)

	return s
}

// Serve runs the server over stdin and stdout until ctx is done or the
// client disconnects.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func (s *Server) handleParseReport(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath, err := request.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r, err := parser.ParseFile(filePath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse report: %v", err)), nil
	}

	executed := len(analyzer.TopLines(r, 0))
	result := fmt.Sprintf(`Report parsed successfully!

File: %s
Function: %s
Source: %s (line %d)
Timer unit: %g s
Total time: %g s
Lines: %d (%d executed)
Total hits: %d
`,
		filePath,
		r.FunctionName,
		r.SourceFile,
		r.DefLine,
		r.TimerUnit,
		r.TotalTime,
		len(r.Lines),
		executed,
		r.TotalHits(),
	)

	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleMergeReports(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	merged, err := s.merge(ctx, raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(report.Render(merged, false)), nil
}

func (s *Server) handleFindHotLines(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topN := int(request.GetFloat("top_n", DefaultTopN))

	merged, err := s.merge(ctx, raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	lines := analyzer.TopLines(merged, topN)

	var sb strings.Builder
	fmt.Fprintf(&sb, "HOT LINES of %s (%s:%d)\n", merged.FunctionName, merged.SourceFile, merged.DefLine)
	sb.WriteString(strings.Repeat("=", 40) + "\n\n")
	if len(lines) == 0 {
		sb.WriteString("No line was executed.\n")
	}
	for i, l := range lines {
		fmt.Fprintf(&sb, "%d. line %d [%s] %.1f%% hits=%d per_hit=%.1f\n   %s\n",
			i+1, l.Number, l.Severity, l.RatioPercent, l.Hits, l.PerHit, strings.TrimSpace(l.Code))
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// merge discovers, parses and merges the reports named in raw.
func (s *Server) merge(ctx context.Context, raw string) (*model.Report, error) {
	paths := SplitPaths(raw)
	if len(paths) == 0 {
		return nil, errors.New("no path given")
	}

	p := pipeline.DefaultPipeline(pipeline.MergeConfig{
		Workers: s.workers,
		Logger:  s.logger,
	})
	job := pipeline.NewJob(paths...)
	if err := p.Execute(ctx, job); err != nil {
		if errors.Is(err, merge.ErrNoTarget) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to merge reports: %w", err)
	}
	return job.Merged, nil
}

// SplitPaths splits a comma or newline separated list of paths.
// Blank entries are dropped.
func SplitPaths(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	paths := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			paths = append(paths, f)
		}
	}
	return paths
}
