package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/Emberfield/autodoc/internal/analyze"
	"github.com/Emberfield/autodoc/internal/boundary"
	"github.com/Emberfield/autodoc/internal/extract"
	"github.com/Emberfield/autodoc/internal/report"
	"github.com/Emberfield/autodoc/internal/store"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing entity extraction tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	// The store is optional: extraction tools work without a database.
	var st store.Store
	path := dbPath(wd)
	if _, err := os.Stat(path); err == nil {
		s, err := store.Open(path, logger)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()
		st = s
	} else {
		logger.WithField("path", path).Info("no database, store tools disabled")
	}

	a := analyze.New(analyze.Config{Logger: logger})
	return mcpserver.ServeStdio(newMCPServer(a, st, cfg.Report.Top))
}

func newMCPServer(a *analyze.Analyzer, st store.Store, top int) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("autodoc", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(analyzeFileTool(), makeAnalyzeFileHandler(a))
	s.AddTool(analyzeSourceTool(), makeAnalyzeSourceHandler(a))
	s.AddTool(listEntitiesTool(), makeListEntitiesHandler(st))
	s.AddTool(findEndpointsTool(), makeFindEndpointsHandler(st))
	s.AddTool(getSummaryTool(), makeSummaryHandler(st, top))
	return s
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func analyzeFileTool() mcp.Tool {
	return mcp.NewTool("analyze_file",
		mcp.WithDescription("Parse a Python file and return its functions, methods and classes as JSON records with decorators, parameters, return type, docstring, complexity score and endpoint hints."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to a .py or .pyi file"),
		),
	)
}

func analyzeSourceTool() mcp.Tool {
	return mcp.NewTool("analyze_source",
		mcp.WithDescription("Parse Python source text and return its entities as JSON records."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("Python source code"),
		),
		mcp.WithString("file_path",
			mcp.Description("Path recorded on the entities (default <source>)"),
		),
	)
}

func listEntitiesTool() mcp.Tool {
	return mcp.NewTool("list_entities",
		mcp.WithDescription("Query entities saved in the autodoc database. All filters are optional and combine with AND. With a query, results are ranked: name matches score 1.0 and docstring-only matches 0.5."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Description("Case-insensitive text matched against names and docstrings"),
		),
		mcp.WithString("type",
			mcp.Description("Entity type: function, method or class"),
		),
		mcp.WithString("file",
			mcp.Description("File path as stored (relative to the analyzed root)"),
		),
		mcp.WithString("name",
			mcp.Description("Case-insensitive name substring"),
		),
		mcp.WithBoolean("endpoints_only",
			mcp.Description("Only entities flagged as API endpoints"),
		),
		mcp.WithNumber("min_complexity",
			mcp.Description("Minimum complexity score"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entities to return (default 100)"),
		),
	)
}

func findEndpointsTool() mcp.Tool {
	return mcp.NewTool("find_endpoints",
		mcp.WithDescription("List every saved function or method whose decorators look like HTTP route registrations, with the detected path."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

func getSummaryTool() mcp.Tool {
	return mcp.NewTool("get_summary",
		mcp.WithDescription("Markdown report over the saved entities: counts, documentation coverage, complexity distribution, most complex entities and endpoints."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithNumber("top",
			mcp.Description("Number of most complex entities to list"),
		),
	)
}

// --- Handler factories ---

var errNoStore = errors.New("no autodoc database found; run 'autodoc analyze --save <path>' first")

func makeAnalyzeFileHandler(a *analyze.Analyzer) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		if !extract.Supported(path) {
			return mcp.NewToolResultError(fmt.Sprintf("%s is not a Python file", path)), nil
		}

		records, err := a.AnalyzeFile(ctx, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analyze failed: %v", err)), nil
		}
		return jsonResult(records)
	}
}

func makeAnalyzeSourceHandler(a *analyze.Analyzer) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		source := req.GetString("source", "")
		if strings.TrimSpace(source) == "" {
			return mcp.NewToolResultError("source is required"), nil
		}
		filePath := req.GetString("file_path", "<source>")

		records, err := a.AnalyzeSource([]byte(source), filePath)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analyze failed: %v", err)), nil
		}
		return jsonResult(records)
	}
}

func makeListEntitiesHandler(st store.Store) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if st == nil {
			return mcp.NewToolResultError(errNoStore.Error()), nil
		}
		limit := req.GetInt("limit", 100)
		if limit <= 0 {
			limit = 100
		}

		filter := store.Filter{
			Type:          req.GetString("type", ""),
			FilePath:      req.GetString("file", ""),
			NameContains:  req.GetString("name", ""),
			EndpointsOnly: req.GetBool("endpoints_only", false),
			MinComplexity: req.GetInt("min_complexity", 0),
			Limit:         limit,
		}
		if query := req.GetString("query", ""); query != "" {
			results, err := st.Search(query, filter)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
			}
			return jsonResult(results)
		}

		records, err := st.ListEntities(filter)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list entities failed: %v", err)), nil
		}
		return jsonResult(emptyRecords(records))
	}
}

func makeFindEndpointsHandler(st store.Store) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if st == nil {
			return mcp.NewToolResultError(errNoStore.Error()), nil
		}
		records, err := st.Endpoints()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("find endpoints failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatEndpoints(records)), nil
	}
}

func makeSummaryHandler(st store.Store, defaultTop int) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if st == nil {
			return mcp.NewToolResultError(errNoStore.Error()), nil
		}
		records, err := st.ListEntities(store.Filter{})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load entities failed: %v", err)), nil
		}
		top := req.GetInt("top", defaultTop)
		if top < 0 {
			top = defaultTop
		}
		return mcp.NewToolResultText(report.Markdown(report.Summarize(records, top))), nil
	}
}

// --- Formatting helpers ---

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func formatEndpoints(records []boundary.Record) string {
	if len(records) == 0 {
		return "No API endpoints found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## API endpoints (%d)\n\n", len(records))
	for _, r := range records {
		path := "(no path)"
		if r.EndpointPath != nil {
			path = *r.EndpointPath
		}
		fmt.Fprintf(&sb, "- `%s` %s (%s:%d)\n", path, r.Name, r.FilePath, r.LineNumber)
		if len(r.Decorators) > 0 {
			fmt.Fprintf(&sb, "  decorators: %s\n", strings.Join(r.Decorators, ", "))
		}
	}
	return sb.String()
}
