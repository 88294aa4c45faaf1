package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/docsweep/docsweep/internal/anonymise"
	"github.com/docsweep/docsweep/internal/config"
	"github.com/docsweep/docsweep/internal/detect"
	"github.com/docsweep/docsweep/internal/extract"
	"github.com/docsweep/docsweep/internal/review"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *Service
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, service *Service) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		service:   service,
		mcpServer: mcpServer,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	// Redaction tools. redact_document processes one bounded page batch per
	// call; the client re-invokes it with the same session until the result
	// reports the document is done.
	redactTool := mcp.NewTool(
		"redact_document",
		mcp.WithDescription("Run one page batch of PII redaction on a document; call repeatedly until done"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF or image file"),
		),
		mcp.WithString("session",
			mcp.Description("Session key isolating this user's state (defaults to 'default')"),
		),
		mcp.WithString("extract",
			mcp.Description("Extraction method: text, tesseract or textract (defaults to configuration)"),
		),
		mcp.WithString("detect",
			mcp.Description("Detection method: none, local or comprehend (defaults to configuration)"),
		),
		mcp.WithString("allow_list",
			mcp.Description("Path to a CSV of terms exempt from redaction"),
		),
		mcp.WithString("deny_list",
			mcp.Description("Path to a CSV of terms always redacted"),
		),
		mcp.WithString("full_pages",
			mcp.Description("Path to a CSV of page numbers to black out entirely"),
		),
		mcp.WithBoolean("fuzzy_deny",
			mcp.Description("Fuzzy-match deny list terms within the configured edit distance"),
		),
	)
	s.mcpServer.AddTool(redactTool, s.handleRedactDocument)

	estimateTool := mcp.NewTool(
		"estimate_cost",
		mcp.WithDescription("Estimate cloud cost and duration for redacting a document without processing it"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF or image file"),
		),
		mcp.WithString("session",
			mcp.Description("Session key (defaults to 'default')"),
		),
		mcp.WithString("extract",
			mcp.Description("Extraction method: text, tesseract or textract"),
		),
		mcp.WithString("detect",
			mcp.Description("Detection method: none, local or comprehend"),
		),
		mcp.WithBoolean("text_only",
			mcp.Description("Extract text only, skipping detection"),
		),
	)
	s.mcpServer.AddTool(estimateTool, s.handleEstimateCost)

	// Review tools operate on the session's reconciler, created when a
	// redaction run completes or review files are loaded.
	reviewLoadTool := mcp.NewTool(
		"review_load",
		mcp.WithDescription("Load one or more saved review files into a review session"),
		mcp.WithString("paths",
			mcp.Required(),
			mcp.Description("Comma-separated review CSV paths; multiple files are merged"),
		),
		mcp.WithNumber("pages",
			mcp.Description("Document page count (grown automatically if rows reference later pages)"),
		),
		mcp.WithString("session",
			mcp.Description("Session key (defaults to 'default')"),
		),
	)
	s.mcpServer.AddTool(reviewLoadTool, s.handleReviewLoad)

	reviewNavigateTool := mcp.NewTool(
		"review_navigate",
		mcp.WithDescription("Move the review cursor to a page and list its redaction boxes"),
		mcp.WithNumber("page",
			mcp.Required(),
			mcp.Description("Target page number (clamped to the document)"),
		),
		mcp.WithString("session",
			mcp.Description("Session key (defaults to 'default')"),
		),
	)
	s.mcpServer.AddTool(reviewNavigateTool, s.handleReviewNavigate)

	reviewExcludeTool := mcp.NewTool(
		"review_exclude",
		mcp.WithDescription("Remove redaction boxes by ID, or all currently filtered rows when no IDs are given"),
		mcp.WithString("ids",
			mcp.Description("Comma-separated annotation IDs to exclude"),
		),
		mcp.WithString("session",
			mcp.Description("Session key (defaults to 'default')"),
		),
	)
	s.mcpServer.AddTool(reviewExcludeTool, s.handleReviewExclude)

	reviewUndoTool := mcp.NewTool(
		"review_undo",
		mcp.WithDescription("Undo the most recent exclusion; a second consecutive undo does nothing"),
		mcp.WithString("session",
			mcp.Description("Session key (defaults to 'default')"),
		),
	)
	s.mcpServer.AddTool(reviewUndoTool, s.handleReviewUndo)

	reviewFilterTool := mcp.NewTool(
		"review_filter",
		mcp.WithDescription("Filter review rows by label, page and text; dimensions compose with AND"),
		mcp.WithString("label",
			mcp.Description("Entity label to filter by"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number to filter by"),
		),
		mcp.WithString("text",
			mcp.Description("Case-insensitive text substring to filter by"),
		),
		mcp.WithString("session",
			mcp.Description("Session key (defaults to 'default')"),
		),
	)
	s.mcpServer.AddTool(reviewFilterTool, s.handleReviewFilter)

	reviewApplyTool := mcp.NewTool(
		"review_apply",
		mcp.WithDescription("Save the reviewed record and write the redacted output PDF"),
		mcp.WithString("session",
			mcp.Description("Session key (defaults to 'default')"),
		),
	)
	s.mcpServer.AddTool(reviewApplyTool, s.handleReviewApply)

	anonymiseTool := mcp.NewTool(
		"anonymise_data",
		mcp.WithDescription("Redact PII in open text or a CSV/XLSX file"),
		mcp.WithString("text",
			mcp.Description("Text to anonymise (mutually exclusive with path)"),
		),
		mcp.WithString("path",
			mcp.Description("Path to a CSV or XLSX file to anonymise"),
		),
		mcp.WithString("strategy",
			mcp.Description("Replacement strategy: redact, entity, mask, hash or drop (default redact)"),
		),
		mcp.WithString("columns",
			mcp.Description("Comma-separated column names to anonymise (default all)"),
		),
		mcp.WithString("session",
			mcp.Description("Session key (defaults to 'default')"),
		),
	)
	s.mcpServer.AddTool(anonymiseTool, s.handleAnonymiseData)
}

// sessionKey extracts the session argument with its default.
func sessionKey(request mcp.CallToolRequest) string {
	args := request.GetArguments()
	if key, ok := args["session"].(string); ok && key != "" {
		return key
	}
	return "default"
}

func optionalString(request mcp.CallToolRequest, name string) string {
	if v, ok := request.GetArguments()[name].(string); ok {
		return v
	}
	return ""
}

func optionalBool(request mcp.CallToolRequest, name string) bool {
	v, ok := request.GetArguments()[name].(bool)
	return ok && v
}

func optionalInt(request mcp.CallToolRequest, name string) int {
	if v, ok := request.GetArguments()[name].(float64); ok {
		return int(v)
	}
	return 0
}

func splitCSVArg(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Handler functions
func (s *Server) handleRedactDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := RedactOptions{
		Extraction:    extract.Method(optionalString(request, "extract")),
		Detection:     detect.Method(optionalString(request, "detect")),
		AllowListPath: optionalString(request, "allow_list"),
		DenyListPath:  optionalString(request, "deny_list"),
		FullPagesPath: optionalString(request, "full_pages"),
		FuzzyDeny:     optionalBool(request, "fuzzy_deny"),
	}

	summary, done, err := s.service.RedactDocument(ctx, sessionKey(request), path, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := summary
	if done {
		responseText += "\nStatus: DOCUMENT_DONE"
	} else {
		responseText += "\nStatus: CONTINUE - call redact_document again with the same arguments"
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleEstimateCost(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := RedactOptions{
		Extraction: extract.Method(optionalString(request, "extract")),
		Detection:  detect.Method(optionalString(request, "detect")),
	}
	est, err := s.service.EstimateCost(sessionKey(request), path, opts, optionalBool(request, "text_only"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := "Cost estimate\n"
	responseText += fmt.Sprintf("Cloud OCR pages: %d\n", est.TextractPages)
	responseText += fmt.Sprintf("Cloud PII pages: %d\n", est.ComprehendPages)
	responseText += fmt.Sprintf("Estimated cost: $%.4f\n", est.USD)
	responseText += fmt.Sprintf("Estimated time: %.0fs\n", est.Seconds)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleReviewLoad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := splitCSVArg(raw)
	if len(paths) == 0 {
		return mcp.NewToolResultError("no review file paths given"), nil
	}

	rows, err := s.service.ReviewLoad(sessionKey(request), paths, optionalInt(request, "pages"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Loaded %d review rows from %d file(s)", rows, len(paths))), nil
}

func (s *Server) handleReviewNavigate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, ok := request.GetArguments()["page"].(float64)
	if !ok {
		return mcp.NewToolResultError("page is required and must be a number"), nil
	}

	current, boxes, err := s.service.ReviewNavigate(sessionKey(request), int(page))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Page %d: %d redaction box(es)\n", current, len(boxes))
	for i, b := range boxes {
		responseText += fmt.Sprintf("%d. [%s] %q id=%s box=(%d,%d %dx%d)\n",
			i+1, b.Label, b.Text, b.ID, b.Box.Left, b.Box.Top, b.Box.Width, b.Box.Height)
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleReviewExclude(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := splitCSVArg(optionalString(request, "ids"))

	removed, err := s.service.ReviewExclude(sessionKey(request), ids)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Excluded %d row(s); review_undo reverses this", removed)), nil
}

func (s *Server) handleReviewUndo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	restored, err := s.service.ReviewUndo(sessionKey(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if restored {
		return mcp.NewToolResultText("Last exclusion undone"), nil
	}
	return mcp.NewToolResultText("Nothing to undo"), nil
}

func (s *Server) handleReviewFilter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := review.Filter{
		Label: optionalString(request, "label"),
		Page:  optionalInt(request, "page"),
		Text:  optionalString(request, "text"),
	}

	rows, opts, err := s.service.ReviewFilter(sessionKey(request), f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("%d row(s) match\n", len(rows))
	for i, row := range rows {
		responseText += fmt.Sprintf("%d. page %d [%s] %q id=%s\n", i+1, row.Page, row.Label, row.Text, row.ID)
	}
	responseText += fmt.Sprintf("\nAvailable labels: %s\n", strings.Join(opts.Labels, ", "))
	responseText += fmt.Sprintf("Available pages: %v\n", opts.Pages)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleReviewApply(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reviewPath, outPath, err := s.service.ReviewApply(sessionKey(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Review file: %s\nRedacted PDF: %s", reviewPath, outPath)), nil
}

func (s *Server) handleAnonymiseData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := optionalString(request, "text")
	path := optionalString(request, "path")
	if (text == "") == (path == "") {
		return mcp.NewToolResultError("exactly one of 'text' or 'path' must be given"), nil
	}

	strategy := anonymise.Strategy(optionalString(request, "strategy"))
	if strategy == "" {
		strategy = anonymise.StrategyRedact
	}
	columns := splitCSVArg(optionalString(request, "columns"))

	out, err := s.service.AnonymiseData(ctx, sessionKey(request), text, path, strategy, columns)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		logrus.Info("starting docsweep MCP server in stdio mode")
		logrus.WithFields(logrus.Fields{
			"input":  s.config.InputDir,
			"output": s.config.OutputDir,
		}).Info("directories")
	}

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
