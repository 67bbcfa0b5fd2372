package mcpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
	"github.com/kirillkom/vehicle-checker/internal/core/ports"
)

const (
	toolCheckVehicle  = "check_vehicle"
	toolLookupHistory = "lookup_history"
	toolClearCache    = "clear_cache"

	defaultHistoryLimit = 10
)

// Tools exposes typed plate lookups and history to MCP clients.
type Tools struct {
	lookups ports.PlateLookupService
	history ports.HistoryReader
	cache   ports.CacheAdmin
	logger  *slog.Logger
}

func NewTools(lookups ports.PlateLookupService, history ports.HistoryReader, cache ports.CacheAdmin, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{lookups: lookups, history: history, cache: cache, logger: logger}
}

func (t *Tools) NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer("vehicle-checker", version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(mcp.NewTool(toolCheckVehicle,
		mcp.WithDescription("Look up tax and MOT status of a UK vehicle by registration number. Cached results are reused until they expire."),
		mcp.WithString("registration",
			mcp.Required(),
			mcp.Description("Registration as printed on the plate, e.g. AB12 CDE. Spaces and case are ignored."),
		),
	), t.checkVehicle)

	s.AddTool(mcp.NewTool(toolLookupHistory,
		mcp.WithDescription("List the most recent successful lookups, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entries to return (1-50, default 10)."),
		),
	), t.lookupHistory)

	s.AddTool(mcp.NewTool(toolClearCache,
		mcp.WithDescription("Remove cached vehicle records so the next lookup fetches fresh data."),
		mcp.WithBoolean("expired_only",
			mcp.Description("Only remove expired or unreadable entries."),
		),
	), t.clearCache)

	return s
}

func (t *Tools) checkVehicle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	registration, err := request.RequireString("registration")
	if err != nil {
		return mcp.NewToolResultError(domain.MsgEmptyRegistration), nil
	}
	outcome, err := t.lookups.LookupRegistration(ctx, registration)
	if err != nil {
		t.logger.Info("mcp_tool_failed", "tool", toolCheckVehicle, "kind", domain.KindOf(err), "error", err)
		return mcp.NewToolResultError(domain.UserMessage(err)), nil
	}
	return mcp.NewToolResultText(formatOutcome(outcome)), nil
}

func (t *Tools) lookupHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", defaultHistoryLimit)
	if limit < 1 {
		limit = defaultHistoryLimit
	}

	entries, err := t.history.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(domain.UserMessage(err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No lookups yet."), nil
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	var b strings.Builder
	for _, entry := range entries {
		v := entry.Data
		fmt.Fprintf(&b, "%s  %s  %s %s, tax: %s, MOT: %s\n",
			entry.Time().UTC().Format("2006-01-02 15:04"),
			entry.Plate,
			v.Colour,
			v.Make,
			v.TaxStatus.Display(),
			v.MOTStatus,
		)
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func (t *Tools) clearCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		removed int
		err     error
	)
	if request.GetBool("expired_only", false) {
		removed, err = t.cache.ClearExpired(ctx)
	} else {
		removed, err = t.cache.Clear(ctx)
	}
	if err != nil {
		t.logger.Warn("mcp_tool_failed", "tool", toolClearCache, "error", err)
		return mcp.NewToolResultError(domain.UserMessage(err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed %d cached entries.", removed)), nil
}

func formatOutcome(outcome *domain.LookupOutcome) string {
	v := outcome.Vehicle
	lines := []string{
		fmt.Sprintf("%s (%s)", outcome.Plate, outcome.Source),
		fmt.Sprintf("Make: %s", v.Make),
		fmt.Sprintf("Colour: %s", v.Colour),
		fmt.Sprintf("Fuel: %s", v.FuelType),
		fmt.Sprintf("Year: %d", v.YearOfManufacture),
		fmt.Sprintf("Tax: %s, due %s", v.TaxStatus.Display(), domain.FormatDate(v.TaxDueDate)),
		fmt.Sprintf("MOT: %s, expires %s", v.MOTStatus, domain.FormatDate(v.MOTExpiryDate)),
	}
	if v.EngineCapacity != nil {
		lines = append(lines, fmt.Sprintf("Engine: %d cc", *v.EngineCapacity))
	}
	if v.CO2Emissions != nil {
		lines = append(lines, fmt.Sprintf("CO2: %d g/km", *v.CO2Emissions))
	}
	return strings.Join(lines, "\n")
}
