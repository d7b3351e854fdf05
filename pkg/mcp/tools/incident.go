// Package tools provides MCP tool implementations for the context graph.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/opslens/contextgraph/pkg/auth"
	"github.com/opslens/contextgraph/pkg/database"
	"github.com/opslens/contextgraph/pkg/repositories"
	"github.com/opslens/contextgraph/pkg/services"
)

// IncidentToolDeps contains dependencies for incident analysis tools.
type IncidentToolDeps struct {
	DB              *database.DB
	IncidentService services.IncidentService
	EntityRepo      repositories.EntityRepository
	Logger          *zap.Logger
}

// RegisterIncidentTools registers incident analysis MCP tools.
func RegisterIncidentTools(s *server.MCPServer, deps *IncidentToolDeps) {
	registerAnalyzeIncidentTool(s, deps)
	registerGetEntityTool(s, deps)
}

// tenantScope extracts the tenant from JWT claims and acquires a scoped
// database connection for the tool call.
func tenantScope(ctx context.Context, deps *IncidentToolDeps) (string, context.Context, func(), error) {
	claims, ok := auth.GetClaims(ctx)
	if !ok {
		return "", nil, nil, fmt.Errorf("authentication required")
	}
	if claims.TenantID == "" {
		return "", nil, nil, fmt.Errorf("missing tenant ID in token")
	}

	scope, err := deps.DB.WithTenant(ctx, claims.TenantID)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to acquire database connection: %w", err)
	}

	tenantCtx := database.SetTenantScope(ctx, scope)
	return claims.TenantID, tenantCtx, func() { scope.Close() }, nil
}

// registerAnalyzeIncidentTool adds the analyze_incident tool.
func registerAnalyzeIncidentTool(s *server.MCPServer, deps *IncidentToolDeps) {
	tool := mcp.NewTool(
		"analyze_incident",
		mcp.WithDescription(
			"Analyze the topology context of an incident on a network entity. "+
				"Returns upstream dependencies (potential root causes), downstream impacts "+
				"(affected entities), and SLAs contractually exposed through downstream "+
				"enterprise customers. "+
				"Example: analyze_incident(entity_id='cell-0042') for an alarm on cell 0042.",
		),
		mcp.WithString(
			"entity_id",
			mcp.Required(),
			mcp.Description("External identifier of the entity the incident was raised on (e.g., 'cell-0042')"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tenantID, tenantCtx, cleanup, err := tenantScope(ctx, deps)
		if err != nil {
			return nil, err
		}
		defer cleanup()

		externalID, err := req.RequireString("entity_id")
		if err != nil {
			return nil, err
		}

		result, err := deps.IncidentService.AnalyzeIncident(tenantCtx, tenantID, externalID)
		if err != nil {
			deps.Logger.Debug("Incident analysis tool call failed",
				zap.String("tenant_id", tenantID),
				zap.String("external_id", externalID),
				zap.Error(err))
			return nil, err
		}

		jsonResult, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal incident context: %w", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// registerGetEntityTool adds the get_entity tool for inspecting a single node.
func registerGetEntityTool(s *server.MCPServer, deps *IncidentToolDeps) {
	tool := mcp.NewTool(
		"get_entity",
		mcp.WithDescription(
			"Retrieve full details about a topology entity by its external identifier: "+
				"type, name, attributes, location and business metadata. "+
				"Example: get_entity(entity_id='voice-core-1').",
		),
		mcp.WithString(
			"entity_id",
			mcp.Required(),
			mcp.Description("External identifier of the entity to retrieve"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tenantID, tenantCtx, cleanup, err := tenantScope(ctx, deps)
		if err != nil {
			return nil, err
		}
		defer cleanup()

		externalID, err := req.RequireString("entity_id")
		if err != nil {
			return nil, err
		}

		entity, err := deps.EntityRepo.Resolve(tenantCtx, tenantID, externalID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve entity %q: %w", externalID, err)
		}

		jsonResult, err := json.Marshal(entity)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal entity: %w", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
