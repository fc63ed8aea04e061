package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/foomo/teamdirectory/service"
	"github.com/foomo/teamdirectory/service/vo"
)

const Version = "0.1.0"

type ListMembersRequest struct{}

type ListMembersResponse struct {
	Members []vo.Member `json:"members"` // Resolved members in manifest order
}

type GetManifestRequest struct{}

type GetManifestResponse struct {
	Manifest vo.Manifest `json:"manifest"` // Document names as listed in the manifest
}

type GetMemberRequest struct {
	Name string `json:"name"` // Route name of the member, e.g. "alice"
}

type GetMemberResponse struct {
	Profile *vo.Profile `json:"profile"`
}

// NewServer creates a new MCP server exposing the team directory
func NewServer(serviceInstance service.Service) *server.MCPServer {
	s := server.NewMCPServer(
		"Team Directory MCP",
		Version,
		server.WithToolCapabilities(false),
	)

	listMembersTool := mcp.NewTool("listMembers",
		mcp.WithDescription("List all team members with name, role, image, bio and social links"),
	)
	s.AddTool(listMembersTool, mcp.NewTypedToolHandler(getListMembersHandler(serviceInstance)))

	getManifestTool := mcp.NewTool("getManifest",
		mcp.WithDescription("Get the member documents listed in the team manifest"),
	)
	s.AddTool(getManifestTool, mcp.NewTypedToolHandler(getManifestHandler(serviceInstance)))

	getMemberTool := mcp.NewTool("getMember",
		mcp.WithDescription("Get the full profile of a team member including the rendered biography"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The member name as used in profile URLs, e.g. 'alice'"),
		),
	)
	s.AddTool(getMemberTool, mcp.NewTypedToolHandler(getMemberHandler(serviceInstance)))

	return s
}

func getListMembersHandler(serviceInstance service.Service) func(ctx context.Context, request mcp.CallToolRequest, args ListMembersRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args ListMembersRequest) (*mcp.CallToolResult, error) {
		return jsonResult(ListMembersResponse{Members: serviceInstance.ListMembers(ctx)})
	}
}

func getManifestHandler(serviceInstance service.Service) func(ctx context.Context, request mcp.CallToolRequest, args GetManifestRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args GetManifestRequest) (*mcp.CallToolResult, error) {
		return jsonResult(GetManifestResponse{Manifest: serviceInstance.LoadManifest(ctx)})
	}
}

func getMemberHandler(serviceInstance service.Service) func(ctx context.Context, request mcp.CallToolRequest, args GetMemberRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args GetMemberRequest) (*mcp.CallToolResult, error) {
		if args.Name == "" {
			return mcp.NewToolResultError("name is required"), nil
		}

		profile := serviceInstance.GetProfile(ctx, args.Name)
		if profile.NotFound() {
			return mcp.NewToolResultError(fmt.Sprintf("member %q not found", args.Name)), nil
		}
		return jsonResult(GetMemberResponse{Profile: profile})
	}
}

func jsonResult(response any) (*mcp.CallToolResult, error) {
	responseBytes, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseBytes)), nil
}
