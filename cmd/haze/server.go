// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazeproj/haze-mcp/internal/config"
	"github.com/hazeproj/haze-mcp/internal/tool"
	"github.com/hazeproj/haze-mcp/internal/walk"
)

// newServer registers every tool on a fresh MCP server.
func newServer(pipeline *walk.Pipeline, cfg *config.Config) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "haze-mcp", Version: version}, nil)
	mcp.AddTool(server, tool.MetadataRunQuantumWalk, tool.NewRunQuantumWalk(pipeline, cfg).Handle)
	mcp.AddTool(server, tool.MetadataInterpretHistogram, tool.InterpretHistogram)
	mcp.AddTool(server, tool.MetadataSplitStoryline, tool.SplitStoryline)
	return server
}
