// Package scaffold installs a starter zappy.yml and registers the zappy MCP
// server in a project's .mcp.json.
package scaffold

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TemplateFS holds the starter files. zappy.yml lives at templates/zappy.yml.
//
//go:embed templates/*
var TemplateFS embed.FS

// Action describes what Init did with one file.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
)

// Result reports one file touched by Init.
type Result struct {
	Path   string
	Action Action
}

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// ServerName is the key of the zappy entry in .mcp.json.
const ServerName = "zappy"

// mcpEntry is the MCP server configuration for the zappy binary.
var mcpEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "zappy",
  "args": ["serve-mcp"]
}`)

// Init writes zappy.yml and merges the zappy entry into .mcp.json under
// projectRoot. Existing files and entries are kept unless force is set.
func Init(projectRoot string, force bool) ([]Result, error) {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("scaffold: resolving project root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("scaffold: %w", err)
	}

	cfgResult, err := writeConfig(filepath.Join(abs, "zappy.yml"), force)
	if err != nil {
		return nil, err
	}
	mcpResult, err := mergeMCPConfig(filepath.Join(abs, ".mcp.json"), force)
	if err != nil {
		return []Result{cfgResult}, err
	}
	return []Result{cfgResult, mcpResult}, nil
}

func writeConfig(dest string, force bool) (Result, error) {
	if !force {
		if _, err := os.Stat(dest); err == nil {
			return Result{Path: dest, Action: ActionSkipped}, nil
		}
	}

	data, err := TemplateFS.ReadFile("templates/zappy.yml")
	if err != nil {
		return Result{}, fmt.Errorf("scaffold: reading embedded zappy.yml: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return Result{}, fmt.Errorf("scaffold: writing %s: %w", dest, err)
	}
	return Result{Path: dest, Action: ActionCreated}, nil
}

// mergeMCPConfig creates or merges the zappy entry into .mcp.json, keeping
// every other server entry.
func mergeMCPConfig(mcpPath string, force bool) (Result, error) {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Result{}, fmt.Errorf("scaffold: parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers[ServerName]; exists && !force {
		return Result{Path: mcpPath, Action: ActionSkipped}, nil
	}

	cfg.MCPServers[ServerName] = mcpEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("scaffold: marshaling .mcp.json: %w", err)
	}
	if err := os.WriteFile(mcpPath, append(out, '\n'), 0o644); err != nil {
		return Result{}, fmt.Errorf("scaffold: writing %s: %w", mcpPath, err)
	}

	action := ActionCreated
	if data != nil {
		action = ActionUpdated
	}
	return Result{Path: mcpPath, Action: action}, nil
}
