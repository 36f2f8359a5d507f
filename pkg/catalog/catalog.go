package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/harun/toolgate/internal/metrics"
	"github.com/harun/toolgate/pkg/plugin"
)

// toolNameRegex is the charset accepted by downstream tool-calling systems
var toolNameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Tool is one externally addressable unit of callable functionality
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`

	Plugin     string `json:"-"`
	Command    string `json:"-"`
	MutatesEnv bool   `json:"-"`

	compiled *gojsonschema.Schema
}

// Catalog is the full set of tools advertised to callers. It is built once
// at startup and read-only afterwards, so concurrent readers need no locks.
type Catalog struct {
	tools map[string]*Tool
	order []string
}

// Build synthesizes the tool catalogue from the plugin registry. Known tools
// get their hand-authored description and schema; unknown tools get a
// permissive generic schema so they remain callable without validation.
func Build(registry map[string]*plugin.Descriptor, logger zerolog.Logger, m *metrics.Metrics) *Catalog {
	logger = logger.With().Str("component", "catalog").Logger()

	c := &Catalog{tools: make(map[string]*Tool)}

	pluginNames := make([]string, 0, len(registry))
	for name := range registry {
		pluginNames = append(pluginNames, name)
	}
	sort.Strings(pluginNames)

	for _, pluginName := range pluginNames {
		if strings.Contains(pluginName, "_") {
			// The dispatcher splits tool names on the first underscore, so
			// such a plugin could never be resolved back
			logger.Warn().Str("plugin", pluginName).Msg("Plugin name contains underscore, skipping")
			continue
		}

		desc := registry[pluginName]
		commandNames := make([]string, 0, len(desc.Commands))
		for name := range desc.Commands {
			commandNames = append(commandNames, name)
		}
		sort.Strings(commandNames)

		for _, commandName := range commandNames {
			tool, err := buildTool(pluginName, desc.Commands[commandName])
			if err != nil {
				logger.Warn().Err(err).
					Str("plugin", pluginName).
					Str("command", commandName).
					Msg("Skipping tool")
				continue
			}

			if _, exists := c.tools[tool.Name]; exists {
				logger.Error().Str("tool", tool.Name).Msg("Duplicate tool name, skipping")
				continue
			}

			c.tools[tool.Name] = tool
			c.order = append(c.order, tool.Name)
			m.IncToolsRegistered()
			logger.Info().Str("tool", tool.Name).Msg("Registered tool")
		}
	}

	return c
}

// buildTool synthesizes one tool descriptor for a (plugin, command) pair
func buildTool(pluginName string, cmd *plugin.CommandDescriptor) (*Tool, error) {
	toolName := pluginName + "_" + cmd.Name
	if !toolNameRegex.MatchString(toolName) {
		return nil, fmt.Errorf("tool name %q contains invalid characters", toolName)
	}

	tool := &Tool{
		Name:       toolName,
		Plugin:     pluginName,
		Command:    cmd.Name,
		MutatesEnv: cmd.MutatesEnv,
	}

	if static, ok := staticSchemas[toolName]; ok {
		tool.Description = static.description
		tool.InputSchema = map[string]any{
			"type":                 "object",
			"properties":           static.properties,
			"additionalProperties": false,
		}
		// An empty required array is not valid JSON Schema
		if len(static.required) > 0 {
			tool.InputSchema["required"] = static.required
		}
	} else {
		tool.Description = cmd.Description
		if tool.Description == "" {
			tool.Description = fmt.Sprintf("Execute %s %s command", pluginName, cmd.Name)
		}
		tool.InputSchema = map[string]any{
			"type":                 "object",
			"properties":           map[string]any{},
			"additionalProperties": true,
		}
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(tool.InputSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema for %s: %w", toolName, err)
	}
	tool.compiled = schema

	return tool, nil
}

// Tools returns all tools in registration order
func (c *Catalog) Tools() []*Tool {
	tools := make([]*Tool, 0, len(c.order))
	for _, name := range c.order {
		tools = append(tools, c.tools[name])
	}
	return tools
}

// Get returns a tool by name
func (c *Catalog) Get(name string) (*Tool, bool) {
	tool, ok := c.tools[name]
	return tool, ok
}

// Len returns the number of registered tools
func (c *Catalog) Len() int {
	return len(c.tools)
}

// Validate checks arguments against the tool's input schema. Unknown tools
// are not an error here; the dispatcher handles resolution separately.
func (c *Catalog) Validate(toolName string, args map[string]any) error {
	tool, ok := c.tools[toolName]
	if !ok || tool.compiled == nil {
		return nil
	}

	if args == nil {
		args = map[string]any{}
	}

	result, err := tool.compiled.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid arguments for %s: %s", toolName, strings.Join(msgs, "; "))
	}

	return nil
}
