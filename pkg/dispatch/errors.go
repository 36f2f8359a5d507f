package dispatch

import "errors"

var (
	// ErrMalformedToolName means the tool name has no plugin_command shape.
	ErrMalformedToolName = errors.New("malformed tool name")

	// ErrUnknownPlugin means the tool name resolved to a plugin that is not
	// in the registry.
	ErrUnknownPlugin = errors.New("unknown plugin")

	// ErrInvalidArguments means the arguments failed schema validation.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrTimeout means the subprocess exceeded the call deadline and was
	// killed.
	ErrTimeout = errors.New("tool call timed out")
)
