package tool

import "errors"

var (
	// ErrToolNotFound is returned when a tool is not found in the registry.
	ErrToolNotFound = errors.New("tool not found")

	// ErrEmptyToolName is returned when a tool name is empty.
	ErrEmptyToolName = errors.New("tool name must not be empty")

	// ErrNoScopes is returned when a tool declares no scopes.
	ErrNoScopes = errors.New("tool must declare at least one scope")

	// ErrInvalidRisk is returned when a tool declares an unknown risk level.
	ErrInvalidRisk = errors.New("tool declares an unknown risk level")

	// ErrInvalidInput is returned when tool arguments fail schema validation.
	ErrInvalidInput = errors.New("tool input does not match schema")
)
