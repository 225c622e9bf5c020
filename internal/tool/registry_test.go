package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

// stubTool implements Tool for registry testing.
type stubTool struct {
	name    string
	risk    RiskLevel
	scopes  []Scope
	content string
}

func (s stubTool) Name() string        { return s.name }
func (s stubTool) Description() string { return "stub: " + s.name }
func (s stubTool) InputSchema() Schema {
	return NewSchema(map[string]Property{
		"path": {Type: "string", Description: "target path"},
	}, "path")
}
func (s stubTool) Scopes() []Scope {
	if s.scopes != nil {
		return s.scopes
	}
	return []Scope{ScopeReadOnly}
}
func (s stubTool) Risk() RiskLevel {
	if s.risk != "" {
		return s.risk
	}
	return RiskLow
}
func (s stubTool) Execute(_ context.Context, _ json.RawMessage) (Output, error) {
	return Output{Content: s.content}, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(stubTool{name: "read_file"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := r.Get("read_file")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name() != "read_file" {
		t.Errorf("name = %q, want read_file", got.Name())
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, err := r.Get("nope"); !errors.Is(err, ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestRegistry_RegisterOverwrites(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(stubTool{name: "echo", content: "v1"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(stubTool{name: "echo", content: "v2"}); err != nil {
		t.Fatalf("second register: %v", err)
	}

	got, err := r.Get("echo")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	out, _ := got.Execute(context.Background(), nil)
	if out.Content != "v2" {
		t.Errorf("overwrite lost: content = %q, want v2", out.Content)
	}
	if n := len(r.Names()); n != 1 {
		t.Errorf("names = %d, want 1", n)
	}
}

func TestRegistry_RegisterRejectsMalformed(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	if err := r.Register(stubTool{name: "  "}); !errors.Is(err, ErrEmptyToolName) {
		t.Errorf("empty name: got %v", err)
	}
	if err := r.Register(stubTool{name: "x", scopes: []Scope{}}); !errors.Is(err, ErrNoScopes) {
		t.Errorf("no scopes: got %v", err)
	}
	if err := r.Register(stubTool{name: "y", risk: RiskLevel("extreme")}); !errors.Is(err, ErrInvalidRisk) {
		t.Errorf("invalid risk: got %v", err)
	}
}

func TestRegistry_DefinitionsSortedAndComplete(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.RegisterAll([]Tool{
		stubTool{name: "zeta"},
		stubTool{name: "alpha"},
	}); err != nil {
		t.Fatalf("register all: %v", err)
	}

	defs := r.Definitions()
	if len(defs) != 2 {
		t.Fatalf("definitions = %d, want 2", len(defs))
	}
	if defs[0].Name != "alpha" || defs[1].Name != "zeta" {
		t.Errorf("definitions not sorted: %q, %q", defs[0].Name, defs[1].Name)
	}
	if defs[0].InputSchema.Type != "object" {
		t.Errorf("schema type = %q, want object", defs[0].InputSchema.Type)
	}
}

func TestDefinition_RoundTrip(t *testing.T) {
	t.Parallel()

	def := Define(stubTool{name: "read_file"})

	raw, err := json.Marshal(def)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Definition
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Name != def.Name || decoded.Description != def.Description {
		t.Errorf("identity lost: %+v", decoded)
	}
	if len(decoded.InputSchema.Required) != 1 || decoded.InputSchema.Required[0] != "path" {
		t.Errorf("required lost: %+v", decoded.InputSchema.Required)
	}
	if decoded.InputSchema.Properties["path"].Type != "string" {
		t.Errorf("property lost: %+v", decoded.InputSchema.Properties)
	}
}
