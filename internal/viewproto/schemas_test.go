package viewproto_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"matchreplay.ai/internal/sim/worldtest"
	"matchreplay.ai/internal/viewproto"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func validate(t *testing.T, s *jsonschema.Schema, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(doc); err != nil {
		t.Fatalf("validate: %v\n%s", err, b)
	}
}

func TestSchemas_ValidateFrames(t *testing.T) {
	frameSchema := compile(t, "frame.schema.json")

	m := worldtest.Skirmish(30)
	w := worldtest.NewWorld(t, m)
	validate(t, frameSchema, viewproto.BuildFrame("skirmish", w, m.MaxRound()))
	for _, round := range []int32{5, 10, 22, 30} {
		worldtest.ApplyThrough(t, w, m, round)
		validate(t, frameSchema, viewproto.BuildFrame("skirmish", w, m.MaxRound()))
	}
}

func TestSchemas_ValidateCommandsAndBootstrap(t *testing.T) {
	cmdSchema := compile(t, "command.schema.json")
	for _, c := range []viewproto.CommandMsg{
		{Type: viewproto.TypeSeek, ProtocolVersion: viewproto.Version, Round: 12},
		{Type: viewproto.TypeStep, ProtocolVersion: viewproto.Version},
		{Type: viewproto.TypeBack, ProtocolVersion: viewproto.Version},
	} {
		validate(t, cmdSchema, c)
	}

	var bad any
	_ = json.Unmarshal([]byte(`{"type":"JUMP","protocol_version":"1.0"}`), &bad)
	if err := cmdSchema.Validate(bad); err == nil {
		t.Fatalf("expected unknown command type to fail validation")
	}

	m := worldtest.Skirmish(3)
	validate(t, compile(t, "bootstrap.schema.json"), viewproto.Bootstrap("skirmish", m, 0))
}
