package uid

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDGenerate(t *testing.T) {
	gen := NewUUID()

	a, b := gen.Generate(), gen.Generate()
	if a == b {
		t.Fatalf("Generate() returned the same id twice: %q", a)
	}

	id, err := uuid.Parse(a)
	if err != nil {
		t.Fatalf("uuid.Parse(%q) error = %v", a, err)
	}
	if id.Version() != 7 {
		t.Fatalf("Version() = %d, want 7", id.Version())
	}
}
