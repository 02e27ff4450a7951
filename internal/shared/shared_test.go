package shared

import (
	"testing"

	"github.com/google/uuid"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID()

	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("GenerateID produced a non-uuid value %q: %v", id, err)
	}
	if parsed.Version() != 4 {
		t.Errorf("expected a v4 uuid, got version %d", parsed.Version())
	}

	if GenerateID() == id {
		t.Error("expected successive ids to differ")
	}
}
