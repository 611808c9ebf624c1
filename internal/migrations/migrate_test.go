package migrations

import (
	"strings"
	"testing"
)

func TestFiles_OrderedAndGooseAnnotated(t *testing.T) {
	names, err := Files()
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 migrations, got %v", names)
	}
	if names[0] != "00001_create_leads.sql" || names[1] != "00002_create_estimates.sql" {
		t.Fatalf("unexpected order: %v", names)
	}

	for _, name := range names {
		data, err := embedded.ReadFile("sql/" + name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		body := string(data)
		if !strings.Contains(body, "-- +goose Up") || !strings.Contains(body, "-- +goose Down") {
			t.Fatalf("%s is missing goose annotations", name)
		}
	}
}
