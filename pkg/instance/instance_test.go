package instance

import "testing"

func TestGetIDPrefersOverride(t *testing.T) {
	t.Setenv("SEEDSHOP_INSTANCE_ID", "api-7")
	t.Setenv("DYNO", "web.1")
	if got := GetID("local"); got != "api-7" {
		t.Fatalf("expected override, got %s", got)
	}
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv("SEEDSHOP_INSTANCE_ID", "")
	t.Setenv("DYNO", " ")
	t.Setenv("HOSTNAME", "")
	if got := GetID("local"); got != "local" {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestGetIDUsesDyno(t *testing.T) {
	t.Setenv("SEEDSHOP_INSTANCE_ID", "")
	t.Setenv("DYNO", "worker.2")
	if got := GetID("local"); got != "worker.2" {
		t.Fatalf("expected dyno, got %s", got)
	}
}
