package common

import (
	"errors"
	"testing"
)

type pauseMap map[string]bool

func (p pauseMap) IsPaused(module string) bool { return p[module] }

func TestGuard(t *testing.T) {
	if err := Guard(nil, "sale"); err != nil {
		t.Fatalf("nil view must not guard: %v", err)
	}
	if err := Guard(pauseMap{}, ""); err != nil {
		t.Fatalf("empty module must not guard: %v", err)
	}
	if err := Guard(pauseMap{"sale": false}, "sale"); err != nil {
		t.Fatalf("unpaused module must pass: %v", err)
	}
	if err := Guard(pauseMap{"sale": true}, "sale"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected pause rejection, got %v", err)
	}
}
