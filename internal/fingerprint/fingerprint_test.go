package fingerprint

import (
	"strings"
	"testing"
)

func TestOf(t *testing.T) {
	a := Of("token-a")
	if len(a) != 32 {
		t.Errorf("fingerprint length = %d, want 32", len(a))
	}
	if a != Of("token-a") {
		t.Error("fingerprint is not deterministic")
	}
	if a == Of("token-b") {
		t.Error("different credentials share a fingerprint")
	}
	if strings.Contains(a, "token") {
		t.Error("fingerprint leaks the credential")
	}
	if Of("ab", "c") == Of("a", "bc") {
		t.Error("part boundaries are not preserved")
	}
}

func TestOf_Anonymous(t *testing.T) {
	if got := Of(); got != Anonymous {
		t.Errorf("Of() = %q, want %q", got, Anonymous)
	}
	if got := Of("", ""); got != Anonymous {
		t.Errorf("Of(\"\", \"\") = %q, want %q", got, Anonymous)
	}
}
