package dialback

import "testing"

func TestGenerateKeyDeterministic(t *testing.T) {
	t.Parallel()
	k1 := GenerateKey("secret", "example.com", "example.org", "stream-1")
	k2 := GenerateKey("secret", "example.com", "example.org", "stream-1")
	if k1 != k2 {
		t.Errorf("GenerateKey not deterministic: %q vs %q", k1, k2)
	}
}

func TestGenerateKeyDiffersByInput(t *testing.T) {
	t.Parallel()
	base := GenerateKey("secret", "example.com", "example.org", "stream-1")
	variants := []string{
		GenerateKey("other-secret", "example.com", "example.org", "stream-1"),
		GenerateKey("secret", "other.example.com", "example.org", "stream-1"),
		GenerateKey("secret", "example.com", "other.example.org", "stream-1"),
		GenerateKey("secret", "example.com", "example.org", "stream-2"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d unexpectedly matched base key", i)
		}
	}
}

func TestVerifyKey(t *testing.T) {
	t.Parallel()
	key := GenerateKey("secret", "example.com", "example.org", "stream-1")
	if !VerifyKey("secret", "example.com", "example.org", "stream-1", key) {
		t.Error("VerifyKey should accept the key it generated")
	}
	if VerifyKey("secret", "example.com", "example.org", "stream-1", "wrong") {
		t.Error("VerifyKey should reject a wrong key")
	}
}
