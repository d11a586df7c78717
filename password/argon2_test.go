package password

import (
	"strings"
	"testing"
)

func fastConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
}

func newFastHasher(t *testing.T) *Hasher {
	t.Helper()

	h, err := NewHasher(fastConfig())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newFastHasher(t)

	encoded, err := h.Hash("a-decent-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("encoded hash %q is not PHC argon2id", encoded)
	}

	ok, err := h.Verify("a-decent-password", encoded)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("correct password did not verify")
	}

	ok, err = h.Verify("a-wrong-password", encoded)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("wrong password verified")
	}
}

func TestHashSaltsAreUnique(t *testing.T) {
	h := newFastHasher(t)

	first, err := h.Hash("a-decent-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	second, err := h.Hash("a-decent-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	h := newFastHasher(t)

	if _, err := h.Hash("1234567"); err == nil {
		t.Fatal("expected rejection below the minimum byte length")
	}
	// Length is measured in bytes, not runes: 5 runes here is 10 bytes.
	if _, err := h.Hash("ééééé"); err != nil {
		t.Fatalf("multi-byte password rejected: %v", err)
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	h := newFastHasher(t)

	for _, encoded := range []string{
		"",
		"plainhash",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdA$aGFzaA",
	} {
		if _, err := h.Verify("whatever-pass", encoded); err == nil {
			t.Fatalf("Verify(%q) succeeded, want parse error", encoded)
		}
	}
}

func TestNeedsUpgrade(t *testing.T) {
	weak, err := NewHasher(fastConfig())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	encoded, err := weak.Hash("a-decent-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	needs, err := weak.NeedsUpgrade(encoded)
	if err != nil {
		t.Fatalf("NeedsUpgrade failed: %v", err)
	}
	if needs {
		t.Fatal("hash under current params must not need upgrade")
	}

	strongCfg := fastConfig()
	strongCfg.Memory = 16 * 1024
	strong, err := NewHasher(strongCfg)
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	needs, err = strong.NeedsUpgrade(encoded)
	if err != nil {
		t.Fatalf("NeedsUpgrade failed: %v", err)
	}
	if !needs {
		t.Fatal("weaker hash must be flagged for upgrade")
	}

	// The upgraded hash still verifies the original password.
	rehash, err := strong.Hash("a-decent-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	ok, err := strong.Verify("a-decent-password", rehash)
	if err != nil || !ok {
		t.Fatalf("rehash verify = %v/%v, want true/nil", ok, err)
	}
}

func TestNewHasherRejectsWeakConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"memory below floor", func(c *Config) { c.Memory = 1024 }},
		{"zero time", func(c *Config) { c.Time = 0 }},
		{"zero parallelism", func(c *Config) { c.Parallelism = 0 }},
		{"short salt", func(c *Config) { c.SaltLength = 8 }},
		{"short key", func(c *Config) { c.KeyLength = 8 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := fastConfig()
			tc.mutate(&cfg)
			if _, err := NewHasher(cfg); err == nil {
				t.Fatal("expected config rejection")
			}
		})
	}
}

func TestVerifyDummyDoesNotPanic(t *testing.T) {
	h := newFastHasher(t)
	h.VerifyDummy("any-password-at-all")
	h.VerifyDummy("")
}
