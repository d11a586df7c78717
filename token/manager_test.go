package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

func hs256Config() Config {
	return Config{
		AccessTTL:     time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("unit-test-signing-secret-0123456789"),
	}
}

func ed25519Config(t *testing.T) Config {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	return Config{
		AccessTTL:     time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	}
}

func TestCreateAndParseAccessHS256(t *testing.T) {
	m, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	signed, expiry, err := m.CreateAccess("user-1", "a@example.com", true)
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if time.Until(expiry) <= 0 {
		t.Fatal("expiry must be in the future")
	}

	claims, err := m.ParseAccess(signed)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.UID != "user-1" || claims.Email != "a@example.com" || !claims.Verified {
		t.Fatalf("claims = %+v, want uid/email/verified round trip", claims)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("Subject = %q, want user-1", claims.Subject)
	}
}

func TestCreateAndParseAccessEd25519(t *testing.T) {
	m, err := NewManager(ed25519Config(t))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	signed, _, err := m.CreateAccess("user-2", "b@example.com", false)
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	claims, err := m.ParseAccess(signed)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.UID != "user-2" || claims.Verified {
		t.Fatalf("claims = %+v, want uid user-2 and unverified", claims)
	}
}

func TestParseAccessRejectsCrossAlgorithm(t *testing.T) {
	hs, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	ed, err := NewManager(ed25519Config(t))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	signed, _, err := hs.CreateAccess("user-1", "a@example.com", true)
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	// An HS256 token must never validate against the ed25519 verifier.
	if _, err := ed.ParseAccess(signed); err == nil {
		t.Fatal("cross-algorithm token accepted")
	}
}

func TestParseAccessRejectsExpired(t *testing.T) {
	cfg := hs256Config()
	cfg.AccessTTL = time.Millisecond
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	signed, _, err := m.CreateAccess("user-1", "a@example.com", true)
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := m.ParseAccess(signed); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestParseAccessRejectsTampering(t *testing.T) {
	m, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	signed, _, err := m.CreateAccess("user-1", "a@example.com", true)
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	tampered := signed[:len(signed)-2] + "xx"
	if _, err := m.ParseAccess(tampered); err == nil {
		t.Fatal("tampered token accepted")
	}
}

func TestParseAccessEnforcesIssuerAndAudience(t *testing.T) {
	cfg := hs256Config()
	cfg.Issuer = "authcore"
	cfg.Audience = "fintrackr-api"
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	signed, _, err := m.CreateAccess("user-1", "a@example.com", true)
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if _, err := m.ParseAccess(signed); err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}

	otherCfg := hs256Config()
	otherCfg.Issuer = "someone-else"
	otherCfg.Audience = "fintrackr-api"
	other, err := NewManager(otherCfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if _, err := other.ParseAccess(signed); err == nil {
		t.Fatal("foreign issuer accepted")
	}
}

func TestNewManagerValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero ttl", Config{SigningMethod: MethodHS256, PrivateKey: []byte("k")}},
		{"hs256 without key", Config{AccessTTL: time.Hour, SigningMethod: MethodHS256}},
		{"unknown method", Config{AccessTTL: time.Hour, SigningMethod: "rs256"}},
		{
			"ed25519 without keys",
			Config{AccessTTL: time.Hour, SigningMethod: MethodEd25519},
		},
		{
			"excessive leeway",
			Config{AccessTTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("k"), Leeway: time.Hour},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager(tc.cfg); err == nil {
				t.Fatal("expected config rejection")
			}
		})
	}
}

func TestVerifyKeysByKID(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	m, err := NewManager(Config{
		AccessTTL:     time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		KeyID:         "2026-01",
		VerifyKeys: map[string][]byte{
			"2026-01": pub,
		},
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	signed, _, err := m.CreateAccess("user-1", "a@example.com", true)
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if _, err := m.ParseAccess(signed); err != nil {
		t.Fatalf("ParseAccess by kid failed: %v", err)
	}
}
