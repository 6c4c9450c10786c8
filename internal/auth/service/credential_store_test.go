package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/microblog-go/microblog/internal/common/validation"
)

func TestCredentialStore_SetPasswordRoundTrip(t *testing.T) {
	store := fastBcrypt()

	for _, p := range []string{"pw1", "correct horse battery staple", "пароль", " leading space"} {
		hash, err := store.SetPassword(p)
		if err != nil {
			t.Fatalf("SetPassword(%q): %v", p, err)
		}
		if hash == p || strings.Contains(hash, p) {
			t.Errorf("hash for %q leaks the plaintext", p)
		}
		if !store.CheckPassword(p, hash) {
			t.Errorf("CheckPassword(%q) should be true", p)
		}
		if store.CheckPassword(p+"x", hash) {
			t.Errorf("CheckPassword with a different password should be false")
		}
	}

	longest := strings.Repeat("a", 72)
	hash, err := store.SetPassword(longest)
	if err != nil {
		t.Fatalf("SetPassword(72 bytes): %v", err)
	}
	if !store.CheckPassword(longest, hash) {
		t.Fatal("72-byte password should verify")
	}
	if store.CheckPassword(longest+"DIFFERENT", hash) {
		t.Error("a longer password sharing the first 72 bytes must not verify")
	}
}

func TestCredentialStore_Salted(t *testing.T) {
	store := fastBcrypt()

	first, _ := store.SetPassword("pw1")
	second, _ := store.SetPassword("pw1")
	if first == second {
		t.Fatal("two hashes of the same password should differ")
	}
	if !store.CheckPassword("pw1", first) || !store.CheckPassword("pw1", second) {
		t.Fatal("both hashes should verify")
	}
}

func TestCredentialStore_SetPasswordRejects(t *testing.T) {
	store := fastBcrypt()

	if _, err := store.SetPassword(""); !errors.Is(err, validation.ErrValidation) {
		t.Errorf("empty password: expected validation error, got %v", err)
	}
	if _, err := store.SetPassword(strings.Repeat("a", 73)); !errors.Is(err, validation.ErrValidation) {
		t.Errorf("73-byte password: expected validation error, got %v", err)
	}
	if _, err := store.SetPassword(strings.Repeat("a", 72)); err != nil {
		t.Errorf("72-byte password should be accepted, got %v", err)
	}
}

func TestCredentialStore_CheckPasswordNeverPanicsOnBadHash(t *testing.T) {
	store := fastBcrypt()

	for _, hash := range []string{"", "plaintext", "$2a$10$short", "$argon2id$v=19$garbage"} {
		if store.CheckPassword("pw1", hash) {
			t.Errorf("malformed hash %q should not verify", hash)
		}
	}
	if store.CheckPassword("", "$2a$04$abcdefghijklmnopqrstuu") {
		t.Error("empty password should not verify")
	}
}

func TestCredentialStore_CheckPasswordHasherError(t *testing.T) {
	store := NewCredentialStore(&mockHasher{
		compareFunc: func(string, string) error { return errors.New("boom") },
	}, "")
	if store.CheckPassword("pw1", "anything") {
		t.Error("hasher error should read as mismatch")
	}
}

func TestCredentialStore_AvatarURL(t *testing.T) {
	store := fastBcrypt()

	got := store.AvatarURL("john@example.com", 80)
	want := "https://www.gravatar.com/avatar/d4c74594d841139328695756648b6bd6?d=identicon&s=80"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	if store.AvatarURL("A@B.com", 36) != store.AvatarURL("a@b.com", 36) {
		t.Error("avatar URL should not depend on email case")
	}
	if store.AvatarURL(" a@b.com ", 36) != store.AvatarURL("a@b.com", 36) {
		t.Error("avatar URL should ignore surrounding whitespace")
	}
	if !strings.HasSuffix(store.AvatarURL("a@b.com", 0), "s=128") {
		t.Error("non-positive size should fall back to the default")
	}

	custom := NewCredentialStore(&mockHasher{}, "avatars.local")
	if !strings.HasPrefix(custom.AvatarURL("a@b.com", 36), "https://avatars.local/avatar/") {
		t.Errorf("custom host not used: %s", custom.AvatarURL("a@b.com", 36))
	}
}
