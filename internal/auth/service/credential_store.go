package service

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/microblog-go/microblog/internal/common/constants"
	commoncrypto "github.com/microblog-go/microblog/internal/common/crypto"
	"github.com/microblog-go/microblog/internal/common/validation"
)

// CredentialStore hashes and verifies passwords and derives the avatar URL
// for an email address.
type CredentialStore struct {
	hasher     commoncrypto.PasswordHasher
	avatarHost string
}

func NewCredentialStore(hasher commoncrypto.PasswordHasher, avatarHost string) *CredentialStore {
	if avatarHost == "" {
		avatarHost = constants.DefaultAvatarHost
	}
	return &CredentialStore{hasher: hasher, avatarHost: avatarHost}
}

// SetPassword returns a salted hash of plaintext. Storing it is the
// caller's job.
func (c *CredentialStore) SetPassword(plaintext string) (string, error) {
	if plaintext == "" {
		return "", validation.NewFieldError("password", "This field is required.")
	}
	// bcrypt ignores everything past 72 bytes; refuse rather than truncate.
	if len(plaintext) > constants.PasswordMaxLength {
		return "", validation.NewFieldError("password",
			fmt.Sprintf("Field cannot be longer than %d bytes.", constants.PasswordMaxLength))
	}

	hash, err := c.hasher.Hash(plaintext)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// CheckPassword reports whether plaintext matches storedHash. Malformed
// hashes and hasher errors read as a mismatch.
func (c *CredentialStore) CheckPassword(plaintext, storedHash string) bool {
	if plaintext == "" || storedHash == "" || len(plaintext) > constants.PasswordMaxLength {
		return false
	}
	return c.hasher.Compare(storedHash, plaintext) == nil
}

func (c *CredentialStore) AvatarURL(email string, size int) string {
	if size <= 0 {
		size = constants.DefaultAvatarSize
	}
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))

	u := url.URL{
		Scheme: "https",
		Host:   c.avatarHost,
		Path:   "/avatar/" + hex.EncodeToString(sum[:]),
	}
	u.RawQuery = "d=identicon&s=" + strconv.Itoa(size)
	return u.String()
}
