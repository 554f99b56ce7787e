package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/argon2"
)

const (
	// encryptionMagic is prepended to encrypted exports so they can be
	// told apart from plain snapshots.
	encryptionMagic = "MAGICENC1"

	// Argon2id parameters (RFC 9106 recommendations)
	defaultArgon2Time    = 1
	defaultArgon2Memory  = 64 * 1024 // KB
	defaultArgon2Threads = 4
	keyLength            = 32 // AES-256
	saltLength           = 32
)

// EncryptionConfig holds the password and key-derivation parameters for
// encrypted exports.
type EncryptionConfig struct {
	Password      string
	Argon2Time    uint32
	Argon2Memory  uint32 // in KB
	Argon2Threads uint8
}

// DefaultEncryptionConfig returns an encryption config with secure defaults.
func DefaultEncryptionConfig(password string) *EncryptionConfig {
	return &EncryptionConfig{
		Password:      password,
		Argon2Time:    defaultArgon2Time,
		Argon2Memory:  defaultArgon2Memory,
		Argon2Threads: defaultArgon2Threads,
	}
}

// deriveKey derives an AES key from the password with Argon2id.
func deriveKey(password string, salt []byte, config *EncryptionConfig) []byte {
	return argon2.IDKey(
		[]byte(password),
		salt,
		config.Argon2Time,
		config.Argon2Memory,
		config.Argon2Threads,
		keyLength,
	)
}

// EncryptData encrypts plaintext with AES-256-GCM under a key derived from
// the config's password. Output layout: salt || nonce || ciphertext+tag.
func EncryptData(plaintext []byte, config *EncryptionConfig) ([]byte, error) {
	if config == nil || config.Password == "" {
		return nil, fmt.Errorf("encryption config with password required")
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(config.Password, salt, config))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	result := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	result = append(result, salt...)
	result = append(result, nonce...)
	result = append(result, ciphertext...)
	return result, nil
}

// DecryptData reverses EncryptData. A wrong password surfaces as an
// authentication failure, not as garbage output.
func DecryptData(encrypted []byte, config *EncryptionConfig) ([]byte, error) {
	if config == nil || config.Password == "" {
		return nil, fmt.Errorf("encryption config with password required")
	}

	// salt + 12-byte GCM nonce + 16-byte tag is the smallest valid payload
	if len(encrypted) < saltLength+12+16 {
		return nil, fmt.Errorf("encrypted data too short")
	}

	salt := encrypted[:saltLength]
	rest := encrypted[saltLength:]

	block, err := aes.NewCipher(deriveKey(config.Password, salt, config))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(rest) < gcm.NonceSize() {
		return nil, fmt.Errorf("encrypted data too short for nonce")
	}
	nonce := rest[:gcm.NonceSize()]
	ciphertext := rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (wrong password or corrupted data): %w", err)
	}

	return plaintext, nil
}

// EncryptFile encrypts sourcePath into destPath with the magic header
// prepended.
func EncryptFile(sourcePath, destPath string, config *EncryptionConfig) error {
	plaintext, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}

	encrypted, err := EncryptData(plaintext, config)
	if err != nil {
		return fmt.Errorf("encryption failed: %w", err)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() { _ = dest.Close() }()

	if _, err := dest.Write([]byte(encryptionMagic)); err != nil {
		return fmt.Errorf("failed to write magic header: %w", err)
	}
	if _, err := dest.Write(encrypted); err != nil {
		return fmt.Errorf("failed to write encrypted data: %w", err)
	}

	return nil
}

// DecryptFile decrypts an encrypted export into destPath.
func DecryptFile(sourcePath, destPath string, config *EncryptionConfig) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read encrypted file: %w", err)
	}

	if len(data) < len(encryptionMagic) || string(data[:len(encryptionMagic)]) != encryptionMagic {
		return fmt.Errorf("file is not an encrypted export")
	}

	plaintext, err := DecryptData(data[len(encryptionMagic):], config)
	if err != nil {
		return err
	}

	if err := os.WriteFile(destPath, plaintext, 0o600); err != nil {
		return fmt.Errorf("failed to write decrypted file: %w", err)
	}

	return nil
}

// IsEncrypted checks whether a file carries the encrypted-export header.
func IsEncrypted(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = file.Close() }()

	header := make([]byte, len(encryptionMagic))
	n, err := file.Read(header)
	if err != nil && err != io.EOF {
		return false, err
	}

	return n == len(encryptionMagic) && string(header) == encryptionMagic, nil
}
