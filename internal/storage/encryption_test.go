package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// fastEncryptionConfig keeps key derivation cheap in tests.
func fastEncryptionConfig(password string) *EncryptionConfig {
	return &EncryptionConfig{
		Password:      password,
		Argon2Time:    1,
		Argon2Memory:  8 * 1024,
		Argon2Threads: 1,
	}
}

func TestEncryptDecryptData(t *testing.T) {
	config := fastEncryptionConfig("correct horse")
	plaintext := []byte("the collection")

	encrypted, err := EncryptData(plaintext, config)
	if err != nil {
		t.Fatalf("failed to encrypt: %v", err)
	}
	if bytes.Contains(encrypted, plaintext) {
		t.Error("ciphertext contains the plaintext")
	}

	decrypted, err := DecryptData(encrypted, config)
	if err != nil {
		t.Fatalf("failed to decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("expected %q, got %q", plaintext, decrypted)
	}
}

func TestDecryptDataWrongPassword(t *testing.T) {
	encrypted, err := EncryptData([]byte("secret"), fastEncryptionConfig("right"))
	if err != nil {
		t.Fatalf("failed to encrypt: %v", err)
	}

	if _, err := DecryptData(encrypted, fastEncryptionConfig("wrong")); err == nil {
		t.Error("expected decryption with wrong password to fail")
	}
}

func TestDecryptDataTruncated(t *testing.T) {
	config := fastEncryptionConfig("pw")
	encrypted, err := EncryptData([]byte("secret"), config)
	if err != nil {
		t.Fatalf("failed to encrypt: %v", err)
	}

	if _, err := DecryptData(encrypted[:10], config); err == nil {
		t.Error("expected truncated input to fail")
	}
}

func TestEncryptDataUnique(t *testing.T) {
	config := fastEncryptionConfig("pw")
	a, err := EncryptData([]byte("same input"), config)
	if err != nil {
		t.Fatalf("failed to encrypt: %v", err)
	}
	b, err := EncryptData([]byte("same input"), config)
	if err != nil {
		t.Fatalf("failed to encrypt: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("expected fresh salt and nonce per encryption")
	}
}

func TestEncryptDecryptFile(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "plain.db")
	encrypted := filepath.Join(dir, "plain.db.enc")
	restored := filepath.Join(dir, "restored.db")

	content := []byte("file contents")
	if err := os.WriteFile(source, content, 0o600); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}

	config := fastEncryptionConfig("pw")
	if err := EncryptFile(source, encrypted, config); err != nil {
		t.Fatalf("failed to encrypt file: %v", err)
	}

	isEnc, err := IsEncrypted(encrypted)
	if err != nil {
		t.Fatalf("IsEncrypted failed: %v", err)
	}
	if !isEnc {
		t.Error("expected encrypted file to be detected")
	}

	isEnc, err = IsEncrypted(source)
	if err != nil {
		t.Fatalf("IsEncrypted failed: %v", err)
	}
	if isEnc {
		t.Error("expected plain file not to be detected as encrypted")
	}

	if err := DecryptFile(encrypted, restored, config); err != nil {
		t.Fatalf("failed to decrypt file: %v", err)
	}

	got, err := os.ReadFile(restored)
	if err != nil {
		t.Fatalf("failed to read restored file: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("expected %q, got %q", content, got)
	}
}

func TestDecryptFileMissingMagic(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "not-encrypted")
	if err := os.WriteFile(source, []byte("just bytes"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	err := DecryptFile(source, filepath.Join(dir, "out"), fastEncryptionConfig("pw"))
	if err == nil {
		t.Error("expected decrypting a non-encrypted file to fail")
	}
}