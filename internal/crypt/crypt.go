// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package crypt seals and opens passphrase-protected snapshot documents.
// The envelope is a small JSON wrapper (encrypted_data/salt/nonce) around an
// AES-256-GCM payload with a PBKDF2-derived key.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/term"
)

const (
	keyLen     = 32
	saltLen    = 16
	iterations = 600_000
)

type envelope struct {
	EncryptedData string `json:"encrypted_data"`
	Salt          string `json:"salt"`
	Nonce         string `json:"nonce"`
	Iterations    int    `json:"kdf_iterations"`
}

// IsSealed reports whether doc looks like an encrypted envelope.
func IsSealed(doc []byte) bool {
	var peek map[string]json.RawMessage
	if err := json.Unmarshal(doc, &peek); err != nil {
		return false
	}
	_, ok := peek["encrypted_data"]
	return ok
}

// Seal wraps plaintext in an encrypted envelope.
func Seal(plaintext []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt, iterations)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	return json.Marshal(envelope{
		EncryptedData: base64.StdEncoding.EncodeToString(sealed),
		Salt:          base64.StdEncoding.EncodeToString(salt),
		Nonce:         base64.StdEncoding.EncodeToString(nonce),
		Iterations:    iterations,
	})
}

// Open decrypts an envelope produced by Seal.  A wrong passphrase surfaces
// as a GCM authentication error.
func Open(doc []byte, passphrase string) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(doc, &env); err != nil {
		return nil, fmt.Errorf("failed to parse envelope: %w", err)
	}
	if env.EncryptedData == "" {
		return nil, errors.New("document is not an encrypted envelope")
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, fmt.Errorf("bad salt encoding: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("bad nonce encoding: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(env.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("bad payload encoding: %w", err)
	}

	iters := env.Iterations
	if iters <= 0 {
		iters = iterations
	}

	gcm, err := newGCM(passphrase, salt, iters)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, errors.New("bad nonce length")
	}

	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plain, nil
}

func newGCM(passphrase string, salt []byte, iters int) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, iters, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// GetPassphrase prompts on the controlling terminal without echo.
func GetPassphrase() (string, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(raw), nil
}
