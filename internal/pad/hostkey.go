package pad

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	gossh "github.com/gliderlabs/ssh"
	xssh "golang.org/x/crypto/ssh"
)

// LoadOrCreateHostKey loads a PEM private key from path, or generates an
// ed25519 key and tries to persist it there. A failed write is logged and
// the fresh key is still returned.
func LoadOrCreateHostKey(path string, logger *slog.Logger) (gossh.Signer, error) {
	if data, err := os.ReadFile(path); err == nil {
		signer, err := xssh.ParsePrivateKey(data)
		if err == nil {
			logger.Info("pad: loaded host key", "path", path)
			return signer, nil
		}
		logger.Warn("pad: unreadable host key, generating a new one", "path", path, "error", err)
	}

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}
	signer, err := xssh.NewSignerFromKey(key)
	if err != nil {
		return nil, fmt.Errorf("host key signer: %w", err)
	}

	block, err := xssh.MarshalPrivateKey(key, "limbrun pad server")
	if err != nil {
		return nil, fmt.Errorf("encode host key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		logger.Warn("pad: host key not saved", "path", path, "error", err)
		return signer, nil
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		logger.Warn("pad: host key not saved", "path", path, "error", err)
		return signer, nil
	}
	logger.Info("pad: generated host key", "path", path)
	return signer, nil
}
