package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrPepperNotSet is returned by password functions before InitPepper or
// SetPepper has run.
var ErrPepperNotSet = errors.New("cryptox: password pepper not initialised")

var (
	pepperMu sync.RWMutex
	pepper   string
)

// InitPepper loads the pepper from path, creating the file with a fresh
// random value when it does not exist.
func InitPepper(path string) error {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("cryptox: create pepper dir: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		SetPepper(string(data))
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("cryptox: read pepper: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("cryptox: generate pepper: %w", err)
	}
	value := base64.RawURLEncoding.EncodeToString(buf)
	if err := os.WriteFile(path, []byte(value), 0o600); err != nil {
		return fmt.Errorf("cryptox: write pepper: %w", err)
	}

	SetPepper(value)
	return nil
}

// SetPepper installs p directly.
func SetPepper(p string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()
	pepper = p
}

func currentPepper() (string, error) {
	pepperMu.RLock()
	defer pepperMu.RUnlock()
	if pepper == "" {
		return "", ErrPepperNotSet
	}
	return pepper, nil
}
