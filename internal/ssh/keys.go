package ssh

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/crypto/ssh"
)

// SSHKeyInfo contains information about an SSH key
type SSHKeyInfo struct {
	Path        string // Full path to the key file
	Name        string // Key filename (e.g., "id_ed25519")
	Type        string // Key type (e.g., "ed25519", "rsa", "ecdsa")
	IsEncrypted bool   // True if key is passphrase-protected
}

// DiscoverSSHKeys scans sshDir for private keys.
// Returns keys sorted by preference: ed25519 first, then rsa, then others
func DiscoverSSHKeys(sshDir string) ([]SSHKeyInfo, error) {
	entries, err := os.ReadDir(sshDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read .ssh directory: %w", err)
	}

	var keys []SSHKeyInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Skip public keys and known_hosts
		if strings.HasSuffix(name, ".pub") ||
			name == "known_hosts" ||
			name == "authorized_keys" ||
			name == "config" {
			continue
		}

		if !strings.HasPrefix(name, "id_") && !strings.HasSuffix(name, ".pem") {
			continue
		}

		keyInfo, err := ValidateSSHKey(filepath.Join(sshDir, name))
		if err != nil {
			// Skip invalid key files
			continue
		}

		keys = append(keys, *keyInfo)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		return keyTypePriority(keys[i].Type) < keyTypePriority(keys[j].Type)
	})

	return keys, nil
}

// UsableKeyFiles returns the paths of the keys that can be used without a passphrase
func UsableKeyFiles(keys []SSHKeyInfo) []string {
	var paths []string
	for _, k := range keys {
		if !k.IsEncrypted {
			paths = append(paths, k.Path)
		}
	}
	return paths
}

// keyTypePriority returns sort priority for key types (lower is better)
func keyTypePriority(keyType string) int {
	switch keyType {
	case "ed25519":
		return 1
	case "rsa":
		return 2
	case "ecdsa":
		return 3
	default:
		return 4
	}
}

// ValidateSSHKey validates a key file and returns its info
func ValidateSSHKey(path string) (*SSHKeyInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	keyInfo := &SSHKeyInfo{
		Path: path,
		Name: filepath.Base(path),
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			keyInfo.IsEncrypted = true
			keyInfo.Type = "unknown"
			if missing.PublicKey != nil {
				keyInfo.Type = keyTypeName(missing.PublicKey.Type())
			}
			return keyInfo, nil
		}
		return nil, fmt.Errorf("invalid SSH key: %w", err)
	}

	keyInfo.Type = keyTypeName(signer.PublicKey().Type())
	return keyInfo, nil
}

// keyTypeName maps an SSH algorithm name to a short key type
func keyTypeName(algo string) string {
	switch {
	case algo == ssh.KeyAlgoED25519:
		return "ed25519"
	case algo == ssh.KeyAlgoRSA:
		return "rsa"
	case strings.HasPrefix(algo, "ecdsa-"):
		return "ecdsa"
	default:
		return "unknown"
	}
}

// loadKeySigners parses unencrypted private key files. Files that cannot be
// used are reported and skipped.
func loadKeySigners(paths []string) ([]ssh.Signer, []error) {
	var signers []ssh.Signer
	var errs []error
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read key file %s: %w", p, err))
			continue
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to parse private key %s: %w", p, err))
			continue
		}
		signers = append(signers, signer)
	}
	return signers, errs
}
