// Package keystore holds the RSA keys used to sign and verify operator tokens.
package keystore

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var ErrKeyNotFound = errors.New("key not found")

const maxPEMSize = 1024 * 1024 //1MB

type KeyStore struct {
	mu        sync.RWMutex
	store     map[string]*rsa.PrivateKey
	activeKid string
}

func New() *KeyStore {
	return &KeyStore{
		store: make(map[string]*rsa.PrivateKey),
	}
}

// Add registers pk under kid, mostly useful for tests.
func (ks *KeyStore) Add(kid string, pk *rsa.PrivateKey) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.store[kid] = pk
}

// LoadFromFileSystem loads every "<kid>.pem" file found in fsys and returns
// the number of keys in the store.
func (ks *KeyStore) LoadFromFileSystem(fsys fs.FS) (int, error) {
	walker := func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("opening %s: %w", p, err)
		}

		if d.IsDir() {
			//kubernetes mounts secrets through "..data" symlinked dirs, the
			//same files are reachable from the root.
			if p != "." && strings.HasPrefix(d.Name(), "..") {
				return fs.SkipDir
			}
			return nil
		}

		if path.Ext(p) != ".pem" {
			return nil
		}

		file, err := fsys.Open(p)
		if err != nil {
			return fmt.Errorf("opening file %s: %w", p, err)
		}
		defer file.Close()

		pemBytes, err := io.ReadAll(io.LimitReader(file, maxPEMSize))
		if err != nil {
			return fmt.Errorf("readAll: %w", err)
		}

		pk, err := ParsePrivateKey(pemBytes)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}

		ks.Add(strings.TrimSuffix(path.Base(p), ".pem"), pk)
		return nil
	}

	if err := fs.WalkDir(fsys, ".", walker); err != nil {
		return 0, fmt.Errorf("walkDir: %w", err)
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.store), nil
}

func (ks *KeyStore) PrivateKey(kid string) (*rsa.PrivateKey, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	pk, ok := ks.store[kid]
	if !ok {
		return nil, ErrKeyNotFound
	}

	return pk, nil
}

func (ks *KeyStore) PublicKey(kid string) (*rsa.PublicKey, error) {
	pk, err := ks.PrivateKey(kid)
	if err != nil {
		return nil, err
	}

	return &pk.PublicKey, nil
}

// Kids returns the loaded key ids, sorted.
func (ks *KeyStore) Kids() []string {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	kids := make([]string, 0, len(ks.store))
	for kid := range ks.store {
		kids = append(kids, kid)
	}
	slices.Sort(kids)
	return kids
}

func (ks *KeyStore) SetActiveKid(kid string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if _, ok := ks.store[kid]; !ok {
		return fmt.Errorf("key[%s]: %w", kid, ErrKeyNotFound)
	}

	ks.activeKid = kid
	return nil
}

func (ks *KeyStore) ActiveKid() string {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.activeKid
}

//==============================================================================

// ParsePrivateKey decodes a PEM encoded RSA key in PKCS1 or PKCS8 form.
func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no pem block found")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		pk, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsePKCS1PrivateKey: %w", err)
		}
		return pk, nil

	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsePKCS8PrivateKey: %w", err)
		}

		pk, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("key is not a valid rsa private key")
		}
		return pk, nil

	default:
		return nil, fmt.Errorf("unsupported pem block type %q", block.Type)
	}
}

// GenerateKey creates a new RSA key and returns a fresh kid with the key
// encoded as a PKCS8 "PRIVATE KEY" block.
func GenerateKey(bits int) (string, []byte, error) {
	pk, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return "", nil, fmt.Errorf("generateKey: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(pk)
	if err != nil {
		return "", nil, fmt.Errorf("marshalPKCS8PrivateKey: %w", err)
	}

	block := pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: der,
	}

	return uuid.NewString(), pem.EncodeToMemory(&block), nil
}
