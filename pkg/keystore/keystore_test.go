package keystore_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/hamidoujand/usersadmin/pkg/keystore"
)

func Test_LoadFromFileSystem(t *testing.T) {
	kid, pkcs8, err := keystore.GenerateKey(2048)
	if err != nil {
		t.Fatalf("generateKey: %s", err)
	}

	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %s", err)
	}

	pkcs1 := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(pk),
	})

	fsys := fstest.MapFS{
		kid + ".pem":                            {Data: pkcs8},
		"legacy.pem":                            {Data: pkcs1},
		"README.md":                             {Data: []byte("not a key")},
		"..2025_01_01_00_00_00.1/duplicate.pem": {Data: []byte("never read")},
	}

	ks := keystore.New()
	n, err := ks.LoadFromFileSystem(fsys)
	if err != nil {
		t.Fatalf("loadFromFileSystem: %s", err)
	}

	if n != 2 {
		t.Errorf("keys=%d, got=%d", 2, n)
	}

	want := []string{kid, "legacy"}
	if kid > "legacy" {
		want = []string{"legacy", kid}
	}

	if diff := cmp.Diff(want, ks.Kids()); diff != "" {
		t.Errorf("kids mismatch (-want +got):\n%s", diff)
	}

	pub, err := ks.PublicKey("legacy")
	if err != nil {
		t.Fatalf("publicKey: %s", err)
	}

	if !pub.Equal(&pk.PublicKey) {
		t.Error("expected the legacy public key to match")
	}

	if err := ks.SetActiveKid(kid); err != nil {
		t.Fatalf("setActiveKid: %s", err)
	}

	if ks.ActiveKid() != kid {
		t.Errorf("activeKid=%s, got=%s", kid, ks.ActiveKid())
	}

	if err := ks.SetActiveKid("missing"); !errors.Is(err, keystore.ErrKeyNotFound) {
		t.Errorf("err=%v, got=%v", keystore.ErrKeyNotFound, err)
	}
}

func Test_LoadRejectsInvalidKey(t *testing.T) {
	fsys := fstest.MapFS{
		"broken.pem": {Data: []byte("-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n")},
	}

	if _, err := keystore.New().LoadFromFileSystem(fsys); err == nil {
		t.Error("expected loading a certificate as a key to fail")
	}
}
