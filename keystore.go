package go_seos

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MaxKeystoreNameLen bounds keystore entry names.
const MaxKeystoreNameLen = 16

// KeystoreStorage is the persistence backend of a Keystore. Implementations
// only ever see sealed blobs; plaintext key material never reaches them.
type KeystoreStorage interface {
	// Put writes a blob under name, overwriting an existing entry.
	Put(name string, blob []byte) error
	// Get reads the blob stored under name; ErrNotFound when absent.
	Get(name string) ([]byte, error)
	// Delete removes the entry; ErrNotFound when absent.
	Delete(name string) error
	// Wipe removes all entries.
	Wipe() error
}

// KeystoreConfig configures a keystore instance.
type KeystoreConfig struct {
	// Crypto supplies randomness for sealing nonces.
	Crypto *Crypto
	// Storage persists the sealed blobs.
	Storage KeystoreStorage
	// MasterSecret is the component secret the sealing key is derived
	// from. The caller keeps ownership; the keystore derives and holds
	// only the derived key.
	MasterSecret []byte
}

// Keystore is a named store for key material. Entries are sealed with
// AES-256-GCM under a key derived from the master secret, so the storage
// backend (filesystem, flash) never holds plaintext keys and cannot
// undetectably tamper with them.
type Keystore struct {
	crypto  *Crypto
	storage KeystoreStorage
	aead    cipher.AEAD
	freed   bool
}

// keystoreSealInfo binds the derived key to its purpose; changing it
// invalidates all previously sealed blobs.
var keystoreSealInfo = []byte("seos-keystore-seal-v1")

// NewKeystore derives the sealing key and returns a ready store.
func NewKeystore(cfg KeystoreConfig) (*Keystore, error) {
	if cfg.Crypto == nil || cfg.Crypto.Mode() == ModeNone || cfg.Storage == nil {
		return nil, ErrInvalidParameter
	}
	if len(cfg.MasterSecret) == 0 {
		return nil, ErrInvalidParameter
	}

	sealKey := make([]byte, 32)
	kdf := hkdf.New(sha256.New, cfg.MasterSecret, nil, keystoreSealInfo)
	if _, err := io.ReadFull(kdf, sealKey); err != nil {
		return nil, ErrAborted
	}
	block, err := aes.NewCipher(sealKey)
	wipeBytes(sealKey)
	if err != nil {
		return nil, ErrAborted
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrAborted
	}
	return &Keystore{
		crypto:  cfg.Crypto,
		storage: cfg.Storage,
		aead:    aead,
	}, nil
}

func (k *Keystore) alive() error {
	if k == nil || k.freed {
		return ErrInvalidState
	}
	return nil
}

// checkKeystoreName enforces the entry name rules: non-empty, bounded, and
// restricted to a filesystem-safe alphabet.
func checkKeystoreName(name string) error {
	if len(name) == 0 || len(name) > MaxKeystoreNameLen {
		return ErrInvalidName
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return ErrInvalidName
		}
	}
	return nil
}

// StoreKey seals data and stores it under name. Storing under a name that
// already exists is refused; delete first.
func (k *Keystore) StoreKey(name string, data KeyData) error {
	if err := k.alive(); err != nil {
		return err
	}
	if err := checkKeystoreName(name); err != nil {
		return err
	}
	if data == nil {
		return ErrInvalidParameter
	}
	if _, err := k.storage.Get(name); err == nil {
		return ErrOperationDenied
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	s := NewStream(nil)
	if err := writeKeyData(s, data); err != nil {
		return ErrInvalidParameter
	}
	plain := s.Bytes()
	defer wipeBytes(plain)

	blob, err := k.seal(name, plain)
	if err != nil {
		return err
	}
	return k.storage.Put(name, blob)
}

// LoadKey unseals and returns the material stored under name. Tampered or
// foreign blobs fail like an engine fault.
func (k *Keystore) LoadKey(name string) (KeyData, error) {
	if err := k.alive(); err != nil {
		return nil, err
	}
	if err := checkKeystoreName(name); err != nil {
		return nil, err
	}
	blob, err := k.storage.Get(name)
	if err != nil {
		return nil, err
	}
	plain, err := k.unseal(name, blob)
	if err != nil {
		return nil, err
	}
	defer wipeBytes(plain)

	data, err := readKeyData(NewStream(plain))
	if err != nil || data == nil {
		return nil, ErrAborted
	}
	return data, nil
}

// DeleteKey removes the entry stored under name.
func (k *Keystore) DeleteKey(name string) error {
	if err := k.alive(); err != nil {
		return err
	}
	if err := checkKeystoreName(name); err != nil {
		return err
	}
	return k.storage.Delete(name)
}

// CopyKey re-seals the entry under the destination keystore's key and
// stores it there under the same name.
func (k *Keystore) CopyKey(name string, dst *Keystore) error {
	if err := k.alive(); err != nil {
		return err
	}
	if dst == nil {
		return ErrInvalidParameter
	}
	data, err := k.LoadKey(name)
	if err != nil {
		return err
	}
	defer data.zeroize()
	return dst.StoreKey(name, data)
}

// MoveKey copies the entry to the destination keystore and deletes it here.
func (k *Keystore) MoveKey(name string, dst *Keystore) error {
	if err := k.CopyKey(name, dst); err != nil {
		return err
	}
	return k.DeleteKey(name)
}

// Wipe removes every entry from the backing storage.
func (k *Keystore) Wipe() error {
	if err := k.alive(); err != nil {
		return err
	}
	return k.storage.Wipe()
}

// Free releases the keystore. Stored entries persist; only the in-memory
// sealing state is dropped.
func (k *Keystore) Free() error {
	if err := k.alive(); err != nil {
		return err
	}
	k.aead = nil
	k.freed = true
	return nil
}

// seal produces nonce || ciphertext with the entry name bound as associated
// data, so a blob cannot be replayed under a different name.
func (k *Keystore) seal(name string, plain []byte) ([]byte, error) {
	nonce := make([]byte, GCMIVSize)
	if _, err := k.crypto.GetRandomBytes(RngFlagNone, nonce); err != nil {
		return nil, err
	}
	blob := make([]byte, 0, len(nonce)+len(plain)+k.aead.Overhead())
	blob = append(blob, nonce...)
	return k.aead.Seal(blob, nonce, plain, []byte(name)), nil
}

func (k *Keystore) unseal(name string, blob []byte) ([]byte, error) {
	if len(blob) < GCMIVSize+k.aead.Overhead() {
		return nil, ErrAborted
	}
	nonce, ct := blob[:GCMIVSize], blob[GCMIVSize:]
	plain, err := k.aead.Open(nil, nonce, ct, []byte(name))
	if err != nil {
		return nil, ErrAborted
	}
	return plain, nil
}
