// Package keystore provisions and stores the trust-anchor key material
// a Config needs (the per-ECU Keys list fed to targets.Config),
// grounded on the teacher's accounts/keystore package: encrypted,
// versioned JSON files on disk, one per key, identified by a
// google/uuid v4 id and unlocked with a passphrase-derived scrypt key.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/scrypt"
)

const (
	version    = 1
	scryptN    = 1 << 18
	scryptR    = 8
	scryptP    = 1
	scryptDK   = 32
	cipherName = "aes-256-ctr"
)

// Anchor is one trust-anchor key as provisioned to disk: enough to
// reconstruct a targets.Key once paired with a crypto backend.
type Anchor struct {
	ID     uuid.UUID
	Method string // "ed25519", "secp256k1", "bls12381", ...
	Public []byte
	secret ed25519.PrivateKey
}

func (a *Anchor) Public256() []byte { return a.Public }

// NewMnemonicAnchor derives a fresh Ed25519 anchor from a freshly
// generated BIP-39 mnemonic, the way the teacher's cmd/toskey generate
// subcommand derives wallet material.
func NewMnemonicAnchor() (*Anchor, string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return nil, "", fmt.Errorf("keystore: entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, "", fmt.Errorf("keystore: mnemonic: %w", err)
	}
	seed := bip39.NewSeed(mnemonic, "")
	priv := ed25519.NewKeyFromSeed(seed[:32])
	return &Anchor{
		ID:     uuid.New(),
		Method: "ed25519",
		Public: append([]byte(nil), priv.Public().(ed25519.PublicKey)...),
		secret: priv,
	}, mnemonic, nil
}

type encryptedKeyJSON struct {
	ID         string     `json:"id"`
	Method     string     `json:"method"`
	PublicKey  string     `json:"publickey"`
	Crypto     cryptoJSON `json:"crypto"`
	Version    int        `json:"version"`
}

type cryptoJSON struct {
	Cipher       string `json:"cipher"`
	CipherText   string `json:"ciphertext"`
	IV           string `json:"iv"`
	KDF          string `json:"kdf"`
	KDFSalt      string `json:"kdfsalt"`
	KDFN         int    `json:"kdfn"`
	KDFR         int    `json:"kdfr"`
	KDFP         int    `json:"kdfp"`
	MAC          string `json:"mac"`
}

// Store persists anchors under a directory, one encrypted JSON file
// per key (teacher convention: accounts/keystore's per-key file
// layout).
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(a *Anchor) string {
	return filepath.Join(s.dir, a.ID.String()+".json")
}

// Save encrypts the anchor's private scalar at rest with a
// passphrase-derived scrypt key and an AES-256-CTR stream cipher, MAC'd
// with SHA-256 over (derivedKey[16:32] || ciphertext), matching the
// teacher's Web3 Secret Storage-derived scheme.
func (s *Store) Save(a *Anchor, passphrase string) error {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	dk, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptDK)
	if err != nil {
		return fmt.Errorf("keystore: scrypt: %w", err)
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return err
	}
	block, err := aes.NewCipher(dk[:16])
	if err != nil {
		return err
	}
	ciphertext := make([]byte, len(a.secret))
	cipher.NewCTR(block, iv).XORKeyStream(ciphertext, a.secret)

	mac := sha256.Sum256(append(append([]byte(nil), dk[16:32]...), ciphertext...))

	enc := encryptedKeyJSON{
		ID:        a.ID.String(),
		Method:    a.Method,
		PublicKey: hex.EncodeToString(a.Public),
		Version:   version,
		Crypto: cryptoJSON{
			Cipher:     cipherName,
			CipherText: hex.EncodeToString(ciphertext),
			IV:         hex.EncodeToString(iv),
			KDF:        "scrypt",
			KDFSalt:    hex.EncodeToString(salt),
			KDFN:       scryptN,
			KDFR:       scryptR,
			KDFP:       scryptP,
			MAC:        hex.EncodeToString(mac[:]),
		},
	}
	data, err := json.Marshal(enc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path(a), data, 0o600)
}

// Load decrypts one anchor file given its passphrase.
func (s *Store) Load(path, passphrase string) (*Anchor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var enc encryptedKeyJSON
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("keystore: malformed key file: %w", err)
	}
	salt, err := hex.DecodeString(enc.Crypto.KDFSalt)
	if err != nil {
		return nil, err
	}
	dk, err := scrypt.Key([]byte(passphrase), salt, enc.Crypto.KDFN, enc.Crypto.KDFR, enc.Crypto.KDFP, scryptDK)
	if err != nil {
		return nil, fmt.Errorf("keystore: scrypt: %w", err)
	}
	ciphertext, err := hex.DecodeString(enc.Crypto.CipherText)
	if err != nil {
		return nil, err
	}
	wantMAC := sha256.Sum256(append(append([]byte(nil), dk[16:32]...), ciphertext...))
	gotMAC, err := hex.DecodeString(enc.Crypto.MAC)
	if err != nil {
		return nil, err
	}
	if hex.EncodeToString(wantMAC[:]) != hex.EncodeToString(gotMAC) {
		return nil, fmt.Errorf("keystore: could not decrypt key with given passphrase")
	}
	iv, err := hex.DecodeString(enc.Crypto.IV)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(dk[:16])
	if err != nil {
		return nil, err
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCTR(block, iv).XORKeyStream(plain, ciphertext)

	id, err := uuid.Parse(enc.ID)
	if err != nil {
		return nil, err
	}
	pub, err := hex.DecodeString(enc.PublicKey)
	if err != nil {
		return nil, err
	}
	return &Anchor{
		ID:     id,
		Method: enc.Method,
		Public: pub,
		secret: plain,
	}, nil
}
