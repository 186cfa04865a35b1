package nostr

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	hrpSecretKey = "nsec"
	hrpPublicKey = "npub"
)

// Keys: ключевая пара бота. Публичный ключ хранится в x-only hex (BIP-340).
type Keys struct {
	priv *btcec.PrivateKey
	pub  string
}

func GenerateKeys() (*Keys, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return newKeys(priv), nil
}

// ParseSecretKey принимает nsec1… (NIP-19) или 64 hex-символа.
func ParseSecretKey(s string) (*Keys, error) {
	s = strings.TrimSpace(s)
	var raw []byte
	var err error
	if strings.HasPrefix(strings.ToLower(s), hrpSecretKey+"1") {
		raw, err = decodeBech32(hrpSecretKey, s)
	} else {
		raw, err = hex.DecodeString(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != 32 || bytes.Equal(raw, make([]byte, 32)) {
		return nil, fmt.Errorf("%w: secret key must be 32 non-zero bytes", ErrInvalidKey)
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return newKeys(priv), nil
}

func newKeys(priv *btcec.PrivateKey) *Keys {
	return &Keys{
		priv: priv,
		pub:  hex.EncodeToString(schnorr.SerializePubKey(priv.PubKey())),
	}
}

func (k *Keys) PublicKey() string { return k.pub }

func (k *Keys) Npub() string {
	raw, _ := hex.DecodeString(k.pub)
	return encodeBech32(hrpPublicKey, raw)
}

func (k *Keys) Nsec() string {
	return encodeBech32(hrpSecretKey, k.priv.Serialize())
}

// DecodePublicKey приводит npub1… или hex к x-only hex и проверяет, что это точка на кривой.
func DecodePublicKey(s string) (string, error) {
	s = strings.TrimSpace(s)
	var raw []byte
	var err error
	if strings.HasPrefix(strings.ToLower(s), hrpPublicKey+"1") {
		raw, err = decodeBech32(hrpPublicKey, s)
	} else {
		raw, err = hex.DecodeString(s)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if _, err := schnorr.ParsePubKey(raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return hex.EncodeToString(raw), nil
}

func decodeBech32(hrp, s string) ([]byte, error) {
	gotHRP, data, err := bech32.Decode(s)
	if err != nil {
		return nil, err
	}
	if gotHRP != hrp {
		return nil, fmt.Errorf("unexpected prefix %q, want %q", gotHRP, hrp)
	}
	return bech32.ConvertBits(data, 5, 8, false)
}

func encodeBech32(hrp string, raw []byte) string {
	data, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return ""
	}
	s, err := bech32.Encode(hrp, data)
	if err != nil {
		return ""
	}
	return s
}
