package nostr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

const (
	KindMetadata = 0
	KindTextNote = 1
)

type Tag []string

type Tags []Tag

// Find возвращает первый тег с данным именем и хотя бы одним значением.
func (t Tags) Find(name string) Tag {
	for _, tag := range t {
		if len(tag) >= 2 && tag[0] == name {
			return tag
		}
	}
	return nil
}

// Values: значения (второй элемент) всех тегов с данным именем.
func (t Tags) Values(name string) []string {
	var out []string
	for _, tag := range t {
		if len(tag) >= 2 && tag[0] == name {
			out = append(out, tag[1])
		}
	}
	return out
}

type Event struct {
	ID        string `json:"id"`
	PubKey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      int    `json:"kind"`
	Tags      Tags   `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
}

func (ev *Event) Time() time.Time { return time.Unix(ev.CreatedAt, 0) }

// Serialize возвращает каноническую форму NIP-01 [0,pubkey,created_at,kind,tags,content].
// encoding/json не годится: он экранирует <, >, & и U+2028, а хэш считается
// по точной последовательности байт.
func (ev *Event) Serialize() []byte {
	b := make([]byte, 0, 128+len(ev.Content))
	b = append(b, "[0,"...)
	b = appendQuoted(b, ev.PubKey)
	b = append(b, ',')
	b = strconv.AppendInt(b, ev.CreatedAt, 10)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(ev.Kind), 10)
	b = append(b, ",["...)
	for i, tag := range ev.Tags {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '[')
		for j, s := range tag {
			if j > 0 {
				b = append(b, ',')
			}
			b = appendQuoted(b, s)
		}
		b = append(b, ']')
	}
	b = append(b, "],"...)
	b = appendQuoted(b, ev.Content)
	return append(b, ']')
}

func (ev *Event) hash() [32]byte {
	return sha256.Sum256(ev.Serialize())
}

func (ev *Event) GetID() string {
	h := ev.hash()
	return hex.EncodeToString(h[:])
}

// Sign проставляет pubkey, id и подпись. CreatedAt, Kind, Tags, Content
// должны быть заполнены до вызова.
func (ev *Event) Sign(k *Keys) error {
	if ev.Tags == nil {
		ev.Tags = Tags{}
	}
	ev.PubKey = k.PublicKey()
	h := ev.hash()
	sig, err := schnorr.Sign(k.priv, h[:])
	if err != nil {
		return fmt.Errorf("nostr: sign: %w", err)
	}
	ev.ID = hex.EncodeToString(h[:])
	ev.Sig = hex.EncodeToString(sig.Serialize())
	return nil
}

// Verify проверяет, что id соответствует содержимому и подпись валидна.
func (ev *Event) Verify() error {
	h := ev.hash()
	if ev.ID != hex.EncodeToString(h[:]) {
		return fmt.Errorf("%w: id mismatch", ErrInvalidEvent)
	}
	rawPub, err := hex.DecodeString(ev.PubKey)
	if err != nil {
		return fmt.Errorf("%w: pubkey: %v", ErrInvalidEvent, err)
	}
	pub, err := schnorr.ParsePubKey(rawPub)
	if err != nil {
		return fmt.Errorf("%w: pubkey: %v", ErrInvalidEvent, err)
	}
	rawSig, err := hex.DecodeString(ev.Sig)
	if err != nil {
		return fmt.Errorf("%w: sig: %v", ErrInvalidEvent, err)
	}
	sig, err := schnorr.ParseSignature(rawSig)
	if err != nil {
		return fmt.Errorf("%w: sig: %v", ErrInvalidEvent, err)
	}
	if !sig.Verify(h[:], pub) {
		return fmt.Errorf("%w: bad signature", ErrInvalidEvent)
	}
	return nil
}

const hexDigits = "0123456789abcdef"

func appendQuoted(b []byte, s string) []byte {
	b = append(b, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b = append(b, '\\', '"')
		case '\\':
			b = append(b, '\\', '\\')
		case '\n':
			b = append(b, '\\', 'n')
		case '\r':
			b = append(b, '\\', 'r')
		case '\t':
			b = append(b, '\\', 't')
		case '\b':
			b = append(b, '\\', 'b')
		case '\f':
			b = append(b, '\\', 'f')
		default:
			if c < 0x20 {
				b = append(b, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			} else {
				b = append(b, c)
			}
		}
	}
	return append(b, '"')
}
