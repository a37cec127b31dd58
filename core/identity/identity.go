// Package identity provides the content-addressed key that identifies a
// device across the device, bom, shop and stock tables.
package identity

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
)

// Size is the number of digest bytes kept in a Key.
const Size = 16

// separator delimits hashed parts so ("ab","c") and ("a","bc") differ.
const separator = "\x1f"

// Key is a stable content hash. The zero value is not a valid key.
type Key [Size]byte

// Of hashes parts in the given order.
func Of(parts ...string) Key {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte(separator))
		}
		h.Write([]byte(p))
	}
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Parse decodes the hex form returned by Key.String.
func Parse(s string) (Key, error) {
	var k Key
	b, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("invalid identity %q: %w", s, err)
	}
	if len(b) != Size {
		return k, fmt.Errorf("invalid identity %q: want %d bytes, got %d", s, Size, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// MustParse is Parse for constants in tests.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool {
	return k == Key{}
}

// String returns the lowercase hex encoding stored in the database.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Value implements driver.Valuer.
func (k Key) Value() (driver.Value, error) {
	return k.String(), nil
}

// Scan implements sql.Scanner.
func (k *Key) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*k = parsed
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*k = parsed
	case nil:
		*k = Key{}
	default:
		return fmt.Errorf("cannot scan %T into identity.Key", src)
	}
	return nil
}

// From converts a loosely typed cell value into a Key.
func From(v any) (Key, error) {
	switch x := v.(type) {
	case Key:
		return x, nil
	case *Key:
		if x == nil {
			return Key{}, fmt.Errorf("nil identity")
		}
		return *x, nil
	default:
		var k Key
		if err := k.Scan(v); err != nil {
			return Key{}, err
		}
		if k.IsZero() {
			return Key{}, fmt.Errorf("empty identity")
		}
		return k, nil
	}
}
