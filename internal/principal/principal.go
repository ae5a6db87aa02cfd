// Package principal implements the textual form of canister and user ids.
//
// The text form is the lowercase, unpadded base32 encoding of a big-endian
// CRC32 checksum followed by the raw id bytes, grouped in runs of five
// characters separated by dashes.
package principal

import (
	"bytes"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/kingrea/dfxcore/internal/dfxerr"
)

// MaxLength is the maximum number of raw bytes in an id.
const MaxLength = 29

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ID is an opaque principal. The zero value is the management canister.
type ID struct {
	raw string
}

// FromBytes builds an ID from its raw bytes.
func FromBytes(b []byte) (ID, error) {
	if len(b) > MaxLength {
		return ID{}, dfxerr.Config("principal: %d bytes exceeds the maximum of %d", len(b), MaxLength)
	}
	return ID{raw: string(b)}, nil
}

// FromText parses the textual form. Upper case input is accepted, every
// other deviation from the canonical grouping is rejected.
func FromText(text string) (ID, error) {
	lower := strings.ToLower(text)
	compact := strings.ReplaceAll(lower, "-", "")
	decoded, err := encoding.DecodeString(strings.ToUpper(compact))
	if err != nil {
		return ID{}, dfxerr.Config("principal: invalid text %q: %v", text, err)
	}
	if len(decoded) < 4 {
		return ID{}, dfxerr.Config("principal: text %q is too short", text)
	}
	body := decoded[4:]
	if binary.BigEndian.Uint32(decoded[:4]) != crc32.ChecksumIEEE(body) {
		return ID{}, dfxerr.Config("principal: checksum mismatch in %q", text)
	}
	id, err := FromBytes(body)
	if err != nil {
		return ID{}, err
	}
	if id.String() != lower {
		return ID{}, dfxerr.Config("principal: %q is not in canonical form, expected %q", text, id.String())
	}
	return id, nil
}

// MustFromText is FromText that panics on error.
func MustFromText(text string) ID {
	id, err := FromText(text)
	if err != nil {
		panic(err)
	}
	return id
}

// IsValidText reports whether text parses as a principal.
func IsValidText(text string) bool {
	_, err := FromText(text)
	return err == nil
}

// Bytes returns a copy of the raw id bytes.
func (id ID) Bytes() []byte {
	return []byte(id.raw)
}

// Equal compares raw bytes.
func (id ID) Equal(other ID) bool {
	return bytes.Equal([]byte(id.raw), []byte(other.raw))
}

// String returns the canonical textual form.
func (id ID) String() string {
	body := []byte(id.raw)
	buf := make([]byte, 4, 4+len(body))
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE(body))
	buf = append(buf, body...)
	enc := strings.ToLower(encoding.EncodeToString(buf))

	var b strings.Builder
	for i := 0; i < len(enc); i += 5 {
		if i > 0 {
			b.WriteByte('-')
		}
		end := i + 5
		if end > len(enc) {
			end = len(enc)
		}
		b.WriteString(enc[i:end])
	}
	return b.String()
}

// GoString keeps %#v readable in test failures.
func (id ID) GoString() string {
	return fmt.Sprintf("principal.ID(%q)", id.String())
}
