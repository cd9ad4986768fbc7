package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const recordFormatVersion = 1

const maxFieldLen = 255

var (
	// ErrFieldTooLong is returned by Encode when a string field exceeds 255 bytes.
	ErrFieldTooLong = errors.New("session: record field too long")
	// ErrRecordCorrupt is returned by Decode for bytes Encode did not produce.
	ErrRecordCorrupt = errors.New("session: record corrupt")
)

// Encode serializes r as: version byte, then ID, PublicKey, PrivateKey and
// Label each prefixed by a one-byte length, then CreatedAt and ExpiresAt as
// big-endian int64.
func Encode(r *Record) ([]byte, error) {
	if r == nil {
		return nil, errors.New("session: nil record")
	}

	var buf bytes.Buffer
	buf.Grow(2 + 4 + len(r.ID) + len(r.PublicKey) + len(r.PrivateKey) + len(r.Label) + 16)
	buf.WriteByte(recordFormatVersion)

	for _, field := range []string{r.ID, r.PublicKey, r.PrivateKey, r.Label} {
		if len(field) > maxFieldLen {
			return nil, ErrFieldTooLong
		}
		buf.WriteByte(byte(len(field)))
		buf.WriteString(field)
	}

	if err := binary.Write(&buf, binary.BigEndian, r.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses the output of Encode. Trailing bytes are rejected.
func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, corrupt(err)
	}
	if version != recordFormatVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrRecordCorrupt, version)
	}

	r := &Record{}
	for _, dst := range []*string{&r.ID, &r.PublicKey, &r.PrivateKey, &r.Label} {
		s, err := readField(reader)
		if err != nil {
			return nil, err
		}
		*dst = s
	}

	if err := binary.Read(reader, binary.BigEndian, &r.CreatedAt); err != nil {
		return nil, corrupt(err)
	}
	if err := binary.Read(reader, binary.BigEndian, &r.ExpiresAt); err != nil {
		return nil, corrupt(err)
	}

	if reader.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrRecordCorrupt, reader.Len())
	}

	return r, nil
}

func readField(reader *bytes.Reader) (string, error) {
	n, err := reader.ReadByte()
	if err != nil {
		return "", corrupt(err)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(reader, b); err != nil {
		return "", corrupt(err)
	}
	return string(b), nil
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
}
