package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"
)

const (
	recordFormatVersionCurrent = 1
	maxTokenLength             = math.MaxUint16
)

var errCorruptRecord = errors.New("corrupt session record")

type record struct {
	AccessToken  string
	RefreshToken string
	SavedAt      int64
}

// encodeRecord writes the compact on-disk form:
//
//	version(1) | len(2) access | len(2) refresh | savedAt(8)
func encodeRecord(r record) ([]byte, error) {
	if len(r.AccessToken) > maxTokenLength {
		return nil, errors.New("access token too long")
	}
	if len(r.RefreshToken) > maxTokenLength {
		return nil, errors.New("refresh token too long")
	}

	var buf bytes.Buffer
	buf.Grow(1 + 2 + len(r.AccessToken) + 2 + len(r.RefreshToken) + 8)

	buf.WriteByte(recordFormatVersionCurrent)
	if err := writeString(&buf, r.AccessToken); err != nil {
		return nil, err
	}
	if err := writeString(&buf, r.RefreshToken); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.SavedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (record, error) {
	var r record
	if len(data) == 0 {
		return r, errCorruptRecord
	}

	buf := bytes.NewReader(data)
	version, err := buf.ReadByte()
	if err != nil {
		return r, errCorruptRecord
	}
	if version != recordFormatVersionCurrent {
		return r, errCorruptRecord
	}

	if r.AccessToken, err = readString(buf); err != nil {
		return record{}, errCorruptRecord
	}
	if r.RefreshToken, err = readString(buf); err != nil {
		return record{}, errCorruptRecord
	}
	if err := binary.Read(buf, binary.BigEndian, &r.SavedAt); err != nil {
		return record{}, errCorruptRecord
	}
	if buf.Len() != 0 {
		return record{}, errCorruptRecord
	}

	return r, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return "", err
	}
	return string(out), nil
}

func newRecord(accessToken, refreshToken string, now time.Time) record {
	return record{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SavedAt:      now.Unix(),
	}
}
