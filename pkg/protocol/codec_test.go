package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestUvarintBoundaries(t *testing.T) {
	tests := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xAC, 0x02}},
	}
	for _, tt := range tests {
		e := NewEncoder()
		e.WriteUvarint(tt.v)
		if !bytes.Equal(e.Bytes(), tt.want) {
			t.Errorf("WriteUvarint(%d) = %x, want %x", tt.v, e.Bytes(), tt.want)
		}
		got, err := NewDecoder(tt.want).ReadUvarint()
		if err != nil || got != tt.v {
			t.Errorf("ReadUvarint(%x) = %d, %v", tt.want, got, err)
		}
	}

	e := NewEncoder()
	e.WriteUvarint(^uint64(0))
	got, err := NewDecoder(e.Bytes()).ReadUvarint()
	if err != nil || got != ^uint64(0) {
		t.Errorf("max uint64 round trip = %d, %v", got, err)
	}
}

func TestReadUvarintErrors(t *testing.T) {
	if _, err := NewDecoder([]byte{0x80}).ReadUvarint(); err != io.ErrUnexpectedEOF {
		t.Errorf("truncated varint error = %v", err)
	}
	overflow := bytes.Repeat([]byte{0xFF}, 10)
	if _, err := NewDecoder(overflow).ReadUvarint(); err != ErrVarintOverflow {
		t.Errorf("overflow error = %v", err)
	}
}

func TestReadStringLimits(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(MaxStringLength + 1)
	if _, err := NewDecoder(e.Bytes()).ReadString(); err != ErrStringTooLarge {
		t.Errorf("oversized string error = %v", err)
	}

	e.Reset()
	e.WriteUvarint(10)
	e.WriteUint8('x')
	if _, err := NewDecoder(e.Bytes()).ReadString(); err != io.ErrUnexpectedEOF {
		t.Errorf("short string error = %v", err)
	}
}

func TestReadBoolIsStrict(t *testing.T) {
	if _, err := NewDecoder([]byte{0x02}).ReadBool(); !errors.Is(err, ErrInvalidBool) {
		t.Errorf("ReadBool(0x02) error = %v", err)
	}
}
