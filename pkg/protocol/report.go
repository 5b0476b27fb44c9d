package protocol

import (
	"github.com/vango-dev/navsync/pkg/location"
)

// Cause records why the client emitted a location.
type Cause uint8

const (
	CauseInitial  Cause = 0x01 // Watcher activation (first load)
	CausePopState Cause = 0x02 // Back/forward traversal
	CausePush     Cause = 0x03 // Commander push
	CauseReplace  Cause = 0x04 // Commander replace
	CauseLink     Cause = 0x05 // Intercepted link click
)

// String returns the cause name used in logs, traces and metric labels.
func (c Cause) String() string {
	switch c {
	case CauseInitial:
		return "initial"
	case CausePopState:
		return "popstate"
	case CausePush:
		return "push"
	case CauseReplace:
		return "replace"
	case CauseLink:
		return "link"
	default:
		return "unknown"
	}
}

// Valid reports whether c is a known cause.
func (c Cause) Valid() bool {
	return c >= CauseInitial && c <= CauseLink
}

// Report is one location change sent from client to server.
type Report struct {
	Seq      uint64
	Cause    Cause
	Location location.Location
}

// EncodeReport encodes r as a frame payload.
func EncodeReport(r Report) []byte {
	e := NewEncoder()
	EncodeReportTo(e, r)
	return e.Bytes()
}

// EncodeReportTo encodes r using the provided encoder.
func EncodeReportTo(e *Encoder, r Report) {
	e.WriteUvarint(r.Seq)
	e.WriteUint8(byte(r.Cause))
	e.WriteString(r.Location.Pathname)
	e.WriteString(r.Location.Search)
}

// DecodeReport decodes a report payload.
func DecodeReport(data []byte) (Report, error) {
	d := NewDecoder(data)

	seq, err := d.ReadUvarint()
	if err != nil {
		return Report{}, err
	}
	cb, err := d.ReadByte()
	if err != nil {
		return Report{}, err
	}
	cause := Cause(cb)
	if !cause.Valid() {
		return Report{}, ErrInvalidCause
	}
	pathname, err := d.ReadString()
	if err != nil {
		return Report{}, err
	}
	if pathname == "" || pathname[0] != '/' {
		return Report{}, ErrInvalidPathname
	}
	search, err := d.ReadString()
	if err != nil {
		return Report{}, err
	}
	if search != "" && search[0] != '?' {
		return Report{}, ErrInvalidSearch
	}
	if err := d.finish(); err != nil {
		return Report{}, err
	}

	return Report{
		Seq:      seq,
		Cause:    cause,
		Location: location.Location{Pathname: pathname, Search: search},
	}, nil
}

// ReportFrame wraps r in a FrameReport frame.
func ReportFrame(r Report) *Frame {
	return NewFrame(FrameReport, EncodeReport(r))
}
