package protocol

import "errors"

// Payload validation errors.
var (
	ErrInvalidCause    = errors.New("protocol: invalid report cause")
	ErrInvalidPathname = errors.New("protocol: pathname must start with /")
	ErrInvalidSearch   = errors.New("protocol: search must be empty or start with ?")
)

// Command is a server-issued navigation.
//
// The target is carried as the server wrote it. The client validates and
// resolves it; an invalid target is rejected there, not here.
type Command struct {
	Seq     uint64
	To      string
	Replace bool
}

// EncodeCommand encodes c as a frame payload.
func EncodeCommand(c Command) []byte {
	e := NewEncoder()
	e.WriteUvarint(c.Seq)
	e.WriteBool(c.Replace)
	e.WriteString(c.To)
	return e.Bytes()
}

// DecodeCommand decodes a command payload.
func DecodeCommand(data []byte) (Command, error) {
	d := NewDecoder(data)

	seq, err := d.ReadUvarint()
	if err != nil {
		return Command{}, err
	}
	replace, err := d.ReadBool()
	if err != nil {
		return Command{}, err
	}
	to, err := d.ReadString()
	if err != nil {
		return Command{}, err
	}
	if err := d.finish(); err != nil {
		return Command{}, err
	}
	return Command{Seq: seq, To: to, Replace: replace}, nil
}

// CommandFrame wraps c in a FrameCommand frame.
func CommandFrame(c Command) *Frame {
	return NewFrame(FrameCommand, EncodeCommand(c))
}
