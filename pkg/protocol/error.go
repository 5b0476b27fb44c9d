package protocol

// ErrorCode identifies the type of error.
type ErrorCode uint16

const (
	ErrUnknown      ErrorCode = 0x0000 // Unknown error
	ErrInvalidFrame ErrorCode = 0x0001 // Malformed frame
	ErrInvalidKind  ErrorCode = 0x0002 // Frame type not valid in this direction
	ErrRejected     ErrorCode = 0x0003 // Server handler rejected the report
	ErrServerError  ErrorCode = 0x0100 // Internal server error
)

// String returns the string representation of the error code.
func (ec ErrorCode) String() string {
	switch ec {
	case ErrInvalidFrame:
		return "InvalidFrame"
	case ErrInvalidKind:
		return "InvalidKind"
	case ErrRejected:
		return "Rejected"
	case ErrServerError:
		return "ServerError"
	default:
		return "Unknown"
	}
}

// ErrorMessage is sent when a peer cannot process a frame.
type ErrorMessage struct {
	Code    ErrorCode
	Message string
	Fatal   bool // The sender closes the connection after this frame
}

// EncodeErrorMessage encodes em as a frame payload.
func EncodeErrorMessage(em ErrorMessage) []byte {
	e := NewEncoder()
	e.WriteUint16(uint16(em.Code))
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
	return e.Bytes()
}

// DecodeErrorMessage decodes an error payload.
func DecodeErrorMessage(data []byte) (ErrorMessage, error) {
	d := NewDecoder(data)

	code, err := d.ReadUint16()
	if err != nil {
		return ErrorMessage{}, err
	}
	msg, err := d.ReadString()
	if err != nil {
		return ErrorMessage{}, err
	}
	fatal, err := d.ReadBool()
	if err != nil {
		return ErrorMessage{}, err
	}
	if err := d.finish(); err != nil {
		return ErrorMessage{}, err
	}
	return ErrorMessage{Code: ErrorCode(code), Message: msg, Fatal: fatal}, nil
}

// ErrorFrame wraps em in a FrameError frame.
func ErrorFrame(em ErrorMessage) *Frame {
	return NewFrame(FrameError, EncodeErrorMessage(em))
}
