package uavcan

// Frame is a single CAN (or CAN FD) frame, timestamped by the driver
// at the moment of reception. Data holds up to 8 bytes for classic
// CAN or up to 64 for CAN FD; its last byte is always the tail byte.
type Frame struct {
	Timestamp Instant
	ID        CanID
	Data      []byte
}

// TailByte returns the parsed tail byte, the final byte of Data.
// Callers must ensure Data is non-empty.
func (f Frame) TailByte() TailByte {
	return ParseTailByte(f.Data[len(f.Data)-1])
}

// Payload returns the frame's data with the trailing tail byte
// stripped.
func (f Frame) Payload() []byte {
	return f.Data[:len(f.Data)-1]
}

// Transfer is one logical, possibly multi-frame, application-level
// unit: a message, a service request, or a service response. P is a
// byte buffer on receive ([]byte) and is typically a borrowed slice
// on transmit.
type Transfer[P ~[]byte] struct {
	Timestamp  Instant
	Header     TransferHeader
	TransferId TransferId
	Payload    P
}
