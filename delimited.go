package protomsg

import (
	"fmt"
	"io"

	"github.com/anirudhraja/protomsg/wire"
)

// WriteDelimitedTo writes the message to w as a varint length prefix
// followed by the encoded body, the framing used to stack several
// messages on one stream. It returns the total number of bytes written.
func (m *Message) WriteDelimitedTo(w io.Writer) (int, error) {
	body, err := Marshal(m)
	if err != nil {
		return 0, err
	}
	prefix := wire.NewEncoder()
	prefix.EncodeVarint(uint64(len(body)))

	n, err := w.Write(prefix.Bytes())
	if err != nil {
		return n, err
	}
	bn, err := w.Write(body)
	return n + bn, err
}

// ReadDelimitedFrom reads one length-prefixed message from r into m,
// merging like Unmarshal. It returns io.EOF when the stream is exhausted
// before the prefix starts, and io.ErrUnexpectedEOF when a frame is cut
// short.
func ReadDelimitedFrom(r io.Reader, m *Message) error {
	if m == nil {
		return ErrNilMessage
	}
	size, err := readVarintPrefix(r)
	if err != nil {
		return err
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return Unmarshal(body, m)
}

// readVarintPrefix reads a base-128 length one byte at a time, bounded to
// the ten bytes a uint64 can occupy.
func readVarintPrefix(r io.Reader) (uint64, error) {
	var (
		result uint64
		shift  uint
		buf    [1]byte
	)
	for i := 0; i < 10; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			if i > 0 && err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		b := buf[0]
		result |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, fmt.Errorf("reading length prefix: %w", wire.ErrMalformedVarint)
}
