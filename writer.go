package rendezvous

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// IDSize is the size of the process ID header sent on connect.
const IDSize = 8

// EncodeID encodes id as a big-endian unsigned integer.
func EncodeID(id uint64) [IDSize]byte {
	var out [IDSize]byte
	binary.BigEndian.PutUint64(out[:], id)
	return out
}

// DecodeID reverses `EncodeID`.
func DecodeID(raw []byte) (uint64, error) {
	if len(raw) != IDSize {
		return 0, fmt.Errorf("%w: process ID header is %d bytes, expected %d", ErrProtocolViolation, len(raw), IDSize)
	}
	return binary.BigEndian.Uint64(raw), nil
}

// WriteAll writes the whole buf to w.
//
// Writes interrupted by a signal or which would block are retried
// without losing what was already accepted. Any other error aborts.
func WriteAll(w io.Writer, buf []byte) error {
	_, err := writeAll(w, buf)
	return err
}

func writeAll(w io.Writer, buf []byte) (retries int, err error) {
	sent := 0
	for sent < len(buf) {
		n, err := w.Write(buf[sent:])
		if n > 0 {
			sent += n
		}

		switch {
		case err == nil && n == 0:
			return retries, fmt.Errorf("%w: write stalled after %d/%d bytes: %w", ErrIO, sent, len(buf), io.ErrShortWrite)
		case err == nil:
		case isTransient(err):
			retries++
		default:
			return retries, fmt.Errorf("%w: write failed after %d/%d bytes: %w", ErrIO, sent, len(buf), err)
		}
	}
	return retries, nil
}

func isTransient(err error) bool {
	return errors.Is(err, unix.EINTR) ||
		errors.Is(err, unix.EAGAIN) ||
		errors.Is(err, unix.EWOULDBLOCK)
}
