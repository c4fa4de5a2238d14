package compoway

import (
	"bytes"
	"io"
	"time"

	"github.com/goburrow/serial"
	"github.com/harubonchi/heat-cycle-demo/internal/errors"
)

const chunkSize = 256

// Receiver assembles single reply frames from a byte stream. The stream
// must use a short read timeout so the deadline is rechecked between
// reads; a timed-out read returns no bytes and is not an error.
type Receiver struct {
	r io.Reader
}

func NewReceiver(r io.Reader) *Receiver {
	return &Receiver{r: r}
}

// ReadFrame returns one frame from the start marker through the check
// character inclusive. Bytes ahead of the start marker are discarded;
// anything past the check character in the same chunk is dropped. Reaching
// the deadline in any state returns ErrTransportTimeout and no bytes.
func (rx *Receiver) ReadFrame(deadline time.Time) ([]byte, error) {
	errFactory := errors.New()

	if err := rx.waitForStart(deadline); err != nil {
		return nil, err
	}

	buf := []byte{stx}
	chunk := make([]byte, chunkSize)
	for time.Now().Before(deadline) {
		// Once the end marker is in, only the check character remains.
		if i := bytes.IndexByte(buf, etx); i >= 0 {
			if len(buf) > i+1 {
				return buf[:i+2], nil
			}

			n, err := rx.r.Read(chunk[:1])
			if n > 0 {
				buf = append(buf, chunk[0])
				continue
			}
			if err != nil && !isTimeout(err) {
				return nil, errFactory.Wrap(ErrTransportFailed, err)
			}

			continue
		}

		n, err := rx.r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			continue
		}
		if err != nil && !isTimeout(err) {
			return nil, errFactory.Wrap(ErrTransportFailed, err)
		}
	}

	return nil, errFactory.New(ErrTransportTimeout)
}

func (rx *Receiver) waitForStart(deadline time.Time) error {
	errFactory := errors.New()

	var one [1]byte
	for time.Now().Before(deadline) {
		n, err := rx.r.Read(one[:])
		if n > 0 && one[0] == stx {
			return nil
		}
		if err != nil && !isTimeout(err) {
			return errFactory.Wrap(ErrTransportFailed, err)
		}
	}

	return errFactory.New(ErrTransportTimeout)
}

// isTimeout reports whether err is an idle read rather than a hard
// transport failure.
func isTimeout(err error) bool {
	return errors.Is(err, serial.ErrTimeout) || errors.Is(err, io.EOF)
}
