package docker

import "bytes"

// cappedBuffer retains at most limit bytes. Writes past the cap are
// accepted and discarded so upstream copies never fail, and the truncated
// flag records that output was dropped.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	room := b.limit - b.buf.Len()
	if room <= 0 {
		if n > 0 {
			b.truncated = true
		}
		return n, nil
	}
	if n > room {
		b.truncated = true
		p = p[:room]
	}
	b.buf.Write(p)
	return n, nil
}

func (b *cappedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}
