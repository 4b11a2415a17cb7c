// Package transport frames newline-delimited JSON messages over a byte
// stream, the MCP stdio transport.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	initialBufferSize = 1024 * 1024
	// MaxFrameSize bounds a single inbound frame.
	MaxFrameSize = 16 * 1024 * 1024
)

// ErrFrameTooLarge is returned by Receive when a frame exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// Transport is the pair of operations the dispatch loop consumes.
type Transport interface {
	// Receive returns the next frame, or io.EOF once the peer closes the stream.
	Receive(ctx context.Context) ([]byte, error)
	// Send writes one frame.
	Send(ctx context.Context, frame []byte) error
}

// Lines is a Transport over a reader/writer pair, one JSON message per line.
type Lines struct {
	scanner *bufio.Scanner
	start   sync.Once
	frames  chan []byte
	readErr error // set before frames is closed

	mu     sync.Mutex
	writer *bufio.Writer
}

// NewLines creates a line transport reading r and writing w.
func NewLines(r io.Reader, w io.Writer) *Lines {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialBufferSize), MaxFrameSize)
	return &Lines{scanner: scanner, frames: make(chan []byte), writer: bufio.NewWriter(w)}
}

// Stdio returns a line transport bound to the process's stdin and stdout.
func Stdio() *Lines {
	return NewLines(os.Stdin, os.Stdout)
}

// Receive returns the next non-blank line with surrounding whitespace
// trimmed. Reads happen on a separate goroutine, so cancelling ctx unblocks
// a Receive that is waiting on an idle peer.
func (l *Lines) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.start.Do(func() { go l.read() })

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame, ok := <-l.frames:
		if !ok {
			return nil, l.readErr
		}
		return frame, nil
	}
}

func (l *Lines) read() {
	defer close(l.frames)
	for l.scanner.Scan() {
		line := bytes.TrimSpace(l.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		l.frames <- bytes.Clone(line)
	}
	switch err := l.scanner.Err(); {
	case err == nil:
		l.readErr = io.EOF
	case errors.Is(err, bufio.ErrTooLong):
		l.readErr = ErrFrameTooLarge
	default:
		l.readErr = fmt.Errorf("reading frame: %w", err)
	}
}

// Send writes frame followed by a newline and flushes it.
func (l *Lines) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.writer.Write(frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	if err := l.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("flushing frame: %w", err)
	}
	return nil
}
