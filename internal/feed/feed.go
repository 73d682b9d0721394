package feed

import (
	"bufio"
	"context"
	"io"
)

// Feed supplies log lines one at a time. Next returns io.EOF once the input is
// exhausted and ctx.Err() when the context is cancelled first.
type Feed interface {
	Next(ctx context.Context) (string, error)
}

// ---------------------------------------------------------------------------
// Batch feed
// ---------------------------------------------------------------------------

// Slice feeds a finite in-memory batch. It never blocks.
type Slice struct {
	lines []string
	i     int
}

func NewSlice(lines []string) *Slice {
	return &Slice{lines: lines}
}

func (s *Slice) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.i >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.i]
	s.i++
	return line, nil
}

// ---------------------------------------------------------------------------
// Stream feed
// ---------------------------------------------------------------------------

type streamLine struct {
	text string
	err  error
}

// Stream reads newline-terminated lines from a live reader such as stdin.
// Reads happen on a background goroutine so Next can return as soon as the
// context is cancelled, even while the reader is blocked.
type Stream struct {
	out  chan streamLine
	quit chan struct{}
	err  error
}

func NewStream(r io.Reader) *Stream {
	s := &Stream{
		out:  make(chan streamLine),
		quit: make(chan struct{}),
	}
	go s.read(bufio.NewReader(r))
	return s
}

func (s *Stream) Next(ctx context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l := <-s.out:
		if l.err != nil {
			s.err = l.err
			return "", l.err
		}
		return l.text, nil
	}
}

// Close stops the reader goroutine once its pending read returns.
func (s *Stream) Close() error {
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	return nil
}

// read forwards lines until the reader is exhausted. A final line without a
// trailing newline is still delivered before io.EOF.
func (s *Stream) read(r *bufio.Reader) {
	for {
		text, err := r.ReadString('\n')
		if text != "" && !s.send(streamLine{text: text}) {
			return
		}
		if err != nil {
			s.send(streamLine{err: err})
			return
		}
	}
}

func (s *Stream) send(l streamLine) bool {
	select {
	case s.out <- l:
		return true
	case <-s.quit:
		return false
	}
}

// Prepend returns a feed that yields first before reading from f. It is used
// to push back a line that was peeked at.
func Prepend(first string, f Feed) Feed {
	return &prepended{first: first, rest: f}
}

type prepended struct {
	first string
	used  bool
	rest  Feed
}

func (p *prepended) Next(ctx context.Context) (string, error) {
	if !p.used {
		p.used = true
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return p.first, nil
	}
	return p.rest.Next(ctx)
}

// Close closes the wrapped feed if it holds resources.
func (p *prepended) Close() error {
	if c, ok := p.rest.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
