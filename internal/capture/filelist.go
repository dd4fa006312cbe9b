package capture

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/lavanyaayna9/flowmeter/internal/dissect/linklayer"
)

// ListSource replays a sequence of capture files named one per line in a
// list file (§6 "-R PATH"), presenting them to the caller as a single
// continuous Source. It advances to the next listed file transparently
// when the current one is exhausted.
type ListSource struct {
	paths []string
	idx   int
	cur   *FileSource
}

// OpenList reads listPath (one capture-file path per line, blank lines and
// "#"-prefixed comments ignored) and opens the first file in the
// sequence.
func OpenList(listPath string) (*ListSource, error) {
	f, err := os.Open(listPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	paths, err := parseList(f)
	if err != nil {
		return nil, err
	}

	ls := &ListSource{paths: paths}
	if err := ls.advance(); err != nil {
		return nil, err
	}
	return ls, nil
}

// parseList reads one capture-file path per line, skipping blank lines
// and "#"-prefixed comments.
func parseList(r io.Reader) ([]string, error) {
	var paths []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	return paths, sc.Err()
}

func (l *ListSource) advance() error {
	if l.cur != nil {
		_ = l.cur.Close()
		l.cur = nil
	}
	if l.idx >= len(l.paths) {
		return ErrCaptureStopped
	}
	src, err := OpenFile(l.paths[l.idx])
	if err != nil {
		return err
	}
	l.idx++
	l.cur = src
	return nil
}

func (l *ListSource) NextPacket(buf *Packet) (*Packet, error) {
	for {
		if l.cur == nil {
			return nil, ErrCaptureStopped
		}
		pkt, err := l.cur.NextPacket(buf)
		if err == nil {
			return pkt, nil
		}
		if err != ErrCaptureStopped {
			return nil, err
		}
		if advErr := l.advance(); advErr != nil {
			return nil, advErr
		}
	}
}

func (l *ListSource) Stats() (Stats, error) {
	if l.cur == nil {
		return Stats{}, nil
	}
	return l.cur.Stats()
}

func (l *ListSource) LinkType() linklayer.Type {
	if l.cur == nil {
		return linklayer.Ethernet
	}
	return l.cur.LinkType()
}

func (l *ListSource) Unblock() error { return nil }

func (l *ListSource) Close() error {
	if l.cur != nil {
		return l.cur.Close()
	}
	return nil
}
