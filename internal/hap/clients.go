package hap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// ClientCounter reports how many controllers are connected.
type ClientCounter interface {
	Count() (int, error)
}

// ProcCounter counts established TCP sessions on the HAP port from the
// kernel's socket tables. Each paired controller holds one session open.
type ProcCounter struct {
	port   int
	tables []string
}

// NewProcCounter counts sessions on port from /proc/net/tcp and tcp6.
func NewProcCounter(port int) *ProcCounter {
	return &ProcCounter{port: port, tables: []string{"/proc/net/tcp", "/proc/net/tcp6"}}
}

// Count sums established sessions across the socket tables. A missing table
// (no IPv6) is skipped.
func (p *ProcCounter) Count() (int, error) {
	total := 0
	for _, path := range p.tables {
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, err
		}
		n, err := countEstablished(f, p.port)
		f.Close()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		total += n
	}
	return total, nil
}

// tcpEstablished is the TCP_ESTABLISHED state in /proc/net/tcp.
const tcpEstablished = "01"

// countEstablished counts rows of a /proc/net/tcp style table whose local
// port is port and whose state is established.
func countEstablished(r io.Reader, port int) (int, error) {
	sc := bufio.NewScanner(r)
	n := 0
	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		local := fields[1]
		i := strings.LastIndexByte(local, ':')
		if i < 0 {
			continue
		}
		p, err := strconv.ParseUint(local[i+1:], 16, 16)
		if err != nil {
			continue
		}
		if int(p) == port && fields[3] == tcpEstablished {
			n++
		}
	}
	return n, sc.Err()
}
