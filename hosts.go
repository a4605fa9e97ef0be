package rendezvous

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
)

const minHosts = 2

// PeerTable is the validated list of the processes taking part in a
// run, sorted by ascending ID. It is immutable once built.
//
// Since IDs are exactly 1..N, the rank of a process, its position in
// the table, is always its ID minus one.
type PeerTable struct {
	hosts []Endpoint
}

// ParseHosts reads the peer table stored at path.
//
// Every non-blank line must be `<id> <address-or-hostname> <port>`.
func ParseHosts(ctx context.Context, path string, opts ...Option) (*PeerTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: `%s` could not be opened: %w", ErrConfig, path, err)
	}
	defer f.Close()

	return ReadHosts(ctx, f, path, opts...)
}

// ReadHosts is like ParseHosts but reads from r. The name is only used
// in error messages.
func ReadHosts(ctx context.Context, r io.Reader, name string, opts ...Option) (*PeerTable, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	var hosts []Endpoint
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		host, err := cfg.parseRecord(ctx, name, lineNum, line)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, host)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading `%s` failed: %w", ErrConfig, name, err)
	}

	if len(hosts) < minHosts {
		return nil, fmt.Errorf("%w: `%s` must contain at least two hosts", ErrConfig, name)
	}

	slices.SortFunc(hosts, func(a, b Endpoint) int {
		return cmp.Compare(a.ID, b.ID)
	})

	minID, maxID := hosts[0].ID, hosts[len(hosts)-1].ID
	if minID != 1 || maxID != uint64(len(hosts)) {
		return nil, fmt.Errorf(
			"%w: in `%s` IDs of processes have to start from 1 and be compact (min %d, max %d, %d hosts)",
			ErrConfig, name, minID, maxID, len(hosts),
		)
	}

	// min and max alone let {1, 1, 3} through.
	for i := 1; i < len(hosts); i++ {
		if hosts[i].ID == hosts[i-1].ID {
			return nil, fmt.Errorf("%w: in `%s` ID %d is used more than once", ErrConfig, name, hosts[i].ID)
		}
	}

	cfg.logger.Debug("parsed peer table", "path", name, "hosts", len(hosts))
	return &PeerTable{hosts: hosts}, nil
}

func (c *config) parseRecord(ctx context.Context, name string, lineNum int, line string) (Endpoint, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return Endpoint{}, &LineError{
			Path: name,
			Line: lineNum,
			msg:  fmt.Sprintf("expected `<id> <address> <port>`, got %d fields", len(fields)),
		}
	}

	id, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil || id == 0 {
		return Endpoint{}, &LineError{
			Path: name,
			Line: lineNum,
			msg:  fmt.Sprintf("`%s` is not a positive process ID", fields[0]),
		}
	}

	port, err := strconv.ParseUint(fields[2], 10, 16)
	if err != nil {
		return Endpoint{}, &LineError{
			Path: name,
			Line: lineNum,
			msg:  fmt.Sprintf("`%s` is not a port number", fields[2]),
		}
	}

	host, err := c.endpoint(ctx, id, fields[1], uint16(port))
	if err != nil {
		return Endpoint{}, &LineError{
			Path: name,
			Line: lineNum,
			msg:  "address could not be resolved",
			err:  err,
		}
	}
	return host, nil
}

// Len is the number of processes, N.
func (pt *PeerTable) Len() int {
	return len(pt.hosts)
}

// Hosts returns a copy of the table, sorted by ascending ID.
func (pt *PeerTable) Hosts() []Endpoint {
	return slices.Clone(pt.hosts)
}

// Contains reports whether id is one of the processes of the table.
func (pt *PeerTable) Contains(id uint64) bool {
	return id >= 1 && id <= uint64(len(pt.hosts))
}

// Get returns the host of process id, or `ErrUnknownID`.
func (pt *PeerTable) Get(id uint64) (Endpoint, error) {
	if !pt.Contains(id) {
		return Endpoint{}, fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	return pt.hosts[id-1], nil
}

// Rank returns the position of id in the table.
func (pt *PeerTable) Rank(id uint64) (int, error) {
	if !pt.Contains(id) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	return int(id - 1), nil
}

// Others returns every host except the one with the given id.
func (pt *PeerTable) Others(id uint64) []Endpoint {
	others := make([]Endpoint, 0, len(pt.hosts))
	for _, host := range pt.hosts {
		if host.ID != id {
			others = append(others, host)
		}
	}
	return others
}
