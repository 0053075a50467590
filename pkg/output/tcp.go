package output

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cenk/backoff"
	log "github.com/sirupsen/logrus"

	"github.com/awesome-flow/eventgen/pkg/plugin"
	"github.com/awesome-flow/eventgen/pkg/sample"
	"github.com/awesome-flow/eventgen/pkg/settings"
	"github.com/awesome-flow/eventgen/pkg/types"
)

const (
	TCPDestinationHost = "tcpDestinationHost"
	TCPDestinationPort = "tcpDestinationPort"

	TCPConnTimeout   = 2 * time.Second
	TCPWriteDeadline = 2 * time.Second
	// TCPMaxElapsedTime bounds the reconnection attempts of a single flush.
	TCPMaxElapsedTime = 10 * time.Second
)

// TCP streams event bodies to a remote endpoint, one event per line.
type TCP struct {
	addr       string
	conn       net.Conn
	maxElapsed time.Duration
	*sync.Mutex
	logger *log.Entry
}

var _ plugin.Output = (*TCP)(nil)

func NewTCP(addr string) *TCP {
	return &TCP{
		addr:       addr,
		maxElapsed: TCPMaxElapsedTime,
		Mutex:      &sync.Mutex{},
		logger:     log.WithFields(log.Fields{"module": "output", "addr": addr}),
	}
}

func (tcp *TCP) connect() error {
	tcp.conn = nil
	bckSub := func() error {
		conn, connErr := net.DialTimeout("tcp", tcp.addr, TCPConnTimeout)
		if connErr != nil {
			return connErr
		}
		tcp.conn = conn
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = tcp.maxElapsed
	return backoff.RetryNotify(bckSub, b, func(err error, dur time.Duration) {
		tcp.logger.Warnf("Failed to establish a TCP connection to %s because: %s. "+
			"Next retry in %s", tcp.addr, err.Error(), dur)
	})
}

// Flush writes the batch, reconnecting first if the previous write failed.
// A batch that cannot be written is reported, not retried.
func (tcp *TCP) Flush(batch []types.Event) error {
	tcp.Lock()
	defer tcp.Unlock()
	if tcp.conn == nil {
		if err := tcp.connect(); err != nil {
			return fmt.Errorf("failed to connect to %s: %s", tcp.addr, err)
		}
	}
	tcp.conn.SetDeadline(time.Now().Add(TCPWriteDeadline))
	if _, err := tcp.conn.Write(render(batch)); err != nil {
		tcp.conn.Close()
		tcp.conn = nil
		return fmt.Errorf("failed to send a batch to %s: %s", tcp.addr, err)
	}
	return nil
}

func (tcp *TCP) Close() error {
	tcp.Lock()
	defer tcp.Unlock()
	if tcp.conn == nil {
		return nil
	}
	err := tcp.conn.Close()
	tcp.conn = nil
	return err
}

func TCPDescriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Kind: plugin.KindOutput,
		Name: "tcp",
		Settings: []settings.Descriptor{
			{Name: TCPDestinationHost, Kind: settings.KindString, Defaultable: true},
			{Name: TCPDestinationPort, Kind: settings.KindInt, Defaultable: true},
		},
		NewOutput: func(s *sample.Sample) (plugin.Output, error) {
			host := s.Str(TCPDestinationHost)
			port := s.IntOr(TCPDestinationPort, 0)
			if len(host) == 0 || port <= 0 {
				return nil, fmt.Errorf("sample %q needs %s and %s", s.Name, TCPDestinationHost, TCPDestinationPort)
			}
			return NewTCP(net.JoinHostPort(host, strconv.Itoa(port))), nil
		},
	}
}
