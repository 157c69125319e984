// Package report queries the KEBA UDP interface on port 7090.
//
// A query is a single ASCII datagram such as "report 2"; the station
// answers with exactly one datagram, which is the complete response.
package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"
)

// Largest possible UDP payload; a reply is never split across reads.
const maxDatagram = 65535

// Client sends report queries to one station.
type Client struct {
	Host      string        // Station IP or hostname
	Port      int           // Station UDP port
	LocalPort int           // Local UDP port; the station replies to 7090, negative picks any
	Timeout   time.Duration // Zero waits forever
}

// Command returns the query string for report n.
func Command(n int) string {
	return fmt.Sprintf("report %d", n)
}

// Query sends "report n" and returns the single reply datagram as text.
func (c *Client) Query(ctx context.Context, n int) (string, error) {
	raddr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(c.Host, fmt.Sprint(c.Port)))
	if err != nil {
		return "", err
	}
	var laddr *net.UDPAddr
	if c.LocalPort >= 0 {
		laddr = &net.UDPAddr{Port: c.LocalPort}
	}
	conn, err := net.DialUDP("udp4", laddr, raddr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if c.Timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(c.Timeout)); err != nil {
			return "", fmt.Errorf("set deadline: %w", err)
		}
	}
	// Unblock the read when the context is cancelled.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			if err := conn.SetDeadline(time.Unix(1, 0)); err != nil {
				log.Printf("report: cancel read: %v", err)
			}
		case <-stop:
		}
	}()

	if _, err := conn.Write([]byte(Command(n))); err != nil {
		return "", fmt.Errorf("send %q: %w", Command(n), err)
	}
	buf := make([]byte, maxDatagram)
	l, err := conn.Read(buf)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return "", fmt.Errorf("no reply to %q within %s: %w", Command(n), c.Timeout, err)
		}
		return "", err
	}
	return decodeASCII(buf[:l]), nil
}

// decodeASCII maps bytes outside 7-bit ASCII to '?'.
func decodeASCII(b []byte) string {
	r := make([]byte, len(b))
	for i, c := range b {
		if c > 0x7F {
			c = '?'
		}
		r[i] = c
	}
	return string(r)
}
