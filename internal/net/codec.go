package net

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// ErrLineTooLong is returned when a client line exceeds the configured limit.
var ErrLineTooLong = errors.New("line too long")

// Transport moves newline-delimited lines over one connection. ReadLine
// returns a line without its terminator; WriteLine sends one line.
// ReadLine and WriteLine may run on different goroutines.
type Transport interface {
	ReadLine() ([]byte, error)
	WriteLine(line []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() string
	Close() error
}

// tcpTransport frames lines on a raw TCP stream.
type tcpTransport struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

// NewTCPTransport wraps conn. Lines longer than maxLine bytes fail with
// ErrLineTooLong.
func NewTCPTransport(conn net.Conn, maxLine int) Transport {
	if maxLine <= 0 {
		maxLine = bufio.MaxScanTokenSize
	}
	// Scanner accepts tokens up to max(maxLine, cap(buf)).
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, min(4096, maxLine)), maxLine)
	return &tcpTransport{conn: conn, scanner: sc}
}

func (t *tcpTransport) ReadLine() ([]byte, error) {
	if !t.scanner.Scan() {
		err := t.scanner.Err()
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, ErrLineTooLong
		}
		if err == nil {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read line: %w", err)
	}
	// Scanner reuses its buffer between calls.
	return bytes.Clone(bytes.TrimRight(t.scanner.Bytes(), "\r")), nil
}

func (t *tcpTransport) WriteLine(line []byte) error {
	if _, err := t.conn.Write(line); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

func (t *tcpTransport) SetReadDeadline(d time.Time) error  { return t.conn.SetReadDeadline(d) }
func (t *tcpTransport) SetWriteDeadline(d time.Time) error { return t.conn.SetWriteDeadline(d) }
func (t *tcpTransport) RemoteAddr() string                 { return t.conn.RemoteAddr().String() }
func (t *tcpTransport) Close() error                       { return t.conn.Close() }

// isTimeout reports whether err is a deadline expiry.
func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
