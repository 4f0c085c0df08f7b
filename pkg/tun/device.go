// Package tun attaches to a TUN device and exposes it as a blocking
// duplex channel of raw IPv4 datagrams.
package tun

import (
	"fmt"

	"github.com/songgao/water"
)

// Device is a blocking duplex byte channel that delivers and accepts
// one complete IPv4 datagram per call. I/O errors are not recoverable
// from the caller's point of view and should terminate the process loop.
type Device interface {
	// Recv blocks until one IPv4 datagram is available and copies it into
	// buf starting at offset 0, returning the number of bytes written.
	Recv(buf []byte) (int, error)

	// Send transmits one IPv4 datagram.
	Send(b []byte) error

	Close() error
}

// iface wraps a songgao/water TUN interface running in layer-3 mode
// (no packet-info prefix, no link-layer framing).
type iface struct {
	*water.Interface
}

// Open attaches to (creating if necessary) the named TUN device in
// layer-3 mode.
func Open(name string) (Device, error) {
	dev, err := water.New(water.Config{
		DeviceType: water.TUN,
		PlatformSpecificParams: water.PlatformSpecificParams{
			Name: name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating tun device %q: %w", name, err)
	}

	return &iface{dev}, nil
}

func (d *iface) Recv(buf []byte) (int, error) {
	n, err := d.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("reading from tun device: %w", err)
	}
	return n, nil
}

func (d *iface) Send(b []byte) error {
	if _, err := d.Write(b); err != nil {
		return fmt.Errorf("writing to tun device: %w", err)
	}
	return nil
}
