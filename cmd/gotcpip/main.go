// Command gotcpip attaches to a TUN device and terminates TCP
// connections arriving on it entirely in userspace, per RFC 793.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/alexflint/go-arg"

	"github.com/monasticacademy/gotcpip/pkg/endpoint"
	"github.com/monasticacademy/gotcpip/pkg/tun"
)

func Main() error {
	var args struct {
		Verbose bool   `arg:"-v,--verbose,env:GOTCPIP_VERBOSE" help:"log every segment sent and received"`
		Tun     string `default:"tun0" help:"name of the TUN device to attach to"`
		Stderr  bool   `arg:"env:GOTCPIP_LOG_TO_STDERR" help:"log to standard error (default is standard out)"`
	}
	arg.MustParse(&args)

	if args.Stderr {
		log.SetOutput(os.Stderr)
	}

	endpoint.Verbose = args.Verbose

	dev, err := tun.Open(args.Tun)
	if err != nil {
		return fmt.Errorf("opening tun device %q: %w", args.Tun, err)
	}
	defer dev.Close()

	log.Printf("listening on %s", args.Tun)

	table := endpoint.NewTable()
	buf := make([]byte, 1504)
	for {
		n, err := dev.Recv(buf)
		if err != nil {
			return fmt.Errorf("reading from tun device: %w", err)
		}

		if err := table.Handle(dev, buf[:n]); err != nil {
			return fmt.Errorf("handling datagram: %w", err)
		}
	}
}

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(0)
	if err := Main(); err != nil {
		log.Fatal(err)
	}
}
