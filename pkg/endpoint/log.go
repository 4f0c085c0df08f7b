package endpoint

import (
	"fmt"
	"log"
	"strings"

	"github.com/fatih/color"
	"github.com/google/gopacket/layers"
)

// Verbose gates the package's verbose logging. The cmd/gotcpip binary
// sets this from its -v/--verbose flag.
var Verbose bool

func verbose(msg string) {
	if Verbose {
		log.Print(msg)
	}
}

func verbosef(format string, parts ...interface{}) {
	if Verbose {
		log.Printf(format, parts...)
	}
}

var errorColor = color.New(color.FgRed, color.Bold)

func errorf(format string, parts ...interface{}) {
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	errorColor.Printf(format, parts...)
}

// fatalf reports an unimplemented protocol transition and terminates the
// process. It is a var so tests can substitute a non-terminating stub.
var fatalf = log.Fatalf

// summarizeTCP renders one line describing a segment, for verbose logs.
func summarizeTCP(ipv4 *layers.IPv4, tcpseg *layers.TCP, payload []byte) string {
	var flags []string
	if tcpseg.FIN {
		flags = append(flags, "FIN")
	}
	if tcpseg.SYN {
		flags = append(flags, "SYN")
	}
	if tcpseg.RST {
		flags = append(flags, "RST")
	}
	if tcpseg.ACK {
		flags = append(flags, "ACK")
	}
	if tcpseg.URG {
		flags = append(flags, "URG")
	}

	return fmt.Sprintf("TCP %v:%d => %v:%d %s - Seq %d - Ack %d - Len %d",
		ipv4.SrcIP, tcpseg.SrcPort, ipv4.DstIP, tcpseg.DstPort,
		strings.Join(flags, "+"), tcpseg.Seq, tcpseg.Ack, len(payload))
}
