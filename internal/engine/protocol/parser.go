package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gopacket/layers"
)

// MinFields is the number of whitespace-separated fields of a version 2 flow log record.
const MinFields = 14

// Zero-based positions of the fields the tagger consumes.
const (
	DstPortField  = 6
	ProtocolField = 7
)

// Protocol names produced by Name.
const (
	TCP = "tcp"
	UDP = "udp"
)

const maxPort = 65535

var tcpNumber = strconv.Itoa(int(layers.IPProtocolTCP))

var (
	// ErrInsufficientFields is returned for records with fewer than MinFields fields.
	ErrInsufficientFields = errors.New("insufficient fields")
	// ErrInvalidPort is returned for a destination port that is not a number in [0, 65535].
	ErrInvalidPort = errors.New("invalid port number")
)

// Record holds the parts of a flow log line used for classification.
type Record struct {
	DstPort  string
	Protocol string
}

// ParseLine splits a flow log line on whitespace and extracts the destination
// port and protocol name. The port is returned verbatim.
func ParseLine(line string) (*Record, error) {
	fields := strings.Fields(line)
	if len(fields) < MinFields {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientFields, len(fields), MinFields)
	}

	port := fields[DstPortField]
	if !ValidPort(port) {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidPort, port)
	}

	return &Record{DstPort: port, Protocol: Name(fields[ProtocolField])}, nil
}

// Name maps an IANA protocol number to a protocol name. Only the literal "6"
// is TCP; every other value, including other protocols such as ICMP, maps to UDP.
func Name(number string) string {
	if number == tcpNumber {
		return TCP
	}
	return UDP
}

// ValidPort reports whether s consists only of decimal digits and its value is at most 65535.
func ValidPort(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	value, err := strconv.ParseUint(s, 10, 32)
	return err == nil && value <= maxPort
}
