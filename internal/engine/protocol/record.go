package protocol

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/gopacket/layers"
)

// FlowRecord is a complete version 2 flow log record.
type FlowRecord struct {
	AccountID   string
	InterfaceID string
	SrcAddr     net.IP
	DstAddr     net.IP
	SrcPort     uint16
	DstPort     uint16
	Protocol    layers.IPProtocol
	Packets     uint64
	Bytes       uint64
	Start       time.Time
	End         time.Time
	Action      string
}

// String formats the record as a single flow log line without a trailing newline.
func (r *FlowRecord) String() string {
	action := r.Action
	if action == "" {
		action = "ACCEPT"
	}
	return strings.Join([]string{
		"2",
		orDash(r.AccountID),
		orDash(r.InterfaceID),
		ipOrDash(r.SrcAddr),
		ipOrDash(r.DstAddr),
		fmt.Sprint(r.SrcPort),
		fmt.Sprint(r.DstPort),
		fmt.Sprint(uint8(r.Protocol)),
		fmt.Sprint(r.Packets),
		fmt.Sprint(r.Bytes),
		fmt.Sprint(r.Start.Unix()),
		fmt.Sprint(r.End.Unix()),
		action,
		"OK",
	}, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func ipOrDash(ip net.IP) string {
	if ip == nil {
		return "-"
	}
	return ip.String()
}
