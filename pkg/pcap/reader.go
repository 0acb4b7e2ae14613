package pcap

import (
	"FlowTagger/internal/engine/protocol"
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"go.uber.org/zap"
)

// flowKey identifies a flow by its IPv4 5-tuple.
type flowKey struct {
	src, dst         [4]byte
	srcPort, dstPort uint16
	proto            layers.IPProtocol
}

// Converter reads a packet capture and aggregates its packets into flow log records.
type Converter struct {
	accountID   string
	interfaceID string
	logger      *zap.Logger
}

// NewConverter creates a converter that stamps every record with the given
// account and interface identifiers.
func NewConverter(accountID, interfaceID string, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{accountID: accountID, interfaceID: interfaceID, logger: logger}
}

// ReadFile converts the pcap file at path.
func (c *Converter) ReadFile(path string) ([]*protocol.FlowRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return c.Read(bufio.NewReader(file))
}

// Read converts a pcap stream. Packets that are not IPv4 are skipped; protocols
// without ports produce records with port 0. Records are returned in the order
// their flows were first seen.
func (c *Converter) Read(r io.Reader) ([]*protocol.FlowRecord, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read pcap header: %w", err)
	}

	flows := make(map[flowKey]*protocol.FlowRecord)
	var order []*protocol.FlowRecord
	skipped := 0

	for {
		data, ci, err := reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read packet %d: %w", len(order)+skipped+1, err)
		}

		packet := gopacket.NewPacket(data, reader.LinkType(), gopacket.Default)
		key, ok := packetKey(packet)
		if !ok {
			skipped++
			continue
		}

		length := uint64(ci.Length)
		if rec, ok := flows[key]; ok {
			rec.Packets++
			rec.Bytes += length
			if ci.Timestamp.After(rec.End) {
				rec.End = ci.Timestamp
			}
			continue
		}

		rec := &protocol.FlowRecord{
			AccountID:   c.accountID,
			InterfaceID: c.interfaceID,
			SrcAddr:     append([]byte(nil), key.src[:]...),
			DstAddr:     append([]byte(nil), key.dst[:]...),
			SrcPort:     key.srcPort,
			DstPort:     key.dstPort,
			Protocol:    key.proto,
			Packets:     1,
			Bytes:       length,
			Start:       ci.Timestamp,
			End:         ci.Timestamp,
		}
		flows[key] = rec
		order = append(order, rec)
	}

	if skipped > 0 {
		c.logger.Debug("Skipped non-IPv4 packets", zap.Int("count", skipped))
	}
	return order, nil
}

// packetKey extracts the flow key of an IPv4 packet.
func packetKey(packet gopacket.Packet) (flowKey, bool) {
	var key flowKey

	l := packet.Layer(layers.LayerTypeIPv4)
	if l == nil {
		return key, false
	}
	ip := l.(*layers.IPv4)
	src, dst := ip.SrcIP.To4(), ip.DstIP.To4()
	if src == nil || dst == nil {
		return key, false
	}
	copy(key.src[:], src)
	copy(key.dst[:], dst)
	key.proto = ip.Protocol

	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		key.srcPort, key.dstPort = uint16(tcp.SrcPort), uint16(tcp.DstPort)
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		key.srcPort, key.dstPort = uint16(udp.SrcPort), uint16(udp.DstPort)
	}
	return key, true
}

// WriteFlowLog writes one line per record.
func WriteFlowLog(w io.Writer, records []*protocol.FlowRecord) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		if _, err := fmt.Fprintln(bw, rec.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}
