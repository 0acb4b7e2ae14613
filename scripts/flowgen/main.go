package main

import (
	"FlowTagger/internal/config"
	"FlowTagger/internal/engine/protocol"
	"FlowTagger/internal/logging"
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"go.uber.org/zap"
)

// service is a well-known destination used for both the lookup table and the traffic.
type service struct {
	port  uint16
	proto layers.IPProtocol
	tag   string
}

var services = []service{
	{25, layers.IPProtocolTCP, "sv_P1"},
	{68, layers.IPProtocolUDP, "sv_P2"},
	{23, layers.IPProtocolTCP, "sv_P1"},
	{31, layers.IPProtocolUDP, "SV_P3"},
	{443, layers.IPProtocolTCP, "sv_P2"},
	{22, layers.IPProtocolTCP, "sv_P4"},
	{3389, layers.IPProtocolTCP, "sv_P5"},
	{0, layers.IPProtocolICMPv4, "sv_P5"},
	{110, layers.IPProtocolTCP, "email"},
	{993, layers.IPProtocolTCP, "email"},
	{143, layers.IPProtocolTCP, "email"},
}

func main() {
	outDir := flag.String("o", ".", "Output directory")
	count := flag.Int("c", 1000, "Number of flow records or packets to generate")
	format := flag.String("f", "log", "Output format: log or pcap")
	unmapped := flag.Float64("u", 0.2, "Fraction of records sent to ports missing from the lookup table")
	malformed := flag.Float64("m", 0.01, "Fraction of malformed flow log lines (log format only)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	logger, err := logging.New(config.LoggingConfig{Level: "info"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		logger.Fatal("Failed to create output directory", zap.Error(err))
	}
	rng := rand.New(rand.NewSource(*seed))

	lookupPath := filepath.Join(*outDir, config.DefaultLookupFile)
	if err := writeLookupTable(lookupPath); err != nil {
		logger.Fatal("Failed to write lookup table", zap.Error(err))
	}

	var path string
	switch *format {
	case "log":
		path = filepath.Join(*outDir, config.DefaultFlowLogFile)
		err = writeFlowLog(path, rng, *count, *unmapped, *malformed)
	case "pcap":
		path = filepath.Join(*outDir, "flows.pcap")
		err = writePcap(path, rng, *count, *unmapped)
	default:
		logger.Fatal("Unknown output format", zap.String("format", *format))
	}
	if err != nil {
		logger.Fatal("Failed to generate traffic", zap.Error(err))
	}

	logger.Info("Generated sample data",
		zap.String("lookup_table", lookupPath),
		zap.String("traffic", path),
		zap.Int("count", *count),
		zap.Int64("seed", *seed))
}

func writeLookupTable(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	w.Write([]string{"dstport", "protocol", "tag"})
	for _, s := range services {
		name := "udp"
		switch s.proto {
		case layers.IPProtocolTCP:
			name = "tcp"
		case layers.IPProtocolICMPv4:
			name = "icmp"
		}
		w.Write([]string{fmt.Sprint(s.port), name, s.tag})
	}
	w.Flush()
	return w.Error()
}

// pick returns a destination port and protocol, either from the known services
// or a random high port.
func pick(rng *rand.Rand, unmapped float64) (uint16, layers.IPProtocol) {
	if rng.Float64() < unmapped {
		proto := layers.IPProtocolTCP
		if rng.Intn(2) == 0 {
			proto = layers.IPProtocolUDP
		}
		return uint16(rng.Intn(65535-1024) + 1024), proto
	}
	s := services[rng.Intn(len(services))]
	return s.port, s.proto
}

func randomIP(rng *rand.Rand) net.IP {
	return net.IP{10, byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(254) + 1)}
}

func writeFlowLog(path string, rng *rand.Rand, count int, unmapped, malformed float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	start := time.Now().Add(-time.Hour)
	for i := 0; i < count; i++ {
		if rng.Float64() < malformed {
			fmt.Fprintln(w, "2 123456789012 eni-0a1b2c3d 10.0.1.201 198.51.100.2")
			continue
		}

		port, proto := pick(rng, unmapped)
		begin := start.Add(time.Duration(i) * time.Second)
		packets := uint64(rng.Intn(100) + 1)
		rec := protocol.FlowRecord{
			AccountID:   "123456789012",
			InterfaceID: fmt.Sprintf("eni-%08x", rng.Uint32()),
			SrcAddr:     randomIP(rng),
			DstAddr:     randomIP(rng),
			SrcPort:     uint16(rng.Intn(65535-1024) + 1024),
			DstPort:     port,
			Protocol:    proto,
			Packets:     packets,
			Bytes:       packets * uint64(rng.Intn(1400)+60),
			Start:       begin,
			End:         begin.Add(time.Minute),
		}
		if rng.Intn(10) == 0 {
			rec.Action = "REJECT"
		}
		fmt.Fprintln(w, rec.String())
	}
	return w.Flush()
}

func writePcap(path string, rng *rand.Rand, count int, unmapped float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	pcapWriter := pcapgo.NewWriter(file)
	if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("failed to write pcap header: %w", err)
	}

	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	start := time.Now().Add(-time.Hour)
	for i := 0; i < count; i++ {
		port, proto := pick(rng, unmapped)

		ethLayer := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
			DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ipLayer := &layers.IPv4{
			SrcIP:    randomIP(rng),
			DstIP:    randomIP(rng),
			Version:  4,
			TTL:      64,
			Protocol: proto,
		}

		var transport gopacket.SerializableLayer
		srcPort := uint16(rng.Intn(65535-1024) + 1024)
		switch proto {
		case layers.IPProtocolTCP:
			tcpLayer := &layers.TCP{SrcPort: layers.TCPPort(srcPort), DstPort: layers.TCPPort(port), Seq: rng.Uint32(), SYN: true, Window: 14600}
			tcpLayer.SetNetworkLayerForChecksum(ipLayer)
			transport = tcpLayer
		case layers.IPProtocolUDP:
			udpLayer := &layers.UDP{SrcPort: layers.UDPPort(srcPort), DstPort: layers.UDPPort(port)}
			udpLayer.SetNetworkLayerForChecksum(ipLayer)
			transport = udpLayer
		default:
			transport = &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0)}
		}

		payload := make([]byte, rng.Intn(1400)+50)
		rng.Read(payload)

		buf := gopacket.NewSerializeBuffer()
		if err := gopacket.SerializeLayers(buf, opts, ethLayer, ipLayer, transport, gopacket.Payload(payload)); err != nil {
			return fmt.Errorf("failed to serialize layers: %w", err)
		}

		ci := gopacket.CaptureInfo{
			Timestamp:     start.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(buf.Bytes()),
			Length:        len(buf.Bytes()),
		}
		if err := pcapWriter.WritePacket(ci, buf.Bytes()); err != nil {
			return fmt.Errorf("failed to write packet: %w", err)
		}
	}
	return nil
}
