package cmd

import (
	"FlowTagger/internal/engine/protocol"
	"FlowTagger/pkg/pcap"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newConvertCommand(a *app) *cobra.Command {
	var pcapFile, outFile, accountID, interfaceID string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a packet capture into flow log records",
		Long: `Aggregate the IPv4 packets of a pcap file into one flow log record per
5-tuple, in the format consumed by "flow-tagger run".

Examples:
  flow-tagger convert --pcap capture.pcap --output flow_logs.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := pcap.NewConverter(accountID, interfaceID, a.logger).ReadFile(pcapFile)
			if err != nil {
				return fmt.Errorf("failed to convert pcap file: %w", err)
			}

			if outFile == "" || outFile == "-" {
				if err := pcap.WriteFlowLog(a.stdout, records); err != nil {
					return fmt.Errorf("failed to write flow log: %w", err)
				}
			} else if err := writeFlowLogFile(outFile, records); err != nil {
				return err
			}
			a.logger.Info("Converted packet capture", zap.String("pcap", pcapFile), zap.Int("flows", len(records)))
			return nil
		},
	}

	cmd.Flags().StringVar(&pcapFile, "pcap", "", "pcap file to convert")
	cmd.Flags().StringVarP(&outFile, "output", "o", "-", "flow log file, '-' for stdout")
	cmd.Flags().StringVar(&accountID, "account-id", "", "account id written into every record")
	cmd.Flags().StringVar(&interfaceID, "interface-id", "", "interface id written into every record")
	_ = cmd.MarkFlagRequired("pcap")
	return cmd
}

// writeFlowLogFile writes records to path. A failed close is reported, since
// buffered data may be lost there.
func writeFlowLogFile(path string, records []*protocol.FlowRecord) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	if err := pcap.WriteFlowLog(file, records); err != nil {
		return fmt.Errorf("failed to write flow log: %w", err)
	}
	return nil
}
