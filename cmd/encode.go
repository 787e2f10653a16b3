package cmd

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"hpackCodec/internal/helper"
	"hpackCodec/internal/hpack"
	"hpackCodec/internal/http2/headers"
)

// encode command flags
var (
	encodeTableSize    int
	encodeStreamID     uint32
	encodeEndStream    bool
	encodeMaxFrameSize uint32
	encodeDump         bool
	encodeShowTable    bool
)

var encodeCmd = &cobra.Command{
	Use:   "encode [file]",
	Short: "Encode header fields into HPACK header blocks",
	Long: `Encode "name: value" lines read from a file or stdin. Blank lines
separate header blocks, which share one encoding context. A line starting
with '!' is encoded as never indexed. Each block is printed as one line of hex.`,
	Example: `  printf ':method: GET\n:path: /\n' | hpackCodec encode
  hpackCodec encode --stream 1 --end-stream request.txt
  hpackCodec encode --dump --show-table request.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEncode,
}

func init() {
	encodeCmd.Flags().IntVarP(&encodeTableSize, "table-size", "t", -1,
		"Dynamic table size (overrides config)")
	encodeCmd.Flags().Uint32VarP(&encodeStreamID, "stream", "s", 0,
		"Wrap each block in HEADERS/CONTINUATION frames on this stream")
	encodeCmd.Flags().BoolVar(&encodeEndStream, "end-stream", false,
		"Set END_STREAM on the HEADERS frame (with --stream)")
	encodeCmd.Flags().Uint32Var(&encodeMaxFrameSize, "max-frame-size", 0,
		"Largest frame payload (overrides config, with --stream)")
	encodeCmd.Flags().BoolVarP(&encodeDump, "dump", "d", false,
		"Print a hex dump instead of plain hex")
	encodeCmd.Flags().BoolVarP(&encodeShowTable, "show-table", "T", false,
		"Print the dynamic table after encoding")
}

// splitBlocks groups lines into blocks at blank lines.
func splitBlocks(input string) []string {
	var blocks []string
	var current strings.Builder
	for _, line := range strings.Split(input, "\n") {
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				blocks = append(blocks, current.String())
				current.Reset()
			}
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	if current.Len() > 0 {
		blocks = append(blocks, current.String())
	}
	return blocks
}

func runEncode(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	if encodeTableSize >= 0 {
		conf.Encoder.HeaderTableSize = uint32(encodeTableSize)
	}
	maxFrameSize := conf.Server.MaxFrameSize
	if encodeMaxFrameSize != 0 {
		maxFrameSize = encodeMaxFrameSize
	}
	logger, err := newLogger(cmd, conf)
	if err != nil {
		return err
	}
	defer logger.Close()

	in, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer in.Close()
	input, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	enc := hpack.NewEncoder(conf.Encoder.Options(logger)...)
	out := cmd.OutOrStdout()

	for i, text := range splitBlocks(string(input)) {
		fields, err := helper.ParseFieldLines(strings.NewReader(text))
		if err != nil {
			return fmt.Errorf("block %d: %w", i+1, err)
		}
		block, err := enc.Encode(fields)
		if err != nil {
			return fmt.Errorf("block %d: %w", i+1, err)
		}

		if encodeStreamID != 0 {
			var frames bytes.Buffer
			if err := headers.WriteHeaderBlock(&frames, encodeStreamID, block, encodeEndStream, maxFrameSize); err != nil {
				return err
			}
			block = frames.Bytes()
		}

		if encodeDump {
			fmt.Fprint(out, helper.HexDump(block))
		} else {
			fmt.Fprintln(out, hex.EncodeToString(block))
		}
	}

	if encodeShowTable {
		printTable(out, enc.DynamicTable())
	}
	return nil
}
