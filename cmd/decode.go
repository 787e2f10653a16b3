package cmd

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"hpackCodec/internal/cache"
	"hpackCodec/internal/helper"
	"hpackCodec/internal/hpack"
	"hpackCodec/internal/http2/headers"
	"hpackCodec/internal/logging"
)

// decode command flags
var (
	decodeHex       bool
	decodeFrames    bool
	decodeTableSize int
	decodeShowTable bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Decode HPACK header blocks",
	Long: `Decode header blocks read from a file or stdin. All blocks share one
decoding context, so later blocks may refer to entries added by earlier ones.`,
	Example: `  hpackCodec decode --hex <<< 828684418cf1e3c2e5f23a6ba0ab90f4ff
  hpackCodec decode block.bin
  hpackCodec decode --frames --show-table capture.bin`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().BoolVarP(&decodeHex, "hex", "x", false,
		"Input is hex text, one header block per line")
	decodeCmd.Flags().BoolVarP(&decodeFrames, "frames", "F", false,
		"Input is a sequence of HTTP/2 frames")
	decodeCmd.Flags().IntVarP(&decodeTableSize, "table-size", "t", -1,
		"Dynamic table size (overrides config)")
	decodeCmd.Flags().BoolVarP(&decodeShowTable, "show-table", "T", false,
		"Print the dynamic table after decoding")
}

func runDecode(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	if decodeTableSize >= 0 {
		conf.Decoder.HeaderTableSize = uint32(decodeTableSize)
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

	var interner hpack.Interner
	if conf.Decoder.Intern.Enabled {
		interner = cache.NewInterner(conf.Decoder.Intern.MaxEntries, conf.Decoder.Intern.MaxLength)
	}
	dec := hpack.NewDecoder(conf.Decoder.Options(logger, interner)...)
	out := cmd.OutOrStdout()

	var blocks [][]byte
	switch {
	case decodeHex:
		for i, line := range strings.Split(string(input), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			block, err := helper.DecodeHex([]byte(line))
			if err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			blocks = append(blocks, block)
		}
		if decodeFrames {
			blocks = [][]byte{bytes.Join(blocks, nil)}
		}
	default:
		blocks = [][]byte{input}
	}

	if decodeFrames {
		err = decodeFrameStream(out, dec, blocks[0], conf.Server.MaxFrameSize, logger)
	} else {
		err = decodeBlocks(out, dec, blocks)
	}
	if err != nil {
		return err
	}

	if decodeShowTable {
		printTable(out, dec.DynamicTable())
	}
	return nil
}

func decodeBlocks(out io.Writer, dec *hpack.Decoder, blocks [][]byte) error {
	for i, block := range blocks {
		fields, err := dec.DecodeFull(block)
		if err != nil {
			return fmt.Errorf("block %d: %w", i+1, err)
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := helper.FormatFieldLines(out, fields); err != nil {
			return err
		}
	}
	return nil
}

func decodeFrameStream(out io.Writer, dec *hpack.Decoder, data []byte, maxFrameSize uint32, logger logging.Logger) error {
	reader := bufio.NewReader(bytes.NewReader(data))
	br := headers.NewBlockReader(dec, logger)

	for count := 0; ; count++ {
		block, err := br.ReadHeaderBlock(reader, maxFrameSize)
		if errors.Is(err, io.EOF) && !br.Pending() {
			return nil
		}
		if err != nil {
			return err
		}

		if count > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "# stream %d", block.StreamID)
		if block.EndStream {
			fmt.Fprint(out, " (end stream)")
		}
		fmt.Fprintln(out)
		if err := helper.FormatFieldLines(out, block.Fields); err != nil {
			return err
		}
	}
}

func printTable(out io.Writer, t *hpack.DynamicTable) {
	fmt.Fprintf(out, "\n# dynamic table: %d entries, %d/%d octets\n", t.Len(), t.Size(), t.MaxSize())
	for i, f := range t.Entries() {
		fmt.Fprintf(out, "# [%d] %s (s = %d)\n", hpack.STATIC_TABLE_SIZE+1+i, f, f.Size())
	}
}
