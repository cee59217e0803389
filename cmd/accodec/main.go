// Command accodec compresses and decompresses arbitrary files with an
// order-1 adaptive byte model over fastac's integer codec.
package main

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/mewkiz/pkg/osutil"
	"github.com/mewkiz/pkg/pathutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mrjoshuak/fastac/fastac"
)

// numModels is the number of order-1 contexts: the low bits of the
// previous byte select the model for the next one. Must be a power of 2.
const numModels = 16

// bufferSize is how much file data is coded per Arithmetic_Codec pass,
// matching the original demo's chunking.
const bufferSize = 65536

// fileMagic identifies an accodec stream; its value differs from the
// original C++ demo's own FILE_ID so the two are never cross-decoded.
const fileMagic = 0xB8AA3B2Au

func main() {
	var force bool

	root := &cobra.Command{
		Use:   "accodec",
		Short: "Compress or decompress a file with adaptive order-1 arithmetic coding",
	}
	root.PersistentFlags().BoolVarP(&force, "force", "f", false, "overwrite an existing output file")

	encodeCmd := &cobra.Command{
		Use:   "encode <input> [output]",
		Short: "Compress input into output (defaults to input + .acf)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := defaultOutput(args, ".acf")
			if !force && osutil.Exists(out) {
				return errors.Errorf("output file %q already exists; use -f to overwrite", out)
			}
			return encodeFile(args[0], out)
		},
	}
	decodeCmd := &cobra.Command{
		Use:   "decode <input> [output]",
		Short: "Decompress input into output (defaults to input with .acf trimmed)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := defaultOutput(args, "")
			if !force && osutil.Exists(out) {
				return errors.Errorf("output file %q already exists; use -f to overwrite", out)
			}
			return decodeFile(args[0], out)
		},
	}

	root.AddCommand(encodeCmd, decodeCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "accodec:", err)
		os.Exit(1)
	}
}

// defaultOutput returns args[1] if given, otherwise derives an output path
// from args[0]: appending suffix if non-empty, or trimming the input's own
// extension otherwise.
func defaultOutput(args []string, suffix string) string {
	if len(args) > 1 {
		return args[1]
	}
	if suffix != "" {
		return args[0] + suffix
	}
	return pathutil.TrimExt(args[0])
}

func newModels() [numModels]*fastac.IntAdaptiveDataModel {
	var models [numModels]*fastac.IntAdaptiveDataModel
	for i := range models {
		m, err := fastac.NewIntAdaptiveDataModel(256)
		if err != nil {
			panic(err) // 256 is always a valid alphabet size
		}
		models[i] = m
	}
	return models
}

func encodeFile(inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return errors.Wrap(err, "open input file")
	}
	defer in.Close()

	stat, err := in.Stat()
	if err != nil {
		return errors.Wrap(err, "stat input file")
	}
	total := uint32(stat.Size())

	crc, err := fileCRC(in)
	if err != nil {
		return errors.Wrap(err, "compute source CRC")
	}
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "rewind input file")
	}

	out, err := os.Create(outPath)
	if err != nil {
		return errors.Wrap(err, "create output file")
	}
	defer out.Close()

	var header [12]byte
	putUint32LE(header[0:4], fileMagic)
	putUint32LE(header[4:8], crc)
	putUint32LE(header[8:12], total)
	if _, err := out.Write(header[:]); err != nil {
		return errors.Wrap(err, "write header")
	}

	models := newModels()
	codec, err := fastac.NewIntCodec(bufferSize, nil)
	if err != nil {
		return errors.Wrap(err, "create encoder")
	}

	buf := make([]byte, bufferSize)
	context := uint32(0)
	remaining := total
	for {
		n, readErr := io.ReadFull(in, buf[:min(bufferSize, int(remaining))])
		if n == 0 {
			break
		}
		if err := codec.StartEncoder(); err != nil {
			return errors.Wrap(err, "start encoder")
		}
		for _, b := range buf[:n] {
			if err := codec.EncodeAdaptiveSymbol(int(b), models[context]); err != nil {
				return errors.Wrap(err, "encode byte")
			}
			context = uint32(b) & (numModels - 1)
		}
		if _, err := codec.WriteTo(out); err != nil {
			return errors.Wrap(err, "write compressed chunk")
		}
		remaining -= uint32(n)
		if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
			return errors.Wrap(readErr, "read input file")
		}
		if remaining == 0 {
			break
		}
	}

	codeBytes, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Wrap(err, "stat output size")
	}
	ratio := 0.0
	if codeBytes > 0 {
		ratio = float64(total) / float64(codeBytes)
	}
	fmt.Printf("compressed %d bytes -> %d bytes (%.2f:1)\n", total, codeBytes, ratio)
	return nil
}

func decodeFile(inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return errors.Wrap(err, "open input file")
	}
	defer in.Close()

	var header [12]byte
	if _, err := io.ReadFull(in, header[:]); err != nil {
		return errors.Wrap(err, "read header")
	}
	magic := getUint32LE(header[0:4])
	wantCRC := getUint32LE(header[4:8])
	total := getUint32LE(header[8:12])
	if magic != fileMagic {
		return errors.New("not an accodec stream")
	}

	out, err := os.Create(outPath)
	if err != nil {
		return errors.Wrap(err, "create output file")
	}
	defer out.Close()

	models := newModels()
	crc := crc32.NewIEEE()
	writer := io.MultiWriter(out, crc)

	context := uint32(0)
	remaining := total
	for remaining > 0 {
		codec, err := fastac.NewIntCodec(bufferSize, nil)
		if err != nil {
			return errors.Wrap(err, "create decoder")
		}
		if err := codec.ReadFrom(in); err != nil {
			return errors.Wrap(err, "read compressed chunk")
		}
		n := remaining
		if n > bufferSize {
			n = bufferSize
		}
		chunk := make([]byte, n)
		for i := range chunk {
			symbol, err := codec.DecodeAdaptiveSymbol(models[context])
			if err != nil {
				return errors.Wrap(err, "decode byte")
			}
			chunk[i] = byte(symbol)
			context = uint32(symbol) & (numModels - 1)
		}
		if err := codec.StopDecoder(); err != nil {
			return errors.Wrap(err, "stop decoder")
		}
		if _, err := writer.Write(chunk); err != nil {
			return errors.Wrap(err, "write output file")
		}
		remaining -= n
	}

	if crc.Sum32() != wantCRC {
		return errors.New("decoded file fails CRC check")
	}
	fmt.Printf("decompressed %d bytes, CRC verified\n", total)
	return nil
}

func fileCRC(r io.Reader) (uint32, error) {
	h := crc32.NewIEEE()
	if _, err := io.Copy(h, r); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
