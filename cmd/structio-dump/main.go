// Command structio-dump builds and inspects a toy binary format exercising
// both halves of structio: a magic + header + block table format on the
// write side (Node tree + Linker), read back through Reader + Dispatch.
//
// The format has no existence outside this demo:
//
//	offset 0: magic "STIO"
//	offset 4: u32 link -> block table
//	block table: u32 count, then `count` entries of
//	  { u32 link -> name blob (NUL-terminated), u32 inline value }
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/xyproto/env/v2"
	"github.com/xyproto/structio"
	"golang.org/x/sys/unix"
)

const magicSTIO = 0x5354494f // "STIO"

var verbose bool

func main() {
	var (
		outputFlag = flag.String("o", env.Str("STRUCTIO_DUMP_OUTPUT", ""), "write the demo archive here instead of reading one")
		inputFlag  = flag.String("i", "", "read and dump the archive at this path")
		blocksFlag = flag.String("blocks", "greeting=hello,answer=42", "comma-separated name=value pairs to encode when writing")
		mmapFlag   = flag.Bool("mmap", false, "map the input file read-only instead of reading it into memory")
		verboseFlag = flag.Bool("v", env.Bool("STRUCTIO_DUMP_VERBOSE"), "print the dispatch-stack trace for every warning")
	)
	flag.Parse()
	verbose = *verboseFlag

	switch {
	case *outputFlag != "":
		blocks, err := parseBlocks(*blocksFlag)
		if err != nil {
			log.Fatalf("structio-dump: %v", err)
		}
		if err := writeArchive(*outputFlag, blocks); err != nil {
			log.Fatalf("structio-dump: write %s: %v", *outputFlag, err)
		}
		fmt.Printf("wrote %d block(s) to %s\n", len(blocks), *outputFlag)

	case *inputFlag != "":
		buf, err := loadInput(*inputFlag, *mmapFlag)
		if err != nil {
			log.Fatalf("structio-dump: read %s: %v", *inputFlag, err)
		}
		if err := dumpArchive(buf); err != nil {
			log.Fatalf("structio-dump: %v", err)
		}

	default:
		fmt.Fprintln(os.Stderr, "usage: structio-dump -o <file> [-blocks name=val,...]  |  structio-dump -i <file> [-mmap]")
		os.Exit(2)
	}
}

type block struct {
	name  string
	value uint32
}

func parseBlocks(spec string) ([]block, error) {
	var out []block
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("malformed block %q, want name=value", pair)
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("block %q: value must be a uint32: %w", k, err)
		}
		out = append(out, block{name: k, value: uint32(n)})
	}
	return out, nil
}

func loadInput(path string, useMmap bool) ([]byte, error) {
	if !useMmap {
		return os.ReadFile(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.Size() == 0 {
		return nil, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "mapped %d bytes from %s\n", len(data), path)
	}
	return data, nil
}

func warnSink(w structio.Warning) {
	fmt.Fprintf(os.Stderr, "structio-dump: %s: %s (0x%x-0x%x)\n", w.Kind, w.Message, w.Begin, w.End)
	if verbose {
		for i, f := range w.Stack {
			fmt.Fprintf(os.Stderr, "  [%d] %s jump=0x%x start=0x%x\n", i, f.HandlerName, f.Jump, f.HandlerStart)
		}
	}
}
