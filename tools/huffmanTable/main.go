package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"go/format"
	"log"
	"os"
	"strconv"
	"strings"
)

// Flags must match the constants in internal/hpack/huffman.go.
const (
	flagAccepted = 1
	flagSymbol   = 2
	flagFail     = 4

	eos = 256
)

type code struct {
	bits   uint32
	length uint8
}

type node struct {
	children [2]int
	leaf     bool
	sym      int
}

type transition struct {
	state, flags, sym int
}

func main() {
	var path = flag.String("codes", "", "The Huffman code, one symbol;code;length per line")
	var out = flag.String("out", "", "The Go file to write")
	flag.Parse()

	if *path == "" || *out == "" {
		log.Fatal("-codes and -out are required")
	}

	codes, err := readCodes(*path)
	if err != nil {
		log.Fatal(err)
	}

	table := buildDecodeTable(buildTree(codes))

	formatted, err := format.Source(render(codes, table))
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(*out, formatted, 0644); err != nil {
		log.Fatal(err)
	}
}

func readCodes(path string) ([eos + 1]code, error) {
	var codes [eos + 1]code

	f, err := os.Open(path)
	if err != nil {
		return codes, err
	}
	defer f.Close()

	seen := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		splitLine := strings.Split(line, ";")
		if len(splitLine) != 3 {
			return codes, fmt.Errorf("malformed line %q", line)
		}
		sym, err := strconv.Atoi(splitLine[0])
		if err != nil || sym < 0 || sym > eos {
			return codes, fmt.Errorf("bad symbol in %q", line)
		}
		bits, err := strconv.ParseUint(splitLine[1], 0, 32)
		if err != nil {
			return codes, fmt.Errorf("bad code in %q: %w", line, err)
		}
		length, err := strconv.ParseUint(splitLine[2], 10, 8)
		if err != nil || length == 0 || length > 30 {
			return codes, fmt.Errorf("bad length in %q", line)
		}
		codes[sym] = code{bits: uint32(bits), length: uint8(length)}
		seen++
	}
	if err := scanner.Err(); err != nil {
		return codes, err
	}
	if seen != eos+1 {
		return codes, fmt.Errorf("expected %d codes, got %d", eos+1, seen)
	}
	return codes, nil
}

// buildTree inserts codes in symbol order. Node 0 is the root; internal
// nodes keep the order in which they were created.
func buildTree(codes [eos + 1]code) []node {
	nodes := []node{{children: [2]int{-1, -1}}}
	for sym, c := range codes {
		cur := 0
		for i := int(c.length) - 1; i >= 0; i-- {
			b := (c.bits >> uint(i)) & 1
			if nodes[cur].children[b] < 0 {
				nodes = append(nodes, node{children: [2]int{-1, -1}})
				nodes[cur].children[b] = len(nodes) - 1
			}
			cur = nodes[cur].children[b]
			if nodes[cur].leaf {
				log.Fatalf("code for %d is prefixed by code for %d", sym, nodes[cur].sym)
			}
		}
		nodes[cur].leaf = true
		nodes[cur].sym = sym
	}
	return nodes
}

// buildDecodeTable walks four bits at a time from every internal node. A
// state is accepting when it lies on the all-ones path within seven bits of
// the root, which is where valid padding may stop.
func buildDecodeTable(nodes []node) [][16]transition {
	stateOf := make(map[int]int)
	var internal []int
	for i, n := range nodes {
		if !n.leaf {
			stateOf[i] = len(internal)
			internal = append(internal, i)
		}
	}
	if len(internal) != 256 {
		log.Fatalf("expected 256 internal nodes, got %d", len(internal))
	}

	accepting := make(map[int]bool)
	for cur, depth := 0, 0; depth < 8; depth++ {
		accepting[cur] = true
		cur = nodes[cur].children[1]
	}

	table := make([][16]transition, len(internal))
	for s, start := range internal {
		for nibble := 0; nibble < 16; nibble++ {
			cur, t := start, transition{}
			failed := false
			for i := 3; i >= 0; i-- {
				cur = nodes[cur].children[(nibble>>uint(i))&1]
				if !nodes[cur].leaf {
					continue
				}
				if nodes[cur].sym == eos {
					failed = true
					break
				}
				t.flags |= flagSymbol
				t.sym = nodes[cur].sym
				cur = 0
			}
			if failed {
				table[s][nibble] = transition{flags: flagFail}
				continue
			}
			if accepting[cur] {
				t.flags |= flagAccepted
			}
			t.state = stateOf[cur]
			table[s][nibble] = t
		}
	}
	return table
}

func render(codes [eos + 1]code, table [][16]transition) []byte {
	var b bytes.Buffer
	b.WriteString("// Code generated by tools/huffmanTable; DO NOT EDIT.\n\n")
	b.WriteString("package hpack\n\n")

	b.WriteString("// huffmanCodes holds the canonical code for each octet, right aligned.\n")
	b.WriteString("var huffmanCodes = [256]uint32{\n")
	for i := 0; i < 256; i += 8 {
		b.WriteString("\t")
		for sym := i; sym < i+8; sym++ {
			fmt.Fprintf(&b, "0x%x, ", codes[sym].bits)
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")

	b.WriteString("// huffmanCodeLen holds the bit length of each entry in huffmanCodes.\n")
	b.WriteString("var huffmanCodeLen = [256]uint8{\n")
	for i := 0; i < 256; i += 16 {
		b.WriteString("\t")
		for sym := i; sym < i+16; sym++ {
			fmt.Fprintf(&b, "%d, ", codes[sym].length)
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")

	b.WriteString("// huffmanDecodeTable is indexed by automaton state and the next input nibble.\n")
	b.WriteString("var huffmanDecodeTable = [256][16]huffmanTransition{\n")
	for s, row := range table {
		fmt.Fprintf(&b, "\t/* %d */ {\n", s)
		for i := 0; i < 16; i += 4 {
			b.WriteString("\t\t")
			for _, t := range row[i : i+4] {
				fmt.Fprintf(&b, "{0x%02x, 0x%x, 0x%02x}, ", t.state, t.flags, t.sym)
			}
			b.WriteString("\n")
		}
		b.WriteString("\t},\n")
	}
	b.WriteString("}\n")
	return b.Bytes()
}
