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

func main() {
	var path = flag.String("content", "", "The static table entries, one index;name;value per line")
	var out = flag.String("out", "", "The Go file to write")
	flag.Parse()

	if *path == "" || *out == "" {
		log.Fatal("-content and -out are required")
	}

	f, err := os.Open(*path)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	var entries bytes.Buffer
	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		splitLine := strings.SplitN(line, ";", 3)
		if len(splitLine) != 3 {
			log.Fatalf("malformed line %q", line)
		}

		index, err := strconv.Atoi(splitLine[0])
		if err != nil {
			log.Fatalf("malformed index in %q: %v", line, err)
		}
		count++
		if index != count {
			log.Fatalf("index %d out of order, expected %d", index, count)
		}

		fmt.Fprintf(&entries, "\t/* %d */ {name: %q, value: %q},\n", index, splitLine[1], splitLine[2])
	}

	if err := scanner.Err(); err != nil {
		log.Fatal(err)
	}

	var src bytes.Buffer
	src.WriteString("// Code generated by tools/staticTable; DO NOT EDIT.\n\n")
	src.WriteString("package hpack\n\n")
	fmt.Fprintf(&src, "const STATIC_TABLE_SIZE = %d\n\n", count)
	src.WriteString("var staticTable = [STATIC_TABLE_SIZE]tableEntry{\n")
	src.Write(entries.Bytes())
	src.WriteString("}\n")

	formatted, err := format.Source(src.Bytes())
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(*out, formatted, 0644); err != nil {
		log.Fatal(err)
	}
}
