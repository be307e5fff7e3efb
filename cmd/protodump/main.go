// Command protodump pretty-prints protobuf wire data.
//
// Without a schema it lists raw fields, descending into length-delimited
// payloads that parse as messages:
//
//	protodump payload.bin
//	echo "08 96 01" | protodump -hex
//
// With a schema it decodes to canonical JSON:
//
//	protodump -proto protos/ -type shop.v1.Order payload.bin
package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/anirudhraja/protomsg"
	"github.com/anirudhraja/protomsg/wire"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("protodump: ")

	protoPath := flag.String("proto", "", "`path` of a .proto file, or a directory of them")
	msgType := flag.String("type", "", "fully qualified message `name` to decode as (requires -proto)")
	hexInput := flag.Bool("hex", false, "treat input as hex text instead of raw bytes")
	showDefaults := flag.Bool("defaults", false, "include fields holding their default values")
	snakeKeys := flag.Bool("snake", false, "key JSON by declared field names instead of camelCase")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), "usage: protodump [flags] [file]\n\nReads protobuf wire bytes from file, or stdin when no file is given.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(2)
	}

	data, err := readInput(flag.Arg(0), *hexInput)
	if err != nil {
		log.Fatal(err)
	}

	if *msgType == "" {
		if err := dumpRaw(os.Stdout, data); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := dumpTyped(os.Stdout, data, *protoPath, *msgType, *showDefaults, *snakeKeys); err != nil {
		log.Fatal(err)
	}
}

func readInput(path string, hexText bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if hexText {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, string(data))
		data, err = hex.DecodeString(strings.TrimPrefix(clean, "0x"))
		if err != nil {
			return nil, fmt.Errorf("decoding hex input: %v", err)
		}
	}
	return data, nil
}

// dumpTyped decodes data as the named message type and prints it as
// indented JSON.
func dumpTyped(w io.Writer, data []byte, protoPath, msgType string, showDefaults, snakeKeys bool) error {
	if protoPath == "" {
		return fmt.Errorf("-type requires -proto")
	}
	rt := protomsg.NewRuntime()
	info, err := os.Stat(protoPath)
	if err != nil {
		return err
	}
	if info.IsDir() {
		err = rt.LoadProtoDir(protoPath)
	} else {
		err = rt.LoadProtoFile(protoPath)
	}
	if err != nil {
		return err
	}

	m, err := rt.Parse(data, msgType)
	if err != nil {
		return err
	}
	var opts []protomsg.DictOption
	if showDefaults {
		opts = append(opts, protomsg.WithDefaults())
	}
	if snakeKeys {
		opts = append(opts, protomsg.WithCasing(protomsg.CasingSnake))
	}
	dict, err := protomsg.ToDict(m, opts...)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(dict, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}

// dumpRaw prints a schema-less field listing in the style of
// protoc --decode_raw.
func dumpRaw(w io.Writer, data []byte) error {
	bw := bufio.NewWriter(w)
	err := writeFields(bw, data, 0)
	if ferr := bw.Flush(); err == nil {
		err = ferr
	}
	return err
}

func writeFields(w *bufio.Writer, data []byte, depth int) error {
	pad := strings.Repeat("  ", depth)
	dec := wire.NewDecoder(data)
	for !dec.EOF() {
		fld, err := dec.ReadField()
		if err != nil {
			return fmt.Errorf("at byte %d: %v", dec.Pos(), err)
		}
		switch fld.WireType {
		case wire.WireVarint:
			fmt.Fprintf(w, "%s%d: %d\n", pad, fld.Number, fld.Value)
		case wire.WireFixed32:
			fmt.Fprintf(w, "%s%d: 0x%08x\n", pad, fld.Number, uint32(fld.Value))
		case wire.WireFixed64:
			fmt.Fprintf(w, "%s%d: 0x%016x\n", pad, fld.Number, fld.Value)
		case wire.WireBytes:
			switch {
			case looksLikeMessage(fld.Data):
				fmt.Fprintf(w, "%s%d {\n", pad, fld.Number)
				if err := writeFields(w, fld.Data, depth+1); err != nil {
					return err
				}
				fmt.Fprintf(w, "%s}\n", pad)
			case printable(fld.Data):
				fmt.Fprintf(w, "%s%d: %q\n", pad, fld.Number, fld.Data)
			default:
				fmt.Fprintf(w, "%s%d: %s\n", pad, fld.Number, hex.EncodeToString(fld.Data))
			}
		}
	}
	return nil
}

// looksLikeMessage reports whether data tokenizes cleanly as a message.
// A heuristic: a text field can collide with valid field framing, but for
// a dump tool descending is the more useful guess.
func looksLikeMessage(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	dec := wire.NewDecoder(data)
	for !dec.EOF() {
		if _, err := dec.ReadField(); err != nil {
			return false
		}
	}
	return true
}

func printable(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	for _, r := range string(data) {
		if !unicode.IsPrint(r) && r != '\n' && r != '\t' {
			return false
		}
	}
	return true
}
