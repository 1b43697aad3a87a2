package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/wbrown/piecewise/types"
)

// Formats lists the batch output formats. The structured formats hold one
// code list per line; the binary ones concatenate them.
var Formats = []string{"json", "msgpack", "cbor", "bin16", "bin32"}

func formatExt(format string) string {
	switch format {
	case "msgpack":
		return ".msgpack"
	case "cbor":
		return ".cbor"
	case "bin16", "bin32":
		return ".codes"
	default:
		return ".json"
	}
}

func writeCodes(w io.Writer, format string, lines []types.Codes) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "json":
		data, err = json.Marshal(lines)
	case "msgpack":
		data, err = msgpack.Marshal(lines)
	case "cbor":
		data, err = cbor.Marshal(lines)
	case "bin16", "bin32":
		flat := make(types.Codes, 0)
		for _, codes := range lines {
			flat = append(flat, codes...)
		}
		var bin *[]byte
		bin, err = flat.ToBin(format == "bin32")
		if err == nil {
			data = *bin
		}
	default:
		return fmt.Errorf("unknown format %q, want one of %v", format, Formats)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", format, err)
	}
	_, err = w.Write(data)
	return err
}

// readCodes parses data written by writeCodes. Binary input is split into
// lines after every endCode.
func readCodes(data []byte, format string, endCode types.Code) ([]types.Codes, error) {
	var (
		lines []types.Codes
		err   error
	)
	switch format {
	case "json":
		if err = json.Unmarshal(data, &lines); err != nil {
			var flat types.Codes
			if json.Unmarshal(data, &flat) == nil {
				return splitAtEnd(flat, endCode), nil
			}
		}
	case "msgpack":
		err = msgpack.Unmarshal(data, &lines)
	case "cbor":
		err = cbor.Unmarshal(data, &lines)
	case "bin16":
		lines = splitAtEnd(*types.CodesFromBin(&data), endCode)
	case "bin32":
		lines = splitAtEnd(*types.CodesFromBin32(&data), endCode)
	default:
		return nil, fmt.Errorf("unknown format %q, want one of %v", format, Formats)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", format, err)
	}
	return lines, nil
}

func splitAtEnd(codes types.Codes, endCode types.Code) []types.Codes {
	lines := make([]types.Codes, 0)
	start := 0
	for idx, code := range codes {
		if code == endCode {
			lines = append(lines, codes[start:idx+1])
			start = idx + 1
		}
	}
	if start < len(codes) {
		lines = append(lines, codes[start:])
	}
	return lines
}
