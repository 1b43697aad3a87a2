package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/wbrown/piecewise"
	"github.com/wbrown/piecewise/resources"
	"github.com/wbrown/piecewise/types"
)

const completionLimit = 20

func newEncodeCmd() *cobra.Command {
	var showPieces bool
	cmd := &cobra.Command{
		Use:   "encode [text...]",
		Short: "Encode text from arguments or stdin, one line at a time",
		Long: "Encode the arguments, or every line read from stdin. On a " +
			"terminal this is a REPL: `\\n` in a line becomes a newline " +
			"and `:prefix` lists pieces starting with prefix.",
		RunE: func(cmd *cobra.Command, args []string) error {
			lm, err := loadModel(activeCfg)
			if err != nil {
				return err
			}
			defer lm.Close()
			out := cmd.OutOrStdout()

			if len(args) > 0 {
				return encodeLine(out, lm, strings.Join(args, " "),
					showPieces)
			}
			in := cmd.InOrStdin()
			interactive := false
			if file, ok := in.(*os.File); ok {
				interactive = isatty.IsTerminal(file.Fd())
			}
			return encodeLines(in, out, lm, showPieces, interactive)
		},
	}
	cmd.Flags().BoolVar(&showPieces, "pieces", false,
		"Also print the pieces of each encoding")
	return cmd
}

func encodeLines(in io.Reader, out io.Writer, lm *loadedModel,
	showPieces, interactive bool) error {
	reader := bufio.NewReader(in)
	for {
		if interactive {
			fmt.Fprint(out, ">>> ")
		}
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSuffix(line, "\n")
			if prefix, ok := strings.CutPrefix(line, ":"); ok {
				listCompletions(out, lm.vocab, prefix)
			} else {
				line = strings.ReplaceAll(line, "\\n", "\n")
				if encErr := encodeLine(out, lm, line, showPieces); encErr != nil {
					if !interactive {
						return encErr
					}
					fmt.Fprintln(out, "error:", encErr)
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}
	}
}

func encodeLine(out io.Writer, lm *loadedModel, text string,
	showPieces bool) error {
	normalized := activeCfg.Normalizer.Normalize(text)
	codes, err := lm.segmenter.Encode([]byte(normalized))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, formatCodes(codes))
	if showPieces {
		for _, piece := range lm.vocab.DecodePieces(codes) {
			fmt.Fprintf(out, "|%s", resources.EscapeString(string(piece)))
		}
		fmt.Fprintln(out)
	}
	return nil
}

func formatCodes(codes types.Codes) string {
	parts := make([]string, len(codes))
	for idx, code := range codes {
		parts[idx] = fmt.Sprint(code)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// listCompletions prints the pieces starting with prefix. Spaces in prefix
// match escaped whitespace.
func listCompletions(out io.Writer, vocab *piecewise.Vocabulary, prefix string) {
	escaped := strings.ReplaceAll(prefix, " ", piecewise.WhitespaceEscape)
	for _, piece := range vocab.PiecesWithPrefix([]byte(escaped),
		completionLimit) {
		id, _ := vocab.Lookup([]byte(piece))
		fmt.Fprintf(out, "%d\t%s\t%.4f\n", id, resources.EscapeString(piece),
			vocab.Score(id))
	}
}
