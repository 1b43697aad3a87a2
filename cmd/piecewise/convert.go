package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wbrown/piecewise/resources"
)

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <sentencepiece.model> <out.pwv>",
		Short: "Convert a SentencePiece model to a flat piecewise model",
		Long: "Convert a SentencePiece model to a flat piecewise model. The " +
			"--start-code, --end-code and --encoding-offset settings are " +
			"stored in the output.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := resources.ConvertSentencePieceFile(args[0], args[1],
				&activeCfg.Encoder)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"%s: %d pieces, %d control, %d unknown, %d duplicates\n",
				args[1], report.Kept, report.Control, report.Unknown,
				len(report.Duplicates))
			return nil
		},
	}
}
