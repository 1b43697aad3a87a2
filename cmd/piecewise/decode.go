package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/wbrown/piecewise/types"
)

func newDecodeCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode codes written by encode or batch back to text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			lm, err := loadModel(activeCfg)
			if err != nil {
				return err
			}
			defer lm.Close()

			config := lm.vocab.Config()
			lines, err := readCodes(data, format, types.Code(config.EndCode))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, codes := range lines {
				fmt.Fprintln(out, lm.vocab.Decode(codes))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json",
		fmt.Sprintf("Input format %v", Formats))
	return cmd
}
