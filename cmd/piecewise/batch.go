package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/wbrown/piecewise"
	"github.com/wbrown/piecewise/config"
	"github.com/wbrown/piecewise/internal/logger"
	"github.com/wbrown/piecewise/types"
	"github.com/yargevad/filepathx"
	"golang.org/x/sync/errgroup"
)

type batchOptions struct {
	sanitize bool
	// context packs each file into a single window of this many codes when
	// positive.
	context int
}

func newBatchCmd() *cobra.Command {
	var opts batchOptions
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Encode every .txt file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lm, err := loadModel(activeCfg)
			if err != nil {
				return err
			}
			defer lm.Close()
			written, err := runBatch(cmd.Context(), activeCfg, lm, args[0], opts)
			if err != nil {
				return err
			}
			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.sanitize, "sanitize", false,
		"Sanitize inputs of whitespace issues")
	cmd.Flags().IntVar(&opts.context, "context", 0,
		"Pack each file into one window of this many codes")
	return cmd
}

// globTexts recursively finds the .txt files under dir in path order.
func globTexts(dir string) ([]string, error) {
	paths, err := filepathx.Glob(filepath.Join(dir, "**", "*.txt"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s does not contain any .txt files", dir)
	}
	slices.Sort(paths)
	return paths, nil
}

func outputPath(cfg config.Config, inputDir, path string) (string, error) {
	name := strings.TrimSuffix(path, filepath.Ext(path)) +
		formatExt(cfg.Batch.Format)
	if cfg.Batch.OutputDir == "" {
		return name, nil
	}
	rel, err := filepath.Rel(inputDir, name)
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg.Batch.OutputDir, rel), nil
}

// runBatch encodes every text under inputDir and returns the written paths
// in input order.
func runBatch(ctx context.Context, cfg config.Config, lm *loadedModel,
	inputDir string, opts batchOptions) ([]string, error) {
	if !slices.Contains(Formats, cfg.Batch.Format) {
		return nil, fmt.Errorf("unknown format %q, want one of %v",
			cfg.Batch.Format, Formats)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	paths, err := globTexts(inputDir)
	if err != nil {
		return nil, err
	}
	blog := logger.New("batch")
	modelConfig := lm.vocab.Config()
	textEncoder := piecewise.NewTextEncoder(lm.segmenter, &cfg.Normalizer,
		&modelConfig)

	begin := time.Now()
	var totalCodes, totalBytes atomic.Uint64
	written := make([]string, len(paths))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(1, cfg.Batch.Concurrency))
	for idx, path := range paths {
		group.Go(func() error {
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			text := string(raw)
			if opts.sanitize {
				text = sanitizeText(text)
			}
			lines := make([]string, 0)
			for _, line := range strings.Split(text, "\n") {
				if strings.TrimSpace(line) != "" {
					lines = append(lines, line)
				}
			}

			var encoded []types.Codes
			if opts.context > 0 {
				batch, err := textEncoder.EncodeBatch(groupCtx, lines,
					opts.context)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				encoded = []types.Codes{batch.Codes}
			} else {
				encoded = make([]types.Codes, len(lines))
				for lineIdx, line := range lines {
					if err := groupCtx.Err(); err != nil {
						return err
					}
					normalized := cfg.Normalizer.Normalize(line)
					codes, err := lm.segmenter.Encode([]byte(normalized))
					if err != nil {
						return fmt.Errorf("%s line %d: %w", path, lineIdx+1, err)
					}
					encoded[lineIdx] = codes
				}
			}

			outPath, err := outputPath(cfg, inputDir, path)
			if err != nil {
				return err
			}
			if err := writeCodesFile(outPath, cfg.Batch.Format, encoded); err != nil {
				return err
			}
			for _, codes := range encoded {
				totalCodes.Add(uint64(len(codes)))
			}
			totalBytes.Add(uint64(len(raw)))
			written[idx] = outPath
			blog.Debug("encoded", "path", path, "out", outPath)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	duration := time.Since(begin).Seconds()
	blog.Info("batch complete", "files", len(paths),
		"codes", humanize.Comma(int64(totalCodes.Load())),
		"input", humanize.Bytes(totalBytes.Load()),
		"codes_per_sec", fmt.Sprintf("%0.2f",
			float64(totalCodes.Load())/max(duration, 1e-9)))
	return written, nil
}

func writeCodesFile(path, format string, lines []types.Codes) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeCodes(file, format, lines); err != nil {
		file.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return file.Close()
}
