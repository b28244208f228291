package main

import (
	"fmt"
	"os"
	"path/filepath"

	cfg "feedserv/src/configuration"
	"feedserv/src/media"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize <in> [out]",
	Short: "Normalizes a local image the way uploads are normalized",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := cfg.ParseProperties()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		res := newNormalizer(config.Image).Normalize(data, filepath.Base(args[0]))

		out := filepath.Join(filepath.Dir(args[0]), res.Image.Filename)
		if len(args) == 2 {
			out = args[1]
		}
		if res.Kind == media.KindNormalized && out == args[0] {
			return fmt.Errorf("refusing to overwrite %s, pass an output path", args[0])
		}
		if err := os.WriteFile(out, res.Image.Data, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s -> %s (%s, %d -> %d bytes)\n", args[0], out, res.Kind, len(data), len(res.Image.Data))
		if res.Err != nil {
			fmt.Fprintf(w, "kept original: %v\n", res.Err)
		}
		return nil
	},
}
