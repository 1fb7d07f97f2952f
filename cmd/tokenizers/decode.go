package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/go-tokenizers/internal/bridge"
	"github.com/example/go-tokenizers/internal/config"
	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <ids>...",
		Short: "Decode token id sequences into text",
		Long: "Decode each argument as one sequence of token ids separated by " +
			"commas or spaces. Every sequence is printed on its own line.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seqs := make([][]uint32, len(args))
			for i, arg := range args {
				ids, err := parseIDs(arg)
				if err != nil {
					return fmt.Errorf("sequence %d: %w", i, err)
				}
				seqs[i] = ids
			}

			return withTokenizer(func(b *bridge.Bridge, h bridge.TokenizerHandle, cfg config.Config) error {
				texts, err := decodeSequences(b, h, seqs, cfg.Tokenizer.SkipSpecialTokens)
				if err != nil {
					return err
				}
				for _, t := range texts {
					fmt.Fprintln(cmd.OutOrStdout(), t)
				}
				return nil
			})
		},
	}

	return cmd
}

func decodeSequences(b *bridge.Bridge, h bridge.TokenizerHandle, seqs [][]uint32, skipSpecial bool) (_ []string, err error) {
	list, err := b.DecodeSlices(h, seqs, skipSpecial)
	if err != nil {
		return nil, err
	}
	defer func() {
		if freeErr := b.FreeExportedTextList(list); err == nil {
			err = freeErr
		}
	}()

	out := make([]string, 0, list.Len)
	for _, text := range list.Slice() {
		out = append(out, string(text.Slice()))
	}

	return out, nil
}

func parseIDs(s string) ([]uint32, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields) == 0 {
		return nil, errors.New("empty id sequence")
	}

	ids := make([]uint32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid token id %q: %w", f, err)
		}
		ids[i] = uint32(v)
	}

	return ids, nil
}
