package main

import (
	"fmt"
	"strconv"

	"github.com/example/go-tokenizers/internal/bridge"
	"github.com/example/go-tokenizers/internal/config"
	"github.com/spf13/cobra"
)

func newVocabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Inspect the tokenizer vocabulary",
	}

	cmd.AddCommand(newVocabSizeCmd())
	cmd.AddCommand(newVocabIDCmd())
	cmd.AddCommand(newVocabTokenCmd())

	return cmd
}

func newVocabSizeCmd() *cobra.Command {
	var withAdded bool

	cmd := &cobra.Command{
		Use:   "size",
		Short: "Print the vocabulary size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTokenizer(func(b *bridge.Bridge, h bridge.TokenizerHandle, _ config.Config) error {
				n, err := b.VocabSize(h, withAdded)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&withAdded, "with-added-tokens", true, "Count added tokens")

	return cmd
}

func newVocabIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id <token>",
		Short: "Print the id of a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTokenizer(func(b *bridge.Bridge, h bridge.TokenizerHandle, _ config.Config) error {
				id, err := b.TokenToID(h, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
}

func newVocabTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <id>",
		Short: "Print the token for an id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid token id %q: %w", args[0], err)
			}

			return withTokenizer(func(b *bridge.Bridge, h bridge.TokenizerHandle, _ config.Config) error {
				buf, err := b.IDToToken(h, uint32(id))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(buf.Slice()))
				return b.FreeExportedText(buf)
			})
		},
	}
}
