package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/example/go-tokenizers/internal/bridge"
	"github.com/example/go-tokenizers/internal/config"
	"github.com/example/go-tokenizers/internal/view"
	"github.com/spf13/cobra"
)

type encodedText struct {
	Text              string   `json:"text"`
	IDs               []uint32 `json:"ids"`
	TypeIDs           []uint32 `json:"type_ids"`
	Tokens            []string `json:"tokens"`
	SpecialTokensMask []uint32 `json:"special_tokens_mask"`
	AttentionMask     []uint32 `json:"attention_mask"`
}

func newEncodeCmd() *cobra.Command {
	var (
		format    string
		fromStdin bool
	)

	cmd := &cobra.Command{
		Use:   "encode [text...]",
		Short: "Encode texts into token ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "ids" && format != "tokens" {
				return fmt.Errorf("--format must be 'json', 'ids' or 'tokens'")
			}

			texts := args
			if fromStdin {
				lines, err := readLines(cmd.InOrStdin())
				if err != nil {
					return err
				}
				texts = append(texts, lines...)
			}
			if len(texts) == 0 {
				return errors.New("no input: pass texts as arguments or use --stdin")
			}

			return withTokenizer(func(b *bridge.Bridge, h bridge.TokenizerHandle, cfg config.Config) error {
				encoded, err := encodeTexts(b, h, texts, cfg.Tokenizer.AddSpecialTokens)
				if err != nil {
					return err
				}
				return writeEncoded(cmd.OutOrStdout(), format, encoded)
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Output format: json|ids|tokens")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read one text per line from stdin")

	return cmd
}

// encodeTexts runs one batch encode and copies every column out before the
// batch is freed.
func encodeTexts(b *bridge.Bridge, h bridge.TokenizerHandle, texts []string, addSpecial bool) (_ []encodedText, err error) {
	batch, err := b.EncodeStrings(h, texts, addSpecial)
	if err != nil {
		return nil, err
	}
	defer func() {
		if freeErr := b.FreeExportedEncodings(batch); err == nil {
			err = freeErr
		}
	}()

	out := make([]encodedText, len(texts))
	for i, rec := range batch.Slice() {
		e := encodedText{Text: texts[i]}

		cols := []struct {
			dst  *[]uint32
			read func(bridge.EncodingHandle) (view.Array[uint32], error)
		}{
			{&e.IDs, b.IDs},
			{&e.TypeIDs, b.TypeIDs},
			{&e.SpecialTokensMask, b.SpecialTokensMask},
			{&e.AttentionMask, b.AttentionMask},
		}
		for _, c := range cols {
			v, err := c.read(rec.Handle)
			if err != nil {
				return nil, err
			}
			*c.dst = append([]uint32{}, v.Slice()...)
		}

		if e.Tokens, err = b.TokenList(rec.Handle); err != nil {
			return nil, err
		}
		out[i] = e
	}

	return out, nil
}

func writeEncoded(w io.Writer, format string, encoded []encodedText) error {
	switch format {
	case "ids":
		for _, e := range encoded {
			fmt.Fprintln(w, joinIDs(e.IDs))
		}
	case "tokens":
		for _, e := range encoded {
			fmt.Fprintln(w, strings.Join(e.Tokens, " "))
		}
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(encoded)
	}

	return nil
}

func joinIDs(ids []uint32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, " ")
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return lines, nil
}
