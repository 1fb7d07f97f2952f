package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyPath is returned when FromFile is called with an empty path.
var ErrEmptyPath = errors.New("tokenizer path must not be empty")

type documentJSON struct {
	AddedTokens   []addedTokenJSON `json:"added_tokens"`
	Normalizer    json.RawMessage  `json:"normalizer"`
	PreTokenizer  json.RawMessage  `json:"pre_tokenizer"`
	PostProcessor json.RawMessage  `json:"post_processor"`
	Decoder       json.RawMessage  `json:"decoder"`
	Model         modelJSON        `json:"model"`
}

type addedTokenJSON struct {
	ID      uint32 `json:"id"`
	Content string `json:"content"`
	Special bool   `json:"special"`
}

type modelJSON struct {
	Type                    string          `json:"type"`
	Vocab                   json.RawMessage `json:"vocab"`
	Merges                  json.RawMessage `json:"merges"`
	UnkToken                *string         `json:"unk_token"`
	ContinuingSubwordPrefix *string         `json:"continuing_subword_prefix"`
	EndOfWordSuffix         *string         `json:"end_of_word_suffix"`
	FuseUnk                 bool            `json:"fuse_unk"`
	ByteFallback            bool            `json:"byte_fallback"`
}

type patternJSON struct {
	String *string `json:"String"`
	Regex  *string `json:"Regex"`
}

// componentJSON is the union of every field read from normalizer,
// pre_tokenizer, post_processor and decoder objects.
type componentJSON struct {
	Type string `json:"type"`

	// Sequence children.
	Normalizers   []json.RawMessage `json:"normalizers"`
	PreTokenizers []json.RawMessage `json:"pretokenizers"`
	Processors    []json.RawMessage `json:"processors"`
	Decoders      []json.RawMessage `json:"decoders"`

	Pattern  *patternJSON    `json:"pattern"`
	Content  json.RawMessage `json:"content"`
	Prepend  string          `json:"prepend"`
	Behavior string          `json:"behavior"`
	Invert   bool            `json:"invert"`

	StripLeft  bool `json:"strip_left"`
	StripRight bool `json:"strip_right"`
	Start      int  `json:"start"`
	Stop       int  `json:"stop"`

	AddPrefixSpace   *bool  `json:"add_prefix_space"`
	TrimOffsets      bool   `json:"trim_offsets"`
	UseRegex         *bool  `json:"use_regex"`
	IndividualDigits bool   `json:"individual_digits"`
	Replacement      string `json:"replacement"`
	PrependScheme    string `json:"prepend_scheme"`
	Split            *bool  `json:"split"`

	Single        []templateItemJSON         `json:"single"`
	SpecialTokens map[string]templateSpecial `json:"special_tokens"`
	CLS           json.RawMessage            `json:"cls"`
	SEP           json.RawMessage            `json:"sep"`
}

type templateItemJSON struct {
	SpecialToken *struct {
		ID     string `json:"id"`
		TypeID uint32 `json:"type_id"`
	} `json:"SpecialToken"`
	Sequence *struct {
		ID     string `json:"id"`
		TypeID uint32 `json:"type_id"`
	} `json:"Sequence"`
}

type templateSpecial struct {
	ID     string   `json:"id"`
	IDs    []uint32 `json:"ids"`
	Tokens []string `json:"tokens"`
}

// FromFile loads a tokenizer.json document from path.
func FromFile(path string, opts Options) (*Tokenizer, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokenizer %q: %w", path, err)
	}

	t, err := FromJSON(data, opts)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %q: %w", path, err)
	}

	return t, nil
}

// FromJSON builds a tokenizer from a serialized tokenizer.json document.
// Only BPE models are supported. Padding and truncation settings are ignored.
func FromJSON(data []byte, opts Options) (*Tokenizer, error) {
	var doc documentJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode tokenizer.json: %w", err)
	}

	model, err := loadModel(doc.Model, opts)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	var c Components
	if c.Normalizer, err = loadNormalizer(doc.Normalizer); err != nil {
		return nil, fmt.Errorf("normalizer: %w", err)
	}
	if c.PreTokenizer, err = loadPreTokenizer(doc.PreTokenizer); err != nil {
		return nil, fmt.Errorf("pre_tokenizer: %w", err)
	}
	if c.PostProcessor, err = loadPostProcessor(doc.PostProcessor); err != nil {
		return nil, fmt.Errorf("post_processor: %w", err)
	}
	if c.Decoder, err = loadDecoder(doc.Decoder); err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	for _, at := range doc.AddedTokens {
		c.AddedTokens = append(c.AddedTokens, AddedToken{Content: at.Content, ID: at.ID, Special: at.Special})
	}

	return New(model, c), nil
}

func loadModel(m modelJSON, opts Options) (*BPE, error) {
	if m.Type != "" && m.Type != "BPE" {
		return nil, fmt.Errorf("%w: model type %q", ErrUnsupported, m.Type)
	}
	if len(m.Vocab) == 0 {
		return nil, fmt.Errorf("%w: missing vocab", ErrMalformedVocab)
	}

	vocab, err := ParseVocab(m.Vocab, opts.Strict)
	if err != nil {
		return nil, err
	}
	merges, err := loadMerges(m.Merges)
	if err != nil {
		return nil, err
	}

	cfg := BPEConfig{
		Vocab:        vocab,
		Merges:       merges,
		FuseUnk:      m.FuseUnk,
		ByteFallback: m.ByteFallback,
	}
	if m.UnkToken != nil {
		cfg.UnkToken = *m.UnkToken
	}
	if m.ContinuingSubwordPrefix != nil {
		cfg.ContinuingSubwordPrefix = *m.ContinuingSubwordPrefix
	}
	if m.EndOfWordSuffix != nil {
		cfg.EndOfWordSuffix = *m.EndOfWordSuffix
	}

	return NewBPE(cfg)
}

// loadMerges accepts both the "a b" string form and the ["a", "b"] pair form.
func loadMerges(raw json.RawMessage) ([]Merge, error) {
	if isNull(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMerges, err)
	}

	merges := make([]Merge, 0, len(items))
	for i, item := range items {
		var line string
		if err := json.Unmarshal(item, &line); err == nil {
			fields := strings.Fields(line)
			if len(fields) != 2 {
				return nil, fmt.Errorf("%w: merge %d %q: want 2 fields, got %d", ErrMalformedMerges, i, line, len(fields))
			}
			merges = append(merges, Merge{fields[0], fields[1]})
			continue
		}
		var pair []string
		if err := json.Unmarshal(item, &pair); err != nil || len(pair) != 2 {
			return nil, fmt.Errorf("%w: merge %d: %s", ErrMalformedMerges, i, item)
		}
		merges = append(merges, Merge{pair[0], pair[1]})
	}

	return merges, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func decodeComponent(raw json.RawMessage) (*componentJSON, error) {
	if isNull(raw) {
		return nil, nil
	}
	var c componentJSON
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}

	return &c, nil
}

func (p *patternJSON) compile() (Pattern, error) {
	switch {
	case p == nil:
		return Pattern{}, errors.New("missing pattern")
	case p.String != nil:
		return LiteralPattern(*p.String), nil
	case p.Regex != nil:
		return RegexPattern(*p.Regex)
	default:
		return Pattern{}, errors.New("pattern must be String or Regex")
	}
}

func (c *componentJSON) contentString() (string, error) {
	if isNull(c.Content) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(c.Content, &s); err != nil {
		return "", fmt.Errorf("content: %w", err)
	}

	return s, nil
}

func loadNormalizer(raw json.RawMessage) (Normalizer, error) {
	c, err := decodeComponent(raw)
	if err != nil || c == nil {
		return nil, err
	}

	switch c.Type {
	case "NFC":
		return UnicodeForm{Form: norm.NFC}, nil
	case "NFD":
		return UnicodeForm{Form: norm.NFD}, nil
	case "NFKC":
		return UnicodeForm{Form: norm.NFKC}, nil
	case "NFKD":
		return UnicodeForm{Form: norm.NFKD}, nil
	case "Lowercase":
		return Lowercase{}, nil
	case "Prepend":
		return Prepend{Prefix: c.Prepend}, nil
	case "Strip":
		return Strip{Left: c.StripLeft, Right: c.StripRight}, nil
	case "Replace":
		p, err := c.Pattern.compile()
		if err != nil {
			return nil, err
		}
		content, err := c.contentString()
		if err != nil {
			return nil, err
		}
		return Replace{Pattern: p, Content: content}, nil
	case "Sequence":
		seq := make(NormalizerSequence, 0, len(c.Normalizers))
		for _, child := range c.Normalizers {
			n, err := loadNormalizer(child)
			if err != nil {
				return nil, err
			}
			if n != nil {
				seq = append(seq, n)
			}
		}
		return seq, nil
	default:
		return nil, fmt.Errorf("%w: normalizer %q", ErrUnsupported, c.Type)
	}
}

func loadPreTokenizer(raw json.RawMessage) (PreTokenizer, error) {
	c, err := decodeComponent(raw)
	if err != nil || c == nil {
		return nil, err
	}

	switch c.Type {
	case "ByteLevel":
		return ByteLevel{
			AddPrefixSpace: boolOr(c.AddPrefixSpace, true),
			TrimOffsets:    c.TrimOffsets,
			UseRegex:       boolOr(c.UseRegex, true),
		}, nil
	case "Split":
		p, err := c.Pattern.compile()
		if err != nil {
			return nil, err
		}
		behavior, err := ParseSplitBehavior(c.Behavior)
		if err != nil {
			return nil, err
		}
		return Split{Pattern: p, Behavior: behavior, Invert: c.Invert}, nil
	case "Whitespace":
		return Whitespace{}, nil
	case "WhitespaceSplit":
		return WhitespaceSplit{}, nil
	case "Digits":
		return Digits{Individual: c.IndividualDigits}, nil
	case "Metaspace":
		return Metaspace{
			Replacement:   metaspaceReplacement(c),
			PrependScheme: prependScheme(c),
			Split:         boolOr(c.Split, true),
		}, nil
	case "Sequence":
		seq := make(PreTokenizerSequence, 0, len(c.PreTokenizers))
		for _, child := range c.PreTokenizers {
			pt, err := loadPreTokenizer(child)
			if err != nil {
				return nil, err
			}
			if pt != nil {
				seq = append(seq, pt)
			}
		}
		return seq, nil
	default:
		return nil, fmt.Errorf("%w: pre_tokenizer %q", ErrUnsupported, c.Type)
	}
}

func metaspaceReplacement(c *componentJSON) string {
	if c.Replacement == "" {
		return "▁"
	}

	return c.Replacement
}

// prependScheme honours the legacy add_prefix_space flag when no explicit
// scheme is present.
func prependScheme(c *componentJSON) string {
	switch c.PrependScheme {
	case PrependAlways, PrependFirst, PrependNever:
		return c.PrependScheme
	}
	if c.AddPrefixSpace != nil && !*c.AddPrefixSpace {
		return PrependNever
	}

	return PrependAlways
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}

	return *p
}

func loadPostProcessor(raw json.RawMessage) (PostProcessor, error) {
	c, err := decodeComponent(raw)
	if err != nil || c == nil {
		return nil, err
	}

	switch c.Type {
	case "ByteLevel":
		return ByteLevelProcessor{}, nil
	case "RobertaProcessing", "BertProcessing":
		cls, err := specialPair(c.CLS)
		if err != nil {
			return nil, fmt.Errorf("cls: %w", err)
		}
		sep, err := specialPair(c.SEP)
		if err != nil {
			return nil, fmt.Errorf("sep: %w", err)
		}
		return RobertaProcessing{CLS: cls, SEP: sep}, nil
	case "TemplateProcessing":
		return loadTemplate(c)
	case "Sequence":
		seq := make(ProcessorSequence, 0, len(c.Processors))
		for _, child := range c.Processors {
			p, err := loadPostProcessor(child)
			if err != nil {
				return nil, err
			}
			if p != nil {
				seq = append(seq, p)
			}
		}
		return seq, nil
	default:
		return nil, fmt.Errorf("%w: post_processor %q", ErrUnsupported, c.Type)
	}
}

// specialPair decodes the ["<s>", 0] form used by Roberta and Bert processors.
func specialPair(raw json.RawMessage) (SpecialToken, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return SpecialToken{}, fmt.Errorf("want [token, id], got %s", raw)
	}
	var st SpecialToken
	if err := json.Unmarshal(pair[0], &st.Token); err != nil {
		return SpecialToken{}, err
	}
	if err := json.Unmarshal(pair[1], &st.ID); err != nil {
		return SpecialToken{}, err
	}

	return st, nil
}

func loadTemplate(c *componentJSON) (PostProcessor, error) {
	tp := TemplateProcessing{Specials: make(map[string]TemplateSpecial, len(c.SpecialTokens))}
	for name, sp := range c.SpecialTokens {
		if len(sp.IDs) != len(sp.Tokens) {
			return nil, fmt.Errorf("special token %q: %d ids for %d tokens", name, len(sp.IDs), len(sp.Tokens))
		}
		tp.Specials[name] = TemplateSpecial{IDs: sp.IDs, Tokens: sp.Tokens}
	}
	for i, item := range c.Single {
		switch {
		case item.Sequence != nil:
			tp.Single = append(tp.Single, TemplatePiece{Sequence: true, TypeID: item.Sequence.TypeID})
		case item.SpecialToken != nil:
			if _, ok := tp.Specials[item.SpecialToken.ID]; !ok {
				return nil, fmt.Errorf("template item %d: unknown special token %q", i, item.SpecialToken.ID)
			}
			tp.Single = append(tp.Single, TemplatePiece{Special: item.SpecialToken.ID, TypeID: item.SpecialToken.TypeID})
		default:
			return nil, fmt.Errorf("template item %d: want Sequence or SpecialToken", i)
		}
	}

	return tp, nil
}

func loadDecoder(raw json.RawMessage) (Decoder, error) {
	c, err := decodeComponent(raw)
	if err != nil || c == nil {
		return nil, err
	}

	switch c.Type {
	case "ByteLevel":
		return ByteLevelDecoder{}, nil
	case "ByteFallback":
		return ByteFallback{}, nil
	case "Fuse":
		return Fuse{}, nil
	case "Replace":
		p, err := c.Pattern.compile()
		if err != nil {
			return nil, err
		}
		content, err := c.contentString()
		if err != nil {
			return nil, err
		}
		return ReplaceDecoder{Pattern: p, Content: content}, nil
	case "Strip":
		content, err := c.contentString()
		if err != nil {
			return nil, err
		}
		return StripDecoder{Content: content, Start: c.Start, Stop: c.Stop}, nil
	case "Metaspace":
		return MetaspaceDecoder{Replacement: metaspaceReplacement(c), PrependScheme: prependScheme(c)}, nil
	case "Sequence":
		seq := make(DecoderSequence, 0, len(c.Decoders))
		for _, child := range c.Decoders {
			d, err := loadDecoder(child)
			if err != nil {
				return nil, err
			}
			if d != nil {
				seq = append(seq, d)
			}
		}
		return seq, nil
	default:
		return nil, fmt.Errorf("%w: decoder %q", ErrUnsupported, c.Type)
	}
}
