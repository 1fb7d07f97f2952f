// Command libtokenizers builds the tokenizer boundary as a C shared library:
//
//	go build -buildmode=c-shared -o libtokenizers.so ./cmd/libtokenizers
//
// Every function returns a TK_* status from tokenizers.h and writes its
// result through out-parameters. Settings are read from TOKENIZERS_*
// environment variables and an optional ./tokenizers.yaml.
package main

func main() {}
