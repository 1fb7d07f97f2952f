package main

import "testing"

func TestVocab_Size(t *testing.T) {
	flags := hiTokenizer(t)

	out, err := runCLI(t, "", append(flags, "vocab", "size")...)
	if err != nil {
		t.Fatalf("vocab size: %v", err)
	}

	if out != "10\n" {
		t.Errorf("want 10, got %q", out)
	}

	out, err = runCLI(t, "", append(flags, "vocab", "size", "--with-added-tokens=false")...)
	if err != nil {
		t.Fatalf("vocab size: %v", err)
	}

	if out != "9\n" {
		t.Errorf("want 9 without added tokens, got %q", out)
	}
}

func TestVocab_IDAndToken(t *testing.T) {
	flags := hiTokenizer(t)

	out, err := runCLI(t, "", append(flags, "vocab", "id", "hi")...)
	if err != nil {
		t.Fatalf("vocab id: %v", err)
	}

	if out != "6\n" {
		t.Errorf("want 6, got %q", out)
	}

	out, err = runCLI(t, "", append(flags, "vocab", "token", "8")...)
	if err != nil {
		t.Fatalf("vocab token: %v", err)
	}

	if out != "he\n" {
		t.Errorf("want he, got %q", out)
	}
}

func TestVocab_LookupErrors(t *testing.T) {
	flags := hiTokenizer(t)

	if _, err := runCLI(t, "", append(flags, "vocab", "id", "zzz")...); err == nil {
		t.Error("expected error for unknown token")
	}

	if _, err := runCLI(t, "", append(flags, "vocab", "token", "999")...); err == nil {
		t.Error("expected error for out-of-range id")
	}

	if _, err := runCLI(t, "", append(flags, "vocab", "token", "abc")...); err == nil {
		t.Error("expected error for non-numeric id")
	}
}
