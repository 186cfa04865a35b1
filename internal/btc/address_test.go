package btc

import (
	"strings"
	"testing"
)

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"p2pkh alone", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
		{"p2pkh in message", "Hi!, How much btc 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa address has?", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
		{"p2sh alone", "3E8ociqZa9mZUSwGdSmAEMAoAxBK3FNDcd", "3E8ociqZa9mZUSwGdSmAEMAoAxBK3FNDcd"},
		{"p2sh in message", "Hi!, How much btc 3E8ociqZa9mZUSwGdSmAEMAoAxBK3FNDcd address has?", "3E8ociqZa9mZUSwGdSmAEMAoAxBK3FNDcd"},
		{"bech32 alone", "bc1qm9n8x3jge2356hhyywfwrsmfczr49fxz37da8y", "bc1qm9n8x3jge2356hhyywfwrsmfczr49fxz37da8y"},
		{"bech32 in message", "Hi!, How much btc bc1qm9n8x3jge2356hhyywfwrsmfczr49fxz37da8y address has?", "bc1qm9n8x3jge2356hhyywfwrsmfczr49fxz37da8y"},
		{"trailing question mark", "balance of 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa?", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
		{"punctuation around", "(1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa).", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
		{"start of line", "3E8ociqZa9mZUSwGdSmAEMAoAxBK3FNDcd please", "3E8ociqZa9mZUSwGdSmAEMAoAxBK3FNDcd"},
		{"after newline", "check\nbc1qm9n8x3jge2356hhyywfwrsmfczr49fxz37da8y", "bc1qm9n8x3jge2356hhyywfwrsmfczr49fxz37da8y"},
		{"first of two", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa and 3E8ociqZa9mZUSwGdSmAEMAoAxBK3FNDcd", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
		{"cyrillic words around", "баланс 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa пожалуйста", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
		{"emoji before", "💰1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
		{"adjacent after separator", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa,3E8ociqZa9mZUSwGdSmAEMAoAxBK3FNDcd", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
		{"leftmost wins over order", "bc1qm9n8x3jge2356hhyywfwrsmfczr49fxz37da8y 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", "bc1qm9n8x3jge2356hhyywfwrsmfczr49fxz37da8y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractAddress(tt.text)
			if !ok {
				t.Fatalf("ExtractAddress(%q): no address found", tt.text)
			}
			if got != tt.want {
				t.Errorf("ExtractAddress(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractAddressNone(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"plain words", "how much bitcoin do I have?"},
		{"help command", "!help"},
		{"inside longer word", "x1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
		{"glued suffix", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa_x"},
		{"base58 with zero", "1A1zP1eP5QGefi2DMPTfTL5SLmv7Div0Na"},
		{"wrong prefix", "2A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
		{"bech32 uppercase", "BC1QM9N8X3JGE2356HHYYWFWRSMFCZR49FXZ37DA8Y"},
		{"accented letter before", "é1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"},
		{"cyrillic letter after", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNaя"},
		{"arabic digit after", "bc1qm9n8x3jge2356hhyywfwrsmfczr49fxz37da8y٣"},
		{"combining mark after", "3E8ociqZa9mZUSwGdSmAEMAoAxBK3FNDcd\u0301"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := ExtractAddress(tt.text); ok {
				t.Errorf("ExtractAddress(%q) = %q, want nothing", tt.text, got)
			}
		})
	}
}

func TestExtractAddressLengths(t *testing.T) {
	tests := []struct {
		name  string
		addr  string
		match bool
	}{
		{"bc1 data 7", "bc1" + strings.Repeat("q", 7), false},
		{"bc1 data 8", "bc1" + strings.Repeat("q", 8), true},
		{"bc1 data 87", "bc1" + strings.Repeat("q", 87), true},
		{"bc1 data 88", "bc1" + strings.Repeat("q", 88), false},
		{"bc1 excluded char b", "bc1" + strings.Repeat("q", 10) + "b", false},
		{"bc0 data 39", "bc0" + strings.Repeat("p", 39), true},
		{"bc0 data 40", "bc0" + strings.Repeat("p", 40), false},
		{"bc0 data 59", "bc0" + strings.Repeat("p", 59), true},
		{"bc0 data 58", "bc0" + strings.Repeat("p", 58), false},
		{"base58 tail 24", "1" + strings.Repeat("a", 24), false},
		{"base58 tail 25", "1" + strings.Repeat("a", 25), true},
		{"base58 tail 35", "3" + strings.Repeat("Z", 35), true},
		{"base58 tail 36", "3" + strings.Repeat("Z", 36), false},
		{"base58 lowercase l", "1" + strings.Repeat("a", 24) + "l", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractAddress("addr: " + tt.addr + " ok")
			if ok != tt.match {
				t.Fatalf("ExtractAddress(%q) matched=%v, want %v (got %q)", tt.addr, ok, tt.match, got)
			}
			if ok && got != tt.addr {
				t.Errorf("ExtractAddress(%q) = %q", tt.addr, got)
			}
		})
	}
}
