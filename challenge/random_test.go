package challenge

import (
	"errors"
	"strings"
	"testing"
)

func TestContainsValidator(t *testing.T) {
	v := ContainsValidator{}

	tests := []struct {
		name    string
		value   string
		body    string
		found   bool
		wantErr error
	}{
		{"present", "abc123", "prefix abc123 suffix", true, nil},
		{"exact", "abc123", "abc123", true, nil},
		{"absent", "abc123", "nothing here", false, ErrNotFound},
		{"case sensitive", "ABC123", "abc123", false, ErrNotFound},
		{"empty body", "abc123", "", false, ErrEmptyBody},
		{"empty value", "", "some body", false, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(tt.value, tt.body)
			if got.Found() != tt.found {
				t.Fatalf("Found = %v, want %v (errs %v)", got.Found(), tt.found, got.Errs)
			}
			if tt.found && got.Value != tt.value {
				t.Errorf("Value = %q, want %q", got.Value, tt.value)
			}
			if tt.wantErr != nil {
				if len(got.Errs) == 0 || !errors.Is(got.Errs[0], tt.wantErr) {
					t.Errorf("Errs = %v, want %v", got.Errs, tt.wantErr)
				}
			}
		})
	}
}

func TestEntropyBits(t *testing.T) {
	tests := []struct {
		charset string
		length  int
		want    int
	}{
		{DefaultCharset, 32, 190}, // 32 × log2(62) = 190.49, floored
		{"0123456789abcdef", 28, 112},
		{"01", 112, 112},
		{"01", 111, 111},
		{"", 10, 0},
		{"ab", 0, 0},
	}
	for _, tt := range tests {
		if got := EntropyBits(tt.charset, tt.length); got != tt.want {
			t.Errorf("EntropyBits(%d symbols, %d) = %d, want %d", len(tt.charset), tt.length, got, tt.want)
		}
	}
}

func TestNewCharsetGeneratorEntropyFloor(t *testing.T) {
	// 27 hex characters carry 108 bits, below the floor.
	if _, err := NewCharsetGenerator("0123456789abcdef", 27); !errors.Is(err, ErrInsufficientEntropy) {
		t.Errorf("got %v, want ErrInsufficientEntropy", err)
	}

	// 28 hex characters carry exactly 112 bits.
	if _, err := NewCharsetGenerator("0123456789abcdef", 28); err != nil {
		t.Errorf("112-bit configuration rejected: %v", err)
	}

	if _, err := NewCharsetGenerator("a", 1000); !errors.Is(err, ErrInsufficientEntropy) {
		t.Errorf("single-symbol charset accepted: %v", err)
	}
}

func TestCharsetGeneratorGenerate(t *testing.T) {
	g := NewDefaultGenerator()

	seen := map[string]bool{}
	for i := 0; i < 8; i++ {
		v, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if len(v) != DefaultLength {
			t.Fatalf("length = %d, want %d", len(v), DefaultLength)
		}
		for _, c := range v {
			if !strings.ContainsRune(DefaultCharset, c) {
				t.Fatalf("character %q outside charset", c)
			}
		}
		if seen[v] {
			t.Fatalf("duplicate value %q", v)
		}
		seen[v] = true
	}
}

func TestMerge(t *testing.T) {
	fail1 := Result{Errs: []error{ErrNotFound}}
	fail2 := Result{Errs: []error{ErrTokenExpired}}
	ok := Result{Value: "match"}

	merged := Merge(fail1, ok, fail2)
	if !merged.Found() || merged.Value != "match" {
		t.Fatalf("success should win: %+v", merged)
	}
	if len(merged.Errs) != 0 {
		t.Errorf("success result should carry no errors: %v", merged.Errs)
	}

	merged = Merge(fail1, fail2)
	if merged.Found() {
		t.Fatal("no success expected")
	}
	if len(merged.Errs) != 2 {
		t.Errorf("errors = %v, want union of both failure sets", merged.Errs)
	}
}
