package sequence

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/types"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		n       int64
		padding int
		want    string
	}{
		{name: "zero filled", prefix: "C", n: 8, padding: 4, want: "C0008"},
		{name: "exact width", prefix: "Q", n: 1234, padding: 4, want: "Q1234"},
		{name: "widens past padding", prefix: "C", n: 12345, padding: 4, want: "C12345"},
		{name: "multi letter prefix", prefix: "INV", n: 42, padding: 6, want: "INV000042"},
		{name: "empty prefix", prefix: "", n: 7, padding: 3, want: "007"},
		{name: "max int64", prefix: "X", n: math.MaxInt64, padding: 10, want: "X9223372036854775807"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.prefix, tt.n, tt.padding))
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		formatted string
		want      int64
		wantOK    bool
	}{
		{name: "padded", prefix: "C", formatted: "C0042", want: 42, wantOK: true},
		{name: "unpadded", prefix: "C", formatted: "C42", want: 42, wantOK: true},
		{name: "widened", prefix: "C", formatted: "C12345", want: 12345, wantOK: true},
		{name: "all zeros", prefix: "C", formatted: "C0000", want: 0, wantOK: true},
		{name: "multi letter prefix", prefix: "INV", formatted: "INV000042", want: 42, wantOK: true},
		{name: "foreign prefix", prefix: "C", formatted: "Q0042", wantOK: false},
		{name: "case sensitive prefix", prefix: "C", formatted: "c0042", wantOK: false},
		{name: "prefix only", prefix: "C", formatted: "C", wantOK: false},
		{name: "empty", prefix: "C", formatted: "", wantOK: false},
		{name: "letters in suffix", prefix: "C", formatted: "C00A2", wantOK: false},
		{name: "sign in suffix", prefix: "C", formatted: "C-042", wantOK: false},
		{name: "plus in suffix", prefix: "C", formatted: "C+042", wantOK: false},
		{name: "whitespace", prefix: "C", formatted: "C 042", wantOK: false},
		{name: "non ascii digits", prefix: "C", formatted: "C٤٢", wantOK: false},
		{name: "overflow", prefix: "C", formatted: "C99999999999999999999", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.prefix, tt.formatted)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, 9, 10, 999, 1000, 10001, 123456789} {
		for padding := MinPadding; padding <= MaxPadding; padding++ {
			got, ok := Parse("PO", Format("PO", n, padding))
			assert.True(t, ok)
			assert.Equal(t, n, got)
		}
	}
}

func TestNewDefault(t *testing.T) {
	ctx := context.WithValue(context.Background(), types.CtxTenantID, "tenant_1")

	cfg := NewDefault(ctx, types.DocumentTypeQuotation)
	assert.Equal(t, "tenant_1", cfg.TenantID)
	assert.Equal(t, "Q", cfg.Prefix)
	assert.Equal(t, int64(0), cfg.CurrentNumber)
	assert.Equal(t, DefaultPadding, cfg.Padding)
	assert.Equal(t, "Q0001", cfg.Next())

	assert.Equal(t, "P", NewDefault(ctx, types.DocumentTypePurchaseOrder).Prefix)
	assert.Equal(t, "", DefaultPrefix(""))
}

func TestConfigFormatted(t *testing.T) {
	cfg := &SequenceConfig{Prefix: "C", CurrentNumber: 7, Padding: 4}
	assert.Equal(t, "C0008", cfg.Next())
	assert.Equal(t, "C0007", cfg.Formatted(cfg.CurrentNumber))
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		padding int
		wantErr bool
	}{
		{name: "single letter", prefix: "C", padding: 4},
		{name: "alphanumeric", prefix: "V2A", padding: 3},
		{name: "max length", prefix: "ABCDEFGHIJ", padding: 10},
		{name: "empty prefix", prefix: "", padding: 4, wantErr: true},
		{name: "too long", prefix: "ABCDEFGHIJK", padding: 4, wantErr: true},
		{name: "ends in digit", prefix: "C1", padding: 4, wantErr: true},
		{name: "punctuation", prefix: "C-", padding: 4, wantErr: true},
		{name: "padding too small", prefix: "C", padding: 2, wantErr: true},
		{name: "padding too large", prefix: "C", padding: 11, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFormat(tt.prefix, tt.padding)
			if tt.wantErr {
				assert.True(t, ierr.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}
