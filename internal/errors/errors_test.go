package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderMarksAndHints(t *testing.T) {
	err := NewError("counter locked").
		WithHint("Could not generate document number, please retry").
		WithReportableDetails(map[string]any{
			"document_type": "quotation",
		}).
		Mark(ErrContention)

	require.Error(t, err)
	assert.True(t, IsContention(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, http.StatusConflict, HTTPStatusFromErr(err))
	assert.Equal(t, "Could not generate document number, please retry", DisplayMessage(err))
	assert.Equal(t, map[string]any{"document_type": "quotation"}, ReportableDetails(err))
}

func TestMarksSurviveWrapping(t *testing.T) {
	inner := NewError("missing").Mark(ErrNotFound)
	wrapped := fmt.Errorf("loading source: %w", inner)

	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, http.StatusNotFound, HTTPStatusFromErr(wrapped))
}

func TestDetailsMergeAcrossLayers(t *testing.T) {
	inner := NewError("insert failed").
		WithReportableDetails(map[string]any{"document_number": "Q0003"}).
		Mark(ErrAlreadyExists)
	outer := WithError(inner).
		WithReportableDetails(map[string]any{"source_document_id": "doc_1"}).
		Mark(ErrDatabase)

	details := ReportableDetails(outer)
	assert.Equal(t, "Q0003", details["document_number"])
	assert.Equal(t, "doc_1", details["source_document_id"])
	assert.True(t, IsAlreadyExists(outer))
	assert.True(t, IsDatabase(outer))
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewError("bad").Mark(ErrValidation), http.StatusBadRequest},
		{"invalid operation", NewError("no").Mark(ErrInvalidOperation), http.StatusBadRequest},
		{"rate limited", NewError("slow down").Mark(ErrRateLimited), http.StatusTooManyRequests},
		{"database", NewError("db").Mark(ErrDatabase), http.StatusInternalServerError},
		{"unmarked", fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusFromErr(tt.err))
		})
	}
}

func TestDisplayMessageFallback(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred", DisplayMessage(fmt.Errorf("plain")))
	assert.Empty(t, ReportableDetails(fmt.Errorf("plain")))
}
