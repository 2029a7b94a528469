package enrichment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargoport/internal/enrichment"
)

func TestParseResponse(t *testing.T) {
	name, description, err := enrichment.ParseResponse("Alpha%%%A shiny cargo")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", name)
	assert.Equal(t, "A shiny cargo", description)

	name, description, err = enrichment.ParseResponse("\n  星際蛋糕 %%%  一塊會發光的蛋糕。\n")
	require.NoError(t, err)
	assert.Equal(t, "星際蛋糕", name)
	assert.Equal(t, "一塊會發光的蛋糕。", description)
}

func TestParseResponseNormalizesToNFC(t *testing.T) {
	// "e" followed by a combining acute accent.
	name, _, err := enrichment.ParseResponse("Cafe\u0301%%%desc")
	require.NoError(t, err)
	assert.Equal(t, "Caf\u00e9", name)
}

func TestParseResponseMalformed(t *testing.T) {
	cases := []string{
		"no delimiter here",
		"%%%only description",
		"only name%%%   ",
		"a%%%b%%%c",
		"",
	}
	for _, input := range cases {
		_, _, err := enrichment.ParseResponse(input)
		assert.ErrorIs(t, err, enrichment.ErrMalformedResponse, "input %q", input)
	}
}
