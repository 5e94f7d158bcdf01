package frontmatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, fm)
	require.Equal(t, input, body)
}

func TestSplit_YAMLFrontmatter_SplitsFrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\n---\n# Title\n")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: Hello\n"), fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	input := []byte("---\ntitle: Hello\n# Title\n")

	_, _, had, err := Split(input)
	require.Error(t, err)
	require.False(t, had)
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
}

func TestSplit_CRLF_SplitsFrontmatterAndBody(t *testing.T) {
	input := []byte("---\r\ntitle: Hello\r\n---\r\n# Title\r\n")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: Hello\r\n"), fm)
	require.Equal(t, []byte("# Title\r\n"), body)
}

func TestSplit_EmptyFrontmatterBlock(t *testing.T) {
	input := []byte("---\n---\n# Title\n")

	fm, body, had, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestDecode_AllFields(t *testing.T) {
	fields, err := Decode([]byte(`
title: Preprocess your data with recipes
weight: 2
description: Prepare data for modeling with steps.
tags: [recipes, parsnip]
categories: [preprocessing]
author: Docs Team
banner: figs/banner.png
`))
	require.NoError(t, err)
	assert.Equal(t, "Preprocess your data with recipes", fields.Title)
	assert.Equal(t, 2, fields.Weight)
	assert.Equal(t, []string{"recipes", "parsnip"}, fields.Tags)
	assert.Empty(t, fields.MissingField())
}

func TestMissingField_ReportsFirstMissing(t *testing.T) {
	tests := []struct {
		name    string
		fields  Fields
		missing string
	}{
		{"all missing", Fields{}, "title"},
		{"no weight", Fields{Title: "T", Description: "D"}, "weight"},
		{"no description", Fields{Title: "T", Weight: 1}, "description"},
		{"whitespace title", Fields{Title: "  ", Weight: 1, Description: "D"}, "title"},
		{"complete", Fields{Title: "T", Weight: 1, Description: "D"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, tt.fields.MissingField())
		})
	}
}

func TestTagSet_TrimsAndDropsEmpty(t *testing.T) {
	fields := Fields{Tags: []string{" recipes ", "", "tuning"}}
	set := fields.TagSet()
	assert.Len(t, set, 2)
	assert.Contains(t, set, "recipes")
	assert.Contains(t, set, "tuning")
}
