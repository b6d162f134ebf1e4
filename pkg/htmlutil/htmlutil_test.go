package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestGetText(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<h1 id="title">  Hello <em>wide</em>
		world </h1>`))
	if err != nil {
		t.Fatal(err)
	}
	text := GetText(doc)
	require.Contains(t, text, "Hello wide")
	require.Equal(t, "Hello wide world", Clean(text))
}

func TestClean(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "  公众号​名称\n", expected: "公众号名称"},
		{input: "a\t\tb", expected: "a b"},
		{input: "", expected: ""},
	}

	for _, row := range table {
		require.Equal(t, row.expected, Clean(row.input))
	}
}
