package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSimpleText_ReadsTrimmedLine(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("  hello world  \n"))
	var out bytes.Buffer

	got, err := GetSimpleText(reader, "Say something", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Contains(t, out.String(), "Say something")
}

func TestGetSimpleText_PartialLineOnEOF(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("no newline"))
	var out bytes.Buffer

	got, err := GetSimpleText(reader, "Prompt", &out)
	require.NoError(t, err)
	assert.Equal(t, "no newline", got)
}

func TestGetSimpleText_EOFWithoutInput(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader(""))
	var out bytes.Buffer

	_, err := GetSimpleText(reader, "Prompt", &out)
	require.Error(t, err)
}

func TestGetPassword_UsesSeam(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(fd int) ([]byte, error) {
		return []byte("s3cret"), nil
	}

	var out bytes.Buffer
	got, err := GetPassword(&out, "Enter password")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
	assert.Contains(t, out.String(), "Enter password")
}
