// SPDX-License-Identifier: AGPL-3.0-or-later
package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURL_Idempotent(t *testing.T) {
	t.Parallel()

	cases := []string{
		"ACC://FOO.ACME/",
		"acc:foo.acme",
		"foo.acme/book/1/",
		"  acc://Foo.Acme ",
	}
	for _, c := range cases {
		once := URL(c)
		twice := URL(once)
		assert.Equal(t, once, twice, "URL must be idempotent for %q", c)
	}
}

func TestURL_Normalizes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "acc://foo.acme", URL("ACC://FOO.ACME/"))
	assert.Equal(t, "acc://foo.acme", URL("acc:foo.acme"))
	assert.Equal(t, "acc://foo.acme", URL("foo.acme"))
	assert.Equal(t, "acc://foo.acme/book/1", URL("  Foo.Acme/Book/1/ "))
	assert.Equal(t, "", URL(""))
	assert.Equal(t, "", URL("   "))
}

func TestHash_Idempotent(t *testing.T) {
	t.Parallel()

	cases := []string{"0xABCD@acc://x/y", "ABCD", "acc://abcd@principal/path"}
	for _, c := range cases {
		once := Hash(c)
		twice := Hash(once)
		assert.Equal(t, once, twice)
	}
}

func TestHash_Normalizes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abcd", Hash("0xABCD@acc://x/y"))
	assert.Equal(t, "abcd", Hash("ACC://abcd/path"))
	assert.Equal(t, "abcd", Hash("  0xAbCd  "))
	assert.Equal(t, "", Hash(""))
}

func TestExtractADI(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "acc://foo.acme", ExtractADI("acc://foo.acme/book/1"))
	assert.Equal(t, "acc://foo.acme", ExtractADI("acc://foo.acme"))
	assert.Equal(t, "acc://foo.acme", ExtractADI("FOO.ACME/tokens"))
}

func TestIsKeyBookURL(t *testing.T) {
	t.Parallel()

	assert.True(t, IsKeyBookURL("acc://foo.acme/book"))
	assert.True(t, IsKeyBookURL("acc://foo.acme/books"))
	assert.False(t, IsKeyBookURL("acc://foo.acme/book/1"))
	assert.False(t, IsKeyBookURL("acc://foo.acme/tokens"))
}

func TestIsKeyPageURL(t *testing.T) {
	t.Parallel()

	assert.True(t, IsKeyPageURL("acc://foo.acme/book/1"))
	assert.True(t, IsKeyPageURL("acc://foo.acme/books/2"))
	assert.True(t, IsKeyPageURL("acc://foo.acme/page/3"))
	assert.False(t, IsKeyPageURL("acc://foo.acme/book"))
	assert.False(t, IsKeyPageURL("acc://foo.acme/book/abc"))
}

func TestKeyPageURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "acc://foo.acme/book/3", KeyPageURL("ACC://Foo.Acme/Book", 3))
}
