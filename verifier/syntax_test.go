package verifier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	c := NewClassifier()

	t.Run("valid addresses", func(t *testing.T) {
		for _, raw := range []string{
			"user@gmail.com",
			"  John.Doe@Example.COM  ",
			"first+tag@sub.company.co.uk",
			"a@b.io",
		} {
			addr, err := c.ParseAddress(raw)
			require.NoError(t, err, raw)
			assert.NotEmpty(t, addr.Local)
			assert.NotEmpty(t, addr.Domain)
		}
	})

	t.Run("normalizes case and whitespace", func(t *testing.T) {
		addr, err := c.ParseAddress("  John.Doe@Example.COM  ")
		require.NoError(t, err)
		assert.Equal(t, "john.doe", addr.Local)
		assert.Equal(t, "example.com", addr.Domain)
		assert.Equal(t, "john.doe@example.com", addr.String())
	})

	t.Run("invalid addresses", func(t *testing.T) {
		for _, raw := range []string{
			"",
			"plainstring",
			"invalid@@@domain",
			"@nodomain.com",
			"nolocal@",
			".leading@example.com",
			"trailing.@example.com",
			"double..dot@example.com",
			"user@.example.com",
			"user@example.com.",
			"user@nodot",
		} {
			_, err := c.ParseAddress(raw)
			require.Error(t, err, raw)
			assert.True(t, errors.Is(err, ErrSyntaxInvalid), raw)
		}
	})

	t.Run("length limits", func(t *testing.T) {
		long := make([]byte, 65)
		for i := range long {
			long[i] = 'a'
		}
		_, err := c.ParseAddress(string(long) + "@example.com")
		assert.ErrorIs(t, err, ErrSyntaxInvalid)
	})
}

func TestIsDisposable(t *testing.T) {
	c := NewClassifier()
	assert.True(t, c.IsDisposable("tempmail.com"))
	assert.True(t, c.IsDisposable("Mailinator.COM"))
	assert.True(t, c.IsDisposable("10minutemail.com"))
	assert.False(t, c.IsDisposable("gmail.com"))
	assert.False(t, c.IsDisposable("company.com"))
}

func TestIsRoleBased(t *testing.T) {
	c := NewClassifier()
	assert.True(t, c.IsRoleBased("info"))
	assert.True(t, c.IsRoleBased("Support"))
	assert.True(t, c.IsRoleBased("support.emea"))
	assert.True(t, c.IsRoleBased("sales+q3"))
	assert.True(t, c.IsRoleBased("admin-eu"))
	assert.False(t, c.IsRoleBased("john.doe"))
	assert.False(t, c.IsRoleBased("information")) // prefix alone is not a match
}

func TestSuggestDomain(t *testing.T) {
	c := NewClassifier()

	suggestion, ok := c.SuggestDomain("gmial.com")
	require.True(t, ok)
	assert.Equal(t, "gmail.com", suggestion)

	// Edit-distance fallback outside the curated map.
	suggestion, ok = c.SuggestDomain("gmaik.com")
	require.True(t, ok)
	assert.Equal(t, "gmail.com", suggestion)

	// Known providers never trigger a suggestion.
	_, ok = c.SuggestDomain("gmail.com")
	assert.False(t, ok)

	// Arbitrary business domains are left alone.
	_, ok = c.SuggestDomain("mycompany.com")
	assert.False(t, ok)
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 0, editDistance("gmail.com", "gmail.com"))
	assert.Equal(t, 1, editDistance("gmaik.com", "gmail.com"))
	assert.Equal(t, 1, editDistance("gmail.co", "gmail.com"))
	assert.Equal(t, 2, editDistance("gmial.com", "gmail.com")) // transposition costs two edits
	assert.Equal(t, 3, editDistance("abc", "xyz"))
}
