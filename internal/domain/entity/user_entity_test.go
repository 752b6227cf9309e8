package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Run("ValidInput", func(t *testing.T) {
		u, err := NewUser("user@example.com", "SecurePass123")
		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.Equal(t, "user@example.com", u.Email)
		assert.Equal(t, "SecurePass123", u.Password)
		assert.True(t, u.Active)
		assert.False(t, u.CreatedAt.IsZero())
		assert.Equal(t, u.CreatedAt, u.UpdatedAt)
	})

	t.Run("FreshIDPerUser", func(t *testing.T) {
		a, err := NewUser("a@example.com", "SecurePass123")
		require.NoError(t, err)
		b, err := NewUser("b@example.com", "SecurePass123")
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		for _, email := range []string{"", "not-an-email", "missing@tld@x", "a b@example.com"} {
			_, err := NewUser(email, "SecurePass123")
			var verr *ValidationError
			require.ErrorAs(t, err, &verr, "email %q", email)
			assert.Equal(t, "email", verr.Field)
			assert.Equal(t, ReasonInvalidEmail, verr.Reason)
		}
	})

	t.Run("PasswordPolicy", func(t *testing.T) {
		cases := []struct {
			name     string
			password string
			reason   string
		}{
			{"TooShort", "Ab1", ReasonTooShort},
			{"NoUppercase", "abcdefg1", ReasonNoUppercase},
			{"NoLowercase", "ABCDEFG1", ReasonNoLowercase},
			{"NoDigit", "Abcdefgh", ReasonNoDigit},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := NewUser("user@example.com", tc.password)
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "password", verr.Field)
				assert.Equal(t, tc.reason, verr.Reason)
			})
		}
	})
}

func TestTouchStrictlyIncreases(t *testing.T) {
	u, err := NewUser("user@example.com", "SecurePass123")
	require.NoError(t, err)

	prev := u.UpdatedAt
	for i := 0; i < 5; i++ {
		u.Touch()
		assert.True(t, u.UpdatedAt.After(prev), "iteration %d", i)
		prev = u.UpdatedAt
	}
	assert.True(t, u.UpdatedAt.After(u.CreatedAt) || u.UpdatedAt.Equal(u.CreatedAt))
}

func TestDocumentShapes(t *testing.T) {
	u, err := NewUser("user@example.com", "SecurePass123")
	require.NoError(t, err)
	u.Extra = map[string]any{"display_name": "Sam", "locale": "en-GB"}

	doc := u.Document()
	assert.Equal(t, u.ID, doc["id"])
	assert.Equal(t, "SecurePass123", doc["password"])
	assert.Equal(t, "Sam", doc["display_name"])

	profile := u.Profile()
	assert.NotContains(t, profile, "password")
	assert.Equal(t, "en-GB", profile["locale"])
	// Profile must not alias the document it was derived from.
	assert.Contains(t, u.Document(), "password")
}

func TestUserFromDocument(t *testing.T) {
	u, err := NewUser("user@example.com", "SecurePass123")
	require.NoError(t, err)
	u.Extra = map[string]any{"display_name": "Sam"}

	got, err := UserFromDocument(u.Document())
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, u.Password, got.Password)
	assert.True(t, got.Active)
	assert.True(t, u.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, "Sam", got.Extra["display_name"])

	t.Run("MissingID", func(t *testing.T) {
		_, err := UserFromDocument(map[string]any{"email": "x@y.com"})
		assert.Error(t, err)
	})

	t.Run("BadTimestamp", func(t *testing.T) {
		_, err := UserFromDocument(map[string]any{"id": "u1", "created_at": "yesterday"})
		assert.Error(t, err)
	})
}
