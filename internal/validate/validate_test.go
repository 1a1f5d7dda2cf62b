package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymnotify/internal/models"
)

const cc = "+84"

func TestPhoneNormalization(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"already e164", "+12345678900", "+12345678900", false},
		{"dashes and spaces", "+1 (234) 567-8900", "+12345678900", false},
		{"local with trunk zero", "0912345678", "+84912345678", false},
		{"local without trunk zero", "912345678", "+84912345678", false},
		{"letters only", "not-a-number", "", true},
		{"empty", "", "", true},
		{"too long", "+1234567890123456789", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Recipient(tt.raw, models.ChannelSMS, cc)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPhoneIdempotent(t *testing.T) {
	once, err := Recipient("0912 345 678", models.ChannelSMS, cc)
	require.NoError(t, err)
	twice, err := Recipient(once, models.ChannelSMS, cc)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestEmail(t *testing.T) {
	got, err := Recipient("  Member@Example.COM ", models.ChannelEmail, cc)
	require.NoError(t, err)
	assert.Equal(t, "member@example.com", got)

	// re-validating the canonical form is stable
	again, err := Recipient(got, models.ChannelEmail, cc)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	for _, bad := range []string{"plainaddress", "missing@tld", "@nolocal.com", "two@@example.com", "spaces in@example.com"} {
		_, err := Recipient(bad, models.ChannelEmail, cc)
		assert.ErrorIs(t, err, ErrInvalidFormat, bad)
	}
}

func TestUnsupportedChannel(t *testing.T) {
	_, err := Recipient("+12345678900", models.Channel("fax"), cc)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestMask(t *testing.T) {
	raw := "+12345678900"
	masked := Mask(raw)
	assert.NotEqual(t, raw, masked)
	assert.Equal(t, "+123****8900", masked)

	// short inputs leak nothing
	assert.Equal(t, "****", Mask("+1234"))
	assert.Equal(t, "****", Mask(""))
}
