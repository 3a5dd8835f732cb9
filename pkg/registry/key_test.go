package registry

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{in: "greeter"},
		{in: "greeter/english"},
		{in: "io.clock_v2"},
		{in: "0day-notifier"},
		{in: "", wantErr: true},
		{in: "Greeter", wantErr: true},
		{in: "/greeter", wantErr: true},
		{in: "greeter key", wantErr: true},
		{in: strings.Repeat("k", maxKeyLen)},
		{in: strings.Repeat("k", maxKeyLen+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			k, err := ParseKey(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in, string(k))
		})
	}
}

func TestMustKey(t *testing.T) {
	assert.Equal(t, Key("clock"), MustKey("clock"))
	assert.Panics(t, func() { MustKey("NOPE") })
	assert.Panics(t, func() { Declare[greeter]("") })
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "<empty>", Key("").String())
	assert.True(t, Key("").IsZero())
	assert.Equal(t, "clock", Key("clock").String())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: Shared},
		{in: "shared", want: Shared},
		{in: "exclusive", want: Exclusive},
		{in: "primary", want: Exclusive},
		{in: "weak", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseResolution(t *testing.T) {
	got, err := ParseResolution("primary_only")
	require.NoError(t, err)
	assert.Equal(t, ResolvePrimaryOnly, got)
	assert.Equal(t, "primary_only", got.String())

	got, err = ParseResolution("")
	require.NoError(t, err)
	assert.Equal(t, ResolveFallback, got)

	_, err = ParseResolution("strict")
	assert.Error(t, err)
}

func TestEntryInfo_JSON(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterPrimary(greeterKey, &englishGreeter{}))

	data, err := json.Marshal(r.Snapshot()[0])
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "greeter", decoded["capability"])
	assert.Equal(t, "exclusive", decoded["mode"])
	assert.Equal(t, "borrowed", decoded["ownership"])
	assert.Equal(t, true, decoded["primary"])
	assert.NotContains(t, decoded, "name")
}

func TestEntryInfo_RoundTrip(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterMulti(greeterKey, &pirateGreeter{}))
	want := r.Snapshot()[0]

	data, err := json.Marshal(want)
	require.NoError(t, err)

	var got EntryInfo
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, Shared, got.Mode)
	assert.Equal(t, Borrowed, got.Ownership)
	assert.True(t, want.RegisteredAt.Equal(got.RegisteredAt))

	var o Ownership
	assert.Error(t, o.UnmarshalText([]byte("leased")))
	require.NoError(t, o.UnmarshalText([]byte("owned")))
	assert.Equal(t, Owned, o)
}
