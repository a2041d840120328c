package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		in      string
		perUnit uint64
		want    uint64
	}{
		{"", 1, 0},
		{"1500", 1, 1500},
		{"1.5ton", 1, 1_500_000_000},
		{"1.5 TON", 1000, 1_500_000},
		{"0.000000001ton", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseValue(tt.in, tt.perUnit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"-1", "abc", "1.2.3ton"} {
		_, err := parseValue(bad, 1)
		assert.Error(t, err, bad)
	}
}

func TestLoadKey(t *testing.T) {
	keyHex = ""
	_, err := loadKey()
	assert.Error(t, err)

	keyHex = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	k, err := loadKey()
	require.NoError(t, err)
	assert.Len(t, k, 64)

	keyHex = "abcd"
	_, err = loadKey()
	assert.Error(t, err)
}
