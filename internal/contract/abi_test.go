package contract

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeCallTransfer(t *testing.T) {
	data, err := EncodeCall("transfer", []Param{
		{Type: "address", Value: "0x00000000000000000000000000000000000003ea"},
		{Type: "uint256", Value: "1000"},
	})
	require.NoError(t, err)
	require.Len(t, data, 4+32+32)
	require.Equal(t, "a9059cbb", hex.EncodeToString(data[:4]))
	require.Equal(t, "00000000000000000000000000000000000000000000000000000000000003ea", hex.EncodeToString(data[4:36]))
	require.Equal(t, "00000000000000000000000000000000000000000000000000000000000003e8", hex.EncodeToString(data[36:]))
}

func TestEncodeArgsSmallIntsAndFixedBytes(t *testing.T) {
	data, err := EncodeArgs([]Param{
		{Type: "uint8", Value: float64(7)},
		{Type: "int64", Value: "-2"},
		{Type: "bytes4", Value: "0xdeadbeef"},
		{Type: "bool", Value: true},
	})
	require.NoError(t, err)
	require.Len(t, data, 4*32)
	require.Equal(t, byte(7), data[31])
	require.Equal(t, byte(0xfe), data[63])
	require.Equal(t, "deadbeef", hex.EncodeToString(data[64:68]))
	require.Equal(t, byte(1), data[127])
}

func TestEncodeRejectsBadValues(t *testing.T) {
	cases := []Param{
		{Type: "address", Value: "not-an-address"},
		{Type: "uint8", Value: "256"},
		{Type: "int8", Value: "-129"},
		{Type: "uint256", Value: "-1"},
		{Type: "bool", Value: "yes"},
		{Type: "bytes2", Value: "0x010203"},
		{Type: "mystery", Value: "1"},
	}
	for _, p := range cases {
		_, err := EncodeArgs([]Param{p})
		require.Error(t, err, "type %s value %v", p.Type, p.Value)
	}

	_, err := EncodeCall("", nil)
	require.Error(t, err)
}
