package promptpay

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTarget(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "local phone", raw: "0812345678", want: "0066812345678"},
		{name: "formatted phone", raw: "081-234-5678", want: "0066812345678"},
		{name: "already prefixed", raw: "0066812345678", want: "0066812345678"},
		{name: "national id", raw: "1234567890123", want: "1234567890123"},
		{name: "tax id 15 digits", raw: "123456789012345", want: "123456789012345"},
		{name: "too short", raw: "12345", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeTarget(tc.raw)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidTarget)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildPayloadStatic(t *testing.T) {
	builder := Builder{Target: "0812345678"}

	payload, err := builder.BuildPayload(nil)
	require.NoError(t, err)

	assert.Equal(t,
		"00020101021129370016A000000677010111011300668123456785204000053037645802TH5913Nine Krua POS6007Bangkok630444DE",
		payload,
	)
}

func TestBuildPayloadDynamicLocksAmount(t *testing.T) {
	builder := Builder{Target: "0812345678"}
	amount := decimal.RequireFromString("101.65")

	payload, err := builder.BuildPayload(&amount)
	require.NoError(t, err)

	assert.Equal(t,
		"00020101021229370016A000000677010111011300668123456785204000053037645802TH5913Nine Krua POS6007Bangkok5406101.656304F763",
		payload,
	)
	assert.Contains(t, payload, "0102"+"12", "dynamic QR must use point of initiation 12")
	assert.Contains(t, payload, "5406101.65")
}

func TestBuildPayloadNationalID(t *testing.T) {
	builder := Builder{Target: "1234567890123"}

	payload, err := builder.BuildPayload(nil)
	require.NoError(t, err)

	assert.Equal(t,
		"00020101021129370016A000000677010111011312345678901235204000053037645802TH5913Nine Krua POS6007Bangkok6304EFD4",
		payload,
	)
}

func TestBuildPayloadZeroAmountStaysStatic(t *testing.T) {
	builder := Builder{Target: "0812345678"}
	zero := decimal.Zero

	payload, err := builder.BuildPayload(&zero)
	require.NoError(t, err)
	assert.Contains(t, payload, "0102"+"11")
	assert.NotContains(t, payload, "5404")
}

func TestBuildPayloadRejectsBadTarget(t *testing.T) {
	builder := Builder{Target: "nope"}
	_, err := builder.BuildPayload(nil)
	require.ErrorIs(t, err, ErrInvalidTarget)
}

func TestCRC16CCITTKnownVector(t *testing.T) {
	// "123456789" is the canonical CRC-16/CCITT-FALSE check input.
	assert.Equal(t, uint16(0x29B1), crc16CCITT([]byte("123456789")))
}
