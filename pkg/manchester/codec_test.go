package manchester

import (
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

var standards = []Standard{IEEE, Thomas}

func TestVectors(t *testing.T) {
	testCases := []struct {
		name    string
		std     Standard
		payload []byte
		encoded []byte
	}{
		{"ieee 0xaa", IEEE, []byte{0xAA}, []byte{0x66, 0x66}},
		{"thomas 0x00", Thomas, []byte{0x00}, []byte{0x55, 0x55}},
		{"ieee 0x00", IEEE, []byte{0x00}, []byte{0xAA, 0xAA}},
		{"ieee 0xff", IEEE, []byte{0xFF}, []byte{0x55, 0x55}},
		{"thomas 0xaa", Thomas, []byte{0xAA}, []byte{0x99, 0x99}},
		{"ieee dead", IEEE, []byte{0xDE, 0xAD}, []byte{0x59, 0x56, 0x66, 0x59}},
		{"empty", IEEE, []byte{}, []byte{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := Encode(tc.payload, tc.std)
			require.NoError(t, err)
			require.Equal(t, tc.encoded, encoded)
			payload, err := Decode(tc.encoded, tc.std)
			require.NoError(t, err)
			require.Equal(t, tc.payload, payload)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, std := range standards {
		for n := 0; n < 64; n++ {
			payload := make([]byte, n)
			rnd.Read(payload)
			encoded, err := Encode(payload, std)
			require.NoError(t, err)
			require.Len(t, encoded, 2*n)
			decoded, err := Decode(encoded, std)
			require.NoError(t, err)
			require.Equal(t, payload, decoded)
		}
		for b := 0; b < 256; b++ {
			encoded, err := Encode([]byte{byte(b)}, std)
			require.NoError(t, err)
			require.NoError(t, Validate(encoded))
			decoded, err := Decode(encoded, std)
			require.NoError(t, err)
			require.Equal(t, []byte{byte(b)}, decoded)
		}
	}
}

func TestStandardsAreComplementary(t *testing.T) {
	payload := []byte{0x12, 0x34, 0xfe}
	ieee, err := Encode(payload, IEEE)
	require.NoError(t, err)
	thomas, err := Encode(payload, Thomas)
	require.NoError(t, err)
	for i := range ieee {
		require.Equal(t, ^ieee[i], thomas[i])
	}
}

func TestDecodeSize(t *testing.T) {
	for _, std := range []Standard{IEEE, Thomas, Standard(7)} {
		for _, in := range [][]byte{{0x12}, {0x66, 0x66, 0x66}, {0x00, 0x00, 0x00}} {
			_, err := Decode(in, std)
			require.True(t, errors.Is(err, ErrSize))
			require.Equal(t, StatusErrorSize, StatusOf(err))
		}
	}
}

func TestDecodeInvalidSymbol(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x00}, IEEE)
	require.True(t, errors.Is(err, ErrInvalidEncode))
	require.Equal(t, StatusInvalidEncode, StatusOf(err))

	valid, err := Encode([]byte{0x5a, 0xc3}, IEEE)
	require.NoError(t, err)
	for pos := 0; pos < len(valid)*4; pos++ {
		for _, bad := range []byte{0x0, 0x3} {
			in := append([]byte(nil), valid...)
			shift := uint(6 - 2*(pos%4))
			in[pos/4] = in[pos/4]&^(0x3<<shift) | bad<<shift
			for _, std := range standards {
				out, err := Decode(in, std)
				require.Nil(t, out)
				var symErr *SymbolError
				require.True(t, errors.As(err, &symErr), "pos %d", pos)
				require.Equal(t, pos/4, symErr.Offset)
				require.Equal(t, bad, symErr.Symbol)
			}
		}
	}
}

func TestDecodeToAllOrNothing(t *testing.T) {
	dst := []byte{0xee, 0xee}
	n, err := DecodeTo(dst, []byte{0x66, 0x66, 0x66, 0x67}, IEEE)
	require.Error(t, err)
	require.Zero(t, n)
	require.Equal(t, []byte{0xee, 0xee}, dst)
}

func TestBadStandard(t *testing.T) {
	for _, std := range []Standard{-1, 2, 100} {
		out, err := Encode([]byte{1, 2}, std)
		require.Nil(t, out)
		require.Equal(t, ErrStandard, err)
		out, err = Decode([]byte{0x66, 0x66}, std)
		require.Nil(t, out)
		require.Equal(t, ErrStandard, err)
		require.Equal(t, StatusErrorStandard, StatusOf(err))
	}
}

func TestEncodeToShortBuffer(t *testing.T) {
	dst := make([]byte, 3)
	_, err := EncodeTo(dst, []byte{1, 2}, IEEE)
	require.True(t, errors.Is(err, ErrSize))
	require.True(t, errors.Is(err, io.ErrShortBuffer))
}

func TestEncodeToNoAlloc(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x90}
	dst := make([]byte, EncodedLen(len(payload)))
	out := make([]byte, len(payload))
	allocs := testing.AllocsPerRun(100, func() {
		EncodeTo(dst, payload, Thomas)
		DecodeTo(out, dst, Thomas)
	})
	require.Zero(t, allocs)
	require.Equal(t, payload, out)
}

func TestParseStandard(t *testing.T) {
	std, err := ParseStandard("IEEE")
	require.NoError(t, err)
	require.Equal(t, IEEE, std)
	std, err = ParseStandard(" thomas ")
	require.NoError(t, err)
	require.Equal(t, Thomas, std)
	_, err = ParseStandard("nrz")
	require.True(t, errors.Is(err, ErrStandard))
	require.Equal(t, "thomas", Thomas.String())
}

func TestStatus(t *testing.T) {
	for _, s := range []Status{StatusOK, StatusInvalidEncode, StatusErrorStandard, StatusErrorSize, StatusWorking} {
		require.Equal(t, s, StatusOf(s.Err()))
	}
	require.Equal(t, StatusUnknown, StatusOf(io.EOF))
	require.Equal(t, "INVALID_ENCODE", StatusInvalidEncode.String())
}
