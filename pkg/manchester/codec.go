package manchester

// EncodedLen returns the encoded length of n payload bytes.
func EncodedLen(n int) int {
	return n * 2
}

// DecodedLen returns the payload length of n encoded bytes.
func DecodedLen(n int) int {
	return n / 2
}

// Encode encodes payload into a new frame.
func Encode(payload []byte, std Standard) ([]byte, error) {
	if !std.IsValid() {
		return nil, ErrStandard
	}
	encoded := make([]byte, EncodedLen(len(payload)))
	if _, err := EncodeTo(encoded, payload, std); err != nil {
		return nil, err
	}
	return encoded, nil
}

// EncodeTo encodes payload into dst and returns the number of bytes
// written. It doesn't allocate.
func EncodeTo(dst, payload []byte, std Standard) (int, error) {
	t, err := std.table()
	if err != nil {
		return 0, err
	}
	n := EncodedLen(len(payload))
	if len(dst) < n {
		return 0, shortBuffer(n, len(dst))
	}
	for i, b := range payload {
		var acc uint16
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			acc <<= 2
			if b&mask != 0 {
				acc |= uint16(t.symbol[1])
			} else {
				acc |= uint16(t.symbol[0])
			}
		}
		dst[2*i], dst[2*i+1] = byte(acc>>8), byte(acc)
	}
	return n, nil
}

// Decode decodes a frame into a new payload. On error the result is nil.
func Decode(encoded []byte, std Standard) ([]byte, error) {
	if len(encoded)%2 != 0 {
		return nil, ErrSize
	}
	if !std.IsValid() {
		return nil, ErrStandard
	}
	payload := make([]byte, DecodedLen(len(encoded)))
	if _, err := DecodeTo(payload, encoded, std); err != nil {
		return nil, err
	}
	return payload, nil
}

// DecodeTo decodes encoded into dst and returns the number of bytes
// written. The input is validated completely before anything is
// written, so dst is left untouched on error.
func DecodeTo(dst, encoded []byte, std Standard) (int, error) {
	if len(encoded)%2 != 0 {
		return 0, ErrSize
	}
	t, err := std.table()
	if err != nil {
		return 0, err
	}
	if err := validateSymbols(encoded); err != nil {
		return 0, err
	}
	n := DecodedLen(len(encoded))
	if len(dst) < n {
		return 0, shortBuffer(n, len(dst))
	}
	for i := 0; i < n; i++ {
		chunk := uint16(encoded[2*i])<<8 | uint16(encoded[2*i+1])
		var b byte
		for shift := 14; shift >= 0; shift -= 2 {
			b = b<<1 | t.bit[byte(chunk>>uint(shift))&0x3]
		}
		dst[i] = b
	}
	return n, nil
}

// Validate checks encoded is a well formed frame under any standard:
// even length and only 01 or 10 symbols.
func Validate(encoded []byte) error {
	if len(encoded)%2 != 0 {
		return ErrSize
	}
	return validateSymbols(encoded)
}

func validateSymbols(encoded []byte) error {
	for i, b := range encoded {
		for shift := 6; shift >= 0; shift -= 2 {
			// 00 and 11 are the symbols whose two halves are equal.
			if sym := (b >> uint(shift)) & 0x3; sym == 0x0 || sym == 0x3 {
				return &SymbolError{Offset: i, Symbol: sym}
			}
		}
	}
	return nil
}
