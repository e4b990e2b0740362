package sigma

// MarshalAdapter runs a serializer against a fresh Writer and returns the
// accumulated bytes.
func MarshalAdapter(marshal func(*Writer) error) ([]byte, error) {
	w := NewWriter()
	err := marshal(w)
	if err != nil {
		return nil, err
	}
	return w.BytesW.Bytes(), nil
}

// UnmarshalAdapter runs a deserializer against raw, converting codec panics
// into errors and enforcing that the whole input was consumed.
func UnmarshalAdapter(raw []byte, unmarshal func(*Reader) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if r == ErrNonCanonicalEncoding || r == ErrUnsupportedType {
				err = r.(error)
			} else {
				err = ErrMalformedEncoding
			}
		}
	}()

	reader := NewReader(raw)
	err = unmarshal(reader)
	if err != nil {
		return err
	}
	if !reader.BytesR.Empty() {
		return ErrNonCanonicalEncoding
	}
	return nil
}
