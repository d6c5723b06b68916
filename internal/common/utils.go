package common

// WipeByteArray overwrites b with zeros. Used on password buffers read from
// the terminal once they have been handed over. Nil-safe.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
