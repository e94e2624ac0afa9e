package utils

import (
	"bytes"

	"github.com/mogaika/ape_browser/config"

	"golang.org/x/text/transform"
)

// BytesToString decodes a fixed-size nul-padded name buffer using the
// configured single-byte encoding.
func BytesToString(bs []byte) string {
	n := bytes.IndexByte(bs, 0)
	if n < 0 {
		n = len(bs)
	}

	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs[0:n])
	if err != nil {
		panic(err)
	}

	return string(s)
}
