package xml

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/fiscalfacil/audit-service/internal/model"
)

// decode normalizes raw document bytes to UTF-8. UTF-8 is attempted
// first; invalid byte sequences fall back to ISO-8859-1, which older
// municipal systems still emit.
func decode(raw []byte) ([]byte, error) {
	if utf8.Valid(raw) {
		return raw, nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, model.NewParseError(model.ParseErrEncoding, "document",
			"content is neither valid UTF-8 nor ISO-8859-1", err)
	}
	return out, nil
}
