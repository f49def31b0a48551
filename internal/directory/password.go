package directory

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

// EncodePassword renders a password the way Active Directory expects it in
// unicodePwd: wrapped in double quotes and encoded as UTF-16LE without BOM.
func EncodePassword(password string) (string, error) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	encoded, err := enc.String(`"` + password + `"`)
	if err != nil {
		return "", fmt.Errorf("encode password: %w", err)
	}
	return encoded, nil
}
