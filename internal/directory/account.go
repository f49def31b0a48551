package directory

import (
	"strconv"
	"strings"
)

// userAccountControl flags used by this service. See MS-ADTS 2.2.16.
const (
	UACAccountDisable int64 = 0x0002
	UACNormalAccount  int64 = 0x0200
)

// IsDisabled reports whether the ACCOUNTDISABLE bit is set.
func IsDisabled(uac int64) bool {
	return uac&UACAccountDisable == UACAccountDisable
}

// WithDisabled sets or clears ACCOUNTDISABLE and leaves every other flag as
// it was, so 512 becomes 514 and 66048 becomes 66050.
func WithDisabled(uac int64, disabled bool) int64 {
	if disabled {
		return uac | UACAccountDisable
	}
	return uac &^ UACAccountDisable
}

// ParseUAC parses the decimal attribute value. Missing or malformed values
// report ok=false.
func ParseUAC(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func FormatUAC(uac int64) string {
	return strconv.FormatInt(uac, 10)
}
