// Package version parses the firmware version reported in SysInfo.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Protocol is the provisioning protocol revision implemented by this module.
const Protocol = "1.0"

// Firmware is a parsed "major.minor.patch.build" version. Trailing
// components may be omitted and default to zero.
type Firmware struct {
	Major uint16
	Minor uint16
	Patch uint16
	Build uint16
}

// Parse parses a firmware version of one to four dot-separated components.
func Parse(s string) (Firmware, error) {
	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return Firmware{}, fmt.Errorf("invalid version %q: more than four components", s)
	}

	var words [4]uint16
	for i, p := range parts {
		if p == "" {
			return Firmware{}, fmt.Errorf("invalid version %q: empty component %d", s, i)
		}
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return Firmware{}, fmt.Errorf("invalid version %q: bad component %d", s, i)
		}
		words[i] = uint16(n)
	}
	return FromWords(words), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Firmware {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FromWords builds a Firmware from the four SysInfo version words.
func FromWords(w [4]uint16) Firmware {
	return Firmware{Major: w[0], Minor: w[1], Patch: w[2], Build: w[3]}
}

// Words returns the version as the four SysInfo module version words.
func (v Firmware) Words() [4]uint16 {
	return [4]uint16{v.Major, v.Minor, v.Patch, v.Build}
}

// String returns the version as "major.minor.patch.build".
func (v Firmware) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
}

// Compare returns -1, 0 or 1 as v is older than, equal to, or newer than other.
func (v Firmware) Compare(other Firmware) int {
	a, b := v.Words(), other.Words()
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// Compatible returns true if the other version has the same major version.
func (v Firmware) Compatible(other Firmware) bool {
	return v.Major == other.Major
}
