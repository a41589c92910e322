package wifi

import "strings"

// Security is the 32-bit security code carried in CONFIG_AP_ENTRY and
// NOTIFY_AP. Bits follow the Broadcom WICED layout.
type Security uint32

// Security flag bits.
const (
	SecWEP        Security = 0x00000001
	SecTKIP       Security = 0x00000002
	SecAES        Security = 0x00000004
	SecShared     Security = 0x00008000
	SecWPA        Security = 0x00200000
	SecWPA2       Security = 0x00400000
	SecEnterprise Security = 0x02000000
	SecWPS        Security = 0x10000000
)

// Common security codes.
const (
	SecurityOpen         Security = 0
	SecurityWEPPSK       Security = SecWEP
	SecurityWEPShared    Security = SecWEP | SecShared
	SecurityWPATKIPPSK   Security = SecWPA | SecTKIP
	SecurityWPAAESPSK    Security = SecWPA | SecAES
	SecurityWPA2AESPSK   Security = SecWPA2 | SecAES
	SecurityWPA2TKIPPSK  Security = SecWPA2 | SecTKIP
	SecurityWPA2MixedPSK Security = SecWPA2 | SecAES | SecTKIP
	SecurityWPA2AESEnt   Security = SecEnterprise | SecWPA2 | SecAES
	SecurityWPSOpen      Security = SecWPS
	SecurityWPSSecure    Security = SecWPS | SecAES
)

// Open reports whether no key is needed.
func (s Security) Open() bool {
	return s&^SecWPS == 0
}

// WEP reports whether s is a WEP mode.
func (s Security) WEP() bool {
	return s&SecWEP != 0
}

// PSK reports whether s is WPA or WPA2 with a pre-shared key.
func (s Security) PSK() bool {
	return s&(SecWPA|SecWPA2) != 0 && s&SecEnterprise == 0
}

// Enterprise reports whether s requires 802.1X.
func (s Security) Enterprise() bool {
	return s&SecEnterprise != 0
}

// String returns a name such as WPA2_AES_PSK, or OPEN.
func (s Security) String() string {
	switch s {
	case SecurityOpen:
		return "OPEN"
	case SecurityWEPPSK:
		return "WEP_PSK"
	case SecurityWEPShared:
		return "WEP_SHARED"
	case SecurityWPSOpen:
		return "WPS_OPEN"
	case SecurityWPSSecure:
		return "WPS_SECURE"
	}

	var parts []string
	switch {
	case s&SecWPA2 != 0 && s&SecWPA != 0:
		parts = append(parts, "WPA_WPA2")
	case s&SecWPA2 != 0:
		parts = append(parts, "WPA2")
	case s&SecWPA != 0:
		parts = append(parts, "WPA")
	case s&SecWEP != 0:
		parts = append(parts, "WEP")
	}
	switch {
	case s&SecAES != 0 && s&SecTKIP != 0:
		parts = append(parts, "MIXED")
	case s&SecAES != 0:
		parts = append(parts, "AES")
	case s&SecTKIP != 0:
		parts = append(parts, "TKIP")
	}
	if s&SecEnterprise != 0 {
		parts = append(parts, "ENT")
	} else if s&(SecWPA|SecWPA2) != 0 {
		parts = append(parts, "PSK")
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "_")
}

// ParseSecurity accepts the names produced by String.
func ParseSecurity(name string) (Security, bool) {
	for _, s := range []Security{
		SecurityOpen, SecurityWEPPSK, SecurityWEPShared,
		SecurityWPATKIPPSK, SecurityWPAAESPSK,
		SecurityWPA2AESPSK, SecurityWPA2TKIPPSK, SecurityWPA2MixedPSK,
		SecurityWPA2AESEnt, SecurityWPSOpen, SecurityWPSSecure,
		SecWPA | SecWPA2 | SecAES,
	} {
		if strings.EqualFold(s.String(), name) {
			return s, true
		}
	}
	return 0, false
}
