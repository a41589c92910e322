package nm

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/wifiprov/wifiprov-go/pkg/wifi"
)

// NetworkManager 802.11 flag bits.
const (
	apFlagPrivacy = 0x1

	secPairTKIP     = 0x4
	secPairCCMP     = 0x8
	secGroupTKIP    = 0x40
	secGroupCCMP    = 0x80
	secKeyMgmt8021X = 0x200
	secKeyMgmtSAE   = 0x400
)

// SecurityFromFlags maps AccessPoint Flags, WpaFlags and RsnFlags to a
// security code.
func SecurityFromFlags(flags, wpa, rsn uint32) wifi.Security {
	var s wifi.Security
	if wpa != 0 {
		s |= wifi.SecWPA
	}
	if rsn != 0 {
		s |= wifi.SecWPA2
	}
	all := wpa | rsn
	if all&(secPairCCMP|secGroupCCMP) != 0 {
		s |= wifi.SecAES
	}
	if all&(secPairTKIP|secGroupTKIP) != 0 {
		s |= wifi.SecTKIP
	}
	if all&secKeyMgmt8021X != 0 {
		s |= wifi.SecEnterprise
	}
	if all&secKeyMgmtSAE != 0 && s&wifi.SecAES == 0 {
		s |= wifi.SecAES
	}
	if s == 0 && flags&apFlagPrivacy != 0 {
		s = wifi.SecurityWEPPSK
	}
	return s
}

// StrengthToRSSI converts a 0-100 signal quality to dBm.
func StrengthToRSSI(strength uint8) int16 {
	if strength > 100 {
		strength = 100
	}
	return int16(strength)/2 - 100
}

// ConnectionSettings builds the AddAndActivateConnection settings for cred.
func ConnectionSettings(cred wifi.Credential, id string) map[string]map[string]dbus.Variant {
	s := map[string]map[string]dbus.Variant{
		"connection": {
			"id":   dbus.MakeVariant("wifiprov " + cred.SSID),
			"uuid": dbus.MakeVariant(id),
			"type": dbus.MakeVariant("802-11-wireless"),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte(cred.SSID)),
			"mode": dbus.MakeVariant("infrastructure"),
		},
		"ipv4": {"method": dbus.MakeVariant("auto")},
		"ipv6": {"method": dbus.MakeVariant("auto")},
	}

	switch {
	case cred.Security.PSK():
		s["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"psk":      dbus.MakeVariant(cred.Key),
		}
	case cred.Security.WEP():
		auth := "open"
		if cred.Security&wifi.SecShared != 0 {
			auth = "shared"
		}
		s["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt":     dbus.MakeVariant("none"),
			"auth-alg":     dbus.MakeVariant(auth),
			"wep-key0":     dbus.MakeVariant(cred.Key),
			"wep-key-type": dbus.MakeVariant(uint32(1)),
		}
	}
	return s
}

// LookupARP finds the hardware address of ip in a /proc/net/arp style table.
func LookupARP(path string, ip net.IP) (net.HardwareAddr, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Scan() // header
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || !net.ParseIP(fields[0]).Equal(ip) {
			continue
		}
		mac, err := net.ParseMAC(fields[3])
		if err != nil {
			return nil, err
		}
		return mac, nil
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%s not in %s", ip, path)
}
