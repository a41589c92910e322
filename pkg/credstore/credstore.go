// Package credstore keeps the Wi-Fi credential delivered over BLE and the
// BSSID of the network it joined.
//
// Only the derived key is stored: WPA passphrases are turned into the
// 256-bit PSK before they reach a backend.
package credstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net"

	"golang.org/x/crypto/pbkdf2"

	"github.com/wifiprov/wifiprov-go/pkg/wifi"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

// Validation errors.
var (
	ErrInvalidSSID     = errors.New("invalid ssid")
	ErrInvalidKey      = errors.New("invalid key")
	ErrUnsupported     = errors.New("unsupported security")
	ErrSSIDMismatch    = errors.New("ssid does not match stored credential")
)

// Store is the credential store used by the provisioning service and the
// Wi-Fi provisioner.
type Store interface {
	AddCredentials(ctx context.Context, entry wire.ConfigAPEntry) error
	ConfiguredBSSID(ctx context.Context) (net.HardwareAddr, bool)
	Credential(ctx context.Context) (wifi.Credential, error)
	RecordJoin(ctx context.Context, ssid string, bssid net.HardwareAddr) error
	Close() error
}

// Compile-time interface satisfaction checks.
var (
	_ Store                 = (*Memory)(nil)
	_ Store                 = (*SQLite)(nil)
	_ wifi.CredentialSource = (*Memory)(nil)
	_ wifi.CredentialSource = (*SQLite)(nil)
)

// Derive validates entry and returns the credential to store.
func Derive(entry wire.ConfigAPEntry) (wifi.Credential, error) {
	if len(entry.SSID) == 0 || len(entry.SSID) > wire.MaxSSIDLength {
		return wifi.Credential{}, fmt.Errorf("%w: length %d", ErrInvalidSSID, len(entry.SSID))
	}
	sec := wifi.Security(entry.Security)
	cred := wifi.Credential{SSID: entry.SSID, Security: sec, Channel: entry.Channel}

	switch {
	case sec.Enterprise():
		return wifi.Credential{}, fmt.Errorf("%w: %s", ErrUnsupported, sec)
	case sec.PSK():
		key, err := PSK(entry.SSID, entry.Key)
		if err != nil {
			return wifi.Credential{}, err
		}
		cred.Key = key
	case sec.WEP():
		switch len(entry.Key) {
		case 5, 13:
			cred.Key = hex.EncodeToString([]byte(entry.Key))
		case 10, 26:
			if _, err := hex.DecodeString(entry.Key); err != nil {
				return wifi.Credential{}, fmt.Errorf("%w: wep key is not hex", ErrInvalidKey)
			}
			cred.Key = entry.Key
		default:
			return wifi.Credential{}, fmt.Errorf("%w: wep key length %d", ErrInvalidKey, len(entry.Key))
		}
	case sec.Open():
		if entry.Key != "" {
			return wifi.Credential{}, fmt.Errorf("%w: key given for open network", ErrInvalidKey)
		}
	default:
		return wifi.Credential{}, fmt.Errorf("%w: %s", ErrUnsupported, sec)
	}
	return cred, nil
}

// PSK returns the WPA pre-shared key for ssid as 64 hex digits. A key that
// already is 64 hex digits is returned unchanged; otherwise it must be an
// 8 to 63 character passphrase.
func PSK(ssid, key string) (string, error) {
	if len(key) == 64 {
		if _, err := hex.DecodeString(key); err != nil {
			return "", fmt.Errorf("%w: 64 character key is not hex", ErrInvalidKey)
		}
		return key, nil
	}
	if len(key) < 8 || len(key) > 63 {
		return "", fmt.Errorf("%w: passphrase length %d", ErrInvalidKey, len(key))
	}
	for i := 0; i < len(key); i++ {
		if key[i] < 0x20 || key[i] > 0x7e {
			return "", fmt.Errorf("%w: passphrase must be printable ascii", ErrInvalidKey)
		}
	}
	return hex.EncodeToString(pbkdf2.Key([]byte(key), []byte(ssid), 4096, 32, sha1.New)), nil
}
