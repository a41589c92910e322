package discovery

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeEmulatorTXT creates the TXT records of an emulator.
func EncodeEmulatorTXT(info *EmulatorInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyDeviceID: info.DeviceID,
		TXTKeyPath:     info.Path,
	}
	if info.Firmware != "" {
		txt[TXTKeyFirmware] = info.Firmware
	}
	if info.Release != "" {
		txt[TXTKeyRelease] = info.Release
	}
	if info.Protocol != "" {
		txt[TXTKeyProtocol] = info.Protocol
	}
	return txt
}

// DecodeEmulatorTXT parses the TXT records of an emulator.
func DecodeEmulatorTXT(txt TXTRecordMap) (*EmulatorInfo, error) {
	id, ok := txt[TXTKeyDeviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyDeviceID)
	}
	if _, err := hex.DecodeString(id); err != nil || id == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDeviceID, id)
	}
	path, ok := txt[TXTKeyPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyPath)
	}
	return &EmulatorInfo{
		DeviceID: strings.ToLower(id),
		Path:     path,
		Firmware: txt[TXTKeyFirmware],
		Release:  txt[TXTKeyRelease],
		Protocol: txt[TXTKeyProtocol],
	}, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if found {
			txt[k] = v
		} else if k != "" {
			// Key without value (boolean flag)
			txt[k] = ""
		}
	}
	return txt
}
