package discovery

import (
	"errors"
	"net"
	"reflect"
	"testing"

	"github.com/enbility/zeroconf/v3"
)

func TestEmulatorTXTRoundTrip(t *testing.T) {
	info := &EmulatorInfo{
		DeviceID: "deadbeef0000000000000000",
		Firmware: "1.2.0.7",
		Release:  "wifiprov",
		Path:     "/gatt",
		Protocol: "1.0",
	}

	got, err := DecodeEmulatorTXT(StringsToTXTRecords(TXTRecordsToStrings(EncodeEmulatorTXT(info))))
	if err != nil {
		t.Fatalf("DecodeEmulatorTXT: %v", err)
	}
	if *got != *info {
		t.Errorf("got %+v, want %+v", got, info)
	}
}

func TestDecodeEmulatorTXTErrors(t *testing.T) {
	tests := []struct {
		name string
		txt  TXTRecordMap
		want error
	}{
		{"missing id", TXTRecordMap{TXTKeyPath: "/gatt"}, ErrMissingRequired},
		{"empty id", TXTRecordMap{TXTKeyDeviceID: "", TXTKeyPath: "/gatt"}, ErrInvalidDeviceID},
		{"non-hex id", TXTRecordMap{TXTKeyDeviceID: "xyz", TXTKeyPath: "/gatt"}, ErrInvalidDeviceID},
		{"missing path", TXTRecordMap{TXTKeyDeviceID: "00ff"}, ErrMissingRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEmulatorTXT(tt.txt)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStringsToTXTRecords(t *testing.T) {
	got := StringsToTXTRecords([]string{"id=00ff", "flag", "path=/a=b", ""})
	want := TXTRecordMap{"id": "00ff", "flag": "", "path": "/a=b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestInstanceName(t *testing.T) {
	info := &EmulatorInfo{DeviceID: "deadbeef0000000000000000"}
	if got, want := info.InstanceName(), "wifiprov-deadbeef0000000000000000"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	long := &EmulatorInfo{DeviceID: string(make([]byte, 100))}
	if got := len(long.InstanceName()); got != MaxInstanceNameLen {
		t.Errorf("got length %d, want %d", got, MaxInstanceNameLen)
	}
}

func TestEmulatorServiceURL(t *testing.T) {
	tests := []struct {
		name string
		svc  EmulatorService
		want string
	}{
		{"ipv4", EmulatorService{Addresses: []string{"192.168.1.5"}, Port: 8080, Path: "/gatt"}, "ws://192.168.1.5:8080/gatt"},
		{"ipv6", EmulatorService{Addresses: []string{"fe80::1"}, Port: 9000, Path: "/gatt"}, "ws://[fe80::1]:9000/gatt"},
		{"relative path", EmulatorService{Addresses: []string{"10.0.0.1"}, Port: 1, Path: "gatt"}, "ws://10.0.0.1:1/gatt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.svc.URL()
			if err != nil {
				t.Fatalf("URL: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := (&EmulatorService{InstanceName: "x"}).URL(); !errors.Is(err, ErrNotFound) {
		t.Errorf("no address: got %v, want ErrNotFound", err)
	}
}

func TestEntryToEmulator(t *testing.T) {
	entry := zeroconf.NewServiceEntry("wifiprov-00ff", ServiceType, Domain)
	entry.HostName = "dev.local."
	entry.Port = 8080
	entry.Text = []string{"id=00FF", "path=/gatt", "fw=1.0.0.0"}
	entry.AddrIPv4 = []net.IP{net.ParseIP("10.0.0.2")}
	entry.AddrIPv6 = []net.IP{net.ParseIP("fe80::2")}

	svc := entryToEmulator(entry)
	if svc == nil {
		t.Fatal("entryToEmulator returned nil")
	}
	if svc.DeviceID != "00ff" {
		t.Errorf("device id: got %q, want %q", svc.DeviceID, "00ff")
	}
	if want := []string{"10.0.0.2", "fe80::2"}; !reflect.DeepEqual(svc.Addresses, want) {
		t.Errorf("addresses: got %v, want %v", svc.Addresses, want)
	}

	entry.Text = []string{"path=/gatt"}
	if svc := entryToEmulator(entry); svc != nil {
		t.Errorf("got %+v for entry without id, want nil", svc)
	}
}

func TestMergeAndRemoveAddresses(t *testing.T) {
	addrs := mergeAddresses([]string{"10.0.0.2"}, []string{"10.0.0.2", "fe80::2"})
	if want := []string{"10.0.0.2", "fe80::2"}; !reflect.DeepEqual(addrs, want) {
		t.Errorf("merge: got %v, want %v", addrs, want)
	}

	entry := zeroconf.NewServiceEntry("wifiprov-00ff", ServiceType, Domain)
	entry.AddrIPv6 = []net.IP{net.ParseIP("fe80::2")}
	addrs = removeAddresses(addrs, entry)
	if want := []string{"10.0.0.2"}; !reflect.DeepEqual(addrs, want) {
		t.Errorf("remove: got %v, want %v", addrs, want)
	}
}

func TestAdvertiseRequiresFields(t *testing.T) {
	adv := NewMDNSAdvertiser(AdvertiserConfig{})
	defer adv.Stop()

	if err := adv.Advertise(t.Context(), &EmulatorInfo{Port: 8080}); !errors.Is(err, ErrMissingRequired) {
		t.Errorf("no id: got %v, want ErrMissingRequired", err)
	}
	if err := adv.Advertise(t.Context(), &EmulatorInfo{DeviceID: "00ff"}); !errors.Is(err, ErrMissingRequired) {
		t.Errorf("no port: got %v, want ErrMissingRequired", err)
	}
}
