package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wifiprov/wifiprov-go/pkg/wifi"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

// FileVersion is the current version of the credential file format.
const FileVersion = 1

// FileState is the content of a credential file.
type FileState struct {
	// Version is the file format version.
	Version int `json:"version"`

	// SavedAt is when the file was last written.
	SavedAt time.Time `json:"saved_at"`

	// Credential is the stored credential, nil when none was delivered.
	Credential *FileCredential `json:"credential,omitempty"`

	// BSSID is the access point last joined with Credential.
	BSSID string `json:"bssid,omitempty"`

	// JoinedAt is when BSSID was recorded.
	JoinedAt time.Time `json:"joined_at,omitempty"`
}

// FileCredential mirrors wifi.Credential for JSON serialization. Key is the
// derived key, never the passphrase.
type FileCredential struct {
	SSID     string `json:"ssid"`
	Security uint32 `json:"security"`
	Channel  uint8  `json:"channel,omitempty"`
	Key      string `json:"key,omitempty"`
}

// File persists the credential in a JSON file. Every change rewrites the
// file through a temporary file and a rename.
type File struct {
	mu    sync.Mutex
	path  string
	state FileState
}

var (
	_ Store                 = (*File)(nil)
	_ wifi.CredentialSource = (*File)(nil)
)

// OpenFile loads the credential file at path. A missing file is an empty
// store; the file is created on the first change.
func OpenFile(path string) (*File, error) {
	f := &File{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &f.state); err != nil {
		return nil, fmt.Errorf("credential file %s: %w", path, err)
	}
	if f.state.Version > FileVersion {
		return nil, fmt.Errorf("credential file %s: unsupported version %d", path, f.state.Version)
	}
	return f, nil
}

// AddCredentials replaces the stored credential. The joined BSSID is
// forgotten when the SSID changes.
func (f *File) AddCredentials(_ context.Context, entry wire.ConfigAPEntry) error {
	cred, err := Derive(entry)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.state
	if next.Credential == nil || next.Credential.SSID != cred.SSID {
		next.BSSID = ""
		next.JoinedAt = time.Time{}
	}
	next.Credential = &FileCredential{
		SSID:     cred.SSID,
		Security: uint32(cred.Security),
		Channel:  cred.Channel,
		Key:      cred.Key,
	}
	return f.save(next)
}

// ConfiguredBSSID returns the BSSID last joined with the stored credential.
func (f *File) ConfiguredBSSID(context.Context) (net.HardwareAddr, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.BSSID == "" {
		return nil, false
	}
	mac, err := net.ParseMAC(f.state.BSSID)
	if err != nil {
		return nil, false
	}
	return mac, true
}

// Credential returns the stored credential.
func (f *File) Credential(context.Context) (wifi.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := f.state.Credential
	if c == nil {
		return wifi.Credential{}, wifi.ErrNoCredential
	}
	return wifi.Credential{
		SSID:     c.SSID,
		Security: wifi.Security(c.Security),
		Channel:  c.Channel,
		Key:      c.Key,
	}, nil
}

// RecordJoin remembers bssid for the stored credential.
func (f *File) RecordJoin(_ context.Context, ssid string, bssid net.HardwareAddr) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.Credential == nil || f.state.Credential.SSID != ssid {
		return fmt.Errorf("%w: %q", ErrSSIDMismatch, ssid)
	}
	next := f.state
	next.BSSID = bssid.String()
	next.JoinedAt = time.Now()
	return f.save(next)
}

// Clear removes the credential file and empties the store.
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	f.state = FileState{}
	return nil
}

// Close is a no-op; every change is already on disk.
func (f *File) Close() error {
	return nil
}

// save writes next and adopts it only when the write succeeded.
// Must be called with f.mu held.
func (f *File) save(next FileState) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return err
	}

	next.Version = FileVersion
	next.SavedAt = time.Now()
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return err
	}

	// The file holds key material.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	f.state = next
	return nil
}
