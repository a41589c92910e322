package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wifiprov/wifiprov-go/pkg/wifi"
)

type collector struct {
	mu       sync.Mutex
	results  []wifi.AccessPoint
	complete chan struct{}
}

func newCollector() *collector {
	return &collector{complete: make(chan struct{})}
}

func (c *collector) OnScanResult(ap wifi.AccessPoint) {
	c.mu.Lock()
	c.results = append(c.results, ap)
	c.mu.Unlock()
}

func (c *collector) OnScanComplete() {
	close(c.complete)
}

func TestRadioScan(t *testing.T) {
	r, err := New(DefaultConfig())
	require.NoError(t, err)

	c := newCollector()
	require.NoError(t, r.StartScan(context.Background(), c))

	select {
	case <-c.complete:
	case <-time.After(2 * time.Second):
		t.Fatal("scan did not complete")
	}

	require.Len(t, c.results, 2)
	assert.Equal(t, "HomeNet", c.results[0].SSID)
	assert.Equal(t, wifi.SecurityWPA2AESPSK, c.results[0].Security)
	assert.Equal(t, uint8(6), c.results[0].Channel)
	assert.Equal(t, wifi.SecurityOpen, c.results[1].Security)
	assert.Equal(t, 1, r.Scans())
}

func TestRadioScanBusy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScanDelay = 50 * time.Millisecond
	r, err := New(cfg)
	require.NoError(t, err)

	c := newCollector()
	require.NoError(t, r.StartScan(context.Background(), c))
	assert.ErrorIs(t, r.StartScan(context.Background(), newCollector()), ErrScanBusy)

	<-c.complete
	r.Wait()
	require.NoError(t, r.StartScan(context.Background(), newCollector()))
	r.Wait()
}

func TestRadioJoin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AccessPoints[0].Key = "abcd"

	tests := []struct {
		name    string
		mutate  func(*Config)
		cred    wifi.Credential
		success bool
		wantErr error
	}{
		{"success", nil, wifi.Credential{SSID: "HomeNet", Key: "abcd"}, true, nil},
		{"wrong key", nil, wifi.Credential{SSID: "HomeNet", Key: "nope"}, false, ErrWrongKey},
		{"open any key", nil, wifi.Credential{SSID: "CafeGuest"}, true, nil},
		{"unknown ssid", nil, wifi.Credential{SSID: "Elsewhere"}, false, ErrUnknownSSID},
		{"forced failure", func(c *Config) { c.FailJoin = true }, wifi.Credential{SSID: "HomeNet", Key: "abcd"}, false, ErrJoinRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			c.AccessPoints = append([]AccessPointConfig(nil), cfg.AccessPoints...)
			if tt.mutate != nil {
				tt.mutate(&c)
			}
			r, err := New(c)
			require.NoError(t, err)

			res, err := r.Join(context.Background(), tt.cred)
			require.NoError(t, err)
			assert.Equal(t, tt.success, res.Success)
			if tt.success {
				assert.Equal(t, "192.168.50.23", res.StationIP.String())
				assert.Equal(t, "192.168.50.1", res.GatewayIP.String())
				assert.Len(t, res.GatewayMAC, 6)
				assert.Len(t, res.BSSID, 6)
			} else {
				assert.ErrorIs(t, res.Err, tt.wantErr)
			}
			assert.Len(t, r.Joins(), 1)
		})
	}
}

func TestRadioJoinCancelled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JoinDelay = time.Hour
	r, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Join(ctx, wifi.Credential{SSID: "HomeNet"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad bssid", func(c *Config) { c.AccessPoints[0].BSSID = "zz" }},
		{"bad security", func(c *Config) { c.AccessPoints[0].Security = "ROT13" }},
		{"empty ssid", func(c *Config) { c.AccessPoints[0].SSID = "" }},
		{"bad station ip", func(c *Config) { c.StationIP = "300.1.1.1" }},
		{"bad gateway mac", func(c *Config) { c.GatewayMAC = "01:02" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			_, err := New(c)
			assert.Error(t, err)
		})
	}
}
