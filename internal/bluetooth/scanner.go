package bluetooth

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"tinygo.org/x/bluetooth"

	"indoor-nav.klederson.com/internal/config"
	"indoor-nav.klederson.com/internal/ranging"
)

// ReadingMsg is sent via Sender.Send for every advertisement heard.
type ReadingMsg struct {
	ranging.Reading
	Name string
}

// ScanErrorMsg reports that scanning stopped unexpectedly.
type ScanErrorMsg struct {
	Err error
}

// Sender receives scanner output. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(msg tea.Msg)

// Send calls f(msg).
func (f SenderFunc) Send(msg tea.Msg) { f(msg) }

// Scanner produces ReadingMsg values until stopped.
type Scanner interface {
	Start(out Sender) error
	Stop()
}

// BLEScanner handles Bluetooth Low Energy scanning.
type BLEScanner struct {
	adapter *bluetooth.Adapter
	allow   map[string]string // upper-cased address -> beacon id as configured
	running atomic.Bool
}

// NewBLEScanner creates a scanner on the default adapter. When allow is non-empty only
// those addresses are reported, under the spelling given in allow.
func NewBLEScanner(allow []string) *BLEScanner {
	s := &BLEScanner{
		adapter: bluetooth.DefaultAdapter,
		allow:   make(map[string]string, len(allow)),
	}
	for _, id := range allow {
		s.allow[strings.ToUpper(id)] = id
	}
	return s
}

// Start begins BLE scanning in a goroutine. Readings are sent via out.Send().
func (s *BLEScanner) Start(out Sender) error {
	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
	}

	s.running.Store(true)
	lastSent := make(map[string]time.Time)
	go func() {
		err := s.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !s.running.Load() {
				return
			}
			mac := result.Address.String()
			if len(s.allow) > 0 {
				id, ok := s.allow[strings.ToUpper(mac)]
				if !ok {
					return
				}
				mac = id
			}

			now := time.Now()
			if now.Sub(lastSent[mac]) < config.ScanInterval {
				return
			}
			lastSent[mac] = now

			out.Send(ReadingMsg{
				Reading: ranging.Reading{
					BeaconID:  mac,
					RSSI:      float64(result.RSSI),
					Timestamp: now,
				},
				Name: result.LocalName(),
			})
		})
		if err != nil && s.running.Load() {
			out.Send(ScanErrorMsg{Err: fmt.Errorf("ble scan: %w", err)})
		}
	}()

	return nil
}

// Stop halts the BLE scanner.
func (s *BLEScanner) Stop() {
	s.running.Store(false)
	_ = s.adapter.StopScan()
}
