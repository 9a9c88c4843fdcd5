package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// v4l2loopbackが既定で付けるカード名の一部
var loopbackNameHints = []string{"loopback", "dummy video device", "vcam"}

var deviceNumberPattern = regexp.MustCompile(`video(\d+)$`)

// LoopbackDiscovery はLinuxのv4l2loopbackデバイスを検出する
type LoopbackDiscovery struct {
	sysfsRoot string // 通常は /sys/class/video4linux
	devRoot   string // 通常は /dev
}

// NewLoopbackDiscovery は新しいLoopbackDiscoveryを作成する
func NewLoopbackDiscovery() Discovery {
	return &LoopbackDiscovery{
		sysfsRoot: "/sys/class/video4linux",
		devRoot:   "/dev",
	}
}

// ScanDevices はループバックデバイスをデバイス番号順に返す
func (d *LoopbackDiscovery) ScanDevices(ctx context.Context) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.sysfsRoot, "video*"))
	if err != nil {
		return nil, fmt.Errorf("デバイスのスキャンに失敗: %w", err)
	}

	// デバイス番号でソート
	sort.Slice(matches, func(i, j int) bool {
		return extractDeviceNumber(matches[i]) < extractDeviceNumber(matches[j])
	})

	var devices []string
	for _, match := range matches {
		// コンテキストのキャンセルをチェック
		select {
		case <-ctx.Done():
			return devices, ctx.Err()
		default:
		}

		if !isLoopbackName(d.readName(filepath.Base(match))) {
			continue
		}

		device := filepath.Join(d.devRoot, filepath.Base(match))
		if d.IsDeviceAvailable(ctx, device) {
			devices = append(devices, device)
		}
	}

	return devices, nil
}

// IsDeviceAvailable は指定されたデバイスに書き込めるかチェックする
func (d *LoopbackDiscovery) IsDeviceAvailable(_ context.Context, device string) bool {
	if !deviceNumberPattern.MatchString(device) {
		return false
	}

	// 出力デバイスとして使うため書き込み権限を確認する
	file, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	_ = file.Close()
	return true
}

// GetDeviceInfo はデバイスの詳細情報を取得する
func (d *LoopbackDiscovery) GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error) {
	if !d.IsDeviceAvailable(ctx, device) {
		return nil, fmt.Errorf("%w: %s", ErrDevice, device)
	}

	name := d.readName(filepath.Base(device))
	if name == "" {
		name = fmt.Sprintf("ループバック %d", extractDeviceNumber(device))
	}

	return &DeviceInfo{
		Device:  device,
		Name:    name,
		Driver:  "v4l2loopback",
		Formats: []string{"XR24"},
	}, nil
}

// readName はsysfsからカード名を読む
func (d *LoopbackDiscovery) readName(node string) string {
	data, err := os.ReadFile(filepath.Join(d.sysfsRoot, node, "name"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func isLoopbackName(name string) bool {
	lower := strings.ToLower(name)
	for _, hint := range loopbackNameHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// extractDeviceNumber はデバイスパスから番号を抽出する
func extractDeviceNumber(device string) int {
	matches := deviceNumberPattern.FindStringSubmatch(device)
	if len(matches) < 2 {
		return 0
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}
	return num
}

// MockDiscovery はテスト用のモックDiscovery実装
type MockDiscovery struct {
	devices []string
}

// NewMockDiscovery は新しいMockDiscoveryを作成する
func NewMockDiscovery(devices []string) *MockDiscovery {
	return &MockDiscovery{devices: devices}
}

// ScanDevices はモックデバイス一覧を返す
func (m *MockDiscovery) ScanDevices(_ context.Context) ([]string, error) {
	return m.devices, nil
}

// IsDeviceAvailable はモックデバイスが利用可能かチェックする
func (m *MockDiscovery) IsDeviceAvailable(_ context.Context, device string) bool {
	for _, d := range m.devices {
		if d == device {
			return true
		}
	}
	return false
}

// GetDeviceInfo はモックデバイス情報を取得する
func (m *MockDiscovery) GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error) {
	if !m.IsDeviceAvailable(ctx, device) {
		return nil, fmt.Errorf("%w: %s", ErrDevice, device)
	}
	return &DeviceInfo{
		Device:  device,
		Name:    fmt.Sprintf("テストループバック %d", extractDeviceNumber(device)),
		Driver:  "mock",
		Formats: []string{"XR24"},
	}, nil
}

// AddDevice はテスト用にデバイスを追加する
func (m *MockDiscovery) AddDevice(device string) {
	if m.IsDeviceAvailable(context.Background(), device) {
		return
	}
	m.devices = append(m.devices, device)
}

// RemoveDevice はテスト用にデバイスを削除する
func (m *MockDiscovery) RemoveDevice(device string) {
	for i, d := range m.devices {
		if d == device {
			m.devices = append(m.devices[:i], m.devices[i+1:]...)
			return
		}
	}
}
