package driver

import (
	"fmt"
	"strings"
)

// bluetoothBaseSuffix is the tail of the Bluetooth SIG base UUID; 128-bit
// UUIDs of the form 0000xxxx-0000-1000-8000-00805f9b34fb collapse to the
// 16-bit short form xxxx.
const bluetoothBaseSuffix = "00001000800000805f9b34fb"

// NormalizeUUID converts a UUID string to the canonical lookup form used
// throughout the module: lowercase, no dashes, no 0x prefix. Full 128-bit
// UUIDs in the Bluetooth SIG base range are shortened to their 16-bit form.
func NormalizeUUID(uuid string) string {
	u := strings.ToLower(strings.TrimSpace(uuid))
	u = strings.TrimPrefix(u, "0x")
	u = strings.ReplaceAll(u, "-", "")

	if len(u) == 32 && strings.HasPrefix(u, "0000") && strings.HasSuffix(u, bluetoothBaseSuffix) {
		return u[4:8]
	}
	return u
}

// NormalizeUUIDs normalizes a slice of UUID strings.
func NormalizeUUIDs(uuids []string) []string {
	if uuids == nil {
		return nil
	}
	out := make([]string, len(uuids))
	for i, u := range uuids {
		out[i] = NormalizeUUID(u)
	}
	return out
}

// ValidateUUIDs normalizes the given UUIDs, rejecting empty or malformed ones.
func ValidateUUIDs(uuids ...string) ([]string, error) {
	if len(uuids) == 0 {
		return nil, fmt.Errorf("at least one UUID is required")
	}

	out := make([]string, 0, len(uuids))
	for i, u := range uuids {
		n := NormalizeUUID(u)
		if n == "" {
			return nil, fmt.Errorf("invalid UUID at index %d: %q", i, u)
		}
		for _, r := range n {
			if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
				return nil, fmt.Errorf("invalid UUID at index %d: %q", i, u)
			}
		}
		out = append(out, n)
	}
	return out, nil
}
