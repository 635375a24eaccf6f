package devicepool

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/device"
)

// LoadConfig reads the device config file (a JSON array, spec.md §6). A
// missing file falls back to a single default entry rather than failing
// startup (spec.md §6, §7 ConfigError recovery).
func LoadConfig(path string) []device.Config {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("device config file not found, falling back to default device",
			slog.String("path", path), slog.Any("error", err))
		return []device.Config{device.Default()}
	}

	var configs []device.Config
	if err := json.Unmarshal(data, &configs); err != nil {
		slog.Error("device config file malformed, falling back to default device",
			slog.String("path", path), slog.Any("error", err))
		return []device.Config{device.Default()}
	}

	if len(configs) == 0 {
		return []device.Config{device.Default()}
	}

	return configs
}
