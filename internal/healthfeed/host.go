package healthfeed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

var (
	errNoMemTotal = errors.New("meminfo has no MemTotal")
	errNoValue    = errors.New("no numeric value in output")
)

// CommandRunner runs name with args and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// readThermalZone reads a sysfs thermal zone, which reports millidegrees.
func readThermalZone(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v / 1000, nil
}

func (m *Monitor) vcgencmd(ctx context.Context, query string) (float64, error) {
	out, err := m.opts.Run(ctx, m.opts.Vcgencmd, query)
	if err != nil {
		return 0, fmt.Errorf("vcgencmd %s: %w", query, err)
	}
	return parseVcgencmd(string(out))
}

func (m *Monitor) lifepo4wered(ctx context.Context, variable string) (float64, error) {
	out, err := m.opts.Run(ctx, m.opts.Lifepo4wered, "get", variable)
	if err != nil {
		return 0, fmt.Errorf("lifepo4wered-cli get %s: %w", variable, err)
	}
	return parseMillivolts(string(out))
}

// parseVcgencmd reads the leading number after '=' in output such as
// "temp=48.3'C" or "volt=1.2000V".
func parseVcgencmd(out string) (float64, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	_, value, ok := strings.Cut(line, "=")
	if !ok {
		return 0, fmt.Errorf("%w: %q", errNoValue, line)
	}
	end := 0
	for end < len(value) && (value[end] == '.' || value[end] == '-' || (value[end] >= '0' && value[end] <= '9')) {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("%w: %q", errNoValue, line)
	}
	return strconv.ParseFloat(value[:end], 64)
}

// parseMillivolts reads the first line of lifepo4wered-cli output in volts.
func parseMillivolts(out string) (float64, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	mv, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errNoValue, line)
	}
	return float64(mv) / 1000, nil
}
