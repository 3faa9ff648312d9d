package models

// HealthStatus holds the vehicle computer's sensor readings.
type HealthStatus struct {
	CPUTemperature float64 `json:"cpuTemperature"` // °C
	GPUTemperature float64 `json:"gpuTemperature"` // °C
	CPUVoltage     float64 `json:"cpuVoltage"`     // V
	CPUUsage       float64 `json:"cpuUsage"`       // %
	SystemLoad     float64 `json:"systemLoad"`
	DiscFree       int64   `json:"discFree"`  // bytes
	DiscTotal      int64   `json:"discTotal"` // bytes
	MemFree        int64   `json:"memFree"`   // bytes
	MemTotal       int64   `json:"memTotal"`  // bytes
	BatteryVoltage float64 `json:"batteryVoltage"`
	InputVoltage   float64 `json:"inputVoltage"`
}

// Nominal limits for the health predicates.
const (
	MaxCPUTemperature = 80.0
	MaxGPUTemperature = 80.0
	MaxSystemLoad     = 1.9
	MaxUsageRatio     = 0.9
	MinCPUVoltage     = 1.15
	MaxCPUVoltage     = 1.25
	MaxCPUUsage       = 95.0
)

func CPUTemperatureOK(t float64) bool { return t < MaxCPUTemperature }
func GPUTemperatureOK(t float64) bool { return t < MaxGPUTemperature }
func SystemLoadOK(l float64) bool     { return l < MaxSystemLoad }
func CPUUsageOK(u float64) bool       { return u < MaxCPUUsage }

// CPUVoltageOK accepts a missing reading (<= 0) or a voltage inside the band.
func CPUVoltageOK(v float64) bool {
	return v <= 0 || (v > MinCPUVoltage && v < MaxCPUVoltage)
}

// UsageOK reports whether the used share of total stays below MaxUsageRatio.
// An unknown total (<= 0) is never ok.
func UsageOK(total, free int64) bool {
	if total <= 0 {
		return false
	}
	used := float64(total-free) / float64(total)
	return used < MaxUsageRatio
}

// IsOK ANDs all per-metric predicates. It is derived on every call and never stored.
func (h HealthStatus) IsOK() bool {
	return CPUTemperatureOK(h.CPUTemperature) &&
		GPUTemperatureOK(h.GPUTemperature) &&
		SystemLoadOK(h.SystemLoad) &&
		CPUUsageOK(h.CPUUsage) &&
		CPUVoltageOK(h.CPUVoltage) &&
		UsageOK(h.MemTotal, h.MemFree) &&
		UsageOK(h.DiscTotal, h.DiscFree)
}
