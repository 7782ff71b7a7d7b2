package hardware

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/klauspost/cpuid/v2"

	"batfit/pkg/fitness/core"
)

// Features describes the host CPU as seen by the evaluation methods
type Features struct {
	Brand         string `json:"brand"`
	Vendor        string `json:"vendor"`
	PhysicalCores int    `json:"physical_cores"`
	LogicalCores  int    `json:"logical_cores"`
	AVX2          bool   `json:"avx2"`
	AVX512F       bool   `json:"avx512f"`
	FMA3          bool   `json:"fma3"`
	NEON          bool   `json:"neon"`
	Arch          string `json:"arch"`
	OS            string `json:"os"`
	GoVersion     string `json:"go_version"`
}

// SIMD reports whether the host has a vector unit the block adds can use
func (f Features) SIMD() bool {
	return f.AVX2 || f.AVX512F || f.NEON
}

// DeviceDetector performs host detection for the available fitness methods
type DeviceDetector struct {
	limits   core.Limits
	features Features
	detected map[string]bool
	reasons  map[string]string
}

// NewDeviceDetector creates a detector for methods sized to limits
func NewDeviceDetector(limits core.Limits) *DeviceDetector {
	return &DeviceDetector{
		limits:   limits,
		detected: make(map[string]bool),
		reasons:  make(map[string]string),
	}
}

// DetectAvailableMethods probes the host and reports which methods can run
func (d *DeviceDetector) DetectAvailableMethods() map[string]bool {
	d.detectCPU()
	d.detectSoftware()
	d.detectKernel()

	result := make(map[string]bool, len(d.detected))
	for name, ok := range d.detected {
		result[name] = ok
	}
	return result
}

func (d *DeviceDetector) detectCPU() {
	d.features = Features{
		Brand:         cpuid.CPU.BrandName,
		Vendor:        cpuid.CPU.VendorString,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		AVX2:          cpuid.CPU.Supports(cpuid.AVX2),
		AVX512F:       cpuid.CPU.Supports(cpuid.AVX512F),
		FMA3:          cpuid.CPU.Supports(cpuid.FMA3),
		NEON:          cpuid.CPU.Supports(cpuid.ASIMD),
		Arch:          runtime.GOARCH,
		OS:            runtime.GOOS,
		GoVersion:     runtime.Version(),
	}
	if d.features.LogicalCores <= 0 {
		d.features.LogicalCores = runtime.NumCPU()
	}
}

// detectSoftware only needs usable limits
func (d *DeviceDetector) detectSoftware() {
	if err := d.limits.Check(); err != nil {
		d.detected["software"] = false
		d.reasons["software"] = err.Error()
		return
	}
	d.detected["software"] = true
	d.reasons["software"] = fmt.Sprintf("%d workers on %s", d.RecommendedWorkers(), d.features.Arch)
}

// detectKernel checks that the static cache fits and notes whether block adds vectorize
func (d *DeviceDetector) detectKernel() {
	if err := d.limits.Check(); err != nil {
		d.detected["kernel"] = false
		d.reasons["kernel"] = err.Error()
		return
	}
	d.detected["kernel"] = true
	if d.features.SIMD() {
		d.reasons["kernel"] = "float32 block adds vectorized"
	} else {
		d.reasons["kernel"] = "float32 block adds on scalar fallback"
	}
}

// Features returns the last detected host features
func (d *DeviceDetector) Features() Features {
	return d.features
}

// Reason explains the detection result for a method
func (d *DeviceDetector) Reason(method string) string {
	if reason, ok := d.reasons[method]; ok {
		return reason
	}
	return "Unknown method"
}

// RecommendedWorkers is the default batch parallelism for the host
func (d *DeviceDetector) RecommendedWorkers() int {
	if d.features.LogicalCores > 0 {
		return d.features.LogicalCores
	}
	return runtime.NumCPU()
}

// GetDetectionSummary returns a human-readable summary
func (d *DeviceDetector) GetDetectionSummary() string {
	var builder strings.Builder

	builder.WriteString("Host Detection Summary:\n")
	builder.WriteString("======================\n\n")
	builder.WriteString(fmt.Sprintf("CPU: %s (%d physical / %d logical)\n",
		d.features.Brand, d.features.PhysicalCores, d.features.LogicalCores))
	builder.WriteString(fmt.Sprintf("SIMD: avx2=%t avx512f=%t fma3=%t neon=%t\n\n",
		d.features.AVX2, d.features.AVX512F, d.features.FMA3, d.features.NEON))

	names := make([]string, 0, len(d.detected))
	for name := range d.detected {
		names = append(names, name)
	}
	sort.Strings(names)

	available := 0
	for _, name := range names {
		status := "UNAVAILABLE"
		if d.detected[name] {
			status = "AVAILABLE"
			available++
		}
		builder.WriteString(fmt.Sprintf("%-12s %s - %s\n", name, status, d.reasons[name]))
	}

	builder.WriteString(fmt.Sprintf("\nTotal Methods: %d\n", len(names)))
	builder.WriteString(fmt.Sprintf("Available: %d\n", available))
	return builder.String()
}
