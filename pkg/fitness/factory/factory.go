package factory

import (
	"fmt"
	"sort"
	"strings"

	"batfit/internal/logging"
	"batfit/pkg/fitness/core"
	"batfit/pkg/fitness/hardware"
	"batfit/pkg/fitness/memo"
	"batfit/pkg/fitness/methods/kernel"
	"batfit/pkg/fitness/methods/software"
)

// MethodConfig contains configuration for fitness method selection
type MethodConfig struct {
	// Preferred method order (highest priority first)
	PreferredOrder []string `json:"preferred_order"`

	// Batch parallelism for the software method, 0 = one per logical core
	Workers int `json:"workers"`

	// Static cache capacity
	Limits core.Limits `json:"limits"`

	// Score memo in front of the selected method
	EnableMemo   bool `json:"enable_memo"`
	MemoCapacity int  `json:"memo_capacity"`
}

// DefaultMethodConfig returns a sensible default configuration
func DefaultMethodConfig() *MethodConfig {
	return &MethodConfig{
		PreferredOrder: []string{
			"software", // 1. float64 host evaluation
			"kernel",   // 2. accelerator numerics model
		},
		Workers:      0,
		Limits:       core.DefaultLimits(),
		EnableMemo:   false,
		MemoCapacity: memo.DefaultCapacity,
	}
}

// HardwareMethodConfig prefers accelerator numerics, e.g. to validate a bitstream
func HardwareMethodConfig() *MethodConfig {
	config := DefaultMethodConfig()
	config.PreferredOrder = []string{"kernel", "software"}
	return config
}

// MethodFactory creates and manages fitness method instances
type MethodFactory struct {
	config   *MethodConfig
	detector *hardware.DeviceDetector
	methods  map[string]core.FitnessMethod
	best     core.FitnessMethod
	detected map[string]bool
}

// NewMethodFactory creates a new factory with the given configuration
func NewMethodFactory(config *MethodConfig) *MethodFactory {
	if config == nil {
		config = DefaultMethodConfig()
	}

	factory := &MethodFactory{
		config:   config,
		methods:  make(map[string]core.FitnessMethod),
		detected: make(map[string]bool),
	}

	factory.detectMethods()
	factory.selectBestMethod()

	return factory
}

// detectMethods probes the host and builds every known method
func (f *MethodFactory) detectMethods() {
	f.detector = hardware.NewDeviceDetector(f.config.Limits)
	detected := f.detector.DetectAvailableMethods()

	workers := f.config.Workers
	if workers <= 0 {
		workers = f.detector.RecommendedWorkers()
	}

	f.methods["software"] = software.NewSoftwareMethod(f.config.Limits, workers)
	f.detected["software"] = detected["software"]

	f.methods["kernel"] = kernel.NewKernelMethod(f.config.Limits)
	f.detected["kernel"] = detected["kernel"]
}

// selectBestMethod chooses the best available method based on configuration
func (f *MethodFactory) selectBestMethod() {
	f.best = nil
	for _, methodName := range f.config.PreferredOrder {
		if method, exists := f.methods[methodName]; exists {
			if f.detected[methodName] && method.IsAvailable() {
				f.best = method
				break
			}
		} else {
			logging.Default().Warn("factory: unknown method %q in preferred order", methodName)
		}
	}

	// If no preferred method is available, fall back to software
	if f.best == nil {
		if softwareMethod, exists := f.methods["software"]; exists && softwareMethod.IsAvailable() {
			f.best = softwareMethod
		}
	}

	if f.best != nil && f.config.EnableMemo {
		f.best = memo.New(f.best, f.config.MemoCapacity)
	}

	if f.best != nil {
		logging.Default().Info("factory: selected %s method (memo=%t)", f.best.Name(), f.config.EnableMemo)
	} else {
		logging.Default().Warn("factory: no fitness method available")
	}
}

// GetBestMethod returns the currently selected method
func (f *MethodFactory) GetBestMethod() core.FitnessMethod {
	return f.best
}

// GetMethod returns a specific method by name
func (f *MethodFactory) GetMethod(name string) core.FitnessMethod {
	if method, exists := f.methods[name]; exists {
		return method
	}
	return nil
}

// GetAvailableMethods returns all available methods
func (f *MethodFactory) GetAvailableMethods() map[string]core.FitnessMethod {
	result := make(map[string]core.FitnessMethod)
	for name, method := range f.methods {
		if f.detected[name] && method.IsAvailable() {
			result[name] = method
		}
	}
	return result
}

// Detector returns the host detector used for the last detection
func (f *MethodFactory) Detector() *hardware.DeviceDetector {
	return f.detector
}

// GetDetectionReport returns a report of detected methods and their status
func (f *MethodFactory) GetDetectionReport() *DetectionReport {
	report := &DetectionReport{
		Methods:        make([]*MethodStatus, 0, len(f.methods)),
		BestMethod:     "none",
		TotalMethods:   len(f.methods),
		AvailableCount: 0,
		Host:           f.detector.Features(),
		MemoEnabled:    f.config.EnableMemo,
	}

	for name, method := range f.methods {
		available := f.detected[name] && method.IsAvailable()
		report.Methods = append(report.Methods, &MethodStatus{
			Name:         name,
			Available:    available,
			Priority:     f.getPriority(name),
			Capabilities: method.GetCapabilities(),
			Description:  f.getMethodDescription(name),
			Detail:       f.detector.Reason(name),
		})
		if available {
			report.AvailableCount++
		}
	}
	SortMethodsByPriority(report.Methods)

	if f.best != nil {
		report.BestMethod = f.best.Name()
	}

	return report
}

// getPriority returns the priority index of a method
func (f *MethodFactory) getPriority(name string) int {
	for i, preferred := range f.config.PreferredOrder {
		if name == preferred {
			return i
		}
	}
	return 999 // Low priority for methods not in preferred list
}

// getMethodDescription returns a human-readable description for a method
func (f *MethodFactory) getMethodDescription(name string) string {
	descriptions := map[string]string{
		"software": "Host evaluation with float64 sums and compensated reduction",
		"kernel":   "Functional model of the accelerator kernel (float32, grouped reduction)",
	}

	if desc, exists := descriptions[name]; exists {
		return desc
	}
	return "Unknown fitness method"
}

// InitializeBestMethod initializes the selected method
func (f *MethodFactory) InitializeBestMethod() error {
	if f.best == nil {
		return core.Errorf(core.ErrNotInitialized, "no method selected")
	}
	return f.best.Initialize()
}

// ShutdownAll shuts down all methods
func (f *MethodFactory) ShutdownAll() error {
	var errors []string

	for name, method := range f.methods {
		if err := method.Shutdown(); err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", name, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("shutdown errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// ReinitializeDetection re-runs host detection and method selection
func (f *MethodFactory) ReinitializeDetection() {
	f.ShutdownAll()
	f.methods = make(map[string]core.FitnessMethod)
	f.detected = make(map[string]bool)
	f.detectMethods()
	f.selectBestMethod()
}

// DetectionReport contains the results of method detection
type DetectionReport struct {
	Methods        []*MethodStatus   `json:"methods"`
	BestMethod     string            `json:"best_method"`
	TotalMethods   int               `json:"total_methods"`
	AvailableCount int               `json:"available_count"`
	Host           hardware.Features `json:"host"`
	MemoEnabled    bool              `json:"memo_enabled"`
}

// MethodStatus describes the status of a single fitness method
type MethodStatus struct {
	Name         string             `json:"name"`
	Available    bool               `json:"available"`
	Priority     int                `json:"priority"`
	Capabilities *core.Capabilities `json:"capabilities"`
	Description  string             `json:"description"`
	Detail       string             `json:"detail"`
}

// SortMethodsByPriority sorts methods by priority, then name
func SortMethodsByPriority(methods []*MethodStatus) {
	sort.Slice(methods, func(i, j int) bool {
		if methods[i].Priority != methods[j].Priority {
			return methods[i].Priority < methods[j].Priority
		}
		return methods[i].Name < methods[j].Name
	})
}
