package main

import (
	"context"
	"fmt"
	"log"

	"batfit/pkg/fitness/chromosome"
	"batfit/pkg/fitness/core"
	"batfit/pkg/fitness/factory"
)

func main() {
	fmt.Println("batfit Fitness Methods Example")
	fmt.Println("==============================")

	// Example 1: Default configuration (host numerics first)
	fmt.Println("\n1. Default Configuration:")
	runFitnessExample(factory.DefaultMethodConfig(), "Default")

	// Example 2: Accelerator numerics first
	fmt.Println("\n2. Hardware Numerics Configuration:")
	runFitnessExample(factory.HardwareMethodConfig(), "Hardware")

	// Example 3: Custom configuration
	fmt.Println("\n3. Custom Configuration:")
	customConfig := factory.DefaultMethodConfig()
	customConfig.PreferredOrder = []string{"software"}
	customConfig.Workers = 2
	customConfig.EnableMemo = true
	runFitnessExample(customConfig, "Custom Memoized Software")
}

func runFitnessExample(config *factory.MethodConfig, mode string) {
	fact := factory.NewMethodFactory(config)
	report := fact.GetDetectionReport()

	fmt.Printf("\n%s Mode - Detection Results:\n", mode)
	for _, method := range report.Methods {
		status := "❌ UNAVAILABLE"
		if method.Available {
			status = "✅ AVAILABLE"
		}
		fmt.Printf("  %-10s %s - %s\n", method.Name, status, method.Description)

		if caps := method.Capabilities; caps != nil {
			fmt.Printf("    Hardware numerics: %t\n", caps.HardwareNumerics)
			fmt.Printf("    Workers: %d, block width: %d\n", caps.Workers, caps.BlockWidth)
			fmt.Printf("    Reduction: %s\n", caps.Reduction)
			if !method.Available && caps.Reason != "" {
				fmt.Printf("    Reason: %s\n", caps.Reason)
			}
		}
		fmt.Println()
	}

	bestMethod := fact.GetBestMethod()
	if bestMethod == nil {
		fmt.Println("No fitness methods available!")
		return
	}
	fmt.Printf("Best Method Selected: %s\n", bestMethod.Name())

	if err := bestMethod.Initialize(); err != nil {
		log.Printf("Failed to initialize best method: %v\n", err)
		return
	}
	defer func() {
		if err := bestMethod.Shutdown(); err != nil {
			log.Printf("Error shutting down method: %v\n", err)
		}
	}()

	demonstrateFitness(bestMethod)
}

func demonstrateFitness(method core.FitnessMethod) {
	fmt.Println("\nFitness Demonstration:")
	fmt.Println("======================")

	// v0=(1,0) v1=(0,1) v2=(2,0) v3=(0,2)
	vectors := []float32{1, 0, 0, 1, 2, 0, 0, 2}
	if _, err := method.LoadCache(vectors, 4, 2); err != nil {
		fmt.Printf("Cache load failed: %v\n", err)
		return
	}

	bits := []string{"0101", "0001", "0011", "0000"}
	chunks, err := chromosome.PackStrings(bits, 4)
	if err != nil {
		fmt.Printf("Packing failed: %v\n", err)
		return
	}

	scores, err := method.EvaluateBatch(context.Background(), chunks, 4, 2, len(bits))
	if err != nil {
		fmt.Printf("Batch evaluation failed: %v\n", err)
		return
	}
	for i, s := range scores {
		fmt.Printf("  %s -> %g\n", bits[i], s)
	}
}
