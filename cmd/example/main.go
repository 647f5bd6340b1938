package main

import (
	"fmt"
	"os"

	"github.com/openaccel/mosaic"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Mosaic Examples")
		fmt.Println("===============")
		if v, _ := mosaic.Version(); v != "" {
			fmt.Printf("mosaic %s\n", v)
		}
		fmt.Printf("Device: %s\n", mosaic.GetDevice().Name)
		fmt.Println()
		fmt.Println("Usage: go run cmd/example/main.go <example>")
		fmt.Println()
		fmt.Println("Available examples:")
		fmt.Println("  vector      - Kernel launch syntax (vector addition)")
		fmt.Println("  matrix      - Shared memory tiling (matrix multiplication)")
		fmt.Println("  streams     - Overlapping work on independent streams")
		fmt.Println("  cooperative - Block-wide barrier reduction")
		fmt.Println("  bandwidth   - Transfer bandwidth measurement")
		return
	}

	switch os.Args[1] {
	case "vector":
		fmt.Println("Run: go run ./examples/vector_add")
	case "matrix":
		fmt.Println("Run: go run ./examples/matrix_multiply")
	case "streams":
		fmt.Println("Run: go run ./examples/streams")
	case "cooperative":
		fmt.Println("Run: go run ./examples/cooperative_groups")
	case "bandwidth":
		fmt.Println("Run: go run ./examples/bandwidth")
	default:
		fmt.Printf("Unknown example: %s\n", os.Args[1])
	}
}
