// Command estimator считает смету кровли из командной строки без HTTP сервера и базы.
package main

import (
	"fmt"
	"os"

	"roofing-estimator/internal/config"
)

func main() {
	cfg := config.Load()
	if err := newRootCmd(os.Stdout, &cfg.Pricing).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
