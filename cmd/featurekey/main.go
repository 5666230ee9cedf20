// FeatureKey - LC-IMS feature finder
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/FeatureKey/cmd/featurekey/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
