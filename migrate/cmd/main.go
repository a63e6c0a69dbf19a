package main

import (
	"fmt"
	"os"

	"github.com/phantom-spire/iam/migrate"
)

func main() {
	if err := migrate.RunFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("migrations completed successfully")
}
