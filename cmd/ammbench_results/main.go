// ammbench_results inspects the run archive: list archived runs, dump one
// run, or compare two runs metric by metric.
package main

import (
	"log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
