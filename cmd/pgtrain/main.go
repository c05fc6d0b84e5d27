// Command pgtrain trains a linear Gaussian policy with a batching policy
// gradient agent on the pointmass environment and plots the results.
package main

import (
	"log"
	"os"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
