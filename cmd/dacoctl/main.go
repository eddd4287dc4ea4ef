// Command dacoctl is the operator CLI for the DACO workflow service.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
