// Command oprdesk runs the one-page report desk: the HTTP API and a small
// operator CLI over the same report store.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
