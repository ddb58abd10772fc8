package main

import "os"

func main() {
	if err := Root.Execute(); err != nil {
		os.Exit(1)
	}
}
