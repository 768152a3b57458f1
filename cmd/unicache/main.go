// Command unicache drives the unified cache model with generated traffic.
package main

import "github.com/sarchlab/unicache/cmd/unicache/cmd"

func main() {
	cmd.Execute()
}
