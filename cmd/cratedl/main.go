// cratedl is a CLI tool for mirroring the crates listed in a Cargo.lock.
package main

import "github.com/cratedl/cratedl/cmd/cratedl/cmd"

func main() {
	cmd.Execute()
}
