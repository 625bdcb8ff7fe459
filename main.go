package main

import "github.com/meysamhadeli/dafc/cmd"

func main() {
	cmd.Execute()
}
