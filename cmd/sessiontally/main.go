package main

import "github.com/SoarinFerret/SessionTally/cmd/sessiontally/arg"

func main() {
	arg.Execute()
}
