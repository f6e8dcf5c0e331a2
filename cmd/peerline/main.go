package main

import (
	"github.com/kuldeep921997/peerline/cmd/peerline/cmd"
	"github.com/kuldeep921997/peerline/internal/logging"
)

func main() {
	logging.Init()
	cmd.Execute()
}
