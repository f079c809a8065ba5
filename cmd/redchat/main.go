package main

import (
	"os"

	"github.com/ridge/redchat/cli"
)

func main() {
	cli.Main(os.Args)
}
