package main

import (
	"os"

	"github.com/lsds/kungfu-ddp/srcs/go/cmd/kungfu-run/app"
)

func main() { app.Main(os.Args) }
