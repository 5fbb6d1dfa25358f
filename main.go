package main

import (
	"context"
	"os"

	"github.com/smazurov/dcam/cmd"
)

func main() {
	os.Exit(cmd.Execute(context.Background()))
}
