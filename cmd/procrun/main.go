package main

import (
	"github.com/Semphriss/SDL/internal/cli"
	"github.com/Semphriss/SDL/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
