package main

import (
	"github.com/alecthomas/kingpin/v2"
	"github.com/ecomlab/shoplt/loadgen"
	"github.com/ecomlab/shoplt/shop"
)

func main() {
	lf := loadgen.Flags{}
	lf.Register()

	kingpin.FatalIfError(loadgen.SetLogLevelFromEnv(), "configuring logger")

	shop.AddCommand(&lf)

	kingpin.Parse()
}
