//go:build tinygo

package main

import (
	"hwgauge/app"
	"hwgauge/hal"
)

func main() {
	app.Run(hal.New())
}
