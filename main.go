// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/painelmultas/painel/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
