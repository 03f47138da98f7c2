// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"os"

	"github.com/olegiv/yoga-i18n/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
