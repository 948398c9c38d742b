// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/satsweep/cmd/satsweep/config"
	"github.com/AleutianAI/satsweep/pkg/ux"
)

// runConfigInit writes the default configuration to args[0]. An existing
// file is never overwritten.
func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(args[0]); err != nil {
		return err
	}
	ux.NewPrinter(cmd.OutOrStdout()).Success(fmt.Sprintf("wrote %s", args[0]))
	return nil
}
