// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/painelmultas/painel/server"
	"github.com/spf13/cobra"
)

var serveOptions struct {
	Addr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a API JSON do painel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveOptions.Addr
		}

		db, repo, err := openRepository(cfg, false)
		if err != nil {
			return err
		}
		defer db.Close()

		p, err := newPipeline(cmd.Context(), cfg, repo, false)
		if err != nil {
			return err
		}

		// The map reads the cache only; run 'painel geocode' to fill it.
		resolver, err := newResolver(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}

		fmt.Printf("📍 Open http://%s/api/indicadores\n", cfg.Server.Addr)

		return server.New(p, repo, resolver).Run(cmd.Context(), cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(
		&serveOptions.Addr,
		"addr",
		"127.0.0.1:8080",
		"Endereço de escuta",
	)
}
