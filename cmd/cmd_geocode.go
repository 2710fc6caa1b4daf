// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/painelmultas/painel/multas"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var geocodeOptions struct {
	Provider string
	Workers  int
}

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocodifica os locais das multas e atualiza o cache de coordenadas",
	Long: `Resolve cada local distinto do conjunto reconciliado. Locais já presentes
no cache não consultam o provedor; falhas não são guardadas e serão tentadas
de novo na próxima execução.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("provider") {
			cfg.Geocoding.Provider = geocodeOptions.Provider
		}

		if cmd.Flags().Changed("workers") {
			cfg.Geocoding.Workers = geocodeOptions.Workers
		}

		if err := cfg.Validate(); err != nil {
			return err
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

		set, err := p.Canonical()
		if err != nil {
			return err
		}

		resolver, err := newResolver(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}

		locations := multas.Locations(set)
		if len(locations) == 0 {
			log.Println("Nothing to geocode")

			return nil
		}

		var progress func()

		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar := progressbar.NewOptions(len(locations),
				progressbar.OptionSetDescription("Geocoding"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			progress = func() { _ = bar.Add(1) }
		}

		resolved, resolveErr := resolver.ResolveAll(cmd.Context(), locations, progress)
		stats := resolver.Stats()

		log.Printf(
			"🗺️ Geocoding metrics - %d of %d locations resolved, %d cache hits, %d lookups, %d failed",
			len(resolved),
			len(locations),
			stats.Hits,
			stats.Lookups,
			stats.Failures,
		)

		if resolveErr != nil {
			return fmt.Errorf("%w; partial results were saved", resolveErr)
		}

		if err := cmd.Context().Err(); err != nil {
			return errors.New("geocoding interrupted, partial results were saved")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
	geocodeCmd.Flags().StringVar(
		&geocodeOptions.Provider,
		"provider",
		"",
		"Provedor de geocodificação: opencage, google ou none",
	)
	geocodeCmd.Flags().IntVar(
		&geocodeOptions.Workers,
		"workers",
		0,
		"Consultas simultâneas ao provedor",
	)
}
