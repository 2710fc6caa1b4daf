// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/painelmultas/painel/geo"
	"github.com/painelmultas/painel/multas"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspeciona o cache de coordenadas",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Mostra o tamanho do cache e a cobertura dos locais importados",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		cache := geo.OpenCache(cfg.CachePath())
		fmt.Printf("Cache: %s\n", cache.Path())
		fmt.Printf("Entradas: %d\n", cache.Len())

		// Coverage needs ingested data; the size alone is still useful.
		if _, err := os.Stat(cfg.DBPath()); err != nil {
			return nil
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

		locations := multas.Locations(set)
		known := 0

		for _, l := range locations {
			if _, ok := cache.Get(geo.Key(l)); ok {
				known++
			}
		}

		fmt.Printf("Locais com coordenadas: %d de %d\n", known, len(locations))

		return nil
	},
}

var cacheLookupCmd = &cobra.Command{
	Use:   "lookup <local>",
	Short: "Mostra a chave e as coordenadas guardadas para um local",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		location := strings.Join(args, " ")
		key := geo.Key(location)

		p, ok := geo.OpenCache(cfg.CachePath()).Get(key)
		if !ok {
			return fmt.Errorf("%q (key %q) is not cached", location, key)
		}

		fmt.Printf("%s\t%f,%f\n", key, p.Lat, p.Lng)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheLookupCmd)
}
