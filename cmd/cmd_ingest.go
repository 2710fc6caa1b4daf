// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/painelmultas/painel/config"
	"github.com/painelmultas/painel/multas"
	"github.com/painelmultas/painel/pipeline"
	"github.com/spf13/cobra"
)

var ingestOptions struct {
	Source string
	Root   string
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [arquivo...]",
	Short: "Importa planilhas de consulta e guarda o histórico",
	Long: `Baixa cada planilha (id do Google Drive ou caminho local), normaliza as
linhas e substitui o que havia sido importado antes para a mesma origem. Sem
argumentos usa source.file_id da configuração.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("source") {
			cfg.Source.Kind = ingestOptions.Source
		}

		if cmd.Flags().Changed("root") {
			cfg.Source.Root = ingestOptions.Root
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		ids := args
		if len(ids) == 0 {
			if cfg.Source.FileID == "" {
				return errors.New("nothing to ingest: pass a file or set source.file_id")
			}

			ids = []string{cfg.Source.FileID}
		}

		db, repo, err := openRepository(cfg, true)
		if err != nil {
			return err
		}
		defer db.Close()

		p, err := newPipeline(cmd.Context(), cfg, repo, true)
		if err != nil {
			return err
		}

		var metrics pipeline.Metrics

		for _, id := range ids {
			m, err := p.Ingest(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("ingesting %s: %w", id, err)
			}

			metrics.Merge(m)
		}

		log.Printf(
			"Total ingest metrics - %d records, %d rejected, %d diagnostics from %d rows in %d files",
			metrics.Records,
			metrics.Rejected,
			metrics.Diagnostics,
			metrics.Rows,
			len(ids),
		)

		set, err := p.Canonical()
		if errors.Is(err, multas.ErrNoValidSnapshot) {
			log.Printf("⚠️ %v", err)

			return nil
		}

		if err != nil {
			return err
		}

		log.Printf("🧮 Snapshot %s: %d distinct fines",
			set.Date().In(multas.Timezone).Format("02/01/2006"), set.Len())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(
		&ingestOptions.Source,
		"source",
		config.SourceDrive,
		"Origem das planilhas: drive ou local",
	)
	ingestCmd.Flags().StringVar(
		&ingestOptions.Root,
		"root",
		"",
		"Diretório base para caminhos locais relativos",
	)
}
