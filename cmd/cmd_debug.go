// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/painelmultas/painel/fetch"
	"github.com/painelmultas/painel/geo"
	"github.com/painelmultas/painel/multas"
	"github.com/painelmultas/painel/pipeline"
	"github.com/spf13/cobra"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugNormalizeCmd = &cobra.Command{
	Use:   "normalize <arquivo>",
	Short: "Normaliza uma planilha local sem guardar nada",
	Long: `Imprime em stdout um registro JSON por linha aceita. Rejeições e
diagnósticos vão para stderr com o número da linha.

$ painel debug normalize multas.xlsx | jq .infraction_id`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		layout, err := cfg.Layout()
		if err != nil {
			return err
		}

		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		p := pipeline.New(fetch.LocalFetcher{}, nil, layout, cfg.ReaderOptions())

		batch, rows, err := p.Read(cmd.Context(), path)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		for _, r := range batch.Records {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}

		for _, d := range batch.Diagnostics {
			fmt.Fprintf(os.Stderr, "diagnostic\trow %d\t%s=%q\t%s\n", d.Row, d.Column, d.Value, d.Reason)
		}

		for _, r := range batch.Rejected {
			fmt.Fprintf(os.Stderr, "rejected\trow %d\t%s\n", r.Row, r.Reason)
		}

		log.Printf("%d rows, %d records, %d rejected, %d diagnostics",
			rows, len(batch.Records), len(batch.Rejected), len(batch.Diagnostics))

		return nil
	},
}

var debugKeyCmd = &cobra.Command{
	Use:   "key",
	Short: "Mostra a chave de cache de cada local lido da entrada",
	Long: `Lê um local por linha e imprime em stdout o local seguido da chave usada no
cache de coordenadas.

$ echo "Praça  São Salvador" | painel debug key
Praça  São Salvador	praca sao salvador`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		input := os.Stdin
		if isatty.IsTerminal(input.Fd()) {
			fmt.Fprintln(os.Stderr, "Digite os locais a analisar, um por linha…")
		}

		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			location := scanner.Text()
			fmt.Printf("%s\t%s\n", location, geo.Key(location))
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		return nil
	},
}

var debugPlatesCmd = &cobra.Command{
	Use:   "placas",
	Short: "Interage com a análise de placas",
	Long: `Lê uma placa por linha e imprime em stdout a placa seguida da informação
inferida.

$ echo ABC-1234 | painel debug placas
ABC-1234		{"plate":"ABC1234","format":"Antiga","mercosul":"ABC1C34"}`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		input := os.Stdin
		if isatty.IsTerminal(input.Fd()) {
			fmt.Fprintln(os.Stderr, "Digite as placas a analisar, uma por linha…")
		}

		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			plate := scanner.Text()

			info, err := multas.AnalyzePlate(plate)
			if err != nil {
				fmt.Printf("%s\t%q\n", plate, err)

				continue
			}

			s, err := json.Marshal(info)
			if err != nil {
				return err
			}

			fmt.Printf("%s\t\t%s\n", plate, s)
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugPlatesCmd)
	debugCmd.AddCommand(debugNormalizeCmd)
	debugCmd.AddCommand(debugKeyCmd)
}
