// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/painelmultas/painel/config"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootCmd = &cobra.Command{
	Use:   "painel",
	Short: "painel de multas de trânsito",
	Long: `
painel consolida a planilha de consulta de multas de trânsito: normaliza as
linhas, reconcilia os instantâneos de consulta, geocodifica os locais e calcula
os indicadores exibidos no painel.
`,
	SilenceUsage: true,
}

var rootOptions struct {
	ConfigPath string
	DataDir    string
	TraceHTTP  bool
}

// loadConfig reads the configuration file and applies the global flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(rootOptions.ConfigPath)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = rootOptions.DataDir
	}

	return cfg, nil
}

var Version = "dev"

func Execute(version string) {
	Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&rootOptions.ConfigPath,
		"config",
		os.Getenv("PAINEL_CONFIG"),
		"Arquivo de configuração YAML",
	)
	rootCmd.PersistentFlags().StringVar(
		&rootOptions.DataDir,
		"data-dir",
		"db",
		"Diretório base onde guardar o estado",
	)
	rootCmd.PersistentFlags().BoolVar(
		&rootOptions.TraceHTTP,
		"trace-http",
		false,
		"Exibe as requisições e respostas HTTP",
	)
}
