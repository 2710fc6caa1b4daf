// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/painelmultas/painel/multas"
	"github.com/painelmultas/painel/utils/textutils"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var reportOptions struct {
	From   string
	To     string
	Codes  []string
	Plates []string
	Year   int
	Month  int
	Top    int
	JSON   bool
}

// report is what the dashboard shows for one filter.
type report struct {
	Indicators  map[string]any           `json:"indicators"`
	Infractions []multas.InfractionCount `json:"infractions"`
	Weekdays    []multas.WeekdayCount    `json:"weekdays"`
	Vehicles    []multas.VehicleFines    `json:"vehicles"`
	Monthly     []multas.MonthlyPoint    `json:"monthly"`
}

func reportRange(set multas.CanonicalSet) (*multas.DateRange, error) {
	if reportOptions.From == "" && reportOptions.To == "" {
		return nil, nil
	}

	bounds, ok := set.Bounds()
	if !ok {
		now := time.Now()
		bounds = multas.DateRange{From: now, To: now}
	}

	var err error

	if reportOptions.From != "" {
		if bounds.From, err = multas.ParseDay(reportOptions.From); err != nil {
			return nil, err
		}
	}

	if reportOptions.To != "" {
		if bounds.To, err = multas.ParseDay(reportOptions.To); err != nil {
			return nil, err
		}
	}

	rng, err := multas.NewDateRange(bounds.From, bounds.To)
	if err != nil {
		return nil, err
	}

	return &rng, nil
}

func reportPeriod() (multas.Period, error) {
	period := multas.PeriodOf(time.Now())

	if reportOptions.Year != 0 {
		period = multas.Period{Year: reportOptions.Year}
	}

	if reportOptions.Month != 0 {
		if reportOptions.Month < 1 || reportOptions.Month > 12 {
			return period, fmt.Errorf("invalid month %d", reportOptions.Month)
		}

		period.Month = time.Month(reportOptions.Month)
	}

	return period, nil
}

func buildReport(set multas.CanonicalSet) (*report, error) {
	rng, err := reportRange(set)
	if err != nil {
		return nil, err
	}

	period, err := reportPeriod()
	if err != nil {
		return nil, err
	}

	f := multas.Filter{Codes: reportOptions.Codes, Plates: reportOptions.Plates}
	unranged := f.Apply(set)

	f.Range = rng
	filtered := f.Apply(set)

	return &report{
		Indicators:  multas.Aggregate(unranged, rng, period).Values(),
		Infractions: multas.TopInfractions(filtered, reportOptions.Top),
		Weekdays:    multas.ByWeekday(filtered),
		Vehicles:    multas.TopVehicles(filtered, period.Year, reportOptions.Top),
		Monthly:     multas.MonthlySeries(filtered, period.Year),
	}, nil
}

var weekdayNames = [...]string{"Dom", "Seg", "Ter", "Qua", "Qui", "Sex", "Sáb"}

func reais(d decimal.Decimal) string {
	return "R$ " + textutils.FormatCents(d.Shift(2).Round(0).IntPart())
}

func indicatorLine(w io.Writer, label string, count, amount any) {
	n, _ := count.(int)
	d, _ := amount.(decimal.Decimal)

	fmt.Fprintf(w, "│ %-16s │ %8s │ %14s │\n", label, textutils.FormatInt(int64(n)), reais(d))
}

func printReport(w io.Writer, set multas.CanonicalSet, r *report) {
	ind := r.Indicators
	line := strings.Repeat("─", 46)

	fmt.Fprintf(w, "Consulta de %s\n", set.Date().In(multas.Timezone).Format("02/01/2006"))
	fmt.Fprintf(w, "╭%s╮\n", line)
	indicatorLine(w, "Total", ind["total_count"], ind["total_amount"])
	indicatorLine(w, fmt.Sprintf("Ano %v", ind["year"]), ind["year_count"], ind["year_amount"])

	if m, _ := ind["month"].(int); m != 0 {
		indicatorLine(w, fmt.Sprintf("Mês %02d", m), ind["month_count"], ind["month_amount"])
	}

	fmt.Fprintf(w, "╰%s╯\n", line)

	fmt.Fprintln(w, "\nInfrações mais frequentes:")

	for _, i := range r.Infractions {
		fmt.Fprintf(w, "  %6s  %-8s %s\n", textutils.FormatInt(int64(i.Count)), i.Code, i.Description)
	}

	fmt.Fprintln(w, "\nPor dia da semana:")

	for _, d := range r.Weekdays {
		fmt.Fprintf(w, "  %s %6s\n", weekdayNames[d.Weekday], textutils.FormatInt(int64(d.Count)))
	}

	fmt.Fprintln(w, "\nVeículos com mais multas:")

	for _, v := range r.Vehicles {
		fmt.Fprintf(w, "  %-8s %4s  %s\n", v.Plate, textutils.FormatInt(int64(v.Count)), reais(v.Amount))
	}

	fmt.Fprintln(w, "\nMês a mês:")

	for _, m := range r.Monthly {
		fmt.Fprintf(w, "  %02d %6s  %s\n", int(m.Month), textutils.FormatInt(int64(m.Count)), reais(m.Amount))
	}
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Calcula os indicadores e séries do painel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
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

		r, err := buildReport(set)
		if err != nil {
			return err
		}

		if reportOptions.JSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(r)
		}

		printReport(os.Stdout, set, r)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportOptions.From, "inicio", "", "Data inicial (dd/mm/aaaa)")
	reportCmd.Flags().StringVar(&reportOptions.To, "fim", "", "Data final (dd/mm/aaaa)")
	reportCmd.Flags().StringSliceVar(&reportOptions.Codes, "codigo", nil, "Código de enquadramento, repetível")
	reportCmd.Flags().StringSliceVar(&reportOptions.Plates, "placa", nil, "Placa, repetível")
	reportCmd.Flags().IntVar(&reportOptions.Year, "ano", 0, "Ano dos indicadores do período; padrão o ano corrente")
	reportCmd.Flags().IntVar(&reportOptions.Month, "mes", 0, "Mês dos indicadores do período")
	reportCmd.Flags().IntVar(&reportOptions.Top, "top", 10, "Tamanho dos rankings")
	reportCmd.Flags().BoolVar(&reportOptions.JSON, "json", false, "Saída em JSON")
}
