package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"clickmart/internal/cli"
	"clickmart/internal/game"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

// formatMoney renders whole cents as a currency string.
func formatMoney(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func renderState(out cli.StateResponse) {
	st := out.State
	d := out.Derived

	accent.Println("== ClickMart ==")
	fmt.Printf("Money:     %s\n", formatMoney(st.Money))
	fmt.Printf("Visitors:  %d total, %.1f/s passive\n", st.TotalVisitors, d.VisitorsPerSecond)
	fmt.Printf("Sales:     %.2f total, %s gross revenue\n", st.TotalSales, formatMoney(st.TotalRevenue))
	fmt.Printf("Next sale: %.0f%% (worth %s commission)\n", d.SaleProgressPct, formatMoney(d.BatchCommission))

	if len(d.Buildings) > 0 {
		accent.Println("\nBuildings")
		for _, b := range d.Buildings {
			marker := " "
			if b.Affordable {
				marker = "*"
			}
			fmt.Printf("%s %-16s owned %-3d +%.1f v/s  next %s\n",
				marker, b.ID, b.Owned, b.Production, formatMoney(b.NextCost))
		}
	}

	if len(d.Verticals) > 0 {
		accent.Println("\nVerticals")
		for _, v := range d.Verticals {
			marker := " "
			if v.Affordable {
				marker = "*"
			}
			status := "locked"
			if v.Level >= 1 {
				status = fmt.Sprintf("lvl %d @ %s", v.Level, formatMoney(v.CurrentPrice))
			}
			fmt.Printf("%s %-16s %-22s next %s\n", marker, v.ID, status, formatMoney(v.NextCost))
		}
	}

	if len(d.Market) > 0 {
		accent.Println("\nMarket split")
		for _, m := range d.Market {
			fmt.Printf("  %-16s %5.1f%%  lvl %d @ %s\n", m.ID, m.SharePct, m.Level, formatMoney(m.Price))
		}
	}
}

func renderRejections(rejected []game.Rejection) {
	for _, rej := range rejected {
		printWarn(fmt.Sprintf("rejected %s: %s", rej.ActionID, rej.Code))
	}
}
