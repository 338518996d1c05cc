package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/veriyield/neuralchain/agent"
	"github.com/veriyield/neuralchain/carbon"
	"github.com/veriyield/neuralchain/mcpserver"
	"github.com/veriyield/neuralchain/tui"
)

var headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func adviseCmd(g *globalFlags) *cobra.Command {
	var crop, disease, location, searchTerm, image string

	cmd := &cobra.Command{
		Use:   "advise",
		Short: "Write a field report for a diagnosed crop",
		Long: `Researches treatments and mandi prices on the web and writes a field
report. With --image the crop and disease are taken from the photo.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer a.close()

			attrs := agent.Attributes{
				agent.AttrCrop:       crop,
				agent.AttrDisease:    disease,
				agent.AttrLocation:   location,
				agent.AttrSearchTerm: searchTerm,
			}
			if image != "" {
				data, err := os.ReadFile(image)
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				res := a.classifier().Classify(cmd.Context(), data)
				attrs = res.Attributes(location)
				fmt.Fprintln(cmd.OutOrStdout(), headingStyle.Render(fmt.Sprintf("%s: %s (%s)", res.CropType, res.DiseaseName, res.FCIGrade)))
			}

			fmt.Fprintln(cmd.OutOrStdout(), a.advisor().Advise(cmd.Context(), attrs))
			return nil
		},
	}

	cmd.Flags().StringVar(&crop, "crop", "", "Crop name")
	cmd.Flags().StringVar(&disease, "disease", "", "Diagnosed disease")
	cmd.Flags().StringVar(&location, "location", "", "Market town")
	cmd.Flags().StringVar(&searchTerm, "search-term", "", "Treatment search query")
	cmd.Flags().StringVar(&image, "image", "", "Crop photo to diagnose first")
	return cmd
}

func gradeCmd(g *globalFlags) *cobra.Command {
	var record bool

	cmd := &cobra.Command{
		Use:   "grade <image>",
		Short: "Grade a crop photo against FCI norms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			a, err := g.open()
			if err != nil {
				return err
			}
			defer a.close()

			res := a.classifier().Classify(cmd.Context(), data)
			if !record {
				return printJSON(cmd.OutOrStdout(), res)
			}
			if res.Failed() {
				return fmt.Errorf("not recording a failed analysis: %s", res.Explanation)
			}

			receipt, err := a.chain().Record(cmd.Context(), res)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"grade": res, "receipt": receipt})
		},
	}

	cmd.Flags().BoolVar(&record, "record", false, "Record the grade as a chain transaction")
	return cmd
}

func negotiateCmd(g *globalFlags) *cobra.Command {
	var crop, grade, location string

	cmd := &cobra.Command{
		Use:   "negotiate",
		Short: "Chat with the mandi broker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer a.close()

			broker, err := a.broker()
			if err != nil {
				return err
			}
			chat := tui.NewChat(cmd.Context(), broker, agent.Attributes{
				agent.AttrCrop:     crop,
				agent.AttrGrade:    grade,
				agent.AttrLocation: location,
			})
			_, err = tea.NewProgram(chat, tea.WithContext(cmd.Context())).Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&crop, "crop", "", "Crop to sell")
	cmd.Flags().StringVar(&grade, "grade", "", "Quality grade")
	cmd.Flags().StringVar(&location, "location", "", "Mandi town")
	return cmd
}

func insureCmd(g *globalFlags) *cobra.Command {
	var (
		location string
		farmer   string
		wallet   string
		simulate bool
		payout   bool
		policy   bool
	)

	cmd := &cobra.Command{
		Use:   "insure",
		Short: "Run the parametric weather insurance oracle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer a.close()

			oracle := a.oracle()
			out := cmd.OutOrStdout()

			if policy {
				fmt.Fprintln(out, oracle.PolicyTerms(farmer, location, time.Now()))
			}

			assessment := oracle.Check(cmd.Context(), location, simulate)
			if err := printJSON(out, assessment); err != nil {
				return err
			}

			if payout {
				if !assessment.TriggerMet {
					fmt.Fprintln(out, "No payout: trigger not met.")
					return nil
				}
				receipt, err := oracle.Payout(cmd.Context(), wallet, assessment.PayoutAmount)
				if err != nil {
					return err
				}
				return printJSON(out, receipt)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&location, "location", "Nashik", "City to check")
	cmd.Flags().StringVar(&farmer, "farmer", "Farmer", "Insured name on the policy")
	cmd.Flags().StringVar(&wallet, "wallet", "0xUser", "Wallet receiving the payout")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "Force a simulated extreme drought")
	cmd.Flags().BoolVar(&payout, "payout", false, "Execute the payout when triggered")
	cmd.Flags().BoolVar(&policy, "policy", false, "Print the policy terms")
	return cmd
}

func carbonCmd(g *globalFlags) *cobra.Command {
	var (
		p      carbon.Practices
		photo  string
		wallet string
		mint   bool
	)

	cmd := &cobra.Command{
		Use:   "carbon",
		Short: "Score regenerative practices and mint AgriTokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer a.close()
			out := cmd.OutOrStdout()

			if photo != "" {
				data, err := os.ReadFile(photo)
				if err != nil {
					return fmt.Errorf("read photo: %w", err)
				}
				claim := p.HeadlineClaim()
				v := a.classifier().VerifyPractice(cmd.Context(), data, claim)
				p.PhotoVerified = v.Verified
				fmt.Fprintf(out, "Photo audit (%s): verified=%t. %s\n", claim, v.Verified, v.Evidence)
			}

			res := carbon.Score(p)
			if err := printJSON(out, res); err != nil {
				return err
			}

			if mint {
				receipt, err := a.minter().Mint(cmd.Context(), wallet, res)
				if err != nil {
					return err
				}
				return printJSON(out, receipt)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&p.Tillage, "tillage", "Conventional", "No-Till or Conventional")
	cmd.Flags().StringVar(&p.Irrigation, "irrigation", "Flood", "Drip, Flood or Sprinkler")
	cmd.Flags().StringVar(&p.Fertilizer, "fertilizer", "Synthetic", "Organic or Synthetic")
	cmd.Flags().BoolVar(&p.CoverCrop, "cover-crop", false, "Cover crops were grown")
	cmd.Flags().StringVar(&photo, "photo", "", "Field photo proving the headline practice")
	cmd.Flags().StringVar(&wallet, "wallet", "0xUser", "Wallet receiving minted tokens")
	cmd.Flags().BoolVar(&mint, "mint", false, "Mint the eligible tokens")
	return cmd
}

func historyCmd(g *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show wallet balance and recent transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer a.close()

			balance, err := a.history.Balance(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := a.history.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headingStyle.Render(fmt.Sprintf("Wallet Balance: %g ETH", balance)))
			for _, e := range entries {
				details, _ := json.Marshal(e.Details)
				fmt.Fprintf(out, "%s  %-16s %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Type, details)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of transactions to show (0 for all)")
	return cmd
}

func serveCmd(g *globalFlags) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the flows as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			a, err := newApp(cfg, logger, reg)
			if err != nil {
				return err
			}
			defer a.close()

			broker, err := a.broker()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					logger.Info("Metrics listening", "addr", metricsAddr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("Metrics server failed", "error", err)
					}
				}()
				defer func() {
					shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
					defer done()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			server := mcpserver.NewServer(mcpserver.Deps{
				Advisor:    a.advisor(),
				Negotiator: broker,
				Oracle:     a.oracle(),
				History:    a.history,
			}, Version, logger)
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address, e.g. :9090")
	return cmd
}
