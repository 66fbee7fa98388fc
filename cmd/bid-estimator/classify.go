package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newClassifyCmd(a *app) *cobra.Command {
	var context string
	cmd := &cobra.Command{
		Use:   "classify [text...]",
		Short: "Decide whether device text is electrical or fire alarm",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			classifier, err := conf.Classifier()
			if err != nil {
				return fmt.Errorf("failed to build classifier: %w", err)
			}

			result := classifier.Classify(strings.Join(args, " "), context)
			logger.Debug("classified device text",
				zap.String("op", "classify"),
				zap.String("category", result.Category),
				zap.Strings("matches", result.Matches),
			)

			categories := make([]string, 0, len(result.Scores))
			for category := range result.Scores {
				categories = append(categories, category)
			}
			sort.Strings(categories)

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, result.Category)
			for _, category := range categories {
				fmt.Fprintf(w, "  %s: %d\n", category, result.Scores[category])
			}
			if result.Mixed {
				fmt.Fprintln(w, "  (indicators for more than one system)")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&context, "context", "", "surrounding page text, e.g. the drawing title")
	return cmd
}
