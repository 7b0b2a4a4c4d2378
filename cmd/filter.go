package cmd

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-judge/internal/viability"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Vote on every summarized candidate and move the non-viable ones to rejections",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		filter(cmd)
	},
}

func init() {
	rootCmd.AddCommand(filterCmd)

	filterCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

func filter(cmd *cobra.Command) {
	ctx := cmd.Context()
	config, logger := setup()

	s, err := newStores(config.Storage)
	if err != nil {
		logger.Fatal("opening stores", zap.Error(err))
	}

	summarized, err := s.summaries.List()
	if err != nil {
		logger.Fatal("listing summarized candidates", zap.Error(err))
	}
	if len(summarized) == 0 {
		logger.Info("exiting", zap.String("reason", "no summarized candidates"))
		return
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		confirm := promptui.Prompt{
			Label:     fmt.Sprintf("Vote on %d summarized candidates and move rejected ones", len(summarized)),
			IsConfirm: true,
		}
		if _, err := confirm.Run(); err != nil {
			if errors.Is(err, promptui.ErrAbort) {
				logger.Info("exiting", zap.String("reason", "got no from prompt"))
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	b, err := newBackends(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building ai backends", zap.Error(err))
	}

	voter, err := viability.NewVoter(s.summaries, b.basic, logger)
	if err != nil {
		logger.Fatal("building the voter", zap.Error(err))
	}

	manager, err := newPool(config, s, voter, logger)
	if err != nil {
		logger.Fatal("building the pool manager", zap.Error(err))
	}

	moved, err := manager.FilterSummarized(ctx)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err), zap.Int("rejected", moved))
	}

	logger.Info("filtering finished", zap.Int("rejected", moved))
}
