package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-judge/internal/viability"
)

var voteCmd = &cobra.Command{
	Use:   "vote <candidate-id>",
	Short: "Decide whether an assessed candidate is viable",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		vote(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(voteCmd)

	voteCmd.Flags().IntP("cycles", "c", 0, "number of voting cycles (default from viability.cycles)")
}

func vote(cmd *cobra.Command, candidateID string) {
	ctx := cmd.Context()
	config, logger := setup()

	cycles := config.Viability.Cycles
	if cmd.Flags().Changed("cycles") {
		cycles, _ = cmd.Flags().GetInt("cycles")
	}

	s, err := newStores(config.Storage)
	if err != nil {
		logger.Fatal("opening stores", zap.Error(err))
	}

	b, err := newBackends(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building ai backends", zap.Error(err))
	}

	voter, err := viability.NewVoter(s.summaries, b.basic, logger)
	if err != nil {
		logger.Fatal("building the voter", zap.Error(err))
	}

	result, err := voter.Vote(ctx, candidateID, cycles)
	if err != nil {
		logger.Fatal("voting failed", zap.String("candidate_id", candidateID), zap.Error(err))
	}

	logger.Info("vote finished",
		zap.String("candidate_id", result.CandidateID),
		zap.Bool("viable", result.Viable),
		zap.Int("score", result.Score),
		zap.Int("calls", result.Calls),
	)
}
