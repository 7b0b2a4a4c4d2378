package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-judge/internal/assessment"
	"github.com/spigell/interview-judge/internal/batch"
	"github.com/spigell/interview-judge/internal/interview"
	"github.com/spigell/interview-judge/internal/utils"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Transcribe and assess candidate responses",
	Long: "Assess every response listed in a batch file (--batch) or every upload recorded in the registry.\n" +
		"Stored assessments are reused unless --overwrite is set.",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		assess(cmd)
	},
}

func init() {
	rootCmd.AddCommand(assessCmd)

	assessCmd.Flags().StringP("batch", "b", "", "yaml file with the responses to assess")
	assessCmd.Flags().StringP("recruitment", "r", "", "assess only uploads of this recruitment (registry mode)")
	assessCmd.Flags().Bool("overwrite", false, "recompute assessments that are already stored")
}

func assess(cmd *cobra.Command) {
	ctx := cmd.Context()
	config, logger := setup()

	batchFile, _ := cmd.Flags().GetString("batch")
	recruitment, _ := cmd.Flags().GetString("recruitment")
	overwrite, _ := cmd.Flags().GetBool("overwrite")

	s, err := newStores(config.Storage)
	if err != nil {
		logger.Fatal("opening stores", zap.Error(err))
	}

	var responses []*interview.Response
	if batchFile != "" {
		responses, err = batch.LoadFile(s.fs, batchFile, config.Tasks)
	} else {
		responses, err = registryResponses(ctx, config, recruitment, logger)
	}
	if err != nil {
		logger.Fatal("loading responses", zap.Error(err))
	}

	responses = skipRejected(responses, s.rejections.Exists, logger)
	if len(responses) == 0 {
		logger.Info("exiting", zap.String("reason", "no responses to assess"))
		return
	}

	b, err := newBackends(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building ai backends", zap.Error(err))
	}

	aggregator, err := newAggregator(config, s, b, logger)
	if err != nil {
		logger.Fatal("building the aggregator", zap.Error(err))
	}

	runner, err := assessment.NewRunner(aggregator, logger)
	if err != nil {
		logger.Fatal("building the runner", zap.Error(err))
	}

	done, err := runner.Run(ctx, responses, overwrite)
	for _, a := range done {
		logger.Info("assessment",
			zap.String("candidate_id", a.CandidateID),
			zap.String("task", a.Task),
			zap.String("verdict", utils.TruncateForLog(a.Verdict, config.AI.MaxLogLength)),
		)
	}
	if err != nil {
		logger.Fatal("assessment failed",
			zap.Error(err),
			zap.Int("assessed", len(done)),
			zap.Int("total", len(responses)),
		)
	}
}

func registryResponses(ctx context.Context, config *Config, recruitment string, logger *zap.Logger) ([]*interview.Response, error) {
	reg, err := openRegistry(ctx, config, logger)
	if err != nil {
		return nil, err
	}
	defer reg.Close()

	return reg.Responses(ctx, recruitment)
}

// skipRejected drops responses of candidates already moved to rejections.
func skipRejected(responses []*interview.Response, rejected func(string) (bool, error), logger *zap.Logger) []*interview.Response {
	kept := make([]*interview.Response, 0, len(responses))
	for _, r := range responses {
		id, err := r.CandidateID()
		if err != nil {
			kept = append(kept, r)
			continue
		}

		ok, err := rejected(id)
		if err != nil {
			logger.Warn("checking rejection state", zap.String("candidate_id", id), zap.Error(err))
		}
		if ok {
			logger.Info("skipping rejected candidate", zap.String("candidate_id", id))
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
