package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List raw, summarized and rejected candidates",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		candidates()
	},
}

func init() {
	rootCmd.AddCommand(candidatesCmd)
}

func candidates() {
	config, logger := setup()

	s, err := newStores(config.Storage)
	if err != nil {
		logger.Fatal("opening stores", zap.Error(err))
	}

	manager, err := newPool(config, s, nil, logger)
	if err != nil {
		logger.Fatal("building the pool manager", zap.Error(err))
	}

	for _, set := range []struct {
		name string
		list func() ([]string, error)
	}{
		{"raw", manager.ListRaw},
		{"summarized", manager.ListSummarized},
		{"rejected", manager.ListRejected},
	} {
		ids, err := set.list()
		if err != nil {
			logger.Fatal("listing candidates", zap.String("set", set.name), zap.Error(err))
		}
		logger.Info(set.name+" candidates", zap.Int("count", len(ids)), zap.Strings("candidates", ids))
	}
}
