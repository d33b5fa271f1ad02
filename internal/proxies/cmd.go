package proxies

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/compose-network/proxy-deployer/configs"
)

var CMD = &cobra.Command{
	Use:   "proxy",
	Short: "Commands for provisioning upgradeable proxies",
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a contract behind an upgradeable proxy",
	RunE: func(cmd *cobra.Command, args []string) error {
		slog.Info("starting proxy deploy. Validating config", slog.Any("network", configs.Values.Network))

		if err := configs.Values.Validate(); err != nil {
			return err
		}

		params, err := deployParamsFromFlags(cmd)
		if err != nil {
			return err
		}

		if err := runDeploy(cmd.Context(), configs.Values, params); err != nil {
			return fmt.Errorf("error occurred deploying proxy: %w", err)
		}

		return nil
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Compute a deterministic CREATE2 address without any network access",
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := predictParamsFromFlags(cmd)
		if err != nil {
			return err
		}

		return runPredict(params)
	},
}

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print the deployment manifest for the configured network",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := configs.Values.Validate(); err != nil {
			return err
		}

		return runManifest(cmd.Context(), configs.Values)
	},
}
