package proxies

import (
	"github.com/spf13/viper"

	"github.com/compose-network/proxy-deployer/configs"
)

// flagDef defines a command-line flag bound to a viper configuration key.
type (
	flagType interface {
		string | int | bool
	}

	flagDef[T flagType] struct {
		name         string
		viperKey     string
		defaultValue T
		description  string
	}
)

// Flag defaults come from the embedded config.example.yaml, so --help and
// the shipped example file always agree.
var (
	defaults = configs.MustDefaultConfig()

	stringFlags = []flagDef[string]{
		{"network-name", "network.name", defaults.Network.Name, "Network name"},
		{"rpc-url", "network.rpc-url", defaults.Network.RPCURL, "Network RPC URL"},
		{"private-key", "wallet.private-key", defaults.Wallet.PrivateKey, "Deployer wallet private key"},
		{"manifest-dir", "deploy.manifest-dir", defaults.Deploy.ManifestDir, "Directory holding per-network deployment manifests"},
		{"artifacts-path", "deploy.artifacts-path", defaults.Deploy.ArtifactsPath, "Path to the compiled contracts JSON file"},
		{"create2-factory", "deploy.create2-factory", defaults.Deploy.Create2Factory, "Deterministic deployment factory address"},
	}

	intFlags = []flagDef[int]{
		{"gas-limit", "deploy.gas-limit", int(defaults.Deploy.GasLimit), "Gas limit for deployment transactions"},
	}
)

func init() {
	if err := declareFlags(stringFlags); err != nil {
		panic(err)
	}
	if err := declareFlags(intFlags); err != nil {
		panic(err)
	}

	deployCmd.Flags().String("contract", "", "Implementation contract name in the artifacts file")
	deployCmd.Flags().String("kind", "", "Proxy kind: transparent, uups or beacon (default transparent)")
	deployCmd.Flags().String("initializer", "", "Initializer function name (default \"initialize\")")
	deployCmd.Flags().Bool("no-initializer", false, "Skip the initializer call")
	deployCmd.Flags().StringSlice("unsafe-allow", nil, "Validator checks to suppress")
	deployCmd.Flags().String("args", "[]", "Initializer arguments as a JSON array")
	deployCmd.Flags().String("salt", "", "CREATE2 salt; enables deterministic deployment")

	predictCmd.Flags().String("factory", "0x4e59b44847b379578588920cA78FbF26c0B4956C", "CREATE2 factory address")
	predictCmd.Flags().String("salt", "", "Salt (raw 32-byte hex or any string)")
	predictCmd.Flags().String("bytecode", "", "Creation bytecode as hex")
	predictCmd.Flags().StringSlice("ctor-types", nil, "Constructor argument ABI types")
	predictCmd.Flags().String("ctor-args", "[]", "Constructor arguments as a JSON array")

	CMD.AddCommand(deployCmd)
	CMD.AddCommand(predictCmd)
	CMD.AddCommand(manifestCmd)
}

// declareFlags declares multiple flags and binds them to viper configuration keys.
func declareFlags[T flagType](flags []flagDef[T]) error {
	for _, flag := range flags {
		if err := declareFlag(flag.name, flag.viperKey, flag.defaultValue, flag.description); err != nil {
			return err
		}
	}
	return nil
}

// declareFlag declares a single flag and binds it to a viper configuration key.
func declareFlag[T flagType](flagName, viperKey string, defaultValue T, description string) error {
	var zero T
	switch any(zero).(type) {
	case string:
		CMD.PersistentFlags().String(flagName, any(defaultValue).(string), description)
	case int:
		CMD.PersistentFlags().Int(flagName, any(defaultValue).(int), description)
	case bool:
		CMD.PersistentFlags().Bool(flagName, any(defaultValue).(bool), description)
	}
	return viper.BindPFlag(viperKey, CMD.PersistentFlags().Lookup(flagName))
}
