package config

const (
	defaultMarkerPackage  = "anchor-lang"
	defaultMetadataBinary = "cargo"
	defaultToolBinary     = "anchor"
	defaultSubcommand     = "build"
	defaultProgramFlag    = "-p"
	defaultOutputDirFlag  = "-t"
	defaultFeaturesFlag   = "--features"
	defaultForcedFeature  = "prod"
	defaultPresetsFile    = ".buildbench/presets.toml"
	defaultHistoryPath    = "~/.local/share/buildbench/history.db"
	defaultLogDir         = "~/.local/share/buildbench/logs"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultVersionBinary  = "solana"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Workspace: Workspace{
			MarkerPackage:  defaultMarkerPackage,
			MetadataBinary: defaultMetadataBinary,
		},
		Build: Build{
			ToolBinary:    defaultToolBinary,
			Subcommand:    defaultSubcommand,
			ProgramFlag:   defaultProgramFlag,
			OutputDirFlag: defaultOutputDirFlag,
			FeaturesFlag:  defaultFeaturesFlag,
			ForcedFeature: defaultForcedFeature,
		},
		Presets: Presets{
			File: defaultPresetsFile,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Dir:    defaultLogDir,
		},
		Tools: Tools{
			VersionBinary: defaultVersionBinary,
		},
	}
}
