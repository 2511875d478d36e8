package build

import (
	"strconv"
	"strings"

	"buildbench/internal/config"
)

// Invocation is one fully composed external command.
type Invocation struct {
	Binary string
	Args   []string
	Dir    string
}

// CommandLine renders the invocation the way it is announced to the operator.
func (inv Invocation) CommandLine() string {
	parts := make([]string, 0, len(inv.Args)+1)
	parts = append(parts, quoteArg(inv.Binary))
	for _, arg := range inv.Args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if arg == "" || strings.ContainsAny(arg, " \t\n\"'") {
		return strconv.Quote(arg)
	}
	return arg
}

// Compose builds the invocation for job:
//
//	<tool> <subcommand> <program_flag> NAME [<output_dir_flag> DIR] [-- <features_flag> F1,F2]
func Compose(cfg config.Build, job Job, outputDir string) Invocation {
	args := strings.Fields(cfg.Subcommand)
	args = append(args, cfg.ProgramFlag, job.Program)
	if outputDir != "" {
		args = append(args, cfg.OutputDirFlag, outputDir)
	}
	if len(job.Features) > 0 {
		args = append(args, "--", cfg.FeaturesFlag, strings.Join(job.Features, ","))
	}
	return Invocation{Binary: cfg.ToolBinary, Args: args, Dir: job.Dir}
}
