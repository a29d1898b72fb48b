package main

import (
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// fileConfig is the shape of the optional YAML config file (component L).
// Flags take precedence over file values; file values take precedence over
// the Config defaults in pkg/engine.
type fileConfig struct {
	MaxVoices          int     `yaml:"max_voices"`
	SampleRate         float64 `yaml:"sample_rate"`
	BufferSize         int     `yaml:"buffer_size"`
	BendRangeSemitones float64 `yaml:"bend_range_semitones"`
	Preset             string  `yaml:"preset"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// cliFlags is the parsed command-line surface. Grounded on the teacher
// pack's pflag.StringP/Usage idiom (doismellburning/samoyed's appserver
// command).
type cliFlags struct {
	configPath string
	preset     string
	maxVoices  int
	sampleRate float64
	bufferSize int
	bendRange  float64
	device     string
	verbose    bool
	cpuProfile string
}

func parseFlags(args []string) cliFlags {
	fs := pflag.NewFlagSet("voxgraphd", pflag.ExitOnError)

	var f cliFlags
	fs.StringVarP(&f.configPath, "config", "c", "", "Path to a YAML config file.")
	fs.StringVarP(&f.preset, "preset", "p", "", "Path to a saved patch (pkg/preset JSON) to load at startup.")
	fs.IntVarP(&f.maxVoices, "max-voices", "m", 0, "Maximum simultaneous voices (0: use config/default).")
	fs.Float64VarP(&f.sampleRate, "sample-rate", "r", 0, "Audio sample rate in Hz (0: use config/default).")
	fs.IntVarP(&f.bufferSize, "buffer-size", "b", 0, "Frames per buffer (0: use config/default).")
	fs.Float64Var(&f.bendRange, "bend-range", 0, "Pitch bend range in semitones (0: engine default).")
	fs.StringVarP(&f.device, "device", "d", "", "PortAudio output device name substring (empty: system default).")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug-level logging.")
	fs.StringVar(&f.cpuProfile, "cpu-profile", "", "Write a pprof CPU profile to this path for the run's duration (requires a -tags debug build; ignored otherwise).")

	fs.Usage = func() {
		os.Stderr.WriteString("voxgraphd: PortAudio demo host for the voxgraph modular synth engine\n\n")
		os.Stderr.WriteString("Usage: voxgraphd [flags]\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	return f
}
