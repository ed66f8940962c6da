// Command refdump inspects a stream produced by reflection.Engine.Marshal
// without requiring the producer's Go types to be registered locally: it
// decodes purely through the TypeData/ObjectData fallback path and prints
// the resulting type graph, exercising the package's "unsupported type
// safety" guarantee (spec.md §8) from the outside.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	ucli "github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"

	"github.com/incoplex/reflection"
)

// dumpConfig is the optional --config file: it only ever sets the log
// level refdump runs at, kept separate from CLI flags so a wrapping
// script can pin it once instead of repeating --verbose everywhere.
type dumpConfig struct {
	LogLevel string `yaml:"log_level"`
}

func loadConfig(path string) (dumpConfig, error) {
	var cfg dumpConfig
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("refdump: parsing config: %w", err)
	}
	return cfg, nil
}

func main() {
	app := &ucli.App{
		Name:  "refdump",
		Usage: "dump the type graph and contents of a reflection-engine stream",
		Flags: []ucli.Flag{
			&ucli.StringFlag{Name: "config", Usage: "optional YAML file setting log_level"},
			&ucli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Action: func(c *ucli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("usage: refdump [--config FILE] [-v] <file>")
			}
			cfg, err := loadConfig(c.String("config"))
			if err != nil {
				return err
			}
			if c.Bool("verbose") || cfg.LogLevel == "debug" {
				reflection.SetLogger(reflection.Log.Level(zerolog.DebugLevel))
			}
			return dump(c.Args().First())
		},
	}
	if err := app.Run(os.Args); err != nil {
		reflection.Log.Error().Err(err).Msg("refdump failed")
		os.Exit(1)
	}
}

func dump(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Decode as the universal top type only: refdump never imports the
	// producer's Go package, so every object lands in the
	// TypeData/ObjectData fallback path by construction.
	v, err := reflection.Unmarshal(data, reflection.AnyType())
	if err != nil {
		return fmt.Errorf("refdump: decoding %s: %w", path, err)
	}
	printValue(v, 0)
	return nil
}

func printValue(v any, indent int) {
	pad := ""
	for i := 0; i < indent; i++ {
		pad += "  "
	}
	switch t := v.(type) {
	case *reflection.ObjectData:
		fmt.Printf("%sObjectData<%s>\n", pad, t.TypeData)
		switch {
		case t.Members != nil:
			for name, mv := range t.Members {
				fmt.Printf("%s  .%s =\n", pad, name)
				printValue(mv, indent+2)
			}
		case t.Collection != nil:
			for i, elem := range t.Collection {
				fmt.Printf("%s  [%d] =\n", pad, i)
				printValue(elem, indent+2)
			}
		case t.Dict != nil:
			for k, dv := range t.Dict {
				fmt.Printf("%s  {%v} =\n", pad, k)
				printValue(dv, indent+2)
			}
		case t.ConverterString != "":
			fmt.Printf("%s  converter = %q\n", pad, t.ConverterString)
		default:
			fmt.Printf("%s  scalar = %v\n", pad, t.Scalar)
		}
	default:
		fmt.Printf("%s%#v\n", pad, v)
	}
}
