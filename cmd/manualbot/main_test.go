package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestServiceFlagDefaults(t *testing.T) {
	flags := serviceFlags()

	stringDefault := func(name string) string {
		for _, f := range flags {
			if sf, ok := f.(*cli.StringFlag); ok && sf.Name == name {
				return sf.Value
			}
		}
		t.Fatalf("flag %q not found", name)
		return ""
	}

	assert.Equal(t, "http://localhost:11434/v1", stringDefault("ai-host"))
	assert.Equal(t, "bge-m3", stringDefault("embedding-model"))
	assert.Equal(t, "qwen2.5:3b", stringDefault("completion-model"))
	assert.Equal(t, "manual_chunks", stringDefault("collection"))
	assert.Empty(t, stringDefault("index"))
}

func TestSetupLogger(t *testing.T) {
	newCtx := func(level string) *cli.Context {
		set := flag.NewFlagSet("test", flag.ContinueOnError)
		set.String("log-level", level, "")
		return cli.NewContext(cli.NewApp(), set, nil)
	}

	for _, level := range []string{"debug", "info", "WARN", "Error"} {
		t.Run(level, func(t *testing.T) {
			require.NoError(t, setupLogger(newCtx(level)))
		})
	}

	t.Run("invalid level", func(t *testing.T) {
		err := setupLogger(newCtx("loud"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
