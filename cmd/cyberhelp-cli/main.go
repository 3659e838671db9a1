package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tyemirov/cyberhelp/cmd/cyberhelp-cli/internal/command"
	"github.com/tyemirov/cyberhelp/pkg/secret"
)

func main() {
	_ = godotenv.Load()

	secretGenerator, err := secret.NewCryptoGenerator()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	root := command.NewRootCommand(command.Dependencies{
		Viper:           viper.New(),
		SecretGenerator: secretGenerator,
		Output:          os.Stdout,
	})
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if execErr := root.Execute(); execErr != nil {
		fmt.Fprintln(os.Stderr, execErr)
		os.Exit(1)
	}
}
