package integration_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestBuildBinariesFromRepositoryRoot(t *testing.T) {
	workingDirectory, workingDirectoryErr := os.Getwd()
	if workingDirectoryErr != nil {
		t.Fatalf("failed to get working directory: %v", workingDirectoryErr)
	}

	repositoryRoot := filepath.Dir(workingDirectory)
	temporaryBinaryDirectory := t.TempDir()

	testCases := []struct {
		name    string
		pkgPath string
	}{
		{name: "cyberhelp", pkgPath: "./cmd/server"},
		{name: "cyberhelp-cli", pkgPath: "./cmd/cyberhelp-cli"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			temporaryBinaryPath := filepath.Join(temporaryBinaryDirectory, testCase.name)

			buildCommand := exec.Command("go", "build", "-o", temporaryBinaryPath, testCase.pkgPath)
			buildCommand.Dir = repositoryRoot

			commandOutput, buildErr := buildCommand.CombinedOutput()
			if buildErr != nil {
				t.Fatalf("go build failed: %v\n%s", buildErr, string(commandOutput))
			}

			if _, binaryStatErr := os.Stat(temporaryBinaryPath); binaryStatErr != nil {
				t.Fatalf("expected binary at %s: %v", temporaryBinaryPath, binaryStatErr)
			}
		})
	}
}
