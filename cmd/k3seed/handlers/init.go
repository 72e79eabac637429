package handlers

import (
	"fmt"

	"github.com/jfellner/k3seed/internal/config/wizard"
)

// Init walks the user through the non-secret inputs and writes them to a
// configuration file. Credentials are deliberately not collected; they stay
// in the environment.
func Init(output string) error {
	result, err := wizard.Run()
	if err != nil {
		return fmt.Errorf("configuration wizard aborted: %w", err)
	}

	cfg := wizard.BuildConfig(result)
	if err := wizard.WriteFile(cfg, output); err != nil {
		return err
	}

	fmt.Printf("Wrote %s. Set the credential environment variables before running bootstrap:\n", output)
	for _, name := range []string{"GITHUB_TOKEN", "S3_ACCESS_KEY", "S3_SECRET_KEY", "CLOUDFLARE_API_TOKEN"} {
		fmt.Println("  " + name)
	}
	return nil
}
