// Package wizard interactively collects the non-secret bootstrap inputs
// and writes them to a configuration file.
//
// Credentials (tokens, S3 keys, restore key) are deliberately not asked
// for: they stay in the environment so they never land in a file that
// might get committed.
package wizard

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/jfellner/k3seed/internal/config"
)

// Result holds the answers collected from the operator.
type Result struct {
	Domain           string
	ACMEEmail        string
	NodeName         string
	GitHubOwner      string
	GitHubRepository string
	S3Endpoint       string
	S3Bucket         string
}

// Run presents the form and returns the collected answers.
func Run() (*Result, error) {
	r := &Result{NodeName: "node1"}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cluster domain").
				Description("Apex domain the cluster serves, e.g. example.org").
				Value(&r.Domain).
				Validate(validateNotEmpty("domain")),
			huh.NewInput().
				Title("ACME email").
				Description("Contact address for certificate issuance").
				Value(&r.ACMEEmail).
				Validate(validateEmail),
			huh.NewInput().
				Title("Node name").
				Value(&r.NodeName).
				Validate(validateNotEmpty("node name")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("GitHub owner").
				Description("Account that owns the GitOps repository").
				Value(&r.GitHubOwner).
				Validate(validateNotEmpty("github owner")),
			huh.NewInput().
				Title("GitHub repository").
				Value(&r.GitHubRepository).
				Validate(validateNotEmpty("github repository")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("S3 endpoint").
				Description("S3-compatible endpoint for cluster backups").
				Value(&r.S3Endpoint).
				Validate(validateEndpoint),
			huh.NewInput().
				Title("S3 bucket").
				Value(&r.S3Bucket).
				Validate(validateNotEmpty("bucket")),
		),
	)

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard aborted: %w", err)
	}
	return r, nil
}

// BuildConfig converts wizard answers into a Config. Credential fields
// stay empty; they are environment-only.
func BuildConfig(r *Result) *config.Config {
	return &config.Config{
		Domain:           r.Domain,
		ACMEEmail:        r.ACMEEmail,
		NodeName:         r.NodeName,
		GitHubOwner:      r.GitHubOwner,
		GitHubRepository: r.GitHubRepository,
		S3Endpoint:       r.S3Endpoint,
		S3Bucket:         r.S3Bucket,
	}
}

func validateNotEmpty(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func validateEmail(s string) error {
	if _, err := mail.ParseAddress(s); err != nil {
		return fmt.Errorf("not a valid email address")
	}
	return nil
}

func validateEndpoint(s string) error {
	if !strings.HasPrefix(s, "https://") && !strings.HasPrefix(s, "http://") {
		return fmt.Errorf("endpoint must be an http(s) URL")
	}
	return nil
}
