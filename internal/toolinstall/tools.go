package toolinstall

import "fmt"

// Pinned tool versions. Bumping these is the only change needed to roll a
// newer release onto fresh machines; already-bootstrapped machines keep
// their installed versions until the binary is removed.
const (
	FluxVersion = "2.4.0"
	SopsVersion = "3.9.4"
	AgeVersion  = "1.2.1"
)

// CryptoTools returns the tools required before key material and secret
// encryption can run: sops (decryption by the reconciler side), age and
// age-keygen (key generation and encryption).
func CryptoTools() []Tool {
	return []Tool{
		{
			Name:    "sops",
			Version: SopsVersion,
			URL: fmt.Sprintf(
				"https://github.com/getsops/sops/releases/download/v%s/sops-v%s.linux.amd64",
				SopsVersion, SopsVersion),
			Kind: KindBinary,
			Mode: 0o755,
		},
		{
			Name:    "age",
			Version: AgeVersion,
			URL: fmt.Sprintf(
				"https://github.com/FiloSottile/age/releases/download/v%s/age-v%s-linux-amd64.tar.gz",
				AgeVersion, AgeVersion),
			Kind:     KindArchive,
			Binaries: []string{"age/age", "age/age-keygen"},
		},
	}
}

// GitOpsTools returns the tools required by the handoff stage.
func GitOpsTools() []Tool {
	return []Tool{
		{
			Name:    "flux",
			Version: FluxVersion,
			URL: fmt.Sprintf(
				"https://github.com/fluxcd/flux2/releases/download/v%s/flux_%s_linux_amd64.tar.gz",
				FluxVersion, FluxVersion),
			Kind:     KindArchive,
			Binaries: []string{"flux"},
		},
	}
}
