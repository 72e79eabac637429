package sysconfig

import (
	"fmt"

	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"
)

// Fixed paths consumed by the k3s runtime at startup.
const (
	K3sConfigPath  = "/etc/rancher/k3s/config.yaml"
	RegistriesPath = "/etc/rancher/k3s/registries.yaml"
	PSAConfigPath  = "/etc/rancher/k3s/psa.yaml"
)

// k3sConfig models the subset of the k3s server configuration this
// bootstrap manages. The packaged traefik and servicelb are disabled
// because ingress and load balancing are declared in the GitOps tree.
type k3sConfig struct {
	NodeName            string   `yaml:"node-name"`
	Disable             []string `yaml:"disable"`
	WriteKubeconfigMode string   `yaml:"write-kubeconfig-mode"`
	TLSSan              []string `yaml:"tls-san"`
	KubeAPIServerArg    []string `yaml:"kube-apiserver-arg"`
	SecretsEncryption   bool     `yaml:"secrets-encryption"`
}

// K3sConfig renders the k3s server configuration document.
func K3sConfig(nodeName, domain string) ([]byte, error) {
	doc := k3sConfig{
		NodeName:            nodeName,
		Disable:             []string{"traefik", "servicelb"},
		// The readiness wait and reconciler handoff run unprivileged and
		// read the kubeconfig directly, so it must be world-readable.
		WriteKubeconfigMode: "0644",
		TLSSan:              []string{domain},
		KubeAPIServerArg: []string{
			"admission-control-config-file=" + PSAConfigPath,
		},
		SecretsEncryption: true,
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render k3s config: %w", err)
	}
	return out, nil
}

type registryMirror struct {
	Endpoint []string `yaml:"endpoint"`
}

type registriesConfig struct {
	Mirrors map[string]registryMirror `yaml:"mirrors"`
}

// RegistriesConfig renders the container registry mirror document. The "*"
// mirror enables k3s's embedded registry cache for all registries.
func RegistriesConfig() ([]byte, error) {
	doc := registriesConfig{
		Mirrors: map[string]registryMirror{
			"*": {},
		},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render registries config: %w", err)
	}
	return out, nil
}

// ExemptNamespaces lists the namespaces excluded from baseline pod security
// enforcement. These run privileged system workloads (host networking,
// host path volumes) that baseline forbids.
var ExemptNamespaces = []string{"kube-system", "cert-manager", "longhorn-system"}

// The admission document is a real apiserver API object, so it carries
// json tags and goes through the k8s yaml marshaller like any other
// emitted k8s object.
type psaDefaults struct {
	Enforce        string `json:"enforce"`
	EnforceVersion string `json:"enforce-version"`
	Audit          string `json:"audit"`
	AuditVersion   string `json:"audit-version"`
	Warn           string `json:"warn"`
	WarnVersion    string `json:"warn-version"`
}

type psaExemptions struct {
	Usernames      []string `json:"usernames"`
	RuntimeClasses []string `json:"runtimeClasses"`
	Namespaces     []string `json:"namespaces"`
}

type psaPluginConfiguration struct {
	APIVersion string        `json:"apiVersion"`
	Kind       string        `json:"kind"`
	Defaults   psaDefaults   `json:"defaults"`
	Exemptions psaExemptions `json:"exemptions"`
}

type psaPlugin struct {
	Name          string                 `json:"name"`
	Configuration psaPluginConfiguration `json:"configuration"`
}

type psaAdmissionConfiguration struct {
	APIVersion string      `json:"apiVersion"`
	Kind       string      `json:"kind"`
	Plugins    []psaPlugin `json:"plugins"`
}

// PSAConfig renders the pod security admission document with the given
// namespaces exempt from baseline enforcement.
func PSAConfig(exemptNamespaces []string) ([]byte, error) {
	doc := psaAdmissionConfiguration{
		APIVersion: "apiserver.config.k8s.io/v1",
		Kind:       "AdmissionConfiguration",
		Plugins: []psaPlugin{{
			Name: "PodSecurity",
			Configuration: psaPluginConfiguration{
				APIVersion: "pod-security.admission.config.k8s.io/v1",
				Kind:       "PodSecurityConfiguration",
				Defaults: psaDefaults{
					Enforce:        "baseline",
					EnforceVersion: "latest",
					Audit:          "restricted",
					AuditVersion:   "latest",
					Warn:           "restricted",
					WarnVersion:    "latest",
				},
				Exemptions: psaExemptions{
					Usernames:      []string{},
					RuntimeClasses: []string{},
					Namespaces:     exemptNamespaces,
				},
			},
		}},
	}
	out, err := k8syaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render pod security admission config: %w", err)
	}
	return out, nil
}
