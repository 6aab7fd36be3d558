// Package platform classifies the host into a closed set of supported
// profiles. Provisioning dispatches on the profile's command tables, never on
// raw identity strings.
package platform

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// OSReleasePath is the standard host identification file.
const OSReleasePath = "/etc/os-release"

// Variant tags one supported platform.
type Variant int

const (
	// UbuntuJammy is Ubuntu 22.04 LTS.
	UbuntuJammy Variant = iota
	// UbuntuNoble is Ubuntu 24.04 LTS.
	UbuntuNoble
	// Debian12 is Debian 12 (bookworm).
	Debian12
)

// AptRepo describes one signed apt package-repository source.
type AptRepo struct {
	// KeyURL is where the signing key is fetched from.
	KeyURL string
	// KeyringPath is where the key is stored on the host.
	KeyringPath string
	// SourceLine is the full deb line referencing the keyring.
	SourceLine string
	// SourcePath is the sources.list.d file the line is written to.
	SourcePath string
}

// Profile identifies the detected platform and carries the package-manager
// tables provisioning needs. Computed once per run, read-only afterward.
type Profile struct {
	// Variant is the tagged platform identity.
	Variant Variant
	// Name is the human-readable identity, e.g. "Ubuntu 22.04".
	Name string
	// Codename is the distribution codename used in repo lines.
	Codename string
	// DockerRepo and CaddyRepo are the signed sources for the two prerequisites.
	DockerRepo AptRepo
	CaddyRepo  AptRepo
	// DockerPackages and CaddyPackages are the packages installed per prerequisite.
	DockerPackages []string
	CaddyPackages  []string
}

// Detect reads the os-release file at path (OSReleasePath for a real host)
// and classifies the host, or fails naming the detected identity. A supported
// family with an unsupported version is a failure: this tool refuses to guess
// compatibility.
func Detect(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read %s: %w", path, err)
	}
	return classify(string(raw))
}

func classify(osRelease string) (Profile, error) {
	fields, err := godotenv.Unmarshal(osRelease)
	if err != nil {
		return Profile{}, fmt.Errorf("parse os-release: %w", err)
	}

	id := strings.ToLower(fields["ID"])
	version := fields["VERSION_ID"]

	switch id {
	case "ubuntu":
		switch version {
		case "22.04":
			return newProfile(UbuntuJammy, "Ubuntu 22.04", "ubuntu", "jammy"), nil
		case "24.04":
			return newProfile(UbuntuNoble, "Ubuntu 24.04", "ubuntu", "noble"), nil
		}
		return Profile{}, fmt.Errorf("unsupported platform: ubuntu %s (supported: 22.04, 24.04)", version)
	case "debian":
		if version == "12" {
			return newProfile(Debian12, "Debian 12", "debian", "bookworm"), nil
		}
		return Profile{}, fmt.Errorf("unsupported platform: debian %s (supported: 12)", version)
	}

	return Profile{}, fmt.Errorf("unsupported platform: id=%q version=%q", id, version)
}

func newProfile(variant Variant, name, family, codename string) Profile {
	return Profile{
		Variant:  variant,
		Name:     name,
		Codename: codename,
		DockerRepo: AptRepo{
			KeyURL:      fmt.Sprintf("https://download.docker.com/linux/%s/gpg", family),
			KeyringPath: "/etc/apt/keyrings/docker.asc",
			SourceLine: fmt.Sprintf(
				"deb [signed-by=/etc/apt/keyrings/docker.asc] https://download.docker.com/linux/%s %s stable",
				family, codename,
			),
			SourcePath: "/etc/apt/sources.list.d/docker.list",
		},
		CaddyRepo: AptRepo{
			KeyURL:      "https://dl.cloudsmith.io/public/caddy/stable/gpg.key",
			KeyringPath: "/etc/apt/keyrings/caddy-stable.asc",
			SourceLine: "deb [signed-by=/etc/apt/keyrings/caddy-stable.asc]" +
				" https://dl.cloudsmith.io/public/caddy/stable/deb/debian any-version main",
			SourcePath: "/etc/apt/sources.list.d/caddy-stable.list",
		},
		DockerPackages: []string{
			"docker-ce", "docker-ce-cli", "containerd.io",
			"docker-buildx-plugin", "docker-compose-plugin",
		},
		CaddyPackages: []string{"caddy"},
	}
}
