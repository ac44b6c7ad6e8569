package firefox

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/lotas/fensterordnung/internal/types"
)

// FindFirefoxDir returns the platform-specific Firefox profile directory.
func FindFirefoxDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Mozilla", "Firefox")
		}
		return ""
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch runtime.GOOS {
	case "linux":
		return filepath.Join(home, ".mozilla", "firefox")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Firefox")
	default:
		return ""
	}
}

type iniSection struct {
	name   string
	values map[string]string
}

// readINI splits profiles.ini into sections. Keys outside any section are
// ignored.
func readINI(r io.Reader) ([]iniSection, error) {
	var sections []iniSection
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			sections = append(sections, iniSection{
				name:   line[1 : len(line)-1],
				values: make(map[string]string),
			})
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || len(sections) == 0 {
			continue
		}
		sections[len(sections)-1].values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan profiles.ini: %w", err)
	}
	return sections, nil
}

// profilesFromINI builds profiles from [Profile*] sections. A profile is
// the default when it says Default=1 or when an [Install*] section points
// at its path, which is how current Firefox releases record it.
func profilesFromINI(sections []iniSection, firefoxDir string) []types.Profile {
	installDefaults := make(map[string]bool)
	for _, s := range sections {
		if strings.HasPrefix(s.name, "Install") && s.values["Default"] != "" {
			installDefaults[s.values["Default"]] = true
		}
	}

	var profiles []types.Profile
	for _, s := range sections {
		if !strings.HasPrefix(s.name, "Profile") {
			continue
		}
		p := types.Profile{
			Name:       s.values["Name"],
			Path:       s.values["Path"],
			IsRelative: s.values["IsRelative"] == "1",
			IsDefault:  s.values["Default"] == "1" || installDefaults[s.values["Path"]],
		}
		if p.IsRelative {
			p.Path = filepath.Join(firefoxDir, filepath.FromSlash(p.Path))
		}
		profiles = append(profiles, p)
	}
	return profiles
}

// ParseProfilesINI reads profiles.ini and returns the profiles that have a
// session file to read.
func ParseProfilesINI(iniPath, firefoxDir string) ([]types.Profile, error) {
	f, err := os.Open(iniPath)
	if err != nil {
		return nil, fmt.Errorf("open profiles.ini: %w", err)
	}
	defer f.Close()

	sections, err := readINI(f)
	if err != nil {
		return nil, err
	}

	var usable []types.Profile
	for _, p := range profilesFromINI(sections, firefoxDir) {
		if _, err := sessionPath(p.Path); err == nil {
			usable = append(usable, p)
		}
	}
	return usable, nil
}

// DiscoverProfiles finds and parses Firefox profiles on this system.
func DiscoverProfiles() ([]types.Profile, error) {
	dir := FindFirefoxDir()
	if dir == "" {
		return nil, fmt.Errorf("could not find Firefox directory for %s", runtime.GOOS)
	}
	return ParseProfilesINI(filepath.Join(dir, "profiles.ini"), dir)
}

// FindProfile picks a profile by name. An empty name selects the default
// profile, or the first one when none is marked default.
func FindProfile(profiles []types.Profile, name string) (types.Profile, error) {
	if len(profiles) == 0 {
		return types.Profile{}, fmt.Errorf("no Firefox profiles with session data found")
	}
	if name == "" {
		for _, p := range profiles {
			if p.IsDefault {
				return p, nil
			}
		}
		return profiles[0], nil
	}
	for _, p := range profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return types.Profile{}, fmt.Errorf("profile %q not found", name)
}
