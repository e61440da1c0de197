package ingest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	errs "tikscraper/pkg/errors"
	"tikscraper/pkg/extractor"
	"tikscraper/pkg/models"
)

// ProfileEntry is one profile descriptor of the input document
type ProfileEntry struct {
	URL  string `yaml:"url" json:"url"`
	Name string `yaml:"name" json:"name"`
}

// LoadTargets reads the input document at path. See ParseTargets.
func LoadTargets(path string) ([]models.ProfileTarget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(errs.ErrorTypeConfig, "profiles file %q not found", path)
		}
		return nil, errs.Wrap(errs.ErrorTypeConfig, err, "failed to read profiles file %q", path)
	}
	targets, err := ParseTargets(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return targets, nil
}

// ParseTargets parses a JSON or YAML document mapping group names to lists
// of {url, name}. Groups and profiles keep their document order. The
// username is taken from the URL's @handle, falling back to the name; the
// URL loses its query string.
func ParseTargets(data []byte) ([]models.ProfileTarget, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, err, "invalid profiles document")
	}
	if len(doc.Content) == 0 {
		return nil, errs.New(errs.ErrorTypeConfig, "profiles document is empty")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errs.New(errs.ErrorTypeConfig, "profiles document must map group names to profile lists")
	}

	var targets []models.ProfileTarget
	for i := 0; i+1 < len(root.Content); i += 2 {
		group := strings.TrimSpace(root.Content[i].Value)
		if group == "" {
			return nil, errs.New(errs.ErrorTypeConfig, "group name must not be empty")
		}

		var entries []ProfileEntry
		if err := root.Content[i+1].Decode(&entries); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeConfig, err, "group %q must be a list of {url, name}", group)
		}

		for j, e := range entries {
			t, err := targetFromEntry(group, e)
			if err != nil {
				return nil, errs.Wrap(errs.ErrorTypeConfig, err, "group %q entry %d", group, j+1)
			}
			targets = append(targets, t)
		}
	}

	if len(targets) == 0 {
		return nil, errs.New(errs.ErrorTypeConfig, "no profiles to scrape")
	}
	return targets, nil
}

func targetFromEntry(group string, e ProfileEntry) (models.ProfileTarget, error) {
	url := strings.TrimSpace(e.URL)
	name := strings.TrimSpace(e.Name)
	if url == "" {
		return models.ProfileTarget{}, fmt.Errorf("missing url")
	}

	username := extractor.UsernameFromURL(url)
	if username == "" {
		username = strings.TrimPrefix(name, "@")
	}
	if username == "" {
		return models.ProfileTarget{}, fmt.Errorf("cannot derive a username from %q", url)
	}

	return models.ProfileTarget{
		Group:    group,
		URL:      extractor.CleanProfileURL(url),
		Name:     name,
		Username: username,
	}, nil
}

// SelectTargets applies the --debug and --username filters. firstPerGroup
// keeps the first profile of every group. An unknown username is a
// configuration error.
func SelectTargets(targets []models.ProfileTarget, username string, firstPerGroup bool) ([]models.ProfileTarget, error) {
	var out []models.ProfileTarget
	seen := make(map[string]bool)
	for _, t := range targets {
		if firstPerGroup {
			if seen[t.Group] {
				continue
			}
			seen[t.Group] = true
		}
		if username != "" && t.Username != strings.TrimPrefix(username, "@") {
			continue
		}
		out = append(out, t)
	}

	if username != "" && len(out) == 0 {
		return nil, errs.New(errs.ErrorTypeConfig, "profile @%s not found in the profiles file", strings.TrimPrefix(username, "@"))
	}
	return out, nil
}
