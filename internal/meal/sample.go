package meal

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed sample_menu.yaml
var sampleMenuYAML []byte

func sampleMenu() (Menu, error) {
	var menu Menu
	if err := yaml.Unmarshal(sampleMenuYAML, &menu); err != nil {
		return Menu{}, fmt.Errorf("failed to decode sample menu: %w", err)
	}
	menu.Mock = true
	return menu, nil
}
