package formassistant

import theme "github.com/goliatone/go-theme"

// rendererConfigFromSelection flattens a go-theme selection into the renderer
// configuration the HTML surface consumes: variant overlays applied, tokens
// mirrored as CSS custom properties, and an asset URL resolver bound to the
// manifest's asset table.
func rendererConfigFromSelection(sel *theme.Selection) *theme.RendererConfig {
	if sel == nil {
		return nil
	}
	cfg := &theme.RendererConfig{
		Theme:    sel.Theme,
		Variant:  sel.Variant,
		Partials: map[string]string{},
		Tokens:   map[string]string{},
		CSSVars:  map[string]string{},
	}

	manifest := sel.Manifest
	if manifest == nil {
		return cfg
	}

	for name, path := range manifest.Templates {
		cfg.Partials[name] = path
	}
	for name, value := range manifest.Tokens {
		cfg.Tokens[name] = value
	}

	files := map[string]string{}
	for name, file := range manifest.Assets.Files {
		files[name] = file
	}
	if variant, ok := manifest.Variants[sel.Variant]; ok {
		for name, path := range variant.Templates {
			cfg.Partials[name] = path
		}
		for name, value := range variant.Tokens {
			cfg.Tokens[name] = value
		}
		for name, file := range variant.Assets.Files {
			files[name] = file
		}
	}

	for name, value := range cfg.Tokens {
		cfg.CSSVars["--"+name] = value
	}

	prefix := manifest.Assets.Prefix
	cfg.AssetURL = func(name string) string {
		file, ok := files[name]
		if !ok {
			return ""
		}
		if prefix == "" {
			return file
		}
		return prefix + "/" + file
	}
	return cfg
}
