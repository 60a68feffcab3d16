package site

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"slices"

	"github.com/olinlibrary/hackingthelibrary/markdown"
	"github.com/olinlibrary/hackingthelibrary/pages"
	"github.com/olinlibrary/hackingthelibrary/render"
	"github.com/pelletier/go-toml/v2"
)

// ConfigFile is the default name of the site configuration file.
const ConfigFile = "site.toml"

// Markdown plugins understood by the builder.
const (
	PluginSmartypants = "smartypants"
	PluginImages      = "images"
)

// pluginNotes lists site plugins that have no build-time effect here.
var pluginNotes = map[string]string{
	"react-helmet":      "page heads come from the templates",
	"sass":              "stylesheets are static assets",
	"netlify-cms":       "the CMS editor is hosted separately",
	"nprogress":         "client-side only",
	"transformer-sharp": "images are linked, not resized",
	"sharp":             "images are linked, not resized",
}

// ContentConfig locates the Markdown content.
type ContentConfig struct {
	Path string `toml:"path"` // Content root, relative to the site root
	Name string `toml:"name"` // Name of the content source
}

// MarkdownConfig controls Markdown rendering.
type MarkdownConfig struct {
	Plugins []string `toml:"plugins"`
	Dashes  string   `toml:"dashes"`
}

// ImagesConfig controls the images plugin.
type ImagesConfig struct {
	MaxWidth       int  `toml:"max_width"`
	LinkToOriginal bool `toml:"link_to_original"`
}

// TemplatesConfig selects page templates.
type TemplatesConfig struct {
	Dir         string            `toml:"dir"`
	Default     string            `toml:"default"`
	Collections map[string]string `toml:"collections"`
}

// ServeConfig holds settings used when serving the built site.
type ServeConfig struct {
	Expires       Duration          `toml:"expires"`
	StaticExpires Duration          `toml:"static_expires"`
	Headers       map[string]string `toml:"headers"`
}

// Config contains configuration data from the site.toml file.
type Config struct {
	Site       render.SiteMetadata `toml:"site"`
	Content    ContentConfig       `toml:"content"`
	Markdown   MarkdownConfig      `toml:"markdown"`
	Images     ImagesConfig        `toml:"images"`
	Templates  TemplatesConfig     `toml:"templates"`
	Plugins    []string            `toml:"plugins"`
	QueryLimit int                 `toml:"query_limit"`
	Output     string              `toml:"output"`
	Serve      ServeConfig         `toml:"serve"`
}

// Default returns the configuration used when no site.toml exists.
func Default() *Config {
	return &Config{
		Site: render.SiteMetadata{
			Title:       "Hacking the Library",
			Subtitle:    "Olin College of Engineering",
			Description: "Let’s create a new kind of Library.",
		},
		Content: ContentConfig{
			Path: "src/pages",
			Name: "markdown-pages",
		},
		Markdown: MarkdownConfig{
			Plugins: []string{PluginSmartypants, PluginImages},
			Dashes:  markdown.DashesOldschool,
		},
		Images: ImagesConfig{
			MaxWidth:       590,
			LinkToOriginal: true,
		},
		Templates: TemplatesConfig{
			Dir:         "src/templates",
			Default:     pages.TemplatePage,
			Collections: map[string]string{"posts": pages.TemplatePost},
		},
		Plugins:    []string{"react-helmet", "sass", "netlify-cms", "nprogress", "transformer-sharp", "sharp"},
		QueryLimit: pages.DefaultLimit,
		Output:     "public",
	}
}

// LoadConfig reads name from fsys on top of the defaults.
// It is not an error if the file does not exist.
func LoadConfig(fsys fs.FS, name string) (*Config, error) {
	cfg := Default()
	cfgBytes, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("Cannot read config file: %w", err)
	}
	err = toml.Unmarshal(cfgBytes, cfg)
	if err != nil {
		return nil, fmt.Errorf("Cannot parse config file: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the builder cannot use.
func (c *Config) Validate() error {
	var errs []error
	if c.Content.Path == "" {
		errs = append(errs, errors.New("content.path must be set"))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("output must be set"))
	}
	if !markdown.ValidDashes(c.Markdown.Dashes) {
		errs = append(errs, fmt.Errorf("markdown.dashes: unknown style %q", c.Markdown.Dashes))
	}
	if c.Images.MaxWidth < 0 {
		errs = append(errs, fmt.Errorf("images.max_width must not be negative, got %d", c.Images.MaxWidth))
	}
	if c.QueryLimit <= 0 {
		errs = append(errs, fmt.Errorf("query_limit must be positive, got %d", c.QueryLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("Invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// MarkdownOptions returns the rendering options implied by the markdown
// plugins.
func (c *Config) MarkdownOptions() markdown.Options {
	return markdown.Options{
		Smartypants:          slices.Contains(c.Markdown.Plugins, PluginSmartypants),
		Dashes:               c.Markdown.Dashes,
		Images:               slices.Contains(c.Markdown.Plugins, PluginImages),
		ImageMaxWidth:        c.Images.MaxWidth,
		LinkImagesToOriginal: c.Images.LinkToOriginal,
	}
}

// Emitter returns a page emitter for content under root.
func (c *Config) Emitter(root string) *pages.Emitter {
	e := pages.NewEmitter(root)
	if c.Templates.Default != "" {
		e.DefaultTemplate = c.Templates.Default
	}
	if c.Templates.Collections != nil {
		e.CollectionTemplates = c.Templates.Collections
	}
	e.Limit = c.QueryLimit
	return e
}

// logPlugins reports what happens to each configured site plugin.
func (c *Config) logPlugins() {
	for _, p := range c.Plugins {
		if note, ok := pluginNotes[p]; ok {
			log.Printf("Plugin %q: %s", p, note)
		} else {
			log.Printf("Plugin %q is not known; ignoring", p)
		}
	}
	for _, p := range c.Markdown.Plugins {
		if p != PluginSmartypants && p != PluginImages {
			log.Printf("Markdown plugin %q is not known; ignoring", p)
		}
	}
}
