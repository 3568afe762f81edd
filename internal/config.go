package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/legacygit/internal/archive"
	"github.com/starford/legacygit/internal/replay"
	"github.com/starford/legacygit/internal/table"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Validation errors name fields by their YAML keys.
func init() {
	validation.ErrorTag = "yaml"
}

var domainRe = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?(\.[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?)*$`)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Table    TableConfig       `yaml:"table"`
	Archives ArchivesConfig    `yaml:"archives"`
	Repo     RepoConfig        `yaml:"repo"`
	Journal  JournalConfig     `yaml:"journal"`
	Auth     AuthConfig        `yaml:"auth"`
	Watch    WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Table, &c.Archives, &c.Repo, &c.Auth, &c.Watch} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration (watch mode only).
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// TableConfig locates the version table.
type TableConfig struct {
	Path        string        `yaml:"path"`
	Format      string        `yaml:"format"`       // csv or sqlite; inferred from Path when empty
	SQLiteTable string        `yaml:"sqlite_table"` // required for sqlite
	Sort        bool          `yaml:"sort"`         // re-sort newest first before building chains
	ChainFilter string        `yaml:"chain_filter"` // keep only chains whose head reference contains it
	Columns     table.Columns `yaml:"columns"`
}

// Validate validates the table configuration, inferring Format if unset.
func (c *TableConfig) Validate() error {
	if c.Format == "" {
		c.Format = table.InferFormat(c.Path)
	}
	err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Format, validation.Required.Error("cannot be inferred from path; set csv or sqlite"),
			validation.In(table.FormatCSV, table.FormatSQLite)),
		validation.Field(&c.SQLiteTable, validation.When(c.Format == table.FormatSQLite, validation.Required)),
	)
	if err != nil {
		return fmt.Errorf("table: %w", err)
	}
	cols := &c.Columns
	if err := validation.ValidateStruct(cols,
		validation.Field(&cols.Reference, validation.Required),
		validation.Field(&cols.BasedOn, validation.Required),
		validation.Field(&cols.CreatedAt, validation.Required),
		validation.Field(&cols.Author, validation.Required),
		validation.Field(&cols.Comment, validation.Required),
	); err != nil {
		return fmt.Errorf("table.columns: %w", err)
	}
	return nil
}

// Options converts the configuration into table.Options.
func (c *TableConfig) Options() table.Options {
	return table.Options{Path: c.Path, Format: c.Format, Table: c.SQLiteTable, Columns: c.Columns}
}

// ArchivesConfig locates the snapshot archives.
type ArchivesConfig struct {
	Path      string `yaml:"path"`
	Extension string `yaml:"extension"`
	TempDir   string `yaml:"temp_dir"` // scratch space for extraction; empty uses the OS default
}

// Validate validates the archives configuration.
func (c *ArchivesConfig) Validate() error {
	if c.Extension == "" {
		c.Extension = archive.DefaultExtension
	}
	err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Extension, validation.By(func(any) error {
			if !strings.HasPrefix(c.Extension, ".") {
				return fmt.Errorf("must start with a dot")
			}
			return nil
		})),
	)
	if err != nil {
		return fmt.Errorf("archives: %w", err)
	}
	return nil
}

// RepoConfig describes the target git repository.
type RepoConfig struct {
	Path             string `yaml:"path"`
	Clean            bool   `yaml:"clean"` // delete Path before replaying
	BootstrapMessage string `yaml:"bootstrap_message"`
	EmailDomain      string `yaml:"email_domain"`
	AnnotatedTags    bool   `yaml:"annotated_tags"`
}

// Validate validates the repository configuration.
func (c *RepoConfig) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.BootstrapMessage, validation.Required),
		validation.Field(&c.EmailDomain, validation.Required, validation.Match(domainRe)),
	)
	if err != nil {
		return fmt.Errorf("repo: %w", err)
	}
	return nil
}

// JournalConfig holds the journal database path. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether a journal should be kept.
func (c *JournalConfig) Enabled() bool {
	return c.Path != ""
}

// AuthConfig holds authentication configuration for the watch-mode API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Table: TableConfig{
			Path:    "./versions.csv",
			Sort:    true,
			Columns: table.DefaultColumns(),
		},
		Archives: ArchivesConfig{
			Path:      "./archives",
			Extension: archive.DefaultExtension,
		},
		Repo: RepoConfig{
			Path:             "./history",
			Clean:            true,
			BootstrapMessage: replay.DefaultBootstrapMessage,
			EmailDomain:      replay.DefaultEmailDomain,
		},
		Journal: JournalConfig{
			Path: "./legacygit.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Watch: WatchConfig{
			Debounce: 2 * time.Second,
		},
	}
}
