package auth

const (
	defaultCookieName          = "kinder_refresh"
	defaultMaxLoginFailures    = 5
	defaultLoginLockoutMinutes = 15
)

type Config struct {
	// CookieName of the HttpOnly cookie carrying the refresh secret.
	CookieName string `yaml:"cookie_name"`

	// CookieDomain is left empty for host-only cookies.
	CookieDomain string `yaml:"cookie_domain"`

	// MaxLoginFailures per username before logins are refused for
	// LoginLockoutMinutes.
	MaxLoginFailures    int `yaml:"max_login_failures"`
	LoginLockoutMinutes int `yaml:"login_lockout_minutes"`
}

func (c *Config) Validate() {
	if c.MaxLoginFailures < 0 || c.LoginLockoutMinutes < 0 {
		logger.Fatal().Msg("AuthConfig: login throttle values must not be negative")
	}
	c.applyDefaults()
}

func (c *Config) applyDefaults() {
	if c.CookieName == "" {
		c.CookieName = defaultCookieName
	}
	if c.MaxLoginFailures == 0 {
		c.MaxLoginFailures = defaultMaxLoginFailures
	}
	if c.LoginLockoutMinutes == 0 {
		c.LoginLockoutMinutes = defaultLoginLockoutMinutes
	}
}
