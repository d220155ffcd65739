package config

import (
	"net/url"
	"strconv"
)

// IMAPCredentials is the mailbox-access half of a mail account,
// resolved from an imap:// or imaps:// connection string.
type IMAPCredentials struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool // implicit TLS (imaps); plain connections use STARTTLS when offered
}

// Valid reports whether the credentials are usable. Zero credentials
// come from malformed connection strings and fail on first connect.
func (c IMAPCredentials) Valid() bool {
	return c.Host != "" && c.Username != ""
}

// SMTPCredentials is the outbound-mail half of a mail account,
// resolved from an smtp:// or smtps:// connection string.
type SMTPCredentials struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool // implicit TLS (smtps); plain connections upgrade via STARTTLS
}

func (c SMTPCredentials) Valid() bool {
	return c.Host != "" && c.Username != ""
}

// ParseIMAPURL resolves an imap(s)://user:password@host:port string.
// A malformed string yields inert zero credentials rather than an
// error, so misconfiguration surfaces as a connection failure instead
// of a startup crash.
func ParseIMAPURL(raw string) IMAPCredentials {
	u, ok := parseMailURL(raw, "imap", "imaps")
	if !ok {
		return IMAPCredentials{}
	}

	creds := IMAPCredentials{
		Host:     u.Hostname(),
		Username: u.User.Username(),
		UseTLS:   u.Scheme == "imaps",
	}
	creds.Password, _ = u.User.Password()

	creds.Port = portOf(u, map[string]int{"imap": 143, "imaps": 993})
	return creds
}

// ParseSMTPURL resolves an smtp(s)://user:password@host:port string,
// with the same inert fallback as ParseIMAPURL.
func ParseSMTPURL(raw string) SMTPCredentials {
	u, ok := parseMailURL(raw, "smtp", "smtps")
	if !ok {
		return SMTPCredentials{}
	}

	creds := SMTPCredentials{
		Host:     u.Hostname(),
		Username: u.User.Username(),
		UseTLS:   u.Scheme == "smtps",
	}
	creds.Password, _ = u.User.Password()

	creds.Port = portOf(u, map[string]int{"smtp": 587, "smtps": 465})
	return creds
}

func parseMailURL(raw string, schemes ...string) (*url.URL, bool) {
	if raw == "" {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil || u.Hostname() == "" {
		return nil, false
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return u, true
		}
	}
	return nil, false
}

func portOf(u *url.URL, defaults map[string]int) int {
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 && n < 65536 {
			return n
		}
	}
	return defaults[u.Scheme]
}
