package config

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const redacted = "xxxxx"

var keywordPassword = regexp.MustCompile(`(?i)(\bpassword\s*=\s*)('[^']*'|[^\s&]+)`)

// RedactDSN masks the password in a database DSN so it can be printed.
// URL, keyword=value and MySQL DSNs are understood.
func RedactDSN(driver, dsn string) string {
	if dsn == "" {
		return dsn
	}

	if strings.Contains(dsn, "://") {
		if u, err := url.Parse(dsn); err == nil {
			if _, ok := u.User.Password(); ok {
				u.User = url.UserPassword(u.User.Username(), redacted)
			}
			return keywordPassword.ReplaceAllString(u.String(), "${1}"+redacted)
		}
	}

	if driver == "mysql" {
		if cfg, err := mysql.ParseDSN(dsn); err == nil {
			if cfg.Passwd != "" {
				cfg.Passwd = redacted
			}
			return cfg.FormatDSN()
		}
	}

	return keywordPassword.ReplaceAllString(dsn, "${1}"+redacted)
}
