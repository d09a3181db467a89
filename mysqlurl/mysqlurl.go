package mysqlurl

import (
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	mysqldriver "github.com/go-sql-driver/mysql"
)

// Parse accepts either a go-sql-driver DSN (optionally prefixed by a
// mysql:// scheme) or a mysql:// URL, and returns the driver config.
func Parse(connStr string) (*mysqldriver.Config, error) {
	connStr = strings.TrimPrefix(connStr, "jdbc:")
	// Try the default go-driver DSN style
	if cfg, err := ParseMySQLDSN(connStr); err == nil {
		return cfg, err
	}
	// If it fails, try to parse via conn string
	return ParseMySQLConnStr(connStr)
}

func ParseMySQLDSN(connStr string) (*mysqldriver.Config, error) {
	byProtocol := strings.SplitN(connStr, "://", 2)
	cfg, err := mysqldriver.ParseDSN(byProtocol[len(byProtocol)-1])
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing DSN for %q", connStr)
	}
	return cfg, nil
}

func ParseMySQLConnStr(connStr string) (*mysqldriver.Config, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing conn str for %q", connStr)
	}
	cfg := mysqldriver.NewConfig()
	cfg.Net = "tcp" // By default the go-sql-driver uses tcp
	cfg.Addr = u.Host
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.DBName = strings.TrimPrefix(u.EscapedPath(), "/")
	dsn := cfg.FormatDSN()
	if u.RawQuery != "" {
		if strings.Contains(dsn, "?") {
			dsn += "&" + u.RawQuery
		} else {
			dsn += "?" + u.RawQuery
		}
	}
	// We reparse it with the driver to normalize and validate the parameters.
	cfg, err = mysqldriver.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing conn str for %q", connStr)
	}
	return cfg, nil
}
