package mysql

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jjeffery/errors"

	"github.com/nikola-chen/dbi/engine"
)

// Connection attribute keys consumed by this backend. Any other key is
// ignored.
const (
	AttrConnectTimeout  = "mysql_connect_timeout"
	AttrReadTimeout     = "mysql_read_timeout"
	AttrWriteTimeout    = "mysql_write_timeout"
	AttrPort            = "mysql_port"
	AttrUnixSocket      = "mysql_unix_socket"
	AttrCharsetName     = "mysql_charset_name"
	AttrInitCommand     = "mysql_init_command"
	AttrLocalInfile     = "mysql_local_infile"
	AttrSSL             = "mysql_ssl"
	AttrSSLVerifyServer = "mysql_ssl_verify_server_cert"
	// AttrServerSidePrep is accepted but has no effect: statements always
	// travel over the text protocol.
	AttrServerSidePrep  = "mysql_server_side_prepare"
)

const (
	defaultPort = "3306"
	defaultHost = "127.0.0.1"
)

// Options is the parsed form of the attributes this backend consumes that
// are not part of the driver configuration.
type Options struct {
	// InitCommands run on the connection right after it is established.
	InitCommands []string
}

// NewConfig builds the driver configuration for a connection.
func NewConfig(database, host, username, credential string, attrs engine.Attributes) (*mysql.Config, Options, error) {
	var opts Options
	cfg := mysql.NewConfig()
	cfg.User = username
	cfg.Passwd = credential
	cfg.DBName = database

	if host == "" {
		host = defaultHost
	}
	if sock, ok := attrs[AttrUnixSocket]; ok && sock != "" {
		cfg.Net = "unix"
		cfg.Addr = sock
	} else {
		port := defaultPort
		if p, ok := attrs[AttrPort]; ok {
			n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 16)
			if err != nil {
				return nil, opts, attrError(err, AttrPort, p)
			}
			if n != 0 {
				port = strconv.FormatUint(n, 10)
			}
		}
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(host, port)
	}

	for key, dst := range map[string]*time.Duration{
		AttrConnectTimeout: &cfg.Timeout,
		AttrReadTimeout:    &cfg.ReadTimeout,
		AttrWriteTimeout:   &cfg.WriteTimeout,
	} {
		s, ok := attrs[key]
		if !ok {
			continue
		}
		d, err := parseTimeout(s)
		if err != nil {
			return nil, opts, attrError(err, key, s)
		}
		*dst = d
	}

	if cs, ok := attrs[AttrCharsetName]; ok && cs != "" {
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params["charset"] = cs
	}
	if cmd, ok := attrs[AttrInitCommand]; ok && cmd != "" {
		opts.InitCommands = append(opts.InitCommands, cmd)
	}
	if s, ok := attrs[AttrLocalInfile]; ok {
		on, err := parseFlag(s)
		if err != nil {
			return nil, opts, attrError(err, AttrLocalInfile, s)
		}
		cfg.AllowAllFiles = on
	}
	if s, ok := attrs[AttrSSL]; ok {
		on, err := parseFlag(s)
		if err != nil {
			return nil, opts, attrError(err, AttrSSL, s)
		}
		if on {
			cfg.TLSConfig = "true"
			if v, ok := attrs[AttrSSLVerifyServer]; ok {
				verify, err := parseFlag(v)
				if err != nil {
					return nil, opts, attrError(err, AttrSSLVerifyServer, v)
				}
				if !verify {
					cfg.TLSConfig = "skip-verify"
				}
			}
		}
	}
	return cfg, opts, nil
}

// parseTimeout accepts whole seconds or a Go duration.
func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("negative timeout")
	}
	return d, nil
}

// parseFlag accepts an integer (non-zero is true) or a boolean word.
func parseFlag(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n != 0, nil
	}
	return strconv.ParseBool(s)
}

func attrError(err error, key, val string) error {
	return errors.Wrap(err, "invalid connection attribute").With("key", key, "value", val)
}
