package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/passvault/internal/flagx"
)

// parseFlags overlays cfg with command-line flags.
//
//	-d string   database DSN (file path, "file:..." or postgres://...)
//	-l string   log level (debug, info, warn, error)
//	-f string   log format (text, json)
//	-n int      scrypt N for new credentials
//	-i int      PBKDF2 iterations for new credentials
//	-x string   export backend (file, s3)
//	-o string   export directory for the file backend
//	-b string   S3 bucket
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-u string   S3 access key
//	-p string   S3 secret key
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-d", "-l", "-f", "-n", "-i", "-x", "-o", "-b", "-g", "-e", "-u", "-p"})

	fs := flag.NewFlagSet("passvault", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format")
	fs.IntVar(&cfg.Scrypt.N, "n", cfg.Scrypt.N, "scrypt N")
	fs.IntVar(&cfg.PBKDF2Iterations, "i", cfg.PBKDF2Iterations, "PBKDF2 iterations")
	fs.StringVar(&cfg.ExportBackend, "x", cfg.ExportBackend, "export backend")
	fs.StringVar(&cfg.ExportDir, "o", cfg.ExportDir, "export directory")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&cfg.S3AccessKey, "u", cfg.S3AccessKey, "S3 access key")
	fs.StringVar(&cfg.S3SecretKey, "p", cfg.S3SecretKey, "S3 secret key")

	return fs.Parse(args)
}
