// Package s3 uploads run reports to S3 compatible storage.
package s3

import (
	"github.com/alecthomas/kingpin/v2"
)

// Flags describes S3 upload parameters, upload is disabled when Bucket is empty.
type Flags struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
	Region       string
	URL          string
	Bucket       string
	Prefix       string
	PathStyle    bool
}

// AddFlags registers S3 flags into command.
func AddFlags(cmd *kingpin.CmdClause, f *Flags) {
	cmd.Flag("s3-access-key", "S3 access key/id (env AWS_ACCESS_KEY), default credentials chain is used if empty.").
		Envar("AWS_ACCESS_KEY").StringVar(&f.AccessKey)
	cmd.Flag("s3-secret-key", "S3 secret key (env AWS_SECRET_KEY).").
		Envar("AWS_SECRET_KEY").StringVar(&f.SecretKey)
	cmd.Flag("s3-session-token", "S3 session token (env AWS_SESSION_TOKEN).").
		Envar("AWS_SESSION_TOKEN").StringVar(&f.SessionToken)

	cmd.Flag("s3-region", "S3 region.").Default("eu-central-1").StringVar(&f.Region)
	cmd.Flag("s3-url", "Optional S3 URL (if not AWS).").StringVar(&f.URL)
	cmd.Flag("s3-bucket", "Bucket to upload csv reports to, requires --csv.").StringVar(&f.Bucket)
	cmd.Flag("s3-prefix", "Key prefix of uploaded reports.").StringVar(&f.Prefix)
	cmd.Flag("s3-path-style", "To use path-style addressing, i.e., `http://s3.amazonaws.com/BUCKET/KEY`.").
		BoolVar(&f.PathStyle)
}
